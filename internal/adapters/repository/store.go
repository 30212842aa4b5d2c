package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// Notifier receives a hint that the stored document changed.
type Notifier interface {
	Notify(ctx context.Context, updatedAt int64)
}

// Hook runs after a save with the document as stored.
type Hook func(ctx context.Context, doc *model.Document)

// Store is the narrow repository of the device document.
type Store interface {
	// Load returns the stored document, or a fresh default when none is stored
	// or the stored one cannot be used.
	Load(ctx context.Context) (*model.Document, error)
	// Save stamps and persists doc, then notifies and runs hooks unless suppressed.
	Save(ctx context.Context, doc *model.Document, opts ...SaveOption) (*model.Document, error)
	// Update loads the document, applies fn and saves the result. No other
	// write of this store interleaves between the load and the save.
	Update(ctx context.Context, fn func(doc *model.Document) error) (*model.Document, error)
	// Adopt stores doc with its own stamp when it is strictly newer than the
	// stored document. Hooks do not run; subscribers are notified.
	Adopt(ctx context.Context, doc *model.Document) (bool, error)
	// Reset replaces the stored document with a fresh default.
	Reset(ctx context.Context) (*model.Document, error)
	// OnSave registers a post-save hook.
	OnSave(h Hook)
}

// DocumentStore keeps the document as one JSON value in a KV.
type DocumentStore struct {
	kv       KV
	key      string
	clock    clockwork.Clock
	notifier Notifier
	log      logger.Logger

	// write serializes every read-modify-write of the stored document.
	write sync.Mutex

	mu    sync.Mutex
	hooks []Hook
	// seen is the updatedAt of the last document this store wrote or read.
	seen int64
}

var _ Store = (*DocumentStore)(nil)

// NewDocumentStore returns a store over kv.
func NewDocumentStore(kv KV, opts ...Option) *DocumentStore {
	s := &DocumentStore{
		kv:    kv,
		key:   DefaultKey,
		clock: clockwork.NewRealClock(),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Store. Corrupt and unknown-version documents are replaced by
// a default in the returned value only; storage is rewritten on the next save.
func (s *DocumentStore) Load(ctx context.Context) (*model.Document, error) {
	doc, _, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	s.observe(doc.UpdatedAt)
	return doc, nil
}

func (s *DocumentStore) read(ctx context.Context) (*model.Document, model.LoadResult, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		metrics.RecordStateLoad(string(model.LoadDefault))
		return model.DefaultDocument(s.now()), model.LoadDefault, nil
	}
	if err != nil {
		metrics.RecordError("store", "read")
		return nil, "", fmt.Errorf("load document: %w", err)
	}

	doc, result, err := model.Decode(raw)
	if err != nil {
		s.log.Warn(ctx, "stored document unusable, starting fresh", logger.Error(err), logger.Int("bytes", len(raw)))
		metrics.RecordStateLoad("recovered")
		return model.DefaultDocument(s.now()), model.LoadDefault, nil
	}
	metrics.RecordStateLoad(string(result))
	return doc, result, nil
}

// Save implements Store. It returns the stored copy.
func (s *DocumentStore) Save(ctx context.Context, doc *model.Document, opts ...SaveOption) (*model.Document, error) {
	cfg := newSaveConfig(opts)
	s.write.Lock()
	out, err := s.persist(ctx, doc, cfg)
	s.write.Unlock()
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, cfg)
	return out, nil
}

// Update implements Store.
func (s *DocumentStore) Update(ctx context.Context, fn func(doc *model.Document) error) (*model.Document, error) {
	cfg := newSaveConfig(nil)
	s.write.Lock()
	doc, _, err := s.read(ctx)
	if err != nil {
		s.write.Unlock()
		return nil, err
	}
	if err := fn(doc); err != nil {
		s.write.Unlock()
		return nil, err
	}
	out, err := s.persist(ctx, doc, cfg)
	s.write.Unlock()
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, cfg)
	return out, nil
}

// Adopt implements Store. The comparison is against the stored document at
// the moment of the write, never an earlier snapshot.
func (s *DocumentStore) Adopt(ctx context.Context, doc *model.Document) (bool, error) {
	if doc == nil {
		return false, nil
	}
	cfg := newSaveConfig([]SaveOption{KeepStamp(), WithoutHooks()})
	s.write.Lock()
	local, _, err := s.read(ctx)
	if err != nil {
		s.write.Unlock()
		return false, err
	}
	if doc.UpdatedAt <= local.UpdatedAt {
		s.write.Unlock()
		return false, nil
	}
	out, err := s.persist(ctx, doc, cfg)
	s.write.Unlock()
	if err != nil {
		return false, err
	}
	s.announce(ctx, out, cfg)
	return true, nil
}

// Reset implements Store.
func (s *DocumentStore) Reset(ctx context.Context) (*model.Document, error) {
	cfg := newSaveConfig(nil)
	s.write.Lock()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.write.Unlock()
		return nil, fmt.Errorf("reset document: %w", err)
	}
	metrics.RecordStateReset()
	out, err := s.persist(ctx, model.DefaultDocument(s.now()), cfg)
	s.write.Unlock()
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out, cfg)
	return out, nil
}

func newSaveConfig(opts []SaveOption) saveConfig {
	cfg := saveConfig{broadcast: true, hooks: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// persist stamps and writes doc. The caller holds s.write.
func (s *DocumentStore) persist(ctx context.Context, doc *model.Document, cfg saveConfig) (*model.Document, error) {
	start := s.clock.Now()
	out := doc.Clone()
	out.Normalize()
	out.Version = model.CurrentVersion
	if !cfg.keepStamp {
		out.UpdatedAt = s.now()
	}

	raw, err := out.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, raw); err != nil {
		metrics.RecordError("store", "write")
		return nil, fmt.Errorf("save document: %w", err)
	}
	s.observe(out.UpdatedAt)
	metrics.RecordStateSave(float64(s.clock.Since(start).Microseconds())/1000, len(raw))
	return out, nil
}

// announce notifies and runs hooks outside the write lock, so a hook may
// save again.
func (s *DocumentStore) announce(ctx context.Context, out *model.Document, cfg saveConfig) {
	if cfg.broadcast && s.notifier != nil {
		s.notifier.Notify(ctx, out.UpdatedAt)
	}
	if cfg.hooks {
		s.mu.Lock()
		hooks := append([]Hook(nil), s.hooks...)
		s.mu.Unlock()
		for _, h := range hooks {
			h(ctx, out.Clone())
		}
	}
}

// OnSave implements Store.
func (s *DocumentStore) OnSave(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

func (s *DocumentStore) now() int64 {
	return s.clock.Now().UnixMilli()
}

func (s *DocumentStore) observe(at int64) {
	s.mu.Lock()
	s.seen = at
	s.mu.Unlock()
}

// changedElsewhere records at and reports whether it differs from the last
// stamp this store knows about.
func (s *DocumentStore) changedElsewhere(at int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at == s.seen {
		return false
	}
	s.seen = at
	return true
}
