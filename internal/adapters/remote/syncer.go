package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/merge"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// State is the sync state machine position.
type State string

// Sync states.
const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StatePulling  State = "pulling"
	StatePushing  State = "pushing"
)

// Remote is the relay side of a sync.
type Remote interface {
	Fetch(ctx context.Context) (*model.Document, error)
	Store(ctx context.Context, doc *model.Document) error
}

// LocalStore is the part of the document store the syncer needs. Adopt must
// compare and store in one step with respect to every other local write.
type LocalStore interface {
	Adopt(ctx context.Context, doc *model.Document) (bool, error)
}

// Syncer reconciles the local document with the relay. It starts disabled and
// stays that way unless Enable succeeds.
type Syncer struct {
	store    LocalStore
	clock    clockwork.Clock
	log      logger.Logger
	instance string

	mu       sync.RWMutex
	remote   Remote
	interval time.Duration

	pulling atomic.Bool
	pushing atomic.Bool
	state   atomic.Value
}

// NewSyncer returns a disabled syncer over store.
func NewSyncer(store LocalStore, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		clock:    clockwork.NewRealClock(),
		log:      logger.Nop(),
		instance: uuid.New().String(),
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("sync").With(logger.String("instance", s.instance))
	s.setState(StateDisabled)
	return s
}

// Enable validates cfg and arms the syncer against r. A failed Enable leaves
// the syncer disabled.
func (s *Syncer) Enable(cfg Config, r Remote) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: no remote", ErrIncomplete)
	}
	s.mu.Lock()
	s.remote = r
	s.interval = cfg.PollInterval()
	s.mu.Unlock()
	s.setState(StateIdle)
	return nil
}

// InstanceID identifies this station in logs and notifications.
func (s *Syncer) InstanceID() string { return s.instance }

// State returns the current state.
func (s *Syncer) State() State {
	return s.state.Load().(State)
}

// Enabled reports whether the syncer has a remote.
func (s *Syncer) Enabled() bool {
	return s.remoteOrNil() != nil
}

// Run pulls once, then on every interval until ctx ends. It returns at once
// when the syncer is disabled.
func (s *Syncer) Run(ctx context.Context) {
	if !s.Enabled() {
		s.log.Info(ctx, "remote sync disabled")
		return
	}
	s.mu.RLock()
	interval := s.interval
	s.mu.RUnlock()
	s.log.Info(ctx, "remote sync started", logger.Duration("interval", interval))

	s.pullLogged(ctx)
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.pullLogged(ctx)
		}
	}
}

func (s *Syncer) pullLogged(ctx context.Context) {
	if _, err := s.Pull(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		s.log.Warn(ctx, "pull failed", logger.Error(err))
	}
}

// Pull adopts the remote document when it is strictly newer than the stored
// one at the moment of the write. The adopted copy keeps the remote stamp and
// skips post-save hooks, so it never triggers a push. It reports whether the
// local document was replaced.
func (s *Syncer) Pull(ctx context.Context) (bool, error) {
	r := s.remoteOrNil()
	if r == nil {
		return false, nil
	}
	if !s.pulling.CompareAndSwap(false, true) {
		return false, ErrAlreadyRunning
	}
	s.refreshState()
	defer func() {
		s.pulling.Store(false)
		s.refreshState()
	}()

	start := s.clock.Now()
	remote, err := r.Fetch(ctx)
	metrics.RecordSyncLatency("pull", msSince(s.clock, start))
	if err != nil {
		metrics.RecordSyncPull("error")
		return false, fmt.Errorf("pull: %w", err)
	}
	if !merge.Usable(remote) {
		metrics.RecordSyncPull("empty")
		return false, nil
	}

	adopted, err := s.store.Adopt(ctx, remote)
	if err != nil {
		metrics.RecordSyncPull("error")
		return false, fmt.Errorf("pull: %w", err)
	}
	if !adopted {
		metrics.RecordSyncPull("stale")
		return false, nil
	}
	metrics.RecordSyncPull("applied")
	s.log.Debug(ctx, "adopted remote document", logger.Int64("remote_updated_at", remote.UpdatedAt))
	return true, nil
}

// Push merges local into the current remote document and writes the result
// back. A relay that answers the read with an error status is treated as
// empty, then local becomes the base. Push on a disabled syncer is a no-op.
func (s *Syncer) Push(ctx context.Context, local *model.Document) error {
	r := s.remoteOrNil()
	if r == nil || local == nil {
		return nil
	}
	if !s.pushing.CompareAndSwap(false, true) {
		metrics.RecordSyncPush("skipped")
		return ErrAlreadyRunning
	}
	s.refreshState()
	defer func() {
		s.pushing.Store(false)
		s.refreshState()
	}()

	start := s.clock.Now()
	remote, err := r.Fetch(ctx)
	var status *StatusError
	if errors.As(err, &status) {
		remote, err = nil, nil
	}
	if err != nil {
		metrics.RecordSyncPush("error")
		return fmt.Errorf("push: %w", err)
	}

	merged, stats := merge.ForPush(remote, local, s.clock.Now().UnixMilli())
	if err := r.Store(ctx, merged); err != nil {
		metrics.RecordSyncPush("error")
		return fmt.Errorf("push: %w", err)
	}
	metrics.RecordSyncLatency("push", msSince(s.clock, start))
	metrics.RecordMergedLaneRecords("local", stats.Local)
	metrics.RecordMergedLaneRecords("remote", stats.Remote)
	metrics.RecordSyncPush("ok")
	s.log.Debug(ctx, "pushed merged document",
		logger.Int("local_lanes", stats.Local), logger.Int("remote_lanes", stats.Remote))
	return nil
}

func (s *Syncer) remoteOrNil() Remote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

func (s *Syncer) refreshState() {
	switch {
	case s.remoteOrNil() == nil:
		s.setState(StateDisabled)
	case s.pushing.Load():
		s.setState(StatePushing)
	case s.pulling.Load():
		s.setState(StatePulling)
	default:
		s.setState(StateIdle)
	}
}

func (s *Syncer) setState(st State) {
	s.state.Store(st)
	_ = metrics.SetSyncState(string(st))
}

func msSince(c clockwork.Clock, start time.Time) float64 {
	return float64(c.Since(start).Microseconds()) / 1000
}
