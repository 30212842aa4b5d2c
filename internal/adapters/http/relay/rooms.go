// Package relay is the shared endpoint stations sync their documents through.
//
// A room holds one document. The first writer of a room fixes its token; later
// reads and writes must present the same token.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/repository"
)

const roomKeyPrefix = "room:"

// Sentinel errors of the relay.
var (
	ErrForbidden  = errors.New("room token mismatch")
	ErrNoRoom     = errors.New("room and token are required")
	ErrEmptyState = errors.New("state is required")
)

// Room is the persisted record of a room.
type Room struct {
	Token     string          `json:"token"`
	State     json.RawMessage `json:"state"`
	WrittenAt int64           `json:"writtenAt"`
}

// Rooms stores rooms in a KV.
type Rooms struct {
	kv    repository.KV
	clock clockwork.Clock
	mu    sync.Mutex
}

// NewRooms returns a room store over kv.
func NewRooms(kv repository.KV, clock clockwork.Clock) *Rooms {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Rooms{kv: kv, clock: clock}
}

// Read returns the state of room. An unknown room has no state.
func (r *Rooms) Read(ctx context.Context, room, token string) (json.RawMessage, error) {
	if room == "" || token == "" {
		return nil, ErrNoRoom
	}
	rec, ok, err := r.get(ctx, room)
	if err != nil || !ok {
		return nil, err
	}
	if rec.Token != token {
		return nil, ErrForbidden
	}
	return rec.State, nil
}

// Write replaces the state of room.
func (r *Rooms) Write(ctx context.Context, room, token string, state json.RawMessage) error {
	if room == "" || token == "" {
		return ErrNoRoom
	}
	if len(state) == 0 || string(state) == "null" {
		return ErrEmptyState
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok, err := r.get(ctx, room)
	if err != nil {
		return err
	}
	if ok && rec.Token != token {
		return ErrForbidden
	}
	raw, err := json.Marshal(Room{Token: token, State: state, WrittenAt: r.clock.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode room: %w", err)
	}
	if err := r.kv.Put(ctx, roomKeyPrefix+room, raw); err != nil {
		return fmt.Errorf("write room %s: %w", room, err)
	}
	return nil
}

func (r *Rooms) get(ctx context.Context, room string) (Room, bool, error) {
	raw, err := r.kv.Get(ctx, roomKeyPrefix+room)
	if errors.Is(err, repository.ErrNotFound) {
		return Room{}, false, nil
	}
	if err != nil {
		return Room{}, false, fmt.Errorf("read room %s: %w", room, err)
	}
	var rec Room
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Room{}, false, fmt.Errorf("decode room %s: %w", room, err)
	}
	return rec, true, nil
}
