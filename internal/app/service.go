// Package service performs every read-modify-write of the device document.
//
// Mutations are serialized: each loads the whole document, changes it and
// saves it back, so the next State call always sees the change.
package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/csvio"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/notify"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/repository"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/ranking"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/schedule"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// Subscriptions hands out change notification streams.
type Subscriptions interface {
	Subscribe(ctx context.Context) (<-chan notify.Event, func())
}

// Service is the application layer over the document store.
type Service struct {
	store  repository.Store
	subs   Subscriptions
	clock  clockwork.Clock
	topN   int
	logger logger.Logger
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  clockwork.NewRealClock(),
		topN:   DefaultTopN,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportStats summarizes a roster import.
type ImportStats struct {
	Participants int `json:"participants"`
	Present      int `json:"present"`
}

// BuildResult is the outcome of a heat build.
type BuildResult struct {
	// Heats are the built heats as stored; a locked heat comes back unchanged.
	Heats   []model.Heat         `json:"heats"`
	Stats   schedule.UpsertStats `json:"stats"`
	Message string               `json:"message"`
	Doc     *model.Document      `json:"-"`
}

// LaneEntry is one score-entry submission for a lane.
type LaneEntry struct {
	HeatID string `json:"heatId"`
	Lane   int    `json:"lane"`
	// Time is the raw time text; non-numeric text means no time.
	Time   string `json:"time"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

// PicksUpdate changes the picks or fill strategy of a heat. Nil fields are kept.
type PicksUpdate struct {
	PickedA      []string            `json:"pickedA"`
	PickedB      []string            `json:"pickedB"`
	FillStrategy *model.FillStrategy `json:"fillStrategy"`
}

// GradeBoard is the game leaderboard of one grade.
type GradeBoard struct {
	Grade string            `json:"grade"`
	Rows  []ranking.GameRow `json:"rows"`
}

// Board is the public display read model.
type Board struct {
	UpdatedAt   int64        `json:"updatedAt"`
	CurrentHeat *model.Heat  `json:"currentHeat"`
	Upcoming    []string     `json:"upcoming"`
	Grades      []GradeBoard `json:"grades"`
}

// State returns the current document.
func (s *Service) State(ctx context.Context) (*model.Document, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return doc, nil
}

// ImportRoster parses a CSV roster and replaces the participants with it.
// A roster that fails to parse leaves the document untouched.
func (s *Service) ImportRoster(ctx context.Context, r io.Reader) (ImportStats, error) {
	ps, err := csvio.ParseRoster(r)
	if err != nil {
		return ImportStats{}, err
	}
	return s.ReplaceRoster(ctx, ps)
}

// ReplaceRoster replaces the participants and gives every new participant an
// empty game-time record.
func (s *Service) ReplaceRoster(ctx context.Context, ps []model.Participant) (ImportStats, error) {
	var stats ImportStats
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		doc.Participants = slices.Clone(ps)
		for _, p := range ps {
			if p.Present {
				stats.Present++
			}
			if _, ok := doc.Games.Times[p.ID]; !ok {
				doc.Games.Times[p.ID] = model.GameTimes{}
			}
		}
		stats.Participants = len(ps)
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	s.logger.Info(ctx, "roster imported", logger.Int("participants", stats.Participants), logger.Int("present", stats.Present))
	return stats, nil
}

// BuildHeats builds heats for req and upserts them. The current heat moves to
// the first built heat.
func (s *Service) BuildHeats(ctx context.Context, req schedule.Request) (BuildResult, error) {
	var res BuildResult
	doc, err := s.mutate(ctx, func(doc *model.Document) error {
		req.CreatedAt = s.now()
		built, err := schedule.Build(doc.Participants, req)
		if err != nil {
			return err
		}
		doc.Heats, res.Stats = schedule.Upsert(doc.Heats, built)
		doc.UI.CurrentHeatID = model.StringPtr(built[0].ID)
		res.Heats = make([]model.Heat, 0, len(built))
		for _, h := range built {
			res.Heats = append(res.Heats, doc.Heats[doc.HeatIndex(h.ID)])
		}
		return nil
	})
	if err != nil {
		return BuildResult{}, err
	}
	res.Doc = doc
	res.Message = buildMessage(req.Batch, res)
	metrics.RecordHeatsBuilt(len(res.Heats))
	s.logger.Info(ctx, "heats built",
		logger.Int("built", len(res.Heats)),
		logger.Int("inserted", res.Stats.Inserted),
		logger.Int("replaced", res.Stats.Replaced),
		logger.Int("locked", res.Stats.Locked),
	)
	return res, nil
}

// buildMessage is the operator message of a build. Locked heats that kept
// their stored lanes are named.
func buildMessage(batch bool, res BuildResult) string {
	var b strings.Builder
	if batch {
		fmt.Fprintf(&b, "已自動建立 %d 場（並設為第 1 場為目前場次）", len(res.Heats))
	} else {
		fmt.Fprintf(&b, "已建立：第 %d 場（並設為目前場次）", res.Heats[0].HeatNo)
	}
	for _, h := range res.Heats {
		if slices.Contains(res.Stats.Kept, h.ID) {
			fmt.Fprintf(&b, "；第 %d 場已鎖定，保留原有場次，未覆蓋", h.HeatNo)
		}
	}
	b.WriteString("。")
	return b.String()
}

// Heat returns the heat with id.
func (s *Service) Heat(ctx context.Context, id string) (model.Heat, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return model.Heat{}, err
	}
	i := doc.HeatIndex(id)
	if i < 0 {
		return model.Heat{}, fmt.Errorf("%w: %s", ErrHeatNotFound, id)
	}
	return doc.Heats[i], nil
}

// UpdateHeatPicks changes the picks of an unlocked heat and recomputes its lanes.
// Picks outside the heat's classes or not present are dropped.
func (s *Service) UpdateHeatPicks(ctx context.Context, id string, u PicksUpdate) (model.Heat, error) {
	var out model.Heat
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		h, err := heat(doc, id)
		if err != nil {
			return err
		}
		if h.Locked {
			return fmt.Errorf("%w: %s", ErrHeatLocked, id)
		}
		index := model.ParticipantIndex(doc.Participants)
		if u.PickedA != nil {
			h.PickedA = schedule.Select(doc.Participants, index, h.ClassA, u.PickedA)
		}
		if u.PickedB != nil {
			h.PickedB = schedule.Select(doc.Participants, index, h.ClassB, u.PickedB)
		}
		if u.FillStrategy != nil {
			h.FillStrategy = model.ParseFillStrategy(string(*u.FillStrategy))
		}
		schedule.Relayout(h)
		out = *h
		return nil
	})
	return out, err
}

// SetHeatLocked locks or unlocks a heat.
func (s *Service) SetHeatLocked(ctx context.Context, id string, locked bool) (model.Heat, error) {
	var out model.Heat
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		h, err := heat(doc, id)
		if err != nil {
			return err
		}
		h.Locked = locked
		out = *h
		return nil
	})
	return out, err
}

// SetCurrentHeat moves the "now showing" pointer. An empty id clears it.
func (s *Service) SetCurrentHeat(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		if id == "" {
			doc.UI.CurrentHeatID = nil
			return nil
		}
		if doc.HeatIndex(id) < 0 {
			return fmt.Errorf("%w: %s", ErrHeatNotFound, id)
		}
		doc.UI.CurrentHeatID = model.StringPtr(id)
		return nil
	})
	return err
}

// RecordLaneResult stores the result of one lane. A numeric time forces OK; any
// other status drops the time. The record keeps the lane's participant.
func (s *Service) RecordLaneResult(ctx context.Context, e LaneEntry) (model.ResultRecord, error) {
	if e.Lane < 1 || e.Lane > model.LaneCount {
		return model.ResultRecord{}, fmt.Errorf("%w: %d", ErrInvalidLane, e.Lane)
	}
	var rec model.ResultRecord
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		h, err := heat(doc, e.HeatID)
		if err != nil {
			return err
		}
		rec = model.ResultRecord{
			TimeSec:   model.NormalizeTime(e.Time),
			Status:    model.ParseStatus(e.Status),
			Note:      strings.TrimSpace(e.Note),
			UpdatedAt: s.now(),
		}
		if slot, ok := h.LaneOf(e.Lane); ok && !slot.Empty() {
			rec.PID = model.StringPtr(slot.ParticipantID())
		}
		if rec.TimeSec != nil {
			rec.Status = model.StatusOK
		}
		rec.Normalize()
		if doc.Results[h.ID] == nil {
			doc.Results[h.ID] = map[string]model.ResultRecord{}
		}
		doc.Results[h.ID][model.LaneKey(e.Lane)] = rec
		return nil
	})
	if err != nil {
		return model.ResultRecord{}, err
	}
	metrics.RecordResultEntered(string(rec.Status))
	return rec, nil
}

// ClearHeatResults removes every lane result of a heat.
func (s *Service) ClearHeatResults(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		if _, err := heat(doc, id); err != nil {
			return err
		}
		delete(doc.Results, id)
		return nil
	})
	return err
}

// SetGameTime stores one of the three game times of a participant. Text that
// is not a number clears the slot.
func (s *Service) SetGameTime(ctx context.Context, pid string, slot int, value string) (model.GameTimes, error) {
	var out model.GameTimes
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		if _, err := participant(doc, pid); err != nil {
			return err
		}
		g := doc.Games.Times[pid]
		if !g.SetSlot(slot, model.NormalizeTime(value)) {
			return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
		}
		doc.Games.Times[pid] = g
		out = g
		return nil
	})
	return out, err
}

// SetGameNote sets the game note of a participant.
func (s *Service) SetGameNote(ctx context.Context, pid, note string) (model.GameTimes, error) {
	var out model.GameTimes
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		if _, err := participant(doc, pid); err != nil {
			return err
		}
		g := doc.Games.Times[pid]
		g.Note = strings.TrimSpace(note)
		doc.Games.Times[pid] = g
		out = g
		return nil
	})
	return out, err
}

// SetGameLabels renames the three game slots. A blank label falls back to its default.
func (s *Service) SetGameLabels(ctx context.Context, labels []string) ([]string, error) {
	if len(labels) != len(model.DefaultGameLabels) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLabels, len(labels))
	}
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = strings.TrimSpace(l)
		if out[i] == "" {
			out[i] = model.DefaultGameLabels[i]
		}
	}
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		doc.Games.Labels = slices.Clone(out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetPresent toggles the presence of a participant.
func (s *Service) SetPresent(ctx context.Context, pid string, present bool) (model.Participant, error) {
	var out model.Participant
	_, err := s.mutate(ctx, func(doc *model.Document) error {
		p, err := participant(doc, pid)
		if err != nil {
			return err
		}
		p.Present = present
		out = *p
		return nil
	})
	return out, err
}

// Leaderboard ranks the lane results of the heats matching c.
func (s *Service) Leaderboard(ctx context.Context, c ranking.Context) ([]ranking.Row, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	start := s.clock.Now()
	rows := ranking.Leaderboard(doc, c)
	metrics.RecordRankingLatency("results", msSince(s.clock, start))
	return rows, nil
}

// GameLeaderboard ranks a grade by game totals. limit <= 0 uses the configured top N.
func (s *Service) GameLeaderboard(ctx context.Context, grade string, limit int) ([]ranking.GameRow, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.topN
	}
	start := s.clock.Now()
	rows := ranking.GameLeaderboard(doc, strings.TrimSpace(grade), limit)
	metrics.RecordRankingLatency("games", msSince(s.clock, start))
	return rows, nil
}

// Upcoming lists the next n teams after the current heat.
func (s *Service) Upcoming(ctx context.Context, n int) ([]string, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = ranking.DefaultUpcoming
	}
	return ranking.UpcomingTeams(doc, n), nil
}

// HeatsFor lists the heats of a grade/event/round for score entry.
func (s *Service) HeatsFor(ctx context.Context, grade, event, round string) ([]model.Heat, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.Filter(doc.Heats, strings.TrimSpace(grade), strings.TrimSpace(event), strings.TrimSpace(round)), nil
}

// Board assembles the public display: the current heat, the upcoming teams
// and the top game rows of every grade.
func (s *Service) Board(ctx context.Context) (Board, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return Board{}, err
	}
	b := Board{
		UpdatedAt: doc.UpdatedAt,
		Upcoming:  ranking.UpcomingTeams(doc, ranking.DefaultUpcoming),
		Grades:    []GradeBoard{},
	}
	if i := doc.HeatIndex(doc.CurrentHeatID()); i >= 0 {
		h := doc.Heats[i]
		b.CurrentHeat = &h
	}
	for _, g := range ranking.Grades(doc) {
		b.Grades = append(b.Grades, GradeBoard{Grade: g, Rows: ranking.GameLeaderboard(doc, g, s.topN)})
	}
	return b, nil
}

// Stats counts the content of the document.
type Stats struct {
	UpdatedAt    int64 `json:"updatedAt"`
	Participants int   `json:"participants"`
	Present      int   `json:"present"`
	Heats        int   `json:"heats"`
	LockedHeats  int   `json:"lockedHeats"`
	Results      int   `json:"results"`
	GameTimes    int   `json:"gameTimes"`
}

// Stats summarizes the current document.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	doc, err := s.State(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		UpdatedAt:    doc.UpdatedAt,
		Participants: len(doc.Participants),
		Heats:        len(doc.Heats),
		GameTimes:    len(doc.Games.Times),
	}
	for _, p := range doc.Participants {
		if p.Present {
			st.Present++
		}
	}
	for _, h := range doc.Heats {
		if h.Locked {
			st.LockedHeats++
		}
	}
	for _, lanes := range doc.Results {
		st.Results += len(lanes)
	}
	return st, nil
}

// Reset discards the document.
func (s *Service) Reset(ctx context.Context) (*model.Document, error) {
	doc, err := s.store.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset state: %w", err)
	}
	s.logger.Warn(ctx, "state reset")
	return doc, nil
}

// Restore replaces the document with a backup. The restore counts as a local
// mutation and is stamped now.
func (s *Service) Restore(ctx context.Context, data []byte) (*model.Document, error) {
	restored, _, err := model.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	doc, err := s.mutate(ctx, func(doc *model.Document) error {
		*doc = *restored
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "state restored", logger.Int("heats", len(doc.Heats)), logger.Int("participants", len(doc.Participants)))
	return doc, nil
}

// Subscribe returns a stream of change notifications. Without a source the
// stream is closed at once.
func (s *Service) Subscribe(ctx context.Context) (<-chan notify.Event, func()) {
	if s.subs == nil {
		ch := make(chan notify.Event)
		close(ch)
		return ch, func() {}
	}
	return s.subs.Subscribe(ctx)
}

// mutate runs fn as one read-modify-write of the store. The store serializes
// it with every other write, remote adoptions included.
func (s *Service) mutate(ctx context.Context, fn func(doc *model.Document) error) (*model.Document, error) {
	var fnErr error
	saved, err := s.store.Update(ctx, func(doc *model.Document) error {
		fnErr = fn(doc)
		return fnErr
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, fmt.Errorf("update state: %w", err)
	}
	return saved, nil
}

func (s *Service) now() int64 {
	return s.clock.Now().UnixMilli()
}

func heat(doc *model.Document, id string) (*model.Heat, error) {
	i := doc.HeatIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrHeatNotFound, id)
	}
	return &doc.Heats[i], nil
}

func participant(doc *model.Document, pid string) (*model.Participant, error) {
	for i := range doc.Participants {
		if doc.Participants[i].ID == pid {
			return &doc.Participants[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrParticipantNotFound, pid)
}

func msSince(c clockwork.Clock, start time.Time) float64 {
	return float64(c.Since(start).Microseconds()) / 1000
}
