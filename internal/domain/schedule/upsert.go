package schedule

import (
	"cmp"
	"slices"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// UpsertStats counts what Upsert did with the built heats.
type UpsertStats struct {
	Inserted int `json:"inserted"`
	Replaced int `json:"replaced"`
	Locked   int `json:"locked"`
	// Kept lists the ids of locked heats that were left as stored.
	Kept []string `json:"kept,omitempty"`
}

// Upsert merges built into heats by id. A matching heat is replaced in place,
// unless it is locked, in which case it is kept. New ids are appended in order.
func Upsert(heats, built []model.Heat) ([]model.Heat, UpsertStats) {
	var stats UpsertStats
	out := slices.Clone(heats)
	pos := make(map[string]int, len(out))
	for i, h := range out {
		pos[h.ID] = i
	}
	for _, h := range built {
		i, ok := pos[h.ID]
		switch {
		case !ok:
			pos[h.ID] = len(out)
			out = append(out, h)
			stats.Inserted++
		case out[i].Locked:
			stats.Locked++
			stats.Kept = append(stats.Kept, h.ID)
		default:
			out[i] = h
			stats.Replaced++
		}
	}
	if out == nil {
		out = []model.Heat{}
	}
	return out, stats
}

// Filter returns the heats of a grade/event/round, ordered by heat number then
// creation time. A blank criterion matches every value.
func Filter(heats []model.Heat, grade, event, round string) []model.Heat {
	out := make([]model.Heat, 0, len(heats))
	for _, h := range heats {
		if matches(grade, h.Grade) && matches(event, h.Event) && matches(round, h.Round) {
			out = append(out, h)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Heat) int {
		return cmp.Or(cmp.Compare(a.HeatNo, b.HeatNo), cmp.Compare(a.CreatedAt, b.CreatedAt))
	})
	return out
}

func matches(want, got string) bool {
	return want == "" || want == got
}
