// Package ranking turns lane results and game times into ordered, ranked rows.
// Every function is pure and total: malformed numbers rank as missing.
package ranking

import (
	"cmp"
	"slices"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/schedule"
)

// Context selects the heats a results leaderboard covers. A blank field matches all.
type Context struct {
	Grade string
	Event string
	Round string
}

// Row is one lane result of a results leaderboard.
type Row struct {
	HeatID  string       `json:"heatId"`
	HeatNo  int          `json:"heatNo"`
	Lane    int          `json:"lane"`
	PID     string       `json:"pid"`
	Name    string       `json:"name"`
	Class   string       `json:"class"`
	No      int          `json:"no"`
	TimeSec *float64     `json:"timeSec"`
	Status  model.Status `json:"status"`
	Note    string       `json:"note"`
	// Rank is nil for rows that are not OK with a time.
	Rank *int `json:"rank"`
}

// Ranked reports whether the row carries a rank.
func (r Row) Ranked() bool { return r.Rank != nil }

// Leaderboard collects every lane result of the heats matching c and ranks them.
// The participant of a lane is the one seated when the heat was built; the
// roster only supplies the display fields.
func Leaderboard(doc *model.Document, c Context) []Row {
	if doc == nil {
		return []Row{}
	}
	people := model.ParticipantIndex(doc.Participants)
	rows := []Row{}
	for _, h := range schedule.Filter(doc.Heats, c.Grade, c.Event, c.Round) {
		lanes := doc.Results[h.ID]
		for _, slot := range h.Lanes {
			rec, ok := lanes[model.LaneKey(slot.Lane)]
			if !ok {
				continue
			}
			pid := slot.ParticipantID()
			if pid == "" && rec.PID != nil {
				pid = *rec.PID
			}
			if pid == "" {
				continue
			}
			rec.Status = model.ParseStatus(string(rec.Status))
			rec.Normalize()

			row := Row{
				HeatID: h.ID, HeatNo: h.HeatNo, Lane: slot.Lane, PID: pid,
				Class: slot.Cls, TimeSec: rec.TimeSec, Status: rec.Status, Note: rec.Note,
			}
			if p, ok := people[pid]; ok {
				row.Name, row.Class, row.No = p.Name, p.Class, p.No
			}
			rows = append(rows, row)
		}
	}

	coll := model.NewCollator()
	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(a.Status.Order(), b.Status.Order()); c != 0 {
			return c
		}
		if c := compareMissingLast(a.TimeSec, b.TimeSec); c != 0 {
			return c
		}
		return cmp.Or(coll.Compare(a.Class, b.Class), cmp.Compare(a.No, b.No))
	})

	rank := 0
	for i := range rows {
		if rows[i].Status != model.StatusOK || rows[i].TimeSec == nil {
			continue
		}
		rank++
		rows[i].Rank = intPtr(rank)
	}
	return rows
}

// compareMissingLast orders present values ascending before missing ones.
func compareMissingLast(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

func intPtr(v int) *int { return &v }
