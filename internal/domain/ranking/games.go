package ranking

import (
	"cmp"
	"slices"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// GameRow is one participant of the three-game leaderboard.
type GameRow struct {
	Grade    string   `json:"grade"`
	PID      string   `json:"pid"`
	Name     string   `json:"name"`
	Class    string   `json:"class"`
	No       int      `json:"no"`
	T1       *float64 `json:"t1"`
	T2       *float64 `json:"t2"`
	T3       *float64 `json:"t3"`
	Total    *float64 `json:"total"`
	Complete bool     `json:"complete"`
	Note     string   `json:"note"`
	Rank     *int     `json:"rank"`
}

// GameLeaderboard ranks the present participants of grade by their three-game
// total. Complete rows come first and are the only ones ranked. limit <= 0
// keeps every row.
func GameLeaderboard(doc *model.Document, grade string, limit int) []GameRow {
	if doc == nil {
		return []GameRow{}
	}
	rows := []GameRow{}
	for _, p := range doc.Participants {
		if !p.Present || model.GradeOf(p.Class) != grade {
			continue
		}
		g := doc.Games.Times[p.ID]
		row := GameRow{
			Grade: grade, PID: p.ID, Name: p.Name, Class: p.Class, No: p.No,
			T1: g.T1, T2: g.T2, T3: g.T3, Note: g.Note,
		}
		if total, ok := g.Total(); ok {
			row.Total = &total
			row.Complete = true
		}
		rows = append(rows, row)
	}

	coll := model.NewCollator()
	slices.SortStableFunc(rows, func(a, b GameRow) int {
		if a.Complete != b.Complete {
			if a.Complete {
				return -1
			}
			return 1
		}
		if c := compareMissingLast(a.Total, b.Total); c != 0 {
			return c
		}
		return cmp.Or(coll.Compare(a.Class, b.Class), cmp.Compare(a.No, b.No))
	})

	rank := 0
	for i := range rows {
		if !rows[i].Complete {
			continue
		}
		rank++
		rows[i].Rank = intPtr(rank)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Grades lists the grades present in the roster in numeric order.
func Grades(doc *model.Document) []string {
	if doc == nil {
		return []string{}
	}
	seen := map[string]bool{}
	out := []string{}
	for _, p := range doc.Participants {
		g := model.GradeOf(p.Class)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(a), len(b)), cmp.Compare(a, b))
	})
	return out
}

// AllTotals returns the full game leaderboard of every grade, grade by grade.
func AllTotals(doc *model.Document) []GameRow {
	out := []GameRow{}
	for _, g := range Grades(doc) {
		out = append(out, GameLeaderboard(doc, g, 0)...)
	}
	return out
}
