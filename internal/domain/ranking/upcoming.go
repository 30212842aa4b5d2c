package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// DefaultUpcoming is the number of teams the board announces.
const DefaultUpcoming = 3

// OrderHeats returns the heats in running order: grade, event, round, heat number, id.
func OrderHeats(heats []model.Heat) []model.Heat {
	out := slices.Clone(heats)
	coll := model.NewCollator()
	slices.SortStableFunc(out, func(a, b model.Heat) int {
		return cmp.Or(
			coll.Compare(a.Grade, b.Grade),
			coll.Compare(a.Event, b.Event),
			coll.Compare(a.Round, b.Round),
			cmp.Compare(a.HeatNo, b.HeatNo),
			strings.Compare(a.ID, b.ID),
		)
	})
	return out
}

// UpcomingTeams lists up to n distinct class labels of the heats after the
// current one, wrapping around to the start. Without a current heat it starts
// from the first heat.
func UpcomingTeams(doc *model.Document, n int) []string {
	teams := []string{}
	if doc == nil || n <= 0 {
		return teams
	}
	heats := OrderHeats(doc.Heats)
	start := 0
	if cur := doc.CurrentHeatID(); cur != "" {
		for i, h := range heats {
			if h.ID == cur {
				start = i + 1
				break
			}
		}
	}

	seen := map[string]bool{}
	add := func(label string) {
		s := strings.TrimSpace(label)
		if s == "" || seen[s] || len(teams) >= n {
			return
		}
		seen[s] = true
		teams = append(teams, s)
	}
	for i := range heats {
		h := heats[(start+i)%len(heats)]
		add(h.ClassA)
		add(h.ClassB)
		if len(teams) >= n {
			break
		}
	}
	return teams
}
