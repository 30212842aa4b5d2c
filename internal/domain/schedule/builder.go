package schedule

import (
	"slices"
	"strings"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// Defaults applied to blank descriptors.
const (
	DefaultEvent = "遊戲"
	DefaultRound = "預賽"
)

// Request describes one build: a single heat or a batch for a class pairing.
type Request struct {
	Grade  string
	Event  string
	Round  string
	ClassA string
	ClassB string
	// PickedA and PickedB select participants of each class. A nil slice selects
	// every present member of the class.
	PickedA []string
	PickedB []string
	// Batch builds as many heats as needed to seat every pick.
	Batch bool
	// HeatNo is the heat number of a single build.
	HeatNo int
	// StartHeatNo is the number of the first heat of a batch.
	StartHeatNo  int
	FillStrategy model.FillStrategy
	CreatedAt    int64
}

// Build validates req against the roster and returns the heat drafts in heat
// number order. Validation fails with a *ValidationError and builds nothing.
func Build(roster []model.Participant, req Request) ([]model.Heat, error) {
	req.Grade = strings.TrimSpace(req.Grade)
	req.ClassA = strings.TrimSpace(req.ClassA)
	req.ClassB = strings.TrimSpace(req.ClassB)

	switch {
	case len(roster) == 0:
		return nil, invalid(ErrEmptyRoster)
	case req.ClassA == "" || req.ClassB == "":
		return nil, invalid(ErrClassNotSelected)
	case req.ClassA == req.ClassB:
		return nil, invalid(ErrSameClass)
	case req.Grade == "" || model.GradeOf(req.ClassA) != req.Grade || model.GradeOf(req.ClassB) != req.Grade:
		return nil, invalid(ErrGradeMismatch)
	}

	index := model.ParticipantIndex(roster)
	pickedA := Select(roster, index, req.ClassA, req.PickedA)
	pickedB := Select(roster, index, req.ClassB, req.PickedB)
	if len(pickedA)+len(pickedB) == 0 {
		return nil, invalid(ErrNoSelection)
	}

	if !req.Batch {
		return []model.Heat{draft(req, max(req.HeatNo, 1), chunk(pickedA, 0), chunk(pickedB, 0))}, nil
	}

	count := max(chunks(len(pickedA)), chunks(len(pickedB)))
	start := max(req.StartHeatNo, 1)
	heats := make([]model.Heat, 0, count)
	for i := range count {
		heats = append(heats, draft(req, start+i, chunk(pickedA, i), chunk(pickedB, i)))
	}
	return heats, nil
}

// Select returns the eligible picks of cls ordered by number, then name.
// Unknown, absent, duplicate and foreign-class ids are dropped.
func Select(roster []model.Participant, index map[string]model.Participant, cls string, picked []string) []string {
	var members []model.Participant
	if picked == nil {
		for _, p := range roster {
			if p.Class == cls && p.Present {
				members = append(members, p)
			}
		}
	} else {
		seen := make(map[string]bool, len(picked))
		for _, id := range picked {
			p, ok := index[id]
			if !ok || seen[id] || !p.Present || p.Class != cls {
				continue
			}
			seen[id] = true
			members = append(members, p)
		}
	}

	coll := model.NewCollator()
	slices.SortStableFunc(members, func(a, b model.Participant) int {
		if a.No != b.No {
			return a.No - b.No
		}
		return coll.Compare(a.Name, b.Name)
	})

	ids := make([]string, len(members))
	for i, p := range members {
		ids[i] = p.ID
	}
	return ids
}

// Relayout recomputes the lanes of h from its picks and strategy.
func Relayout(h *model.Heat) {
	h.PickedA = truncate(h.PickedA)
	h.PickedB = truncate(h.PickedB)
	h.Lanes = AssignLanes(h.ClassA, h.ClassB, h.PickedA, h.PickedB, h.FillStrategy)
}

func draft(req Request, heatNo int, pickedA, pickedB []string) model.Heat {
	event := strings.TrimSpace(req.Event)
	if event == "" {
		event = DefaultEvent
	}
	round := strings.TrimSpace(req.Round)
	if round == "" {
		round = DefaultRound
	}
	strategy := model.ParseFillStrategy(string(req.FillStrategy))

	h := model.Heat{
		Grade:        req.Grade,
		Event:        event,
		Round:        round,
		HeatNo:       heatNo,
		ClassA:       req.ClassA,
		ClassB:       req.ClassB,
		PickedA:      pickedA,
		PickedB:      pickedB,
		FillStrategy: strategy,
		CreatedAt:    req.CreatedAt,
	}
	h.ID = HeatID(Key{Grade: h.Grade, Event: h.Event, Round: h.Round, HeatNo: h.HeatNo, ClassA: h.ClassA, ClassB: h.ClassB})
	h.Lanes = AssignLanes(h.ClassA, h.ClassB, h.PickedA, h.PickedB, h.FillStrategy)
	return h
}

func chunks(n int) int {
	return (n + model.PicksPerClass - 1) / model.PicksPerClass
}

// chunk returns the i-th group of picks; it is empty (never nil) past the end.
func chunk(ids []string, i int) []string {
	lo := i * model.PicksPerClass
	if lo >= len(ids) {
		return []string{}
	}
	hi := min(lo+model.PicksPerClass, len(ids))
	return slices.Clone(ids[lo:hi])
}

func truncate(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	if len(ids) > model.PicksPerClass {
		return slices.Clone(ids[:model.PicksPerClass])
	}
	return ids
}
