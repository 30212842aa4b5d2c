package schedule

import "github.com/soyingpang/sportsday-race-mvp/internal/domain/model"

// AssignLanes lays out up to two picks per class over the four lanes in the base
// order A1, A2, B1, B2. Extra picks are ignored and empty ids count as no pick.
// KeepPosition leaves gaps in place; CompactFill moves every filled slot forward
// and blanks the trailing lanes.
func AssignLanes(classA, classB string, pickedA, pickedB []string, strategy model.FillStrategy) []model.LaneSlot {
	slots := make([]model.LaneSlot, 0, model.LaneCount)
	slots = appendClass(slots, classA, pickedA)
	slots = appendClass(slots, classB, pickedB)

	if strategy == model.CompactFill {
		filled := slots[:0:0]
		for _, s := range slots {
			if !s.Empty() {
				filled = append(filled, s)
			}
		}
		for len(filled) < model.LaneCount {
			filled = append(filled, model.LaneSlot{})
		}
		slots = filled
	}

	for i := range slots {
		slots[i].Lane = i + 1
	}
	return slots
}

func appendClass(slots []model.LaneSlot, cls string, picked []string) []model.LaneSlot {
	for i := range model.PicksPerClass {
		s := model.LaneSlot{Cls: cls}
		if i < len(picked) && picked[i] != "" {
			s.PID = model.StringPtr(picked[i])
		}
		slots = append(slots, s)
	}
	return slots
}
