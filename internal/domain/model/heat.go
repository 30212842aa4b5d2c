package model

import "strings"

// LaneCount is the fixed number of lanes in a heat.
const LaneCount = 4

// PicksPerClass is the number of competitors one class sends into a heat.
const PicksPerClass = 2

// FillStrategy decides whether unfilled picks leave gaps or are compacted.
type FillStrategy string

const (
	// KeepPosition keeps each pick on its base lane; unfilled picks leave empty lanes.
	KeepPosition FillStrategy = "keepPosition"
	// CompactFill shifts filled picks forward so no empty lane precedes a filled one.
	CompactFill FillStrategy = "compactFill"
)

// ParseFillStrategy maps user input to a strategy. Unknown values keep positions.
// "other" and "compact" are accepted as aliases of compactFill.
func ParseFillStrategy(s string) FillStrategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compactfill", "compact", "other":
		return CompactFill
	}
	return KeepPosition
}

// LaneSlot is one lane of a heat. A nil PID is an empty lane.
type LaneSlot struct {
	Lane int     `json:"lane"`
	Cls  string  `json:"cls"`
	PID  *string `json:"pid"`
}

// Empty reports whether no participant occupies the lane.
func (s LaneSlot) Empty() bool { return s.PID == nil || *s.PID == "" }

// ParticipantID returns the occupant id or "".
func (s LaneSlot) ParticipantID() string {
	if s.PID == nil {
		return ""
	}
	return *s.PID
}

// Heat is one scheduled race between two classes across four lanes.
type Heat struct {
	ID           string       `json:"id"`
	Grade        string       `json:"grade"`
	Event        string       `json:"event"`
	Round        string       `json:"round"`
	HeatNo       int          `json:"heatNo"`
	ClassA       string       `json:"classA"`
	ClassB       string       `json:"classB"`
	PickedA      []string     `json:"pickedA"`
	PickedB      []string     `json:"pickedB"`
	FillStrategy FillStrategy `json:"fillStrategy"`
	Lanes        []LaneSlot   `json:"lanes"`
	Locked       bool         `json:"locked"`
	CreatedAt    int64        `json:"createdAt"`
}

// LaneOf returns the slot with lane number n.
func (h *Heat) LaneOf(n int) (LaneSlot, bool) {
	for _, l := range h.Lanes {
		if l.Lane == n {
			return l, true
		}
	}
	return LaneSlot{}, false
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }
