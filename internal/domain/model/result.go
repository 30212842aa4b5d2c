package model

import (
	"math"
	"strconv"
	"strings"
)

// Status is the outcome of a lane.
type Status string

// Lane outcomes, in ranking order.
const (
	StatusOK  Status = "OK"
	StatusDNS Status = "DNS"
	StatusDNF Status = "DNF"
	StatusDQ  Status = "DQ"
)

// ParseStatus upper-cases s; an empty value means OK.
func ParseStatus(s string) Status {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return StatusOK
	}
	return Status(v)
}

// Order is the primary ranking key: OK < DNS < DNF < DQ < unknown.
func (s Status) Order() int {
	switch s {
	case StatusOK:
		return 0
	case StatusDNS:
		return 1
	case StatusDNF:
		return 2
	case StatusDQ:
		return 3
	}
	return 4
}

// ResultRecord is the timing outcome for one lane of one heat.
type ResultRecord struct {
	PID       *string  `json:"pid"`
	TimeSec   *float64 `json:"timeSec"`
	Status    Status   `json:"status"`
	Note      string   `json:"note"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Normalize enforces the record invariant: OK carries a finite time or none,
// any other status carries no time. Non-finite times become missing.
func (r *ResultRecord) Normalize() {
	if r.Status == "" {
		r.Status = StatusOK
	}
	if r.TimeSec != nil && !isFinite(*r.TimeSec) {
		r.TimeSec = nil
	}
	if r.Status != StatusOK {
		r.TimeSec = nil
	}
}

// HasTime reports whether the record carries a finite time.
func (r ResultRecord) HasTime() bool {
	return r.TimeSec != nil && isFinite(*r.TimeSec)
}

// Results holds result records keyed by heat id, then lane number as text.
type Results map[string]map[string]ResultRecord

// LaneKey renders a lane number as a results key.
func LaneKey(lane int) string { return strconv.Itoa(lane) }

// NormalizeTime parses a time input. Blank, non-numeric and non-finite input is missing.
func NormalizeTime(v string) *float64 {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return nil
	}
	return &f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// GameTimes is the per-participant record of the three-game scoring mode.
type GameTimes struct {
	T1   *float64 `json:"t1"`
	T2   *float64 `json:"t2"`
	T3   *float64 `json:"t3"`
	Note string   `json:"note"`
}

// Total returns t1+t2+t3 when all three are present and finite.
func (g GameTimes) Total() (float64, bool) {
	if g.T1 == nil || g.T2 == nil || g.T3 == nil {
		return 0, false
	}
	if !isFinite(*g.T1) || !isFinite(*g.T2) || !isFinite(*g.T3) {
		return 0, false
	}
	return *g.T1 + *g.T2 + *g.T3, true
}

// SetSlot stores v in time slot n (1..3). It reports false for other slots.
func (g *GameTimes) SetSlot(n int, v *float64) bool {
	switch n {
	case 1:
		g.T1 = v
	case 2:
		g.T2 = v
	case 3:
		g.T3 = v
	default:
		return false
	}
	return true
}
