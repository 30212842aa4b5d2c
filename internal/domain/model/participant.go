// Package model contains the sportsday document and the value types stored in it.
package model

import (
	"strings"
)

// Participant is one student of the imported roster.
// Only Present may change after import.
type Participant struct {
	ID      string `json:"id"`
	Class   string `json:"class"`
	No      int    `json:"no"`
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// GradeOf derives the grade from the leading digit run of a class label ("1A" -> "1").
// A label without leading digits has no grade and matches no requested grade.
func GradeOf(class string) string {
	s := strings.TrimSpace(class)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// ParseBool accepts 1/true/y/yes (case-insensitive) as true; anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "y", "yes":
		return true
	}
	return false
}

// ParticipantIndex maps participant ids to participants.
func ParticipantIndex(ps []Participant) map[string]Participant {
	out := make(map[string]Participant, len(ps))
	for _, p := range ps {
		out[p.ID] = p
	}
	return out
}
