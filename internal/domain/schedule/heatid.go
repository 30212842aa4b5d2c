// Package schedule builds heats: deterministic heat ids, lane layouts and batches.
package schedule

import (
	"fmt"
	"strings"
)

// Key holds the six descriptors a heat id is derived from.
type Key struct {
	Grade  string
	Event  string
	Round  string
	HeatNo int
	ClassA string
	ClassB string
}

// HeatID derives the heat id from k. It is a pure function of the normalized
// fields so rebuilding a heat on any device yields the same id. Fields never
// contain the '-' separator, so keys that differ after normalization never
// share an id.
func HeatID(k Key) string {
	return fmt.Sprintf("%s-%s-%s-H%02d-%s-vs-%s",
		norm(k.Grade), norm(k.Event), norm(k.Round), k.HeatNo, norm(k.ClassA), norm(k.ClassB))
}

var fieldEscaper = strings.NewReplacer("%", "%25", "-", "%2D", "_", "%5F")

// norm collapses each whitespace run to a single underscore. Literal '%', '-'
// and '_' are percent-escaped first.
func norm(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = fieldEscaper.Replace(w)
	}
	return strings.Join(words, "_")
}
