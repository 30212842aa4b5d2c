package model

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator orders class labels and names the way the school's locale does.
// A Collator is not safe for concurrent use; create one per sort.
type Collator struct {
	c *collate.Collator
}

// NewCollator returns a Traditional Chinese collator.
func NewCollator() *Collator {
	return &Collator{c: collate.New(language.TraditionalChinese)}
}

// Compare returns -1, 0 or 1.
func (c *Collator) Compare(a, b string) int {
	return c.c.CompareString(a, b)
}
