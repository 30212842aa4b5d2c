// Package csvio reads rosters and writes the schedule, totals and score sheet
// tables as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// RosterColumns are the header columns a roster must carry.
var RosterColumns = []string{"id", "class", "no", "name", "present"} //nolint:gochecknoglobals // fixed header

// ParseRoster reads a roster with a header row. Rows without id, class or name
// are dropped and a non-numeric number reads as 0. A roster yielding no
// participant fails with ErrNoRecords.
func ParseRoster(r io.Reader) ([]model.Participant, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := readRow(cr)
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRecords
	}
	if err != nil {
		return nil, fmt.Errorf("parse roster header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, col := range RosterColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, col)
		}
	}

	get := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := []model.Participant{}
	for line := 2; ; line++ {
		row, err := readRow(cr)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse roster row %d: %w", line, err)
		}
		p := model.Participant{
			ID:      get(row, "id"),
			Class:   get(row, "class"),
			Name:    get(row, "name"),
			Present: model.ParseBool(get(row, "present")),
		}
		if p.ID == "" || p.Class == "" || p.Name == "" {
			continue
		}
		if no, err := strconv.Atoi(get(row, "no")); err == nil {
			p.No = no
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

// readRow skips rows whose fields are all empty.
func readRow(cr *csv.Reader) ([]string, error) {
	for {
		row, err := cr.Read()
		if err != nil {
			return nil, err
		}
		for _, f := range row {
			if strings.TrimSpace(f) != "" {
				return row, nil
			}
		}
	}
}
