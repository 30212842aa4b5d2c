package model

import (
	"encoding/json"
	"fmt"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 2

// legacyVersion documents predate per-lane results and are upgraded on load.
const legacyVersion = 1

// DefaultGameLabels are the labels of the three game slots.
var DefaultGameLabels = []string{"遊戲1", "遊戲2", "遊戲3"} //nolint:gochecknoglobals // read-only defaults

// UI carries view pointers shared across devices.
type UI struct {
	CurrentHeatID *string `json:"currentHeatId"`
}

// Games is the three-game scoring section.
type Games struct {
	Labels []string             `json:"labels"`
	Times  map[string]GameTimes `json:"times"`
}

// Document is the single unit of storage and replication of a device.
type Document struct {
	Version      int           `json:"version"`
	Participants []Participant `json:"participants"`
	Heats        []Heat        `json:"heats"`
	Results      Results       `json:"results"`
	Games        Games         `json:"games"`
	UI           UI            `json:"ui"`
	UpdatedAt    int64         `json:"updatedAt"`
}

// LoadResult tells how a stored document was turned into the returned one.
type LoadResult string

// Load results.
const (
	LoadStored   LoadResult = "stored"
	LoadDefault  LoadResult = "default"
	LoadMigrated LoadResult = "migrated"
)

// DefaultDocument returns an empty document stamped with now (unix millis).
func DefaultDocument(now int64) *Document {
	d := &Document{Version: CurrentVersion, UpdatedAt: now}
	d.Normalize()
	return d
}

// Normalize fills missing sections with empty values and enforces record invariants.
func (d *Document) Normalize() {
	if d.Participants == nil {
		d.Participants = []Participant{}
	}
	if d.Heats == nil {
		d.Heats = []Heat{}
	}
	if d.Results == nil {
		d.Results = Results{}
	}
	for heatID, lanes := range d.Results {
		if lanes == nil {
			d.Results[heatID] = map[string]ResultRecord{}
			continue
		}
		for lane, rec := range lanes {
			rec.Status = ParseStatus(string(rec.Status))
			rec.Normalize()
			lanes[lane] = rec
		}
	}
	if len(d.Games.Labels) != len(DefaultGameLabels) {
		d.Games.Labels = append([]string(nil), DefaultGameLabels...)
	}
	if d.Games.Times == nil {
		d.Games.Times = map[string]GameTimes{}
	}
}

// Decode parses a stored document. Documents of the legacy version are upgraded;
// other versions fail with ErrVersionMismatch and unparsable input with ErrCorruptDocument.
func Decode(data []byte) (*Document, LoadResult, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	switch probe.Version {
	case CurrentVersion, legacyVersion:
	default:
		return nil, "", fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, probe.Version, CurrentVersion)
	}

	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	d.Normalize()
	if probe.Version == CurrentVersion {
		return &d, LoadStored, nil
	}

	// legacy documents stored the compact policy as "other"
	for i := range d.Heats {
		d.Heats[i].FillStrategy = ParseFillStrategy(string(d.Heats[i].FillStrategy))
	}
	d.Version = CurrentVersion
	return &d, LoadMigrated, nil
}

// Encode serializes the document.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	data, err := json.Marshal(d)
	if err != nil {
		// every field is JSON-safe; reaching this is a programming error
		panic(fmt.Sprintf("clone document: %v", err))
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("clone document: %v", err))
	}
	return &out
}

// HeatIndex returns the position of the heat with id, or -1.
func (d *Document) HeatIndex(id string) int {
	for i := range d.Heats {
		if d.Heats[i].ID == id {
			return i
		}
	}
	return -1
}

// CurrentHeatID returns the current heat pointer or "".
func (d *Document) CurrentHeatID() string {
	if d.UI.CurrentHeatID == nil {
		return ""
	}
	return *d.UI.CurrentHeatID
}
