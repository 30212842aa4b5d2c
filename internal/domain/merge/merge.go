// Package merge reconciles a local document with a remote one.
//
// Participants and heats belong to the base document. Lane results are merged
// per (heat, lane) by their own timestamps; the current heat pointer follows
// the newer document.
package merge

import (
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// Policy is a last-write-wins merge over keyed records.
type Policy[K comparable, V any] struct {
	// Stamp returns the write time of a record.
	Stamp func(V) int64
}

// Winner tells which side supplied a merged record.
type Winner int

// Merge winners.
const (
	WinnerBase Winner = iota
	WinnerIncoming
)

// Merge copies base and lets every incoming record replace the base record of
// the same key when it is at least as new. It returns the merged map and the
// winner per incoming key.
func (p Policy[K, V]) Merge(base, incoming map[K]V) (map[K]V, map[K]Winner) {
	out := make(map[K]V, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	winners := make(map[K]Winner, len(incoming))
	for k, in := range incoming {
		cur, ok := out[k]
		if !ok || p.Stamp(in) >= p.Stamp(cur) {
			out[k] = in
			winners[k] = WinnerIncoming
			continue
		}
		winners[k] = WinnerBase
	}
	return out, winners
}

// Stats counts lane records by the side that won the merge.
type Stats struct {
	Local  int
	Remote int
}

var lanePolicy = Policy[string, model.ResultRecord]{ //nolint:gochecknoglobals // stateless policy
	Stamp: func(r model.ResultRecord) int64 { return r.UpdatedAt },
}

// Results merges local lane records into remote ones. A local record replaces
// the remote record of the same (heat, lane) when local.updatedAt >= remote.updatedAt.
// Heats only present remotely are kept.
func Results(remote, local model.Results) (model.Results, Stats) {
	var stats Stats
	out := make(model.Results, len(remote)+len(local))
	for heatID, lanes := range remote {
		out[heatID] = copyLanes(lanes)
	}
	for heatID, lanes := range local {
		merged, winners := lanePolicy.Merge(out[heatID], lanes)
		for _, w := range winners {
			if w == WinnerIncoming {
				stats.Local++
			} else {
				stats.Remote++
			}
		}
		out[heatID] = merged
	}
	return out, stats
}

// CurrentHeat picks the current heat pointer. The local pointer wins when the
// local document is at least as new and actually points at a heat.
func CurrentHeat(remote, local *model.Document) *string {
	if local.UpdatedAt >= remote.UpdatedAt && local.UI.CurrentHeatID != nil {
		return copyString(local.UI.CurrentHeatID)
	}
	return copyString(remote.UI.CurrentHeatID)
}

// ForPush builds the document to write remotely. The base is the remote
// document when it is usable, otherwise the local one; lane results and the
// current heat are merged in and the result is stamped with now.
func ForPush(remote, local *model.Document, now int64) (*model.Document, Stats) {
	base := local
	if Usable(remote) {
		base = remote
	}
	out := base.Clone()
	out.Normalize()

	var stats Stats
	if base == remote {
		out.Results, stats = Results(remote.Results, local.Results)
		out.UI.CurrentHeatID = CurrentHeat(remote, local)
	}
	out.Version = model.CurrentVersion
	out.UpdatedAt = now
	return out, stats
}

// Usable reports whether a fetched remote document carries a version tag.
func Usable(d *model.Document) bool {
	return d != nil && d.Version > 0
}

func copyLanes(in map[string]model.ResultRecord) map[string]model.ResultRecord {
	out := make(map[string]model.ResultRecord, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
