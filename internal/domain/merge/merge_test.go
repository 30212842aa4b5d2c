package merge

import (
	"testing"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(status model.Status, at int64) model.ResultRecord {
	return model.ResultRecord{Status: status, UpdatedAt: at}
}

func TestPolicyMerge(t *testing.T) {
	Convey("Given a last-write-wins policy on ints", t, func() {
		p := Policy[string, int]{Stamp: func(v int) int64 { return int64(v) }}

		Convey("When merging overlapping maps", func() {
			out, winners := p.Merge(map[string]int{"a": 5, "b": 5, "c": 1}, map[string]int{"a": 4, "b": 5, "d": 2})

			Convey("Then incoming wins ties and new keys", func() {
				So(out, ShouldResemble, map[string]int{"a": 5, "b": 5, "c": 1, "d": 2})
				So(winners["a"], ShouldEqual, WinnerBase)
				So(winners["b"], ShouldEqual, WinnerIncoming)
				So(winners["d"], ShouldEqual, WinnerIncoming)
			})
		})

		Convey("When the base is nil", func() {
			out, _ := p.Merge(nil, map[string]int{"x": 1})
			So(out, ShouldResemble, map[string]int{"x": 1})
		})
	})
}

func TestForPush(t *testing.T) {
	Convey("Given a newer remote document with an older lane record", t, func() {
		remote := model.DefaultDocument(100)
		remote.Participants = []model.Participant{{ID: "r1", Class: "1A", Name: "Remote"}}
		remote.Results["h1"] = map[string]model.ResultRecord{"1": rec(model.StatusDNS, 90), "2": rec(model.StatusDQ, 99)}
		remote.Results["h2"] = map[string]model.ResultRecord{"1": rec(model.StatusOK, 10)}
		remote.UI.CurrentHeatID = model.StringPtr("h2")

		local := model.DefaultDocument(95)
		local.Results["h1"] = map[string]model.ResultRecord{"1": rec(model.StatusOK, 95), "2": rec(model.StatusOK, 50)}
		local.UI.CurrentHeatID = model.StringPtr("h1")

		Convey("When merging for push", func() {
			out, stats := ForPush(remote, local, 200)

			Convey("Then each lane keeps its newest record", func() {
				So(out.Results["h1"]["1"].Status, ShouldEqual, model.StatusOK)
				So(out.Results["h1"]["1"].UpdatedAt, ShouldEqual, 95)
				So(out.Results["h1"]["2"].Status, ShouldEqual, model.StatusDQ)
				So(out.Results["h2"]["1"].Status, ShouldEqual, model.StatusOK)
				So(stats, ShouldResemble, Stats{Local: 1, Remote: 1})
			})

			Convey("Then the base sections come from the remote", func() {
				So(out.Participants[0].ID, ShouldEqual, "r1")
				So(out.UpdatedAt, ShouldEqual, 200)
				So(*out.UI.CurrentHeatID, ShouldEqual, "h2")
			})

			Convey("Then the inputs are untouched", func() {
				So(remote.Results["h1"]["1"].Status, ShouldEqual, model.StatusDNS)
				So(remote.UpdatedAt, ShouldEqual, 100)
			})

			Convey("Then merging again gives the same lanes", func() {
				again, _ := ForPush(out, local, 300)
				So(again.Results, ShouldResemble, out.Results)
			})
		})
	})

	Convey("Given a newer local document", t, func() {
		remote := model.DefaultDocument(10)
		remote.UI.CurrentHeatID = model.StringPtr("h2")
		local := model.DefaultDocument(20)

		Convey("When local has no current heat", func() {
			out, _ := ForPush(remote, local, 30)
			So(*out.UI.CurrentHeatID, ShouldEqual, "h2")
		})

		Convey("When local points at a heat", func() {
			local.UI.CurrentHeatID = model.StringPtr("h1")
			out, _ := ForPush(remote, local, 30)
			So(*out.UI.CurrentHeatID, ShouldEqual, "h1")
		})
	})

	Convey("Given a remote without a version tag", t, func() {
		remote := &model.Document{}
		local := model.DefaultDocument(5)
		local.Heats = []model.Heat{{ID: "h1"}}
		local.Results["h1"] = map[string]model.ResultRecord{"1": rec(model.StatusOK, 5)}

		Convey("Then the local document is the base", func() {
			out, _ := ForPush(remote, local, 9)
			So(Usable(remote), ShouldBeFalse)
			So(Usable(nil), ShouldBeFalse)
			So(out.Heats[0].ID, ShouldEqual, "h1")
			So(out.Results["h1"]["1"].UpdatedAt, ShouldEqual, 5)
			So(out.Version, ShouldEqual, model.CurrentVersion)
			So(out.UpdatedAt, ShouldEqual, 9)
		})
	})
}
