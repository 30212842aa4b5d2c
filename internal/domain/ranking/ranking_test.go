package ranking

import (
	"testing"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func scenarioDoc() *model.Document {
	doc := model.DefaultDocument(1)
	doc.Participants = []model.Participant{
		{ID: "p1", Class: "1A", No: 1, Name: "Amy", Present: true},
		{ID: "p2", Class: "1B", No: 1, Name: "Ben", Present: true},
		{ID: "p3", Class: "1A", No: 2, Name: "Cat", Present: true},
		{ID: "p4", Class: "1B", No: 2, Name: "Dan", Present: true},
	}
	heats, err := schedule.Build(doc.Participants, schedule.Request{
		Grade: "1", Event: "接力", Round: "預賽", ClassA: "1A", ClassB: "1B", HeatNo: 1,
	})
	So(err, ShouldBeNil)
	doc.Heats = heats
	return doc
}

func ranks(rows []Row) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		if r.Rank == nil {
			out[i] = nil
			continue
		}
		out[i] = *r.Rank
	}
	return out
}

func TestLeaderboard(t *testing.T) {
	Convey("Given a heat with an OK and a DNS lane", t, func() {
		doc := scenarioDoc()
		id := doc.Heats[0].ID
		doc.Results[id] = map[string]model.ResultRecord{
			"2": {Status: model.StatusDNS},
			"1": {Status: model.StatusOK, TimeSec: model.Float64Ptr(12.5)},
		}

		Convey("When ranking the context", func() {
			rows := Leaderboard(doc, Context{Grade: "1", Event: "接力", Round: "預賽"})

			Convey("Then lane 1 ranks first and lane 2 is unranked", func() {
				So(len(rows), ShouldEqual, 2)
				So(rows[0].Lane, ShouldEqual, 1)
				So(*rows[0].Rank, ShouldEqual, 1)
				So(rows[0].Name, ShouldEqual, "Amy")
				So(rows[1].Lane, ShouldEqual, 2)
				So(rows[1].Ranked(), ShouldBeFalse)
			})
		})

		Convey("When the context matches nothing", func() {
			So(Leaderboard(doc, Context{Grade: "2"}), ShouldBeEmpty)
		})
	})

	Convey("Given mixed statuses and missing times", t, func() {
		doc := scenarioDoc()
		id := doc.Heats[0].ID
		doc.Results[id] = map[string]model.ResultRecord{
			"1": {Status: model.StatusDQ},
			"2": {Status: model.StatusOK},
			"3": {Status: "ok", TimeSec: model.Float64Ptr(11)},
			"4": {Status: model.StatusDNF, TimeSec: model.Float64Ptr(9)},
		}
		rows := Leaderboard(doc, Context{Grade: "1"})

		Convey("Then OK with time ranks first, OK without time next, then by status", func() {
			So(len(rows), ShouldEqual, 4)
			So(rows[0].Lane, ShouldEqual, 3)
			So(rows[1].Lane, ShouldEqual, 2)
			So(rows[2].Status, ShouldEqual, model.StatusDNF)
			So(rows[2].TimeSec, ShouldBeNil)
			So(rows[3].Status, ShouldEqual, model.StatusDQ)
			So(ranks(rows), ShouldResemble, []any{1, nil, nil, nil})
		})
	})

	Convey("Given equal times", t, func() {
		doc := scenarioDoc()
		id := doc.Heats[0].ID
		doc.Results[id] = map[string]model.ResultRecord{
			"4": {Status: model.StatusOK, TimeSec: model.Float64Ptr(10)},
			"3": {Status: model.StatusOK, TimeSec: model.Float64Ptr(10)},
			"2": {Status: model.StatusOK, TimeSec: model.Float64Ptr(10)},
			"1": {Status: model.StatusOK, TimeSec: model.Float64Ptr(12)},
		}
		rows := Leaderboard(doc, Context{})

		Convey("Then ties break by class then number and ranks have no gaps", func() {
			So([]string{rows[0].PID, rows[1].PID, rows[2].PID, rows[3].PID}, ShouldResemble, []string{"p3", "p2", "p4", "p1"})
			So(ranks(rows), ShouldResemble, []any{1, 2, 3, 4})
		})
	})

	Convey("Given a roster edit after the heat was built", t, func() {
		doc := scenarioDoc()
		id := doc.Heats[0].ID
		doc.Results[id] = map[string]model.ResultRecord{"1": {Status: model.StatusOK, TimeSec: model.Float64Ptr(10)}}
		doc.Participants[0].Class = "1C"
		doc.Results["missing-heat"] = map[string]model.ResultRecord{"1": {Status: model.StatusOK}}

		Convey("Then the lane keeps its participant and unknown heats are ignored", func() {
			rows := Leaderboard(doc, Context{})
			So(len(rows), ShouldEqual, 1)
			So(rows[0].PID, ShouldEqual, "p1")
		})
	})

	Convey("Given a nil document", t, func() {
		So(Leaderboard(nil, Context{}), ShouldBeEmpty)
	})
}

func TestGameLeaderboard(t *testing.T) {
	Convey("Given game times for grade 1", t, func() {
		doc := scenarioDoc()
		doc.Participants = append(doc.Participants,
			model.Participant{ID: "p5", Class: "1A", No: 3, Name: "Eve", Present: false},
			model.Participant{ID: "q1", Class: "2A", No: 1, Name: "Qi", Present: true},
		)
		f := model.Float64Ptr
		doc.Games.Times = map[string]model.GameTimes{
			"p1": {T1: f(10), T2: f(10), T3: f(10)},
			"p2": {T1: f(9), T2: f(9)},
			"p3": {T1: f(5), T2: f(5), T3: f(5)},
			"p5": {T1: f(1), T2: f(1), T3: f(1)},
			"q1": {T1: f(1), T2: f(1), T3: f(1)},
		}

		Convey("When ranking grade 1", func() {
			rows := GameLeaderboard(doc, "1", 0)

			Convey("Then complete rows rank by total and incomplete rows follow unranked", func() {
				So(len(rows), ShouldEqual, 4)
				So(rows[0].PID, ShouldEqual, "p3")
				So(*rows[0].Total, ShouldEqual, 15)
				So(*rows[0].Rank, ShouldEqual, 1)
				So(rows[1].PID, ShouldEqual, "p1")
				So(*rows[1].Rank, ShouldEqual, 2)
				So(rows[2].Complete, ShouldBeFalse)
				So(rows[2].Rank, ShouldBeNil)
				So(rows[2].PID, ShouldEqual, "p2")
				So(rows[3].PID, ShouldEqual, "p4")
			})
		})

		Convey("When truncating", func() {
			So(len(GameLeaderboard(doc, "1", 2)), ShouldEqual, 2)
		})

		Convey("When listing every grade", func() {
			all := AllTotals(doc)
			So(Grades(doc), ShouldResemble, []string{"1", "2"})
			So(len(all), ShouldEqual, 5)
			So(all[4].Grade, ShouldEqual, "2")
			So(*all[4].Rank, ShouldEqual, 1)
		})
	})

	Convey("Given grades of different widths", t, func() {
		doc := model.DefaultDocument(1)
		doc.Participants = []model.Participant{{ID: "a", Class: "10A"}, {ID: "b", Class: "2B"}, {ID: "c", Class: "X"}}
		So(Grades(doc), ShouldResemble, []string{"2", "10"})
	})
}

func TestUpcomingTeams(t *testing.T) {
	Convey("Given a schedule of three heats", t, func() {
		doc := model.DefaultDocument(1)
		doc.Heats = []model.Heat{
			{ID: "h3", Grade: "1", Event: "e", Round: "r", HeatNo: 3, ClassA: "1E", ClassB: "1F"},
			{ID: "h1", Grade: "1", Event: "e", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
			{ID: "h2", Grade: "1", Event: "e", Round: "r", HeatNo: 2, ClassA: "1C", ClassB: "1A"},
		}

		Convey("When no heat is current", func() {
			So(UpcomingTeams(doc, DefaultUpcoming), ShouldResemble, []string{"1A", "1B", "1C"})
		})

		Convey("When the first heat is current", func() {
			doc.UI.CurrentHeatID = model.StringPtr("h1")
			So(UpcomingTeams(doc, DefaultUpcoming), ShouldResemble, []string{"1C", "1A", "1E"})
		})

		Convey("When the last heat is current", func() {
			doc.UI.CurrentHeatID = model.StringPtr("h3")
			So(UpcomingTeams(doc, DefaultUpcoming), ShouldResemble, []string{"1A", "1B", "1C"})
		})

		Convey("When the schedule is empty", func() {
			doc.Heats = nil
			So(UpcomingTeams(doc, DefaultUpcoming), ShouldBeEmpty)
		})
	})
}
