package schedule

import (
	"errors"
	"testing"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func pids(lanes []model.LaneSlot) []string {
	out := make([]string, len(lanes))
	for i, l := range lanes {
		out[i] = l.ParticipantID()
	}
	return out
}

func TestHeatID(t *testing.T) {
	Convey("Given heat descriptors", t, func() {
		k := Key{Grade: "1", Event: "接力 賽", Round: "預賽", HeatNo: 3, ClassA: "1A", ClassB: "1B"}

		Convey("Then the id is a pure function of the fields", func() {
			So(HeatID(k), ShouldEqual, "1-接力_賽-預賽-H03-1A-vs-1B")
			spaced := Key{Grade: " 1 ", Event: "接力   賽 ", Round: "預賽", HeatNo: 3, ClassA: "1A\t", ClassB: " 1B"}
			So(HeatID(spaced), ShouldEqual, HeatID(k))
		})

		Convey("Then every field changes the id", func() {
			base := HeatID(k)
			variants := []Key{
				{Grade: "2", Event: k.Event, Round: k.Round, HeatNo: 3, ClassA: "1A", ClassB: "1B"},
				{Grade: "1", Event: "跳繩", Round: k.Round, HeatNo: 3, ClassA: "1A", ClassB: "1B"},
				{Grade: "1", Event: k.Event, Round: "決賽", HeatNo: 3, ClassA: "1A", ClassB: "1B"},
				{Grade: "1", Event: k.Event, Round: k.Round, HeatNo: 4, ClassA: "1A", ClassB: "1B"},
				{Grade: "1", Event: k.Event, Round: k.Round, HeatNo: 3, ClassA: "1C", ClassB: "1B"},
				{Grade: "1", Event: k.Event, Round: k.Round, HeatNo: 3, ClassA: "1A", ClassB: "1C"},
			}
			for _, v := range variants {
				So(HeatID(v), ShouldNotEqual, base)
			}
		})

		Convey("Then separators inside a field cannot shift it into its neighbour", func() {
			pairs := [][2]Key{
				{
					{Grade: "1", Event: "e", Round: "r", HeatNo: 1, ClassA: "1A_vs_1B", ClassB: "1C"},
					{Grade: "1", Event: "e", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B_vs_1C"},
				},
				{
					{Grade: "1", Event: "e", Round: "r", HeatNo: 1, ClassA: "1A vs 1B", ClassB: "1C"},
					{Grade: "1", Event: "e", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B vs 1C"},
				},
				{
					{Grade: "1", Event: "100m-決賽", Round: "A", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
					{Grade: "1", Event: "100m", Round: "決賽-A", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
				},
				{
					{Grade: "1", Event: "接力 賽", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
					{Grade: "1", Event: "接力_賽", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
				},
				{
					{Grade: "1", Event: "a%2Db", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
					{Grade: "1", Event: "a-b", Round: "r", HeatNo: 1, ClassA: "1A", ClassB: "1B"},
				},
			}
			for _, p := range pairs {
				So(HeatID(p[0]), ShouldNotEqual, HeatID(p[1]))
			}
			So(HeatID(pairs[2][0]), ShouldEqual, "1-100m%2D決賽-A-H01-1A-vs-1B")
		})

		Convey("Then heat numbers of three digits are kept whole", func() {
			k.HeatNo = 120
			So(HeatID(k), ShouldContainSubstring, "-H120-")
		})
	})
}

func TestAssignLanes(t *testing.T) {
	Convey("Given one pick per class", t, func() {
		a, b := []string{"p1"}, []string{"p2"}

		Convey("When compacting", func() {
			lanes := AssignLanes("1A", "1B", a, b, model.CompactFill)

			Convey("Then the filled lanes come first", func() {
				So(len(lanes), ShouldEqual, 4)
				So(pids(lanes), ShouldResemble, []string{"p1", "p2", "", ""})
				So(lanes[0].Cls, ShouldEqual, "1A")
				So(lanes[1].Cls, ShouldEqual, "1B")
				So(lanes[2].Cls, ShouldEqual, "")
				So(lanes[3].PID, ShouldBeNil)
				for i, l := range lanes {
					So(l.Lane, ShouldEqual, i+1)
				}
			})
		})

		Convey("When keeping positions", func() {
			lanes := AssignLanes("1A", "1B", a, b, model.KeepPosition)

			Convey("Then gaps stay at their base positions", func() {
				So(pids(lanes), ShouldResemble, []string{"p1", "", "p2", ""})
				So(lanes[1].Cls, ShouldEqual, "1A")
				So(lanes[1].Empty(), ShouldBeTrue)
				So(lanes[3].Cls, ShouldEqual, "1B")
			})
		})
	})

	Convey("Given more than two picks", t, func() {
		lanes := AssignLanes("1A", "1B", []string{"a1", "a2", "a3"}, []string{"b1", "b2", "b3"}, model.KeepPosition)

		Convey("Then only the first two are seated", func() {
			So(pids(lanes), ShouldResemble, []string{"a1", "a2", "b1", "b2"})
		})
	})

	Convey("Given every combination of zero to two picks", t, func() {
		options := [][]string{nil, {"x"}, {"x", "y"}, {"", "y"}}
		for _, a := range options {
			for _, b := range options {
				compact := AssignLanes("A", "B", a, b, model.CompactFill)
				seenEmpty := false
				for _, l := range compact {
					if l.Empty() {
						seenEmpty = true
						continue
					}
					So(seenEmpty, ShouldBeFalse)
				}

				kept := AssignLanes("A", "B", a, b, model.KeepPosition)
				for i := range 2 {
					want := ""
					if i < len(a) {
						want = a[i]
					}
					So(kept[i].ParticipantID(), ShouldEqual, want)
					want = ""
					if i < len(b) {
						want = b[i]
					}
					So(kept[i+2].ParticipantID(), ShouldEqual, want)
				}
				So(AssignLanes("A", "B", a, b, model.CompactFill), ShouldResemble, compact)
			}
		}
	})
}

func roster() []model.Participant {
	return []model.Participant{
		{ID: "a3", Class: "1A", No: 3, Name: "Cat", Present: true},
		{ID: "a1", Class: "1A", No: 1, Name: "Amy", Present: true},
		{ID: "a2", Class: "1A", No: 2, Name: "Ann", Present: false},
		{ID: "a4", Class: "1A", No: 4, Name: "Dan", Present: true},
		{ID: "a5", Class: "1A", No: 5, Name: "Eve", Present: true},
		{ID: "b1", Class: "1B", No: 1, Name: "Ben", Present: true},
		{ID: "c1", Class: "2A", No: 1, Name: "Cy", Present: true},
		{ID: "x1", Class: "A班", No: 1, Name: "Xi", Present: true},
	}
}

func TestBuildValidation(t *testing.T) {
	Convey("Given invalid build requests", t, func() {
		cases := []struct {
			roster []model.Participant
			req    Request
			want   error
		}{
			{nil, Request{Grade: "1", ClassA: "1A", ClassB: "1B"}, ErrEmptyRoster},
			{roster(), Request{Grade: "1", ClassA: "1A"}, ErrClassNotSelected},
			{roster(), Request{Grade: "1", ClassA: "1A", ClassB: "1A"}, ErrSameClass},
			{roster(), Request{Grade: "1", ClassA: "1A", ClassB: "2A"}, ErrGradeMismatch},
			{roster(), Request{Grade: "", ClassA: "A班", ClassB: "B班"}, ErrGradeMismatch},
			{roster(), Request{Grade: "1", ClassA: "1A", ClassB: "1B", PickedA: []string{}, PickedB: []string{"a2"}}, ErrNoSelection},
		}
		for _, c := range cases {
			heats, err := Build(c.roster, c.req)
			So(heats, ShouldBeNil)
			So(errors.Is(err, c.want), ShouldBeTrue)
			var verr *ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Message, ShouldNotBeEmpty)
		}
	})
}

func TestBuild(t *testing.T) {
	Convey("Given the two-participant scenario roster", t, func() {
		r := []model.Participant{
			{ID: "p1", Class: "1A", No: 1, Name: "Amy", Present: true},
			{ID: "p2", Class: "1B", No: 1, Name: "Ben", Present: true},
		}

		Convey("When building one compact heat", func() {
			heats, err := Build(r, Request{
				Grade: "1", ClassA: "1A", ClassB: "1B",
				PickedA: []string{"p1"}, PickedB: []string{"p2"},
				HeatNo: 1, FillStrategy: model.CompactFill, CreatedAt: 7,
			})

			Convey("Then lanes are p1, p2, empty, empty", func() {
				So(err, ShouldBeNil)
				So(len(heats), ShouldEqual, 1)
				h := heats[0]
				So(pids(h.Lanes), ShouldResemble, []string{"p1", "p2", "", ""})
				So(h.ID, ShouldEqual, "1-遊戲-預賽-H01-1A-vs-1B")
				So(h.Event, ShouldEqual, DefaultEvent)
				So(h.Round, ShouldEqual, DefaultRound)
				So(h.CreatedAt, ShouldEqual, 7)
			})
		})
	})

	Convey("Given a class with four present members", t, func() {
		Convey("When building a batch from heat 5", func() {
			heats, err := Build(roster(), Request{
				Grade: "1", Event: "接力", ClassA: "1A", ClassB: "1B",
				Batch: true, StartHeatNo: 5,
			})

			Convey("Then picks are chunked by number order", func() {
				So(err, ShouldBeNil)
				So(len(heats), ShouldEqual, 2)
				So(heats[0].HeatNo, ShouldEqual, 5)
				So(heats[1].HeatNo, ShouldEqual, 6)
				So(heats[0].PickedA, ShouldResemble, []string{"a1", "a3"})
				So(heats[1].PickedA, ShouldResemble, []string{"a4", "a5"})
				So(heats[0].PickedB, ShouldResemble, []string{"b1"})
				So(heats[1].PickedB, ShouldResemble, []string{})
				So(pids(heats[1].Lanes), ShouldResemble, []string{"a4", "a5", "", ""})
			})
		})

		Convey("When building a single heat from explicit picks", func() {
			heats, err := Build(roster(), Request{
				Grade: "1", ClassA: "1A", ClassB: "1B",
				PickedA: []string{"a5", "a2", "a3", "c1", "a1", "a1"},
				PickedB: []string{"b1"},
				HeatNo:  2,
			})

			Convey("Then absent, foreign and duplicate ids are dropped and the first two kept", func() {
				So(err, ShouldBeNil)
				So(len(heats), ShouldEqual, 1)
				So(heats[0].PickedA, ShouldResemble, []string{"a1", "a3"})
				So(heats[0].HeatNo, ShouldEqual, 2)
			})
		})
	})

	Convey("Given equal numbers", t, func() {
		r := []model.Participant{
			{ID: "z", Class: "1A", No: 1, Name: "Zed", Present: true},
			{ID: "a", Class: "1A", No: 1, Name: "Abe", Present: true},
		}
		So(Select(r, model.ParticipantIndex(r), "1A", nil), ShouldResemble, []string{"a", "z"})
	})
}

func TestUpsert(t *testing.T) {
	Convey("Given existing heats", t, func() {
		existing := []model.Heat{
			{ID: "h1", HeatNo: 1},
			{ID: "h2", HeatNo: 2, Locked: true},
			{ID: "h3", HeatNo: 3},
		}

		Convey("When upserting a rebuilt, a locked and a new heat", func() {
			out, stats := Upsert(existing, []model.Heat{
				{ID: "h3", HeatNo: 3, Event: "new"},
				{ID: "h2", HeatNo: 2, Event: "new"},
				{ID: "h4", HeatNo: 4},
			})

			Convey("Then replacement keeps position and locked heats survive", func() {
				So(len(out), ShouldEqual, 4)
				So(out[2].Event, ShouldEqual, "new")
				So(out[1].Event, ShouldEqual, "")
				So(out[3].ID, ShouldEqual, "h4")
				So(stats, ShouldResemble, UpsertStats{Inserted: 1, Replaced: 1, Locked: 1, Kept: []string{"h2"}})
				So(existing[2].Event, ShouldEqual, "")
			})
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Given heats of mixed contexts", t, func() {
		heats := []model.Heat{
			{ID: "b", Grade: "1", Event: "e", Round: "r", HeatNo: 2, CreatedAt: 1},
			{ID: "x", Grade: "2", Event: "e", Round: "r", HeatNo: 1},
			{ID: "a2", Grade: "1", Event: "e", Round: "r", HeatNo: 1, CreatedAt: 9},
			{ID: "a1", Grade: "1", Event: "e", Round: "r", HeatNo: 1, CreatedAt: 3},
			{ID: "f", Grade: "1", Event: "e", Round: "final", HeatNo: 1},
		}

		Convey("Then a context filter orders by heat number then creation", func() {
			var ids []string
			for _, h := range Filter(heats, "1", "e", "r") {
				ids = append(ids, h.ID)
			}
			So(ids, ShouldResemble, []string{"a1", "a2", "b"})
		})

		Convey("Then a blank round matches every round", func() {
			So(len(Filter(heats, "1", "e", "")), ShouldEqual, 4)
		})
	})
}

func TestRelayout(t *testing.T) {
	Convey("Given a heat whose picks changed", t, func() {
		h := model.Heat{ClassA: "1A", ClassB: "1B", PickedA: []string{"a1", "a2", "a3"}, FillStrategy: model.CompactFill}
		Relayout(&h)

		So(h.PickedA, ShouldResemble, []string{"a1", "a2"})
		So(h.PickedB, ShouldResemble, []string{})
		So(pids(h.Lanes), ShouldResemble, []string{"a1", "a2", "", ""})
	})
}
