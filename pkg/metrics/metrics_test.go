package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"station": "s1"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_sync_state"], ShouldBeTrue)
				So(names["test_unit_state_saves_total"], ShouldBeTrue)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a station configured with its instance label", t, func() {
		Configure(WithSubsystem("relay"), WithConstLabels(map[string]string{"station": "s9"}))
		Reset(func() { Configure() })

		Convey("When recording a save", func() {
			RecordStateSave(2, 64)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then the fresh registry carries the subsystem and label", func() {
				var station string
				for _, f := range families {
					if f.GetName() != "sportsday_relay_state_saves_total" {
						continue
					}
					for _, l := range f.GetMetric()[0].GetLabel() {
						if l.GetName() == "station" {
							station = l.GetValue()
						}
					}
				}
				So(station, ShouldEqual, "s9")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording saves", func() {
			before := testutil.ToFloat64(manager().stateSaves)
			RecordStateSave(1.5, 512)

			Convey("Then the counter and size gauge move", func() {
				So(testutil.ToFloat64(manager().stateSaves), ShouldEqual, before+1)
				So(testutil.ToFloat64(manager().stateBytes), ShouldEqual, 512)
			})
		})

		Convey("When switching sync state", func() {
			So(SetSyncState("pulling"), ShouldBeNil)

			Convey("Then exactly one state is set", func() {
				So(testutil.ToFloat64(manager().syncState.WithLabelValues("pulling")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager().syncState.WithLabelValues("idle")), ShouldEqual, 0)
				So(testutil.ToFloat64(manager().syncState.WithLabelValues("disabled")), ShouldEqual, 0)
			})
		})

		Convey("When setting an unknown sync state", func() {
			err := SetSyncState("exploding")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrUnknownSyncState), ShouldBeTrue)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordStateLoad("stored")
				RecordStateReset()
				RecordNotificationPublished()
				RecordNotificationDropped()
				UpdateSubscribers(3)
				UpdateWebsocketConnections(2)
				RecordSyncPull("applied")
				RecordSyncPush("ok")
				RecordSyncLatency("pull", 12)
				RecordMergedLaneRecords("local", 2)
				UpdatePushQueueDepth(1)
				RecordPushCoalesced()
				RecordRelayWrite("ok")
				RecordHeatsBuilt(4)
				RecordResultEntered("OK")
				RecordRankingLatency("results", 0.3)
				RecordHTTPRequest("state", "GET", "200")
				RecordHTTPRequestDuration("state", "GET", "200", 1)
				RecordError("sync", "network")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
