package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/soyingpang/sportsday-race-mvp/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StorageKey, convey.ShouldEqual, "sportsday_local_v1")
			convey.So(cfg.LeaderboardTopN, convey.ShouldEqual, 10)
			convey.So(cfg.PushQueueSize, convey.ShouldEqual, 1)
			convey.So(cfg.RemoteSyncConfig, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations derive from the millisecond fields", func() {
			convey.So(cfg.StorageWatchInterval(), convey.ShouldEqual, time.Second)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 5*time.Second)
		})
	})

	convey.Convey("Given allowed origins", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When a comma list with blanks is set", func() {
			cfg.AllowedOrigins = " http://a.local , ,http://b.local"

			convey.Convey("Then Origins trims and drops blanks", func() {
				convey.So(cfg.Origins(), convey.ShouldResemble, []string{"http://a.local", "http://b.local"})
			})
		})

		convey.Convey("When nothing is set", func() {
			cfg.AllowedOrigins = ""

			convey.Convey("Then Origins is empty", func() {
				convey.So(cfg.Origins(), convey.ShouldBeEmpty)
			})
		})
	})
}
