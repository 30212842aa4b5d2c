package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/http/relay"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/remote"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/repository"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRooms(t *testing.T) {
	Convey("Given a room store on sqlite", t, func() {
		ctx := context.Background()
		kv, err := repository.OpenSQLite(ctx, ":memory:")
		So(err, ShouldBeNil)
		Reset(func() { _ = kv.Close() })
		rooms := relay.NewRooms(kv, nil)

		Convey("When reading an unknown room", func() {
			state, err := rooms.Read(ctx, "r1", "t1")
			So(err, ShouldBeNil)
			So(state, ShouldBeNil)
		})

		Convey("When the first writer claims a room", func() {
			So(rooms.Write(ctx, "r1", "t1", json.RawMessage(`{"version":2}`)), ShouldBeNil)

			Convey("Then the same token reads and overwrites it", func() {
				state, err := rooms.Read(ctx, "r1", "t1")
				So(err, ShouldBeNil)
				So(string(state), ShouldEqual, `{"version":2}`)
				So(rooms.Write(ctx, "r1", "t1", json.RawMessage(`{"version":2,"updatedAt":3}`)), ShouldBeNil)
			})

			Convey("Then another token is refused", func() {
				_, err := rooms.Read(ctx, "r1", "other")
				So(errors.Is(err, relay.ErrForbidden), ShouldBeTrue)
				err = rooms.Write(ctx, "r1", "other", json.RawMessage(`{}`))
				So(errors.Is(err, relay.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When credentials or state are missing", func() {
			So(errors.Is(rooms.Write(ctx, "", "t", json.RawMessage(`{}`)), relay.ErrNoRoom), ShouldBeTrue)
			So(errors.Is(rooms.Write(ctx, "r", "t", nil), relay.ErrEmptyState), ShouldBeTrue)
			_, err := rooms.Read(ctx, "r", "")
			So(errors.Is(err, relay.ErrNoRoom), ShouldBeTrue)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the relay handler", t, func() {
		h := relay.NewHandler(relay.NewRooms(repository.NewMemoryKV(), nil), nil)
		srv := httptest.NewServer(h)
		Reset(srv.Close)

		post := func(body string) int {
			resp, err := srv.Client().Post(srv.URL, "text/plain;charset=utf-8", strings.NewReader(body))
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			return resp.StatusCode
		}
		get := func(query string) (int, map[string]json.RawMessage) {
			resp, err := srv.Client().Get(srv.URL + query)
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			var out map[string]json.RawMessage
			_ = json.NewDecoder(resp.Body).Decode(&out)
			return resp.StatusCode, out
		}

		Convey("When a room is written and read back", func() {
			So(post(`{"room":"r1","token":"t1","state":{"version":2,"updatedAt":9}}`), ShouldEqual, http.StatusOK)
			code, out := get("?room=r1&token=t1")

			So(code, ShouldEqual, http.StatusOK)
			So(string(out["state"]), ShouldEqual, `{"version":2,"updatedAt":9}`)
		})

		Convey("When the token does not match", func() {
			So(post(`{"room":"r1","token":"t1","state":{"version":2}}`), ShouldEqual, http.StatusOK)
			So(post(`{"room":"r1","token":"t2","state":{"version":2}}`), ShouldEqual, http.StatusForbidden)
			code, _ := get("?room=r1&token=t2")
			So(code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the request is malformed", func() {
			So(post(`{`), ShouldEqual, http.StatusBadRequest)
			So(post(`{"room":"r1","token":"t1"}`), ShouldEqual, http.StatusBadRequest)
			code, _ := get("?room=r1")
			So(code, ShouldEqual, http.StatusBadRequest)

			req, _ := http.NewRequest(http.MethodDelete, srv.URL, nil)
			resp, err := srv.Client().Do(req)
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When an unknown room is read", func() {
			code, out := get("?room=none&token=t")
			So(code, ShouldEqual, http.StatusOK)
			So(string(out["state"]), ShouldEqual, "null")
		})
	})
}

func TestTwoStationsThroughRelay(t *testing.T) {
	Convey("Given two stations syncing through one relay", t, func() {
		ctx := context.Background()
		srv := httptest.NewServer(relay.NewHandler(relay.NewRooms(repository.NewMemoryKV(), nil), nil))
		Reset(srv.Close)
		cfg := remote.Config{Enabled: true, Endpoint: srv.URL, Room: "day", Token: "secret"}

		station := func() (*repository.DocumentStore, *remote.Syncer) {
			// station clocks lag the syncers' real clocks, so every push is newer
			store := repository.NewDocumentStore(repository.NewMemoryKV(),
				repository.WithClock(clockwork.NewFakeClockAt(time.UnixMilli(1_000))))
			s := remote.NewSyncer(store)
			So(s.Enable(cfg, remote.NewClient(cfg, srv.Client())), ShouldBeNil)
			return store, s
		}
		storeA, syncA := station()
		storeB, syncB := station()

		Convey("When station A pushes a lane result and station B pulls", func() {
			docA := model.DefaultDocument(100)
			docA.Results = model.Results{"h1": {"1": {PID: model.StringPtr("p1"), TimeSec: model.Float64Ptr(12.5), Status: model.StatusOK, UpdatedAt: 100}}}
			docA, err := storeA.Save(ctx, docA)
			So(err, ShouldBeNil)
			So(syncA.Push(ctx, docA), ShouldBeNil)

			applied, err := syncB.Pull(ctx)

			Convey("Then B adopts the merged document", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				got, _ := storeB.Load(ctx)
				So(*got.Results["h1"]["1"].TimeSec, ShouldEqual, 12.5)
			})

			Convey("Then a concurrent lane from B is merged, not overwritten", func() {
				docB, _ := storeB.Load(ctx)
				docB.Results = model.Results{"h1": {"2": {PID: model.StringPtr("p2"), Status: model.StatusDNS, UpdatedAt: docB.UpdatedAt}}}
				So(syncB.Push(ctx, docB), ShouldBeNil)

				applied, err := syncA.Pull(ctx)
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				got, _ := storeA.Load(ctx)
				So(got.Results["h1"], ShouldContainKey, "1")
				So(got.Results["h1"], ShouldContainKey, "2")
			})
		})
	})
}
