package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	. "github.com/smartystreets/goconvey/convey"
)

type captureForwarder struct{ events []Event }

func (c *captureForwarder) Forward(_ context.Context, e Event) { c.events = append(c.events, e) }

func TestHub(t *testing.T) {
	Convey("Given a hub with two subscribers", t, func() {
		ctx := context.Background()
		h := NewHub(WithBuffer(1), WithOrigin("me"))
		a, cancelA := h.Subscribe(ctx)
		b, cancelB := h.Subscribe(ctx)
		Reset(func() {
			cancelA()
			cancelB()
		})

		Convey("When a save is announced", func() {
			h.Notify(ctx, 42)

			Convey("Then both receive the hint", func() {
				for _, ch := range []<-chan Event{a, b} {
					e := <-ch
					So(e.Type, ShouldEqual, TypeStateUpdated)
					So(e.UpdatedAt, ShouldEqual, 42)
					So(e.Origin, ShouldEqual, "me")
				}
			})
		})

		Convey("When a subscriber does not drain", func() {
			h.Notify(ctx, 1)
			h.Notify(ctx, 2)

			Convey("Then the extra event is dropped instead of blocking", func() {
				So((<-a).UpdatedAt, ShouldEqual, 1)
				So(len(a), ShouldEqual, 0)
			})
		})

		Convey("When a subscriber cancels", func() {
			cancelA()
			cancelA()

			Convey("Then its channel closes and the other stays", func() {
				_, ok := <-a
				So(ok, ShouldBeFalse)
				So(h.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a forwarder is registered", func() {
			f := &captureForwarder{}
			h.AddForwarder(f)
			h.Notify(ctx, 7)
			h.Publish(ctx, Event{Type: TypeStateUpdated, UpdatedAt: 8})

			Convey("Then only notifications are forwarded", func() {
				So(len(f.events), ShouldEqual, 1)
				So(f.events[0].UpdatedAt, ShouldEqual, 7)
			})
		})

		Convey("When the hub closes", func() {
			h.Close()

			Convey("Then subscriptions end", func() {
				_, ok := <-b
				So(ok, ShouldBeFalse)
				late, _ := h.Subscribe(ctx)
				_, ok = <-late
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a subscription bound to a context", t, func() {
		h := NewHub()
		ctx, cancel := context.WithCancel(context.Background())
		ch, _ := h.Subscribe(ctx)
		cancel()

		Convey("Then cancelling the context closes it", func() {
			_, ok := <-ch
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNATSBridgeHandle(t *testing.T) {
	Convey("Given a bridge without a connection", t, func() {
		h := NewHub()
		ch, cancel := h.Subscribe(context.Background())
		Reset(cancel)
		b := newNATSBridge(DefaultSubject, "me", h, nil)

		Convey("When a foreign event arrives", func() {
			data, _ := json.Marshal(Event{Type: TypeStateUpdated, UpdatedAt: 9, Origin: "other"})
			b.handle(&nats.Msg{Data: data})

			Convey("Then it is published locally", func() {
				So((<-ch).UpdatedAt, ShouldEqual, 9)
			})
		})

		Convey("When its own or malformed events arrive", func() {
			own, _ := json.Marshal(Event{Type: TypeStateUpdated, UpdatedAt: 1, Origin: "me"})
			b.handle(&nats.Msg{Data: own})
			b.handle(&nats.Msg{Data: []byte("nope")})
			b.handle(&nats.Msg{Data: []byte(`{"type":"OTHER"}`)})

			Convey("Then nothing is published", func() {
				So(len(ch), ShouldEqual, 0)
			})
		})

		Convey("When forwarding or closing without a connection", func() {
			So(func() { b.Forward(context.Background(), Event{}) }, ShouldNotPanic)
			So(b.Close(), ShouldBeNil)
		})
	})
}
