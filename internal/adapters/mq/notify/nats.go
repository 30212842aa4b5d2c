package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// DefaultSubject is the NATS subject carrying station notifications.
const DefaultSubject = "sportsday.state"

// NATSBridge mirrors notifications between the hub and a NATS subject so views
// attached to other processes on the device re-read too.
type NATSBridge struct {
	nc      *nats.Conn
	subject string
	origin  string
	hub     *Hub
	log     logger.Logger
}

// ConnectNATS connects to url, subscribes to subject and registers itself as a
// forwarder of hub. Events carrying origin are ignored on receipt.
func ConnectNATS(url, subject, origin string, hub *Hub, log logger.Logger) (*NATSBridge, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	b := newNATSBridge(subject, origin, hub, log)
	ctx := context.Background()
	opts := []nats.Option{
		nats.Name("sportsday-station-" + origin),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.log.Warn(ctx, "NATS disconnected", logger.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.log.Info(ctx, "NATS reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b.nc = nc
	if _, err := nc.Subscribe(subject, b.handle); err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	hub.AddForwarder(b)
	return b, nil
}

func newNATSBridge(subject, origin string, hub *Hub, log logger.Logger) *NATSBridge {
	if log == nil {
		log = logger.Nop()
	}
	return &NATSBridge{subject: subject, origin: origin, hub: hub, log: log}
}

// Forward implements Forwarder.
func (b *NATSBridge) Forward(ctx context.Context, e Event) {
	if b.nc == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		b.log.Warn(ctx, "NATS publish failed", logger.Error(err))
	}
}

func (b *NATSBridge) handle(msg *nats.Msg) {
	var e Event
	if err := json.Unmarshal(msg.Data, &e); err != nil || e.Type != TypeStateUpdated {
		return
	}
	if e.Origin != "" && e.Origin == b.origin {
		return
	}
	b.hub.Publish(context.Background(), e)
}

// Close drains the subscription and closes the connection.
func (b *NATSBridge) Close() error {
	if b.nc == nil {
		return nil
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("drain NATS: %w", err)
	}
	return nil
}
