package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/richxcame/gigmarket/pkg/logger"
	"go.uber.org/zap"
)

// Handler processes one delivered event. Returning an error naks the message.
type Handler func(ctx context.Context, event *Event) error

// Publisher is what domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// Subscriber is what event handlers register against.
type Subscriber interface {
	Subscribe(ctx context.Context, subject, durable string, handler Handler) error
}

// Bus is a JetStream backed publisher and subscriber.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	subs   []*nats.Subscription
}

// New connects to NATS and makes sure the stream covering every domain
// subject exists.
func New(cfg config.NATSConfig, serviceName string) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(serviceName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			conn.Close()
			return nil, fmt.Errorf("stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: StreamSubjects,
			MaxAge:   7 * 24 * time.Hour,
			Storage:  nats.FileStorage,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("create stream: %w", err)
		}
	}

	logger.Info("event bus connected", zap.String("url", cfg.URL), zap.String("stream", cfg.Stream))
	return &Bus{conn: conn, js: js, stream: cfg.Stream}, nil
}

// Publish sends event on subject.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(subject, payload, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable consumer to subject. Handlers run on the NATS
// delivery goroutine with a per-message timeout.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) error {
	sub, err := b.js.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("dropping malformed event", zap.String("subject", msg.Subject), zap.Error(err))
			_ = msg.Term()
			return
		}

		hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := handler(hctx, &event); err != nil {
			logger.Warn("event handler failed",
				zap.String("subject", msg.Subject),
				zap.String("event_id", event.ID),
				zap.String("event_type", event.Type),
				zap.Error(err),
			)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable(durable), nats.ManualAck(), nats.AckWait(time.Minute), nats.MaxDeliver(5))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	b.subs = append(b.subs, sub)
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *Bus) Close() {
	for _, sub := range b.subs {
		_ = sub.Drain()
	}
	if b.conn != nil {
		_ = b.conn.Drain()
	}
}

// NoopPublisher discards events. It is used when NATS is disabled.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(ctx context.Context, subject string, event *Event) error {
	logger.WithContext(ctx).Debug("event bus disabled, dropping event",
		zap.String("subject", subject),
		zap.String("event_type", event.Type),
	)
	return nil
}
