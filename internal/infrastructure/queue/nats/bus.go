package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/resilience"
)

const (
	DefaultLookupSubject         = "orders.lookup.completed"
	DefaultRecordsChangedSubject = "records.changed"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Bus publishes lookup events and listens for record change notifications.
type Bus struct {
	conn           *nats.Conn
	pub            publisher
	lookupSubject  string
	recordsSubject string
	executor       *resilience.Executor
}

var _ ports.LookupEventPublisher = (*Bus)(nil)

type Options struct {
	LookupSubject         string
	RecordsChangedSubject string
	ConnectTimeout        time.Duration
	ReconnectWait         time.Duration
	MaxReconnects         int
	RetryOnFailedConnect  *bool
	ResilienceExecutor    *resilience.Executor
}

func Connect(url string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("order-status-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", fmt.Sprint(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	bus := newBus(conn, options)
	bus.conn = conn
	return bus, nil
}

func newBus(pub publisher, options Options) *Bus {
	lookupSubject := options.LookupSubject
	if lookupSubject == "" {
		lookupSubject = DefaultLookupSubject
	}
	recordsSubject := options.RecordsChangedSubject
	if recordsSubject == "" {
		recordsSubject = DefaultRecordsChangedSubject
	}
	return &Bus{
		pub:            pub,
		lookupSubject:  lookupSubject,
		recordsSubject: recordsSubject,
		executor:       options.ResilienceExecutor,
	}
}

// Close flushes pending publishes before closing the connection.
func (b *Bus) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.FlushTimeout(2 * time.Second); err != nil {
		slog.Warn("nats_flush_failed", "error", err.Error())
	}
	b.conn.Close()
}

func (b *Bus) PublishLookup(ctx context.Context, event domain.LookupEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal lookup event: %w", err)
	}

	err = b.executor.Execute(ctx, "nats.publish", func(context.Context) error {
		if err := b.pub.Publish(b.lookupSubject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded(err)
}

// RecordsChanged is the notification body on the records subject.
type RecordsChanged struct {
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	ChangedAt time.Time `json:"changed_at"`
}

// PublishRecordsChanged tells every API replica to reload its record snapshot.
func (b *Bus) PublishRecordsChanged(ctx context.Context, notice RecordsChanged) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal records notice: %w", err)
	}

	err = b.executor.Execute(ctx, "nats.publish", func(context.Context) error {
		if err := b.pub.Publish(b.recordsSubject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded(err)
}

// SubscribeRecordsChanged calls handler for every change notification until ctx is done.
// Notifications carry no payload that matters; each one triggers a reload.
func (b *Bus) SubscribeRecordsChanged(ctx context.Context, handler func(context.Context) error) error {
	if b.conn == nil {
		return errors.New("nats subscribe: bus is not connected")
	}
	sub, err := b.conn.Subscribe(b.recordsSubject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		if err := handler(ctx); err != nil {
			slog.Warn("records_changed_handler_failed",
				"subject", msg.Subject,
				"error", err.Error(),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}
