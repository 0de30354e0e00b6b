// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package events carries change notifications from the API handlers to their
// consumers over an in-process watermill pub/sub.
//
// A handler publishes one Change after a successful write. Every consumer
// registered with Subscribe receives its own copy, so the audit trail and
// the websocket push see the same stream without the handler calling
// either of them.
//
//	bus, _ := events.NewBus(events.Config{})
//	bus.Subscribe("audit", func(ctx context.Context, c events.Change) { ... })
//	if err := bus.Start(ctx); err != nil { ... }
//	defer bus.Close()
package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/machinelog/internal/logging"
)

// TopicChanges is the topic every Change is published on.
const TopicChanges = "machinelog.changes"

const (
	metadataRequestID = "request_id"
	metadataUsername  = "username"
)

// ErrStarted is returned by Subscribe after Start.
var ErrStarted = errors.New("event bus already started")

// Change is one committed write.
type Change struct {
	Action string `json:"action"`
	Entity string `json:"entity"`
	ID     string `json:"id"`
	By     string `json:"by"`

	// MessageType and Data form the realtime push. An empty UserID pushes
	// to every connected client.
	MessageType string          `json:"messageType,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Consumer handles one Change. Consumers cannot fail a message: a
// redelivered change would be audited twice.
type Consumer func(ctx context.Context, c Change)

// Config tunes the bus. Zero values take defaults.
type Config struct {
	// Buffer is the per-subscriber channel size.
	Buffer int64
	// CloseTimeout bounds how long Close waits for in-flight handlers.
	CloseTimeout time.Duration
}

// Bus is the in-process change stream.
type Bus struct {
	pubsub  *gochannel.GoChannel
	router  *message.Router
	logger  watermill.LoggerAdapter
	started atomic.Bool

	published atomic.Int64
	failed    atomic.Int64
}

// NewBus creates a bus with no consumers.
func NewBus(cfg Config) (*Bus, error) {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 5 * time.Second
	}

	logger := NewLogger()
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.Buffer}, logger),
		router: router,
		logger: logger,
	}, nil
}

// Subscribe registers a consumer under a unique name. It must be called
// before Start.
func (b *Bus) Subscribe(name string, consume Consumer) error {
	if b.started.Load() {
		return ErrStarted
	}
	b.router.AddConsumerHandler(name, TopicChanges, b.pubsub, func(msg *message.Message) error {
		var c Change
		if err := json.Unmarshal(msg.Payload, &c); err != nil {
			b.logger.Error("Dropping undecodable change", err, watermill.LogFields{
				"handler":    name,
				"message_id": msg.UUID,
			})
			return nil
		}
		b.dispatch(name, consume, messageContext(msg), c)
		return nil
	})
	return nil
}

// dispatch runs consume, turning a panic into a log line so the message is
// still acked.
func (b *Bus) dispatch(name string, consume Consumer, ctx context.Context, c Change) {
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			logging.Ctx(ctx).Error().
				Str("handler", name).
				Interface("panic", r).
				Str("entity", c.Entity).
				Str("action", c.Action).
				Msg("Change consumer panicked")
		}
	}()
	consume(ctx, c)
}

// Start runs the router in the background and returns once every consumer
// is subscribed. Changes published before Start are not delivered.
func (b *Bus) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrStarted
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.router.Run(ctx)
	}()

	select {
	case <-b.router.Running():
		logging.Info().Msg("Event bus running")
		return nil
	case err := <-errCh:
		if err == nil {
			err = errors.New("event bus router stopped before running")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends c to every consumer. The request ID and username of ctx
// travel with it. Publish does not wait for consumers.
func (b *Bus) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metadataRequestID, id)
	}
	if u := logging.UsernameFromContext(ctx); u != "" {
		msg.Metadata.Set(metadataUsername, u)
	}

	if err := b.pubsub.Publish(TopicChanges, msg); err != nil {
		b.failed.Add(1)
		return fmt.Errorf("publish change: %w", err)
	}
	b.published.Add(1)
	return nil
}

// Published returns how many changes were handed to the pub/sub.
func (b *Bus) Published() int64 {
	return b.published.Load()
}

// Failed returns how many changes failed to publish or made a consumer panic.
func (b *Bus) Failed() int64 {
	return b.failed.Load()
}

// Close stops the router, waiting for in-flight consumers, then the pub/sub.
func (b *Bus) Close() error {
	return errors.Join(b.router.Close(), b.pubsub.Close())
}

// messageContext rebuilds the publisher's log context for a consumer.
func messageContext(msg *message.Message) context.Context {
	ctx := msg.Context()
	if id := msg.Metadata.Get(metadataRequestID); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}
	if u := msg.Metadata.Get(metadataUsername); u != "" {
		ctx = logging.ContextWithUsername(ctx, u)
	}
	return ctx
}
