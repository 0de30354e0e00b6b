// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/logging"
)

// Consumer names on the event bus.
const (
	consumerAudit     = "audit"
	consumerWebSocket = "websocket"
)

// subscribeConsumers attaches the audit trail and the websocket push to bus.
func (h *Handler) subscribeConsumers(bus *events.Bus) error {
	if err := bus.Subscribe(consumerAudit, h.auditChange); err != nil {
		return err
	}
	return bus.Subscribe(consumerWebSocket, h.pushChange)
}

// emit announces a committed write. push, when non-nil, is the websocket
// payload of c.MessageType. A non-empty c.UserID limits it to that user's
// connections.
//
// With an event bus the change is published once and both consumers pick
// it up. Without one they run inline.
func (h *Handler) emit(ctx context.Context, c events.Change, push any) {
	if push != nil && c.MessageType != "" {
		data, err := json.Marshal(push)
		if err != nil {
			logging.CtxErr(ctx, err).Str("message_type", c.MessageType).Msg("Failed to encode push payload")
			c.MessageType = ""
		}
		c.Data = data
	}

	if h.events == nil {
		h.auditChange(ctx, c)
		h.pushChange(ctx, c)
		return
	}
	if err := h.events.Publish(ctx, c); err != nil {
		// The write is committed; keep the audit line even if the bus is down.
		logging.CtxErr(ctx, err).Str("entity", c.Entity).Str("action", c.Action).Msg("Failed to publish change")
		h.auditChange(ctx, c)
	}
}

func (h *Handler) auditChange(ctx context.Context, c events.Change) {
	h.audit.Change(ctx, c.Action, c.Entity, c.ID, c.By)
}

func (h *Handler) pushChange(_ context.Context, c events.Change) {
	if h.wsHub == nil || c.MessageType == "" {
		return
	}
	if c.UserID != "" {
		h.wsHub.PublishToUser(c.UserID, c.MessageType, c.Data)
		return
	}
	h.wsHub.PublishAll(c.MessageType, c.Data)
}
