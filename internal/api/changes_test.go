// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/audit"
	"github.com/tomtom215/machinelog/internal/events"
	"github.com/tomtom215/machinelog/internal/models"
	ws "github.com/tomtom215/machinelog/internal/websocket"
)

func TestEmit_OnePublishFeedsAuditAndWebSocket(t *testing.T) {
	store := audit.NewMemoryStore(0)
	auditLog := audit.NewLogger(store, 10)
	t.Cleanup(func() { _ = auditLog.Close() })

	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.RunWithContext(hubCtx) }()
	t.Cleanup(func() {
		stopHub()
		<-hubDone
	})

	bus, err := events.NewBus(events.Config{})
	require.NoError(t, err)
	busCtx, stopBus := context.WithCancel(context.Background())
	t.Cleanup(func() {
		_ = bus.Close()
		stopBus()
	})

	h := NewHandler(Deps{Audit: auditLog, Hub: hub, Events: bus})
	require.NoError(t, bus.Start(busCtx))

	up := ws.Upgrader(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, "user-1")
	}))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.emit(context.Background(), events.Change{
		Action: "created", Entity: "record", ID: "rec-1", By: "user",
		MessageType: ws.MessageTypeRecordCreated, UserID: "user-1",
	}, models.Record{ID: "rec-1", MachineNumber: "MCH001"})
	assert.Equal(t, int64(1), bus.Published())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Type string        `json:"type"`
		Data models.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, ws.MessageTypeRecordCreated, msg.Type)
	assert.Equal(t, "MCH001", msg.Data.MachineNumber)

	require.Eventually(t, func() bool {
		got, err := store.ListAuditEvents(context.Background(), models.AuditFilter{Type: "record.created"})
		return err == nil && len(got) == 1 && got[0].TargetID == "rec-1" && got[0].Actor == "user"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmit_WithoutBusRunsConsumersInline(t *testing.T) {
	store := audit.NewMemoryStore(0)
	auditLog := audit.NewLogger(store, 10)
	h := NewHandler(Deps{Audit: auditLog})

	h.emit(context.Background(), events.Change{Action: "deleted", Entity: "file", ID: "a.png", By: "admin"}, nil)
	require.NoError(t, auditLog.Close())

	got, err := store.ListAuditEvents(context.Background(), models.AuditFilter{Type: "file.deleted"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "admin", got[0].Actor)
}

func TestNewHandler_StartedBusFallsBackInline(t *testing.T) {
	bus, err := events.NewBus(events.Config{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		_ = bus.Close()
		cancel()
	})
	require.NoError(t, bus.Start(ctx))

	h := NewHandler(Deps{Events: bus})
	assert.Nil(t, h.events, "a started bus cannot take new consumers")
}
