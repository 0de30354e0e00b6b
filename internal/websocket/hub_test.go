// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

// testHub runs a hub and an httptest server that attaches connections for
// the user named in the "user" query parameter.
type testHub struct {
	hub    *Hub
	srv    *httptest.Server
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
	runErr error
}

func startTestHub(t *testing.T) *testHub {
	t.Helper()

	hub := NewHub()
	hub.now = func() time.Time { return time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC) }
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	up := Upgrader(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, r.URL.Query().Get("user"))
	}))

	th := &testHub{hub: hub, srv: srv, cancel: cancel, done: done}
	t.Cleanup(th.stop)
	return th
}

// stop cancels the hub, waits for it and closes the server. Safe to call
// more than once.
func (th *testHub) stop() {
	th.once.Do(func() {
		th.cancel()
		th.runErr = <-th.done
		th.srv.Close()
	})
}

// dial connects as user and waits until the hub has registered it.
func (th *testHub) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()

	before := th.hub.ClientCount()
	conn := th.dialRaw(t, user)
	waitFor(t, func() bool { return th.hub.ClientCount() > before })
	return conn
}

func (th *testHub) dialRaw(t *testing.T, user string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(th.srv.URL, "http") + "/?user=" + user
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected message %s", data)
	}
}

func TestHub_RecordEventsGoToOwnerOnly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	th := startTestHub(t)
	alice := th.dial(t, "alice")
	bob := th.dial(t, "bob")

	th.hub.PublishToUser("alice", MessageTypeRecordDeleted, RecordDeleted{ID: "r1"})

	msg := readMessage(t, alice)
	if msg.Type != MessageTypeRecordDeleted {
		t.Errorf("Type = %q", msg.Type)
	}
	data, _ := msg.Data.(map[string]any)
	if data["id"] != "r1" {
		t.Errorf("Data = %v", msg.Data)
	}
	if !msg.Timestamp.Equal(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", msg.Timestamp)
	}
	expectSilence(t, bob)

	// bob's connection is unusable after the read timeout; close it first.
	_ = bob.Close()
	_ = alice.Close()
	th.stop()
}

func TestHub_PublishAll(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	th := startTestHub(t)
	a := th.dial(t, "alice")
	b := th.dial(t, "bob")

	th.hub.PublishAll(MessageTypeFindingCreated, map[string]string{"title": "Hydraulic leak"})

	for _, conn := range []*websocket.Conn{a, b} {
		if msg := readMessage(t, conn); msg.Type != MessageTypeFindingCreated {
			t.Errorf("Type = %q", msg.Type)
		}
	}
	th.stop()
}

func TestHub_PingPong(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	th := startTestHub(t)
	conn := th.dial(t, "alice")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("Type = %q, want pong", msg.Type)
	}
	th.stop()
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	th := startTestHub(t)
	conn := th.dial(t, "alice")

	th.cancel()
	waitFor(t, func() bool { return th.hub.ClientCount() == 0 })

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
		t.Errorf("ReadMessage() after shutdown = %v, want going-away close", err)
	}

	// Connections arriving after shutdown are closed immediately.
	late := th.dialRaw(t, "late")
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("connection attached after shutdown stayed open")
	}
	_ = late.Close()

	th.stop()
	if !errors.Is(th.runErr, context.Canceled) {
		t.Errorf("RunWithContext() = %v, want context.Canceled", th.runErr)
	}
}
