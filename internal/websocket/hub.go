// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/metrics"
)

// Message types.
const (
	MessageTypeRecordCreated        = "record_created"
	MessageTypeRecordUpdated        = "record_updated"
	MessageTypeRecordDeleted        = "record_deleted"
	MessageTypeFindingCreated       = "finding_created"
	MessageTypeFindingStatusChanged = "finding_status_changed"
	MessageTypeMachineStatusChanged = "machine_status_changed"
	MessageTypePing                 = "ping"
	MessageTypePong                 = "pong"
)

// Message is one frame sent to clients.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// envelope is a message plus its audience. An empty userID means everyone.
type envelope struct {
	msg    Message
	userID string
}

// RecordDeleted is the payload of record_deleted.
type RecordDeleted struct {
	ID string `json:"id"`
}

// Hub maintains the set of active clients and routes messages to them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	now        func() time.Time
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// RunWithContext processes registrations and broadcasts until ctx is done,
// then closes every client and returns ctx.Err().
//
// Lifecycle events are drained before broadcasts so a client registered
// just before a publish receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Str("user_id", c.userID).Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Str("user_id", c.userID).Int("total_clients", n).Msg("websocket client disconnected")
}

// deliver sends env to its audience in client ID order. Clients whose
// buffer is full are dropped.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		if env.userID != "" && c.userID != env.userID {
			continue
		}
		select {
		case c.send <- env.msg:
			metrics.WSMessagesSent.Inc()
		default:
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
			close(c.send)
			delete(h.clients, c)
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// sortedClients returns clients ordered by id. Caller holds mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	n := len(h.clients)
	for _, c := range h.sortedClients() {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

func (h *Hub) publish(msgType, userID string, data any) {
	env := envelope{
		msg:    Message{Type: msgType, Timestamp: h.now().UTC(), Data: data},
		userID: userID,
	}
	select {
	case h.broadcast <- env:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", msgType).Msg("broadcast channel full, dropping message")
	}
}

// PublishToUser queues a message for userID's connections only.
func (h *Hub) PublishToUser(userID, msgType string, data any) {
	h.publish(msgType, userID, data)
}

// PublishAll queues a message for every connection.
func (h *Hub) PublishAll(msgType string, data any) {
	h.publish(msgType, "", data)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
