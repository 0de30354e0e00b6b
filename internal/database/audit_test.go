// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/machinelog/internal/models"
)

func TestAuditEvents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	events := []models.AuditEvent{
		{Type: "auth.login", Outcome: models.OutcomeSuccess, Actor: "admin", IP: "10.0.0.1"},
		{Type: "record.created", Outcome: models.OutcomeSuccess, Actor: "user", TargetType: "record", TargetID: "r1"},
		{Type: "record.deleted", Outcome: models.OutcomeSuccess, Actor: "user", TargetType: "record", TargetID: "r1"},
		{Type: "auth.login", Outcome: models.OutcomeFailure, Actor: "mallory", Detail: "invalid_password"},
	}
	for i := range events {
		if err := db.SaveAuditEvent(ctx, &events[i]); err != nil {
			t.Fatalf("SaveAuditEvent() error = %v", err)
		}
		if events[i].ID == "" || events[i].Timestamp.IsZero() {
			t.Fatalf("SaveAuditEvent() did not fill ID/Timestamp: %+v", events[i])
		}
	}

	all, err := db.ListAuditEvents(ctx, models.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEvents() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	if all[0].Actor != "mallory" || all[3].Actor != "admin" {
		t.Errorf("not newest first: %s ... %s", all[0].Actor, all[3].Actor)
	}
	if all[0].Detail != "invalid_password" || all[0].Outcome != models.OutcomeFailure {
		t.Errorf("fields not round-tripped: %+v", all[0])
	}

	tests := []struct {
		name   string
		filter models.AuditFilter
		want   int
	}{
		{"by type", models.AuditFilter{Type: "auth.login"}, 2},
		{"by actor", models.AuditFilter{Actor: "user"}, 2},
		{"by target", models.AuditFilter{TargetType: "record", TargetID: "r1"}, 2},
		{"since", models.AuditFilter{Since: events[2].Timestamp}, 2},
		{"limit", models.AuditFilter{Limit: 1}, 1},
		{"offset", models.AuditFilter{Offset: 3}, 1},
		{"no match", models.AuditFilter{Actor: "nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListAuditEvents(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListAuditEvents() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
			if got == nil {
				t.Error("ListAuditEvents() returned nil slice")
			}
		})
	}
}

func TestDeleteAuditEventsBefore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := &models.AuditEvent{
			Type:      "record.created",
			Outcome:   models.OutcomeSuccess,
			Actor:     "user",
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := db.SaveAuditEvent(ctx, e); err != nil {
			t.Fatalf("SaveAuditEvent() error = %v", err)
		}
	}

	n, err := db.DeleteAuditEventsBefore(ctx, base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("DeleteAuditEventsBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	left, err := db.ListAuditEvents(ctx, models.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEvents() error = %v", err)
	}
	if len(left) != 3 {
		t.Errorf("remaining = %d, want 3", len(left))
	}
}
