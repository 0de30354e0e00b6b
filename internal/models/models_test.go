// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package models

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestRecordInput_TagNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tags string
		want []string
	}{
		{"", nil},
		{" , ,", []string{}},
		{"Urgent", []string{"Urgent"}},
		{" Urgent , Safety ,", []string{"Urgent", "Safety"}},
		{"Urgent,urgent,URGENT", []string{"Urgent"}},
		{"spindle, Urgent ,SPINDLE", []string{"spindle", "Urgent"}},
	}
	for _, tt := range tests {
		got := RecordInput{Tags: tt.tags}.TagNames()
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("TagNames(%q) = %v, want %v", tt.tags, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"technician", RoleTechnician, true},
		{" User ", RoleUser, true},
		{"viewer", Role("VIEWER"), false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if RoleTechnician.PolicyName() != "technician" {
		t.Errorf("PolicyName() = %q", RoleTechnician.PolicyName())
	}
}

func TestStatusAndSeverityValid(t *testing.T) {
	t.Parallel()

	if !FindingInProgress.Valid() || FindingStatus("CLOSED").Valid() {
		t.Error("FindingStatus.Valid mismatch")
	}
	if !SeverityCritical.Valid() || Severity("SEVERE").Valid() {
		t.Error("Severity.Valid mismatch")
	}
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(User{ID: "u1", Username: "admin", PasswordHash: "$2a$10$secret", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") || strings.Contains(string(data), "passwordHash") {
		t.Errorf("password hash leaked: %s", data)
	}
}

func TestRecordJSONFieldNames(t *testing.T) {
	t.Parallel()

	rec := Record{
		ID:            "r1",
		MachineNumber: "MCH001",
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tags:          []Tag{{ID: "t1", Name: "Urgent"}},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"machineNumber":"MCH001"`, `"createdOn":"2026-01-02T03:04:05Z"`, `"name":"Urgent"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %s in %s", want, data)
		}
	}
}

func TestDefaultMachineName(t *testing.T) {
	t.Parallel()

	if got := DefaultMachineName("MCH009"); got != "Machine MCH009" {
		t.Errorf("DefaultMachineName = %q", got)
	}
}
