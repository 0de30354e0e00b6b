// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package models

import (
	"strings"
	"time"
)

// User is a login account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MachineStatus is the operational state of a machine.
type MachineStatus string

const (
	MachineActive      MachineStatus = "ACTIVE"
	MachineMaintenance MachineStatus = "MAINTENANCE"
)

// Machine is identified by its unique Number, e.g. "MCH001".
type Machine struct {
	ID        string        `json:"id"`
	Number    string        `json:"number"`
	Name      string        `json:"name"`
	Status    MachineStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// DefaultMachineName is the name given to machines created implicitly by a
// record.
func DefaultMachineName(number string) string {
	return "Machine " + number
}

// Tag labels records. Names are unique and case-sensitive.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TagCount is a tag with the number of records using it.
type TagCount struct {
	Tag
	Count int `json:"count"`
}

// Record is a maintenance note about a machine, visible only to its creator.
type Record struct {
	ID            string    `json:"id"`
	MachineID     string    `json:"machineId"`
	MachineNumber string    `json:"machineNumber"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"imageUrl"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdOn"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Tags          []Tag     `json:"tags"`
}

// RecordInput is the body of record create and update requests. Tags is a
// comma-separated list of tag names.
type RecordInput struct {
	MachineNumber string `json:"machineNumber" validate:"required,machinenumber"`
	Description   string `json:"description" validate:"required,max=20000"`
	Tags          string `json:"tags" validate:"max=1000"`
	ImageURL      string `json:"imageUrl,omitempty" validate:"omitempty,url,max=2048"`
}

// TagNames splits Tags on commas, trims whitespace and drops empty and
// duplicate names, preserving first-seen order. Duplicates are matched
// case-insensitively and the first spelling wins, since MySQL compares tag
// names under a case-insensitive collation.
func (in RecordInput) TagNames() []string {
	if in.Tags == "" {
		return nil
	}
	parts := strings.Split(in.Tags, ",")
	seen := make(map[string]struct{}, len(parts))
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, p)
	}
	return names
}

// RecordFilter narrows ListRecords. Empty fields do not filter.
type RecordFilter struct {
	MachineNumber string
	Tag           string
}

// FindingStatus tracks a finding through its lifecycle.
type FindingStatus string

const (
	FindingOpen       FindingStatus = "OPEN"
	FindingInProgress FindingStatus = "IN_PROGRESS"
	FindingResolved   FindingStatus = "RESOLVED"
)

// Valid reports whether s is a known status.
func (s FindingStatus) Valid() bool {
	switch s {
	case FindingOpen, FindingInProgress, FindingResolved:
		return true
	}
	return false
}

// Severity ranks findings.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Finding is an issue raised against a machine.
type Finding struct {
	ID              string        `json:"id"`
	MachineID       string        `json:"machineId"`
	MachineNumber   string        `json:"machineNumber"`
	TextDescription string        `json:"textDescription"`
	Status          FindingStatus `json:"status"`
	Severity        Severity      `json:"severity"`
	CreatedBy       string        `json:"createdBy"`
	CreatorUsername string        `json:"creatorUsername"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// FindingInput is the body of POST /api/v1/findings. Status defaults to OPEN
// and Severity to MEDIUM.
type FindingInput struct {
	MachineID       string        `json:"machineId" validate:"required,max=64"`
	TextDescription string        `json:"textDescription" validate:"required,max=20000"`
	Status          FindingStatus `json:"status,omitempty" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED"`
	Severity        Severity      `json:"severity,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// StatusRequest is the body of the machine and finding status endpoints.
type StatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}
