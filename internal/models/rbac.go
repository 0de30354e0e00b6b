// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package models

import "strings"

// Role is the stored account role. The casbin policy uses the lower-case
// form returned by PolicyName.
type Role string

const (
	// RoleAdmin manages users and can do everything a technician can.
	RoleAdmin Role = "ADMIN"

	// RoleTechnician can change machine and finding status.
	RoleTechnician Role = "TECHNICIAN"

	// RoleUser is the default role: own records, read machines, raise findings.
	RoleUser Role = "USER"
)

// ValidRoles contains all valid roles.
var ValidRoles = []Role{RoleAdmin, RoleTechnician, RoleUser}

// ParseRole converts case-insensitive input to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}

// PolicyName is the casbin subject for the role.
func (r Role) PolicyName() string {
	return strings.ToLower(string(r))
}
