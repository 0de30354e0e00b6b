// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package alarm

import (
	"fmt"
	"strings"
)

// Family identifies a PLC controller family.
type Family int

const (
	// Family840D is the SINUMERIK 840D family (user alarms in DB2).
	Family840D Family = iota + 1

	// Family828D is the SINUMERIK 828D family (user alarms in DB1600).
	Family828D
)

// Data block numbers used by each family.
const (
	Block840D = 2
	Block828D = 1600
)

// Families lists every supported family in display order.
var Families = []Family{Family840D, Family828D}

// String returns the family name as shown to users.
func (f Family) String() string {
	switch f {
	case Family840D:
		return "840D"
	case Family828D:
		return "828D"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Block returns the data block number holding the family's alarm bits.
func (f Family) Block() int {
	switch f {
	case Family840D:
		return Block840D
	case Family828D:
		return Block828D
	default:
		return 0
	}
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return f == Family840D || f == Family828D
}

// ParseFamily parses "840D" or "828D" (case-insensitive, surrounding
// whitespace ignored).
func ParseFamily(s string) (Family, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "840D":
		return Family840D, nil
	case "828D":
		return Family828D, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFamily, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFamily, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Address is a bit address inside a PLC data block.
type Address struct {
	Block int `json:"block"`
	Byte  int `json:"byte"`
	Bit   int `json:"bit"`
}

// String renders the address in STEP 7 notation, e.g. DB2.DBX315.5.
func (a Address) String() string {
	return fmt.Sprintf("DB%d.DBX%d.%d", a.Block, a.Byte, a.Bit)
}
