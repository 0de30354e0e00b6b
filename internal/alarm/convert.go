// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package alarm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Conversion errors. Callers should test with errors.Is.
var (
	// ErrInvalidFormat indicates the input does not have the required shape.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrOutOfRange indicates well-formed input outside the family's range.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvariant indicates an inverse computation produced digits that
	// cannot be rendered as a 6-digit alarm. It is always reported together
	// with ErrOutOfRange.
	ErrInvariant = errors.New("alarm digit invariant violated")

	// ErrUnknownFamily indicates an unsupported PLC family.
	ErrUnknownFamily = errors.New("unknown PLC family")
)

const (
	alarmBase   = 700000
	max840D     = 799999
	max828D     = 700247
	db2Start    = 180
	maxByte828D = 30
	maxBit      = 7
)

var alarmPattern = regexp.MustCompile(`^70\d{4}$`)

// Result is the outcome of a conversion in either direction.
type Result struct {
	Family      Family  `json:"family"`
	Alarm       string  `json:"alarm"`
	Address     Address `json:"-"`
	AddressText string  `json:"address"`
	Calculation string  `json:"calculation"`
}

// codec holds the two directions of one family's encoding.
type codec struct {
	addressPattern *regexp.Regexp
	forward        func(digits string, n int) (*Result, error)
	inverse        func(byteOffset, bitOffset int) (*Result, error)
}

var codecs = map[Family]codec{
	Family840D: {
		addressPattern: regexp.MustCompile(`(?i)^DB2\.DBX(\d+)\.(\d+)$`),
		forward:        forward840D,
		inverse:        inverse840D,
	},
	Family828D: {
		addressPattern: regexp.MustCompile(`(?i)^DB1600\.DBX(\d+)\.(\d+)$`),
		forward:        forward828D,
		inverse:        inverse828D,
	},
}

func lookup(f Family) (codec, error) {
	c, ok := codecs[f]
	if !ok {
		return codec{}, fmt.Errorf("%w: %s", ErrUnknownFamily, f)
	}
	return c, nil
}

// AlarmToAddress converts a 6-digit alarm number (70XXXX) to its data-block
// bit address for the given family.
func AlarmToAddress(text string, f Family) (*Result, error) {
	c, err := lookup(f)
	if err != nil {
		return nil, err
	}
	if !alarmPattern.MatchString(text) {
		return nil, fmt.Errorf("%w: alarm %q must have the form 70XXXX", ErrInvalidFormat, text)
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, fmt.Errorf("%w: alarm %q: %v", ErrInvalidFormat, text, err)
	}
	return c.forward(text, n)
}

// AddressToAlarm converts a data-block bit address back to the alarm number
// for the given family.
func AddressToAlarm(text string, f Family) (*Result, error) {
	c, err := lookup(f)
	if err != nil {
		return nil, err
	}
	m := c.addressPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: address %q must have the form DB%d.DBX{byte}.{bit}",
			ErrInvalidFormat, text, f.Block())
	}
	byteOffset, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: byte offset %s", ErrOutOfRange, m[1])
	}
	bitOffset, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bit offset %s", ErrOutOfRange, m[2])
	}
	if bitOffset > maxBit {
		return nil, fmt.Errorf("%w: bit offset %d must be between 0 and 7", ErrOutOfRange, bitOffset)
	}
	return c.inverse(byteOffset, bitOffset)
}

// Canonical840D returns the alarm that AddressToAlarm yields for the address
// of the given 840D alarm. It equals the input when the last two digits are
// below 64.
func Canonical840D(text string) (string, error) {
	res, err := AlarmToAddress(text, Family840D)
	if err != nil {
		return "", err
	}
	back, err := inverse840D(res.Address.Byte, res.Address.Bit)
	if err != nil {
		return "", err
	}
	return back.Alarm, nil
}

func forward840D(digits string, n int) (*Result, error) {
	if n < alarmBase || n > max840D {
		return nil, fmt.Errorf("%w: alarm %d outside 700000-799999 for 840D", ErrOutOfRange, n)
	}
	// Pattern guarantees six ASCII digits.
	middle, _ := strconv.Atoi(digits[2:4])
	last, _ := strconv.Atoi(digits[4:6])

	quotient := last / 8
	remainder := last % 8
	byteOffset := db2Start + middle*8 + quotient

	addr := Address{Block: Block840D, Byte: byteOffset, Bit: remainder}
	return &Result{
		Family:      Family840D,
		Alarm:       digits,
		Address:     addr,
		AddressText: addr.String(),
		Calculation: fmt.Sprintf("%d + (%d × 8) + (%d ÷ 8) = %d + %d + %d.%d = %d.%d",
			db2Start, middle, last, db2Start, middle*8, quotient, remainder, byteOffset, remainder),
	}, nil
}

func forward828D(digits string, n int) (*Result, error) {
	if n < alarmBase || n > max828D {
		return nil, fmt.Errorf("%w: alarm %d outside 700000-700247 for 828D", ErrOutOfRange, n)
	}
	offset := n - alarmBase
	addr := Address{Block: Block828D, Byte: offset / 8, Bit: offset % 8}
	return &Result{
		Family:      Family828D,
		Alarm:       digits,
		Address:     addr,
		AddressText: addr.String(),
		Calculation: fmt.Sprintf("Alarm %d corresponds to bit position %d in DB1600, which is byte %d, bit %d",
			n, offset, addr.Byte, addr.Bit),
	}, nil
}

func inverse840D(byteOffset, bitOffset int) (*Result, error) {
	if byteOffset < db2Start {
		return nil, fmt.Errorf("%w: byte offset %d must be at least 180 for 840D", ErrOutOfRange, byteOffset)
	}
	remaining := byteOffset - db2Start
	middle := remaining / 8
	quotient := remaining % 8
	last := quotient*8 + bitOffset

	// Two decimal digits each; anything wider would not be a 70XXXX alarm.
	if middle > 99 || last > 99 {
		return nil, fmt.Errorf("%w: %w: middle digits %d, last digits %d",
			ErrOutOfRange, ErrInvariant, middle, last)
	}

	addr := Address{Block: Block840D, Byte: byteOffset, Bit: bitOffset}
	return &Result{
		Family:      Family840D,
		Alarm:       fmt.Sprintf("70%02d%02d", middle, last),
		Address:     addr,
		AddressText: addr.String(),
		Calculation: fmt.Sprintf("Middle digits = (%d - %d) ÷ 8 = %d ÷ 8 = %d\nLast digits = (%d %% 8) × 8 + %d = %d × 8 + %d = %d",
			byteOffset, db2Start, remaining, middle, remaining, bitOffset, quotient, bitOffset, last),
	}, nil
}

func inverse828D(byteOffset, bitOffset int) (*Result, error) {
	if byteOffset > maxByte828D {
		return nil, fmt.Errorf("%w: byte offset %d exceeds 30 for 828D (max DB1600.DBX30.7)", ErrOutOfRange, byteOffset)
	}
	offset := byteOffset*8 + bitOffset
	n := alarmBase + offset
	if n > max828D {
		return nil, fmt.Errorf("%w: alarm %d exceeds 700247 for 828D", ErrOutOfRange, n)
	}

	addr := Address{Block: Block828D, Byte: byteOffset, Bit: bitOffset}
	return &Result{
		Family:      Family828D,
		Alarm:       strconv.Itoa(n),
		Address:     addr,
		AddressText: addr.String(),
		Calculation: fmt.Sprintf("Offset = %d × 8 + %d = %d\nAlarm = %d + %d = %d",
			byteOffset, bitOffset, offset, alarmBase, offset, n),
	}, nil
}
