// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package alarm

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseFamily(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Family
		wantErr bool
	}{
		{"840D", Family840D, false},
		{"840d", Family840D, false},
		{" 828D ", Family828D, false},
		{"828d", Family828D, false},
		{"", 0, true},
		{"S7-1500", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseFamily(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFamily) {
				t.Errorf("ParseFamily(%q) error = %v, want ErrUnknownFamily", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFamily(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFamily(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFamily_Block(t *testing.T) {
	t.Parallel()

	if got := Family840D.Block(); got != 2 {
		t.Errorf("Family840D.Block() = %d, want 2", got)
	}
	if got := Family828D.Block(); got != 1600 {
		t.Errorf("Family828D.Block() = %d, want 1600", got)
	}
	if got := Family(9).Block(); got != 0 {
		t.Errorf("Family(9).Block() = %d, want 0", got)
	}
}

func TestFamily_JSON(t *testing.T) {
	t.Parallel()

	res, err := AlarmToAddress("700247", Family828D)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Family  Family `json:"family"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Family != Family828D {
		t.Errorf("family = %v, want 828D", decoded.Family)
	}
	if decoded.Address != "DB1600.DBX30.7" {
		t.Errorf("address = %q, want DB1600.DBX30.7", decoded.Address)
	}

	if _, err := json.Marshal(struct{ F Family }{F: Family(7)}); err == nil {
		t.Error("expected error marshaling unknown family")
	}
}
