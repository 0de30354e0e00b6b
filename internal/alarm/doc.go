// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package alarm converts Siemens PLC user alarm numbers to data-block bit
// addresses and back.
//
// # Families
//
// Two controller families are supported, each with its own encoding:
//
//   - 840D: alarms 700000-799999 map into DB2. The two middle digits select
//     an 8-byte group starting at byte 180 and the two last digits select a
//     bit inside that group: DB2.DBX{180 + middle*8 + last/8}.{last%8}.
//   - 828D: alarms 700000-700247 map linearly into DB1600:
//     DB1600.DBX{(n-700000)/8}.{(n-700000)%8}.
//
// # Usage
//
//	res, err := alarm.AlarmToAddress("701661", alarm.Family840D)
//	if err != nil {
//	    // errors.Is(err, alarm.ErrInvalidFormat) or alarm.ErrOutOfRange
//	}
//	fmt.Println(res.Address) // DB2.DBX315.5
//
//	back, err := alarm.AddressToAlarm("DB2.DBX315.5", alarm.Family840D)
//	fmt.Println(back.Alarm) // 701661
//
// # Errors
//
// ErrInvalidFormat reports input that does not have the expected lexical
// shape. ErrOutOfRange reports lexically valid input outside the range of the
// selected family. Both are permanent; no partial result is returned with
// an error.
//
// # Ambiguity of 840D last digits
//
// Last-digit pairs 64-99 are accepted by the forward conversion but share
// their address with another alarm (middle+1, last-64). The inverse
// conversion always yields the canonical alarm whose last pair is below 64.
// See Canonical840D.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package alarm
