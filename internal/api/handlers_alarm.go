// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/machinelog/internal/alarm"
	"github.com/tomtom215/machinelog/internal/metrics"
	"github.com/tomtom215/machinelog/internal/models"
)

// AlarmToAddress converts an alarm number to its DB bit address.
//
// @Summary Alarm number to DB address
// @Description Converts a 70XXXX alarm to DB2.DBX{byte}.{bit} (840D, default) or DB1600.DBX{byte}.{bit} (828D), with the derivation.
// @Tags Alarms
// @Accept json
// @Produce json
// @Param request body models.AlarmRequest true "Alarm number and family"
// @Success 200 {object} models.APIResponse{data=alarm.Result}
// @Failure 400 {object} models.APIResponse "INVALID_FORMAT or OUT_OF_RANGE"
// @Router /alarms/to-address [post]
func (h *Handler) AlarmToAddress(w http.ResponseWriter, r *http.Request) {
	h.convertAlarm(w, r, "to_address", alarm.AlarmToAddress)
}

// AddressToAlarm converts a DB bit address back to its alarm number.
//
// @Summary DB address to alarm number
// @Tags Alarms
// @Accept json
// @Produce json
// @Param request body models.AlarmRequest true "Address and family"
// @Success 200 {object} models.APIResponse{data=alarm.Result}
// @Failure 400 {object} models.APIResponse "INVALID_FORMAT or OUT_OF_RANGE"
// @Router /alarms/to-alarm [post]
func (h *Handler) AddressToAlarm(w http.ResponseWriter, r *http.Request) {
	h.convertAlarm(w, r, "to_alarm", alarm.AddressToAlarm)
}

func (h *Handler) convertAlarm(w http.ResponseWriter, r *http.Request, direction string, convert func(string, alarm.Family) (*alarm.Result, error)) {
	var req models.AlarmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	family := alarm.Family840D
	if req.Family != "" {
		f, err := alarm.ParseFamily(req.Family)
		if err != nil {
			respondError(w, http.StatusBadRequest, "UNKNOWN_FAMILY", err.Error(), nil)
			return
		}
		family = f
	}

	res, err := convert(strings.TrimSpace(req.Value), family)
	metrics.RecordAlarmConversion(family.String(), direction, err)
	if err != nil {
		code, status := alarmErrorCode(err)
		respondError(w, status, code, err.Error(), nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, res)
}

// alarmErrorCode maps converter errors. ErrInvariant wraps ErrOutOfRange and
// is reported as such.
func alarmErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, alarm.ErrInvalidFormat):
		return "INVALID_FORMAT", http.StatusBadRequest
	case errors.Is(err, alarm.ErrOutOfRange):
		return "OUT_OF_RANGE", http.StatusBadRequest
	case errors.Is(err, alarm.ErrUnknownFamily):
		return "UNKNOWN_FAMILY", http.StatusBadRequest
	default:
		return ErrCodeInternal, http.StatusInternalServerError
	}
}
