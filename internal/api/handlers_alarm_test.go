// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/machinelog/internal/alarm"
	"github.com/tomtom215/machinelog/internal/models"
)

type alarmResult struct {
	Family      string `json:"family"`
	Alarm       string `json:"alarm"`
	Address     string `json:"address"`
	Calculation string `json:"calculation"`
}

func TestAlarmToAddress(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		req      models.AlarmRequest
		wantCode int
		wantAddr string
		wantErr  string
	}{
		{"840D default family", models.AlarmRequest{Value: "701661"}, http.StatusOK, "DB2.DBX315.5", ""},
		{"840D explicit", models.AlarmRequest{Value: "700000", Family: "840D"}, http.StatusOK, "DB2.DBX180.0", ""},
		{"828D", models.AlarmRequest{Value: "700247", Family: "828D"}, http.StatusOK, "DB1600.DBX30.7", ""},
		{"828D lower case family", models.AlarmRequest{Value: "700100", Family: "828d"}, http.StatusOK, "DB1600.DBX12.4", ""},
		{"828D above ceiling", models.AlarmRequest{Value: "700248", Family: "828D"}, http.StatusBadRequest, "", "OUT_OF_RANGE"},
		{"not an alarm", models.AlarmRequest{Value: "70ab12"}, http.StatusBadRequest, "", "INVALID_FORMAT"},
		{"wrong prefix", models.AlarmRequest{Value: "600000"}, http.StatusBadRequest, "", "INVALID_FORMAT"},
		{"unknown family", models.AlarmRequest{Value: "700000", Family: "999D"}, http.StatusBadRequest, "", "VALIDATION_ERROR"},
		{"empty value", models.AlarmRequest{}, http.StatusBadRequest, "", "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/alarms/to-address", "", tt.req)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, w))
				return
			}
			var res alarmResult
			decodeData(t, w, &res)
			assert.Equal(t, tt.wantAddr, res.Address)
			assert.NotEmpty(t, res.Calculation)
		})
	}
}

func TestAddressToAlarm(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/alarms/to-alarm", "", models.AlarmRequest{Value: "DB2.DBX315.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res alarmResult
	decodeData(t, w, &res)
	assert.Equal(t, "701661", res.Alarm)
	assert.Equal(t, "840D", res.Family)

	w = env.do(t, http.MethodPost, "/api/v1/alarms/to-alarm", "", models.AlarmRequest{Value: "DB1600.DBX30.7", Family: "828D"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &res)
	assert.Equal(t, "700247", res.Alarm)

	// 840D address on the 828D block.
	w = env.do(t, http.MethodPost, "/api/v1/alarms/to-alarm", "", models.AlarmRequest{Value: "DB2.DBX315.5", Family: "828D"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, w))

	w = env.do(t, http.MethodPost, "/api/v1/alarms/to-alarm", "", models.AlarmRequest{Value: "DB2.DBX315.8"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OUT_OF_RANGE", errorCode(t, w))

	// Middle digits above 99 break the 70XXXX form.
	w = env.do(t, http.MethodPost, "/api/v1/alarms/to-alarm", "", models.AlarmRequest{Value: "DB2.DBX980.0"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OUT_OF_RANGE", errorCode(t, w))
}

func TestAlarmEndpoints_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	// Alarms whose last two digits are below 64 map back to themselves.
	for _, n := range []string{"700000", "700123", "701661", "705563"} {
		w := env.do(t, http.MethodPost, "/api/v1/alarms/to-address", "", models.AlarmRequest{Value: n})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var fwd alarmResult
		decodeData(t, w, &fwd)

		w = env.do(t, http.MethodPost, "/api/v1/alarms/to-alarm", "", models.AlarmRequest{Value: fwd.Address})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var back alarmResult
		decodeData(t, w, &back)
		assert.Equal(t, n, back.Alarm, "round trip via %s", fwd.Address)
	}
}

func TestAlarmErrorCode(t *testing.T) {
	tests := []struct {
		err        error
		wantCode   string
		wantStatus int
	}{
		{alarm.ErrInvalidFormat, "INVALID_FORMAT", http.StatusBadRequest},
		{fmt.Errorf("%w: too big", alarm.ErrOutOfRange), "OUT_OF_RANGE", http.StatusBadRequest},
		{fmt.Errorf("%w: %w", alarm.ErrInvariant, alarm.ErrOutOfRange), "OUT_OF_RANGE", http.StatusBadRequest},
		{alarm.ErrUnknownFamily, "UNKNOWN_FAMILY", http.StatusBadRequest},
		{errors.New("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, status := alarmErrorCode(tt.err)
		assert.Equal(t, tt.wantCode, code, tt.err.Error())
		assert.Equal(t, tt.wantStatus, status, tt.err.Error())
	}
}
