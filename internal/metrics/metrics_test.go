// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("INSERT", "tags", "constraint"))

	RecordDBQuery("SELECT", "records", 3*time.Millisecond, nil)
	RecordDBQuery("INSERT", "tags", time.Millisecond, errors.New("UNIQUE constraint failed: tags.name"))

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("INSERT", "tags", "constraint"))
	if after-before != 1 {
		t.Errorf("constraint errors delta = %v, want 1", after-before)
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("query: %w", context.Canceled), "canceled"},
		{errors.New("Constraint Error: Duplicate key \"name: Urgent\""), "constraint"},
		{errors.New("Error 1062 (23000): Duplicate entry 'admin'"), "constraint"},
		{sql.ErrNoRows, "not_found"},
		{errors.New("dial tcp: connection refused"), "connection"},
		{errors.New("Parser Error: syntax error at or near"), "syntax"},
		{errors.New("disk full"), "other"},
	}
	for _, tt := range tests {
		if got := classifyError(tt.err); got != tt.want {
			t.Errorf("classifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecordAPIRequest(t *testing.T) {
	c := APIRequestsTotal.WithLabelValues("POST", "/api/v1/alarms/to-address", "200")
	before := testutil.ToFloat64(c)

	RecordAPIRequest("POST", "/api/v1/alarms/to-address", "200", 12*time.Millisecond)

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("requests delta = %v, want 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - start; got != 2 {
		t.Errorf("active delta = %v, want 2", got)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want %v", got, start)
	}
}

func TestRecordAlarmConversion(t *testing.T) {
	ok := AlarmConversions.WithLabelValues("840D", "to_address", "ok")
	rejected := AlarmConversions.WithLabelValues("828D", "to_alarm", "rejected")
	okBefore, rejBefore := testutil.ToFloat64(ok), testutil.ToFloat64(rejected)

	RecordAlarmConversion("840D", "to_address", nil)
	RecordAlarmConversion("828D", "to_alarm", errors.New("out of range"))

	if testutil.ToFloat64(ok)-okBefore != 1 || testutil.ToFloat64(rejected)-rejBefore != 1 {
		t.Error("alarm conversion counters not incremented")
	}
}

func TestRecordBlobOperation(t *testing.T) {
	failure := BlobOperations.WithLabelValues("minio", "upload", "failure")
	before := testutil.ToFloat64(failure)

	RecordBlobOperation("minio", "upload", 200*time.Millisecond, errors.New("bucket gone"))
	RecordBlobOperation("minio", "list", 20*time.Millisecond, nil)

	if testutil.ToFloat64(failure)-before != 1 {
		t.Error("blob failure counter not incremented")
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			RecordDBQuery("SELECT", "findings", time.Duration(i)*time.Millisecond, nil)
			RecordAPIRequest("GET", "/api/v1/findings", "200", time.Millisecond)
			TrackActiveRequest(true)
			TrackActiveRequest(false)
		}(i)
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		DBQueryDuration,
		DBQueryErrors,
		DBOpenConnections,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		AlarmConversions,
		AuthLogins,
		SessionsActive,
		BlobOperations,
		BlobOperationDuration,
		WSConnections,
		WSMessagesSent,
		WSErrors,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerTransitions,
		AppInfo,
		AppUptime,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("collector %T has no descriptors", c)
		}
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheRequests.WithLabelValues("tags", "hit"))
	misses := testutil.ToFloat64(CacheRequests.WithLabelValues("tags", "miss"))

	RecordCacheLookup("tags", true)
	RecordCacheLookup("tags", false)
	RecordCacheLookup("tags", false)

	if d := testutil.ToFloat64(CacheRequests.WithLabelValues("tags", "hit")) - hits; d != 1 {
		t.Errorf("hit delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(CacheRequests.WithLabelValues("tags", "miss")) - misses; d != 2 {
		t.Errorf("miss delta = %v, want 2", d)
	}
}
