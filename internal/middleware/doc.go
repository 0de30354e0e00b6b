// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package middleware provides HTTP middleware that is independent of
authentication: request IDs, Prometheus instrumentation, gzip compression
and a rolling latency monitor.

All middleware uses the http.HandlerFunc -> http.HandlerFunc shape. The API
router adapts them to chi with a one-line wrapper:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(middleware.Compression))
	r.Use(chiMiddleware(perfMon.Middleware))

Metrics and the performance monitor label requests by chi route pattern
("/api/v1/records/{id}") rather than raw path, keeping label cardinality
bounded. Requests that matched no route are labelled "unmatched".

Response writer wrappers implement http.Hijacker and Unwrap so the
websocket upgrade on /api/v1/ws works through the whole stack.
*/
package middleware
