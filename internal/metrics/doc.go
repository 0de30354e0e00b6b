// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package metrics provides Prometheus metrics for the machinelog server.

Metrics are registered on the default registry through promauto and exposed
at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Database:
  - machinelog_db_query_duration_seconds{operation,table}
  - machinelog_db_query_errors_total{operation,table,error_type}
  - machinelog_db_open_connections

HTTP API:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Domain:
  - alarm_conversions_total{family,direction,result}
  - auth_logins_total{result}
  - sessions_active
  - blob_operations_total{backend,operation,result}
  - blob_operation_duration_seconds{backend,operation}

Infrastructure:
  - websocket_connections, websocket_messages_sent_total, websocket_errors_total{error_type}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result},
    circuit_breaker_state_transitions_total{name,from_state,to_state}
  - app_info{version,go_version}, app_uptime_seconds

Label values are bounded: error_type is a category, never the raw error text.
*/
package metrics
