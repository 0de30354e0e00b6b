// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package websocket pushes record and finding changes to connected browsers.

A Hub owns the set of connected clients. Each Client runs a read pump
(pings, close detection) and a write pump (JSON frames, keepalive pings).

Events:

  - record_created, record_updated, record_deleted: delivered only to the
    record owner's connections, since records are private to their creator.
  - finding_created, finding_status_changed, machine_status_changed:
    delivered to every connection.

Frames look like:

	{"type":"record_created","timestamp":"2026-01-01T08:00:00Z","data":{...}}

The hub is run under suture via RunWithContext; cancelling the context
closes every client.
*/
package websocket
