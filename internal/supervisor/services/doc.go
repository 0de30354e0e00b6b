// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package services adapts long-running components to suture.Service.
//
//   - HTTPServerService: runs an *http.Server and shuts it down gracefully
//     when the supervisor context ends.
//   - WebSocketHubService: runs the websocket hub loop.
//
// Components that already expose Serve(ctx) error and String() (such as
// auth.SessionJanitor) are added to the tree directly.
package services
