// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package supervisor runs the long-lived parts of machinelog under suture v4.

The tree has three layers so a crash in one does not take down the others:

	"machinelog"
	├── "data-layer"
	│   └── session janitor (expired session sweeps)
	├── "messaging-layer"
	│   └── websocket-hub
	└── "api-layer"
	    └── http-server

Failed services are restarted with backoff once FailureThreshold is crossed.
Supervisor events are logged through sutureslog into the zerolog-backed slog
handler from the logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddDataService(auth.NewSessionJanitor(store, time.Minute))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, timeout))

	err = tree.Serve(ctx) // blocks until ctx is canceled

After Serve returns, UnstoppedServiceReport lists services that overran
ShutdownTimeout.
*/
package supervisor
