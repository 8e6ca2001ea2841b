// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package supervisor runs the long-lived services of Placemarks under a suture v4
supervisor tree.

# Overview

Services are grouped into three layers so a crash in one restarts only that
layer:

	RootSupervisor ("placemarks")
	├── StorageSupervisor ("storage-layer")
	│   └── CacheSweepService
	├── WorkerSupervisor ("worker-layer")
	│   └── tasks.Queue
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing sweep never takes the HTTP server down, and a wedged task worker is
restarted without dropping open connections.

Supervisor events (start, stop, failure, backoff) are logged through
sutureslog, which writes to the zerolog sink via logging.NewSlogHandler.

# Usage

	tree, err := supervisor.NewSupervisorTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddStorageService(services.NewCacheSweepService(sweepers, gc, interval, logger))
	tree.AddWorkerService(queue)
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout, logger))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return tree.Serve(ctx)
*/
package supervisor
