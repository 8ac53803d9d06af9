// Package app wires the network dashboard together and runs it.
//
// # Initialization Flow
//
// NewApplication loads the configuration, then New builds the rest:
//
//  1. Logging and OpenTelemetry (traces, Prometheus metrics)
//  2. Dashboard metrics and the runtime sampler
//  3. Session store and cookie codec
//  4. Loader, view registry and dashboard service
//  5. Router, middleware chain and HTTP server
//
// # Routes
//
//	GET  /                         dashboard page
//	GET  /api/health[/ready|/live] health checks (no session, no rate limit)
//	GET  /api/version              build information
//	/api/datasets/...              JSON API for uploads, views and exports
//	POST /api/client-logs          browser-side error reports
//	GET  /metrics                  Prometheus exposition
//
// # Usage
//
//	a, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// # Graceful Shutdown
//
// Run serves until SIGINT or SIGTERM. The server, the session janitor and
// the runtime sampler share an errgroup; when its context ends, in-flight
// requests get ShutdownTimeout to finish before telemetry is flushed and the
// log file is closed. Uploaded datasets live only in memory and are dropped.
package app
