// Package services implements the dashboard's business logic between the
// HTTP handlers and the dataset packages.
//
// DashboardService owns the upload, view and export flows of a session:
//
//	upload -> loader.Load -> session slot
//	view   -> geography join -> filter -> time window -> views recipe
//	export -> same filtered table -> CSV or XLSX
//
// Every operation takes the caller's *session.Session explicitly; the
// service itself holds no per-user state. HealthService reports liveness
// and readiness for the health endpoints.
package services
