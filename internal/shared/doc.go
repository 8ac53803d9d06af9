// Package shared holds helpers used by more than one netdash package.
//
// Only testutil lives here today: a capturing slog handler and CSV fixtures
// shaped like the network exports the dashboard accepts. Domain logic
// belongs in its own package under internal/.
package shared
