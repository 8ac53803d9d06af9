// Package session holds per-browser dashboard state: the table loaded for
// each dataset kind and the current filter selection. Sessions live in
// memory only and expire after an idle period.
package session
