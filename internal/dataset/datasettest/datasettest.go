// Package datasettest builds validated tables from inline CSV for tests.
package datasettest

import (
	"strings"
	"testing"
	"time"

	"netdash/internal/dataset"
)

// Loaded is the LoadedAt stamp given to tables built here
var Loaded = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

// Table validates a ';' separated CSV literal as kind and fails t on error
func Table(t testing.TB, kind dataset.Kind, csv string) *dataset.Table {
	t.Helper()
	schema, err := dataset.SchemaFor(kind)
	if err != nil {
		t.Fatalf("schema for %s: %v", kind, err)
	}

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	raw := &dataset.Raw{
		Source: string(kind) + ".csv",
		Header: strings.Split(strings.TrimSpace(lines[0]), ";"),
	}
	for _, l := range lines[1:] {
		raw.Records = append(raw.Records, strings.Split(strings.TrimRight(l, "\r"), ";"))
	}

	tbl, err := schema.Validate(raw)
	if err != nil {
		t.Fatalf("validate %s: %v", kind, err)
	}
	tbl.LoadedAt = Loaded
	return tbl
}
