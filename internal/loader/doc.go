// Package loader turns uploaded files into validated dataset tables.
//
// Loading is all or nothing: a file either becomes a *dataset.Table or
// fails with one of the sentinel errors below, a *dataset.ParseError for a
// malformed record, or a *dataset.SchemaError when the columns do not fit
// the declared kind. There is no partial recovery.
//
// CSV files may use ';', ',', tab or '|' as separator and may be UTF-8
// (with or without BOM) or Latin-1. Excel workbooks (.xlsx, .xlsm) are read
// from their first non-empty sheet.
//
// The number of files parsed at the same time is bounded by a weighted
// semaphore so that several large uploads cannot exhaust memory.
package loader
