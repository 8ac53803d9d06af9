// Package dataset defines the typed in-memory tables the dashboard works on.
//
// A Table is produced once per upload by validating raw CSV cells against the
// Schema of its Kind and is never mutated afterwards. Operations that need a
// different shape (filtering, geography joins) return new tables that share
// row storage with the original.
//
// # Kinds
//
// Six kinds are shown as dashboard tabs: alarms, performance, configuration,
// provision, availability and quality. A seventh kind, projects, is a site
// reference table used to resolve the geography of every site (department,
// province, district, locality and coordinates) for kinds that lack it.
//
// # Cleaning
//
// Network exports mix decimal commas with thousands separators and use
// timestamps such as "Aug 18, 2025 @ 06:00:00.000". ParseNumber and
// ParseTimestamp normalise both; cells that cannot be read become null
// values instead of failing the upload, unless a whole time column is
// unreadable, which is reported as a SchemaError.
package dataset
