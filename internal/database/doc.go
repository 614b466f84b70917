// Package database provides SQLite-based storage for boorucrawl.
//
// The Store keeps two tables:
//   - settings: the last-used form values as key-value pairs
//   - runs: one summary row per finished crawl run
//
// The database is a single file (modernc.org/sqlite, no CGO) in the XDG
// config directory.
package database
