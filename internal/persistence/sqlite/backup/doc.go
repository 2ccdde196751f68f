// Package backup implements the snapshot, inspection and restore tooling for
// the SQLite store.
//
// Snapshots are plain SQLite files produced with VACUUM INTO, so any SQLite
// client can open them. Restores never trust a backup's shape: the set of
// tables and columns is read from the file itself, missing columns are filled
// with defaults, and rows are imported in dependency order with fresh
// auto-assigned ids. Cross-table references are rewritten through
// old-id-to-new-id maps in a final pass, so a restored database is
// referentially consistent even when the backup predates schema changes.
package backup
