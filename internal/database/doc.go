// Package database is the storage layer for one Verbex index: a single
// SQLite file (or in-memory database) holding the six tables described in
// spec.md §4.1 — index_metadata, documents, terms, document_terms, labels,
// and tags — plus the reader/writer gate and lifecycle state machine that
// mediate every access to them (spec.md §4.7, §5).
//
// Callers outside this package talk to a *Driver and the per-entity
// repository types (Documents, Terms, Labels, Tags, Metadata, Stats); none
// of them touch *sql.DB directly.
package database
