package database

// SchemaVersion is the current schema version. Checked on open against
// schema_version so an incompatible on-disk file surfaces Corruption
// instead of silently misbehaving.
const SchemaVersion = 1

// CoreSchema creates the six tables backing one index (spec.md §3, §4.1)
// plus the schema_version tracking table used by the driver's corruption
// probe.
const CoreSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_utc TEXT NOT NULL
);

-- =============================================================================
-- INDEX METADATA — singleton row, seeded once at schema initialization.
-- =============================================================================
CREATE TABLE IF NOT EXISTS index_metadata (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_utc TEXT NOT NULL,
	last_modified_utc TEXT NOT NULL
);

-- =============================================================================
-- DOCUMENTS
-- =============================================================================
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	content_sha256 TEXT NOT NULL,
	document_length INTEGER NOT NULL DEFAULT 0,
	term_count INTEGER NOT NULL DEFAULT 0,
	indexed_utc TEXT NOT NULL,
	last_modified_utc TEXT NOT NULL,
	created_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);

-- =============================================================================
-- TERMS — globally unique per index on normalized text.
-- =============================================================================
CREATE TABLE IF NOT EXISTS terms (
	id TEXT PRIMARY KEY,
	term TEXT NOT NULL UNIQUE,
	document_frequency INTEGER NOT NULL DEFAULT 0,
	total_frequency INTEGER NOT NULL DEFAULT 0,
	last_updated_utc TEXT NOT NULL,
	created_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_terms_term ON terms(term);

-- =============================================================================
-- DOCUMENT_TERMS — postings, one row per (document, term) pair.
-- =============================================================================
CREATE TABLE IF NOT EXISTS document_terms (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	term_id TEXT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
	term_frequency INTEGER NOT NULL,
	character_positions TEXT NOT NULL,
	term_positions TEXT NOT NULL,
	last_modified_utc TEXT NOT NULL,
	created_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_terms_document ON document_terms(document_id);
CREATE INDEX IF NOT EXISTS idx_document_terms_term ON document_terms(term_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_document_terms_doc_term ON document_terms(document_id, term_id);

-- =============================================================================
-- LABELS — document_id NULL means an index-level label.
-- =============================================================================
CREATE TABLE IF NOT EXISTS labels (
	id TEXT PRIMARY KEY,
	document_id TEXT REFERENCES documents(id) ON DELETE CASCADE,
	label TEXT NOT NULL,
	last_modified_utc TEXT NOT NULL,
	created_utc TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_labels_doc_label ON labels(document_id, label);
CREATE INDEX IF NOT EXISTS idx_labels_label ON labels(label);

-- =============================================================================
-- TAGS — document_id NULL means an index-level tag. Key unique per document.
-- =============================================================================
CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	document_id TEXT REFERENCES documents(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	value TEXT,
	last_modified_utc TEXT NOT NULL,
	created_utc TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_doc_key ON tags(document_id, key);
CREATE INDEX IF NOT EXISTS idx_tags_key_value ON tags(key, value);
`
