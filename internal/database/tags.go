package database

import (
	"database/sql"

	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/xtime"
)

// Tag is one row of the tags table. DocumentID is empty for an
// index-level tag.
type Tag struct {
	ID              string
	DocumentID      string
	Key             string
	Value           string
	LastModifiedUTC string
	CreatedUTC      string
}

// Tags is the repository over the tags table.
type Tags struct{}

// Set inserts a new (document_id, key) row or replaces its value if one
// already exists (spec.md §3: "setting an existing key replaces its
// value"). The (document_id, key) unique index does not dedupe NULL
// document_ids, so index-level uniqueness is enforced here explicitly.
func (Tags) Set(tx *sql.Tx, documentID, key, value string) error {
	var id string
	err := tx.QueryRow(`
		SELECT id FROM tags WHERE key = ? AND (
			(? = '' AND document_id IS NULL) OR document_id = ?
		)
	`, key, documentID, documentID).Scan(&id)

	now := xtime.Now()
	switch {
	case err == sql.ErrNoRows:
		_, err := tx.Exec(`
			INSERT INTO tags (id, document_id, key, value, last_modified_utc, created_utc) VALUES (?, ?, ?, ?, ?, ?)
		`, idgen.New(), nullableDocumentID(documentID), key, value, now, now)
		if err != nil {
			return IoError("", err)
		}
		return nil
	case err != nil:
		return IoError("", err)
	default:
		if _, err := tx.Exec(`UPDATE tags SET value = ?, last_modified_utc = ? WHERE id = ?`, value, now, id); err != nil {
			return IoError("", err)
		}
		return nil
	}
}

// ListByDocument returns every tag for documentID ("" for index-level).
func (Tags) ListByDocument(tx *sql.Tx, documentID string) ([]*Tag, error) {
	var rows *sql.Rows
	var err error
	if documentID == "" {
		rows, err = tx.Query(`
			SELECT id, COALESCE(document_id, ''), key, COALESCE(value, ''), last_modified_utc, created_utc
			FROM tags WHERE document_id IS NULL ORDER BY key ASC
		`)
	} else {
		rows, err = tx.Query(`
			SELECT id, COALESCE(document_id, ''), key, COALESCE(value, ''), last_modified_utc, created_utc
			FROM tags WHERE document_id = ? ORDER BY key ASC
		`, documentID)
	}
	if err != nil {
		return nil, IoError("", err)
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.Key, &t.Value, &t.LastModifiedUTC, &t.CreatedUTC); err != nil {
			return nil, IoError("", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ReplaceForDocument deletes every tag row for documentID and inserts the
// given key/value set in their place (update_document_tags full
// replacement semantics, spec.md §4.3).
func (Tags) ReplaceForDocument(tx *sql.Tx, documentID string, kv map[string]string) error {
	if documentID == "" {
		if _, err := tx.Exec(`DELETE FROM tags WHERE document_id IS NULL`); err != nil {
			return IoError("", err)
		}
	} else {
		if _, err := tx.Exec(`DELETE FROM tags WHERE document_id = ?`, documentID); err != nil {
			return IoError("", err)
		}
	}
	for k, v := range kv {
		if err := (Tags{}).Set(tx, documentID, k, v); err != nil {
			return err
		}
	}
	return nil
}

// MatchingDocumentIDs returns the set of document ids carrying every
// (key, value) pair in required, exact match on both (spec.md §4.4
// step 6).
func (Tags) MatchingDocumentIDs(tx *sql.Tx, required map[string]string) (map[string]bool, error) {
	if len(required) == 0 {
		return nil, nil
	}
	counts := make(map[string]int)
	for key, value := range required {
		rows, err := tx.Query(`SELECT document_id FROM tags WHERE key = ? AND value = ? AND document_id IS NOT NULL`, key, value)
		if err != nil {
			return nil, IoError("", err)
		}
		for rows.Next() {
			var docID string
			if err := rows.Scan(&docID); err != nil {
				rows.Close()
				return nil, IoError("", err)
			}
			counts[docID]++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, IoError("", err)
		}
		rows.Close()
	}

	out := make(map[string]bool)
	for docID, n := range counts {
		if n == len(required) {
			out[docID] = true
		}
	}
	return out, nil
}
