package database

import (
	"database/sql"

	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/xtime"
)

// Label is one row of the labels table. DocumentID is empty for an
// index-level label (spec.md §3 stores NULL; the repository surfaces it
// as "").
type Label struct {
	ID              string
	DocumentID      string
	Text            string
	LastModifiedUTC string
	CreatedUTC      string
}

// Labels is the repository over the labels table.
type Labels struct{}

// nullableDocumentID converts "" to SQL NULL so index-level rows compare
// correctly against the (document_id, label) unique index.
func nullableDocumentID(documentID string) any {
	if documentID == "" {
		return nil
	}
	return documentID
}

// Insert adds one label row, silently doing nothing if (document_id,
// label) already exists (spec.md §4.3 step 5: "idempotent"). The
// (document_id, label) unique index does not reject duplicate NULL
// document_ids (SQLite treats NULLs as distinct), so index-level
// uniqueness is enforced here instead.
func (Labels) Insert(tx *sql.Tx, documentID, text string) error {
	var exists int
	err := tx.QueryRow(`
		SELECT 1 FROM labels WHERE label = ? AND (
			(? = '' AND document_id IS NULL) OR document_id = ?
		)
	`, text, documentID, documentID).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return IoError("", err)
	}

	now := xtime.Now()
	_, err = tx.Exec(`
		INSERT INTO labels (id, document_id, label, last_modified_utc, created_utc) VALUES (?, ?, ?, ?, ?)
	`, idgen.New(), nullableDocumentID(documentID), text, now, now)
	if err != nil {
		return IoError("", err)
	}
	return nil
}

// ListByDocument returns every label for documentID ("" for index-level).
func (Labels) ListByDocument(tx *sql.Tx, documentID string) ([]*Label, error) {
	var rows *sql.Rows
	var err error
	if documentID == "" {
		rows, err = tx.Query(`
			SELECT id, COALESCE(document_id, ''), label, last_modified_utc, created_utc
			FROM labels WHERE document_id IS NULL ORDER BY label ASC
		`)
	} else {
		rows, err = tx.Query(`
			SELECT id, COALESCE(document_id, ''), label, last_modified_utc, created_utc
			FROM labels WHERE document_id = ? ORDER BY label ASC
		`, documentID)
	}
	if err != nil {
		return nil, IoError("", err)
	}
	defer rows.Close()

	var out []*Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Text, &l.LastModifiedUTC, &l.CreatedUTC); err != nil {
			return nil, IoError("", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ReplaceForDocument deletes every label row for documentID and inserts
// texts in their place, per the full-replacement semantics of
// update_document_labels (spec.md §4.3).
func (Labels) ReplaceForDocument(tx *sql.Tx, documentID string, texts []string) error {
	if documentID == "" {
		if _, err := tx.Exec(`DELETE FROM labels WHERE document_id IS NULL`); err != nil {
			return IoError("", err)
		}
	} else {
		if _, err := tx.Exec(`DELETE FROM labels WHERE document_id = ?`, documentID); err != nil {
			return IoError("", err)
		}
	}
	seen := make(map[string]bool, len(texts))
	for _, t := range texts {
		if seen[t] {
			continue
		}
		seen[t] = true
		if err := (Labels{}).Insert(tx, documentID, t); err != nil {
			return err
		}
	}
	return nil
}

// MatchingDocumentIDs returns the set of document ids carrying every label
// in required (case-insensitive, spec.md §4.4 step 5). Callers should
// pre-lowercase required.
func (Labels) MatchingDocumentIDs(tx *sql.Tx, required []string) (map[string]bool, error) {
	if len(required) == 0 {
		return nil, nil
	}
	var counts = make(map[string]int)
	for _, label := range required {
		rows, err := tx.Query(`SELECT document_id FROM labels WHERE label = ? AND document_id IS NOT NULL`, label)
		if err != nil {
			return nil, IoError("", err)
		}
		seenForLabel := make(map[string]bool)
		for rows.Next() {
			var docID string
			if err := rows.Scan(&docID); err != nil {
				rows.Close()
				return nil, IoError("", err)
			}
			if !seenForLabel[docID] {
				seenForLabel[docID] = true
				counts[docID]++
			}
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
