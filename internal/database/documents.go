package database

import (
	"database/sql"

	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/xtime"
)

// Document is one row of the documents table (spec.md §3).
type Document struct {
	ID               string
	Name             string
	ContentSHA256    string
	DocumentLength   int
	TermCount        int
	IndexedUTC       string
	LastModifiedUTC  string
	CreatedUTC       string
}

// Documents is the repository over the documents table. Every method
// runs inside a transaction supplied by the driver's ExecuteRead/
// ExecuteWrite, never opening its own.
type Documents struct{}

// Insert creates a new document row. Returns AlreadyExists if name is
// already taken.
func (Documents) Insert(tx *sql.Tx, name, contentSHA256 string, documentLength, termCount int) (*Document, error) {
	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM documents WHERE name = ?`, name).Scan(&exists); err == nil {
		return nil, AlreadyExists("document", name)
	} else if err != sql.ErrNoRows {
		return nil, IoError("", err)
	}

	now := xtime.Now()
	doc := &Document{
		ID:              idgen.New(),
		Name:            name,
		ContentSHA256:   contentSHA256,
		DocumentLength:  documentLength,
		TermCount:       termCount,
		IndexedUTC:      now,
		LastModifiedUTC: now,
		CreatedUTC:      now,
	}

	_, err := tx.Exec(`
		INSERT INTO documents (id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Name, doc.ContentSHA256, doc.DocumentLength, doc.TermCount, doc.IndexedUTC, doc.LastModifiedUTC, doc.CreatedUTC)
	if err != nil {
		return nil, IoError("", err)
	}
	return doc, nil
}

// GetByID returns the document with id, or NotFound. The lookup falls
// back to a case-insensitive scan so that ids compared per spec.md §3
// invariant 5 match regardless of the caller's casing.
func (Documents) GetByID(tx *sql.Tx, id string) (*Document, error) {
	row := tx.QueryRow(`
		SELECT id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row, id)
	if err == nil || !Is(err, KindNotFound) {
		return doc, err
	}

	rows, qerr := tx.Query(`SELECT id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc FROM documents`)
	if qerr != nil {
		return nil, IoError("", qerr)
	}
	defer rows.Close()

	for rows.Next() {
		var d Document
		if serr := rows.Scan(&d.ID, &d.Name, &d.ContentSHA256, &d.DocumentLength, &d.TermCount, &d.IndexedUTC, &d.LastModifiedUTC, &d.CreatedUTC); serr != nil {
			return nil, IoError("", serr)
		}
		if idgen.Equal(d.ID, id) {
			return &d, nil
		}
	}
	if rerr := rows.Err(); rerr != nil {
		return nil, IoError("", rerr)
	}
	return nil, NotFound("document", id)
}

// GetByName returns the document with name, or NotFound.
func (Documents) GetByName(tx *sql.Tx, name string) (*Document, error) {
	row := tx.QueryRow(`
		SELECT id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc
		FROM documents WHERE name = ?
	`, name)
	return scanDocument(row, name)
}

func scanDocument(row *sql.Row, key string) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.ContentSHA256, &d.DocumentLength, &d.TermCount, &d.IndexedUTC, &d.LastModifiedUTC, &d.CreatedUTC)
	if err == sql.ErrNoRows {
		return nil, NotFound("document", key)
	}
	if err != nil {
		return nil, IoError("", err)
	}
	return &d, nil
}

// List returns every document ordered by id (insertion order).
func (Documents) List(tx *sql.Tx) ([]*Document, error) {
	rows, err := tx.Query(`
		SELECT id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc
		FROM documents ORDER BY id ASC
	`)
	if err != nil {
		return nil, IoError("", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.ContentSHA256, &d.DocumentLength, &d.TermCount, &d.IndexedUTC, &d.LastModifiedUTC, &d.CreatedUTC); err != nil {
			return nil, IoError("", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Delete removes the document row. Returns false if it did not exist.
func (Documents) Delete(tx *sql.Tx, id string) (bool, error) {
	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, IoError("", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, IoError("", err)
	}
	return n > 0, nil
}

// Count returns the total number of documents.
func (Documents) Count(tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, IoError("", err)
	}
	return n, nil
}
