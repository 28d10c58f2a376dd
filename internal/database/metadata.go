package database

import (
	"database/sql"

	"github.com/verbex/verbex/internal/xtime"
)

// IndexMetadata is the singleton index_metadata row (spec.md §3).
type IndexMetadata struct {
	ID              string
	Name            string
	CreatedUTC      string
	LastModifiedUTC string
}

// Metadata is the repository over the singleton index_metadata row.
type Metadata struct{}

// Get returns the singleton row.
func (Metadata) Get(tx *sql.Tx) (*IndexMetadata, error) {
	var m IndexMetadata
	err := tx.QueryRow(`SELECT id, name, created_utc, last_modified_utc FROM index_metadata LIMIT 1`).
		Scan(&m.ID, &m.Name, &m.CreatedUTC, &m.LastModifiedUTC)
	if err == sql.ErrNoRows {
		return nil, Corruption("index_metadata singleton row is missing")
	}
	if err != nil {
		return nil, IoError("", err)
	}
	return &m, nil
}

// Touch bumps last_modified_utc. Every write transaction must call this
// as its final statement (spec.md §4.1, §4.3 step 7).
func (Metadata) Touch(tx *sql.Tx) error {
	_, err := tx.Exec(`UPDATE index_metadata SET last_modified_utc = ?`, xtime.Now())
	if err != nil {
		return IoError("", err)
	}
	return nil
}
