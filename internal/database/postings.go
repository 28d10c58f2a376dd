package database

import (
	"database/sql"
	"encoding/json"

	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/xtime"
)

// Posting is one row of the document_terms table: the record of a term
// occurring in a document (spec.md §3, GLOSSARY).
type Posting struct {
	ID                 string
	DocumentID         string
	TermID             string
	TermFrequency      int
	CharacterPositions []int
	TermPositions      []int
	LastModifiedUTC    string
	CreatedUTC         string
}

// Postings is the repository over the document_terms table.
type Postings struct{}

// Insert creates one posting row. charPositions and wordPositions must be
// non-empty, equal in length to len == termFrequency, and strictly
// increasing (spec.md §3 invariant 3); callers in the indexing service
// are responsible for that shape.
func (Postings) Insert(tx *sql.Tx, documentID, termID string, termFrequency int, charPositions, wordPositions []int) (*Posting, error) {
	charJSON, err := json.Marshal(charPositions)
	if err != nil {
		return nil, InvalidArgument("character_positions", err.Error())
	}
	wordJSON, err := json.Marshal(wordPositions)
	if err != nil {
		return nil, InvalidArgument("term_positions", err.Error())
	}

	now := xtime.Now()
	p := &Posting{
		ID:                 idgen.New(),
		DocumentID:         documentID,
		TermID:             termID,
		TermFrequency:      termFrequency,
		CharacterPositions: charPositions,
		TermPositions:      wordPositions,
		LastModifiedUTC:    now,
		CreatedUTC:         now,
	}

	_, err = tx.Exec(`
		INSERT INTO document_terms (id, document_id, term_id, term_frequency, character_positions, term_positions, last_modified_utc, created_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.DocumentID, p.TermID, p.TermFrequency, string(charJSON), string(wordJSON), p.LastModifiedUTC, p.CreatedUTC)
	if err != nil {
		return nil, IoError("", err)
	}
	return p, nil
}

// ListByDocument returns every posting for documentID.
func (Postings) ListByDocument(tx *sql.Tx, documentID string) ([]*Posting, error) {
	rows, err := tx.Query(`
		SELECT id, document_id, term_id, term_frequency, character_positions, term_positions, last_modified_utc, created_utc
		FROM document_terms WHERE document_id = ?
	`, documentID)
	if err != nil {
		return nil, IoError("", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

// Match is one (document_id, term_id, term_frequency) tuple resolved
// during query evaluation (spec.md §4.4 step 2).
type Match struct {
	DocumentID    string
	TermID        string
	TermFrequency int
}

// ListByTermIDs returns the (document_id, term_id, term_frequency) tuples
// for every posting whose term_id is in termIDs.
func (Postings) ListByTermIDs(tx *sql.Tx, termIDs []string) ([]Match, error) {
	if len(termIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(termIDs)*2)
	args := make([]any, 0, len(termIDs))
	for i, id := range termIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	query := `SELECT document_id, term_id, term_frequency FROM document_terms WHERE term_id IN (` + string(placeholders) + `)`
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, IoError("", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.DocumentID, &m.TermID, &m.TermFrequency); err != nil {
			return nil, IoError("", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByDocumentAndTerm returns the single posting for (documentID, termID),
// or NotFound.
func (Postings) GetByDocumentAndTerm(tx *sql.Tx, documentID, termID string) (*Posting, error) {
	rows, err := tx.Query(`
		SELECT id, document_id, term_id, term_frequency, character_positions, term_positions, last_modified_utc, created_utc
		FROM document_terms WHERE document_id = ? AND term_id = ?
	`, documentID, termID)
	if err != nil {
		return nil, IoError("", err)
	}
	defer rows.Close()
	out, err := scanPostings(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, NotFound("document_term", documentID+"/"+termID)
	}
	return out[0], nil
}

func scanPostings(rows *sql.Rows) ([]*Posting, error) {
	var out []*Posting
	for rows.Next() {
		var p Posting
		var charJSON, wordJSON string
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.TermID, &p.TermFrequency, &charJSON, &wordJSON, &p.LastModifiedUTC, &p.CreatedUTC); err != nil {
			return nil, IoError("", err)
		}
		if err := json.Unmarshal([]byte(charJSON), &p.CharacterPositions); err != nil {
			return nil, Corruption("malformed character_positions for posting " + p.ID)
		}
		if err := json.Unmarshal([]byte(wordJSON), &p.TermPositions); err != nil {
			return nil, Corruption("malformed term_positions for posting " + p.ID)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// DeleteByDocument removes every posting for documentID, returning the
// (term_id, term_frequency) pairs that existed so the caller can decrement
// the owning term rows (spec.md §4.3 remove_document step 1).
func (Postings) DeleteByDocument(tx *sql.Tx, documentID string) ([]Match, error) {
	rows, err := tx.Query(`SELECT term_id, term_frequency FROM document_terms WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, IoError("", err)
	}
	var matches []Match
	for rows.Next() {
		var m Match
		m.DocumentID = documentID
		if err := rows.Scan(&m.TermID, &m.TermFrequency); err != nil {
			rows.Close()
			return nil, IoError("", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, IoError("", err)
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM document_terms WHERE document_id = ?`, documentID); err != nil {
		return nil, IoError("", err)
	}
	return matches, nil
}
