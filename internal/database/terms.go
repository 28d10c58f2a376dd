package database

import (
	"database/sql"

	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/xtime"
)

// Term is one row of the terms table (spec.md §3).
type Term struct {
	ID                string
	Text              string
	DocumentFrequency int
	TotalFrequency    int
	LastUpdatedUTC    string
	CreatedUTC        string
}

// Terms is the repository over the terms table.
type Terms struct{}

// GetByText returns the term row for text, or NotFound.
func (Terms) GetByText(tx *sql.Tx, text string) (*Term, error) {
	row := tx.QueryRow(`
		SELECT id, term, document_frequency, total_frequency, last_updated_utc, created_utc
		FROM terms WHERE term = ?
	`, text)
	var t Term
	err := row.Scan(&t.ID, &t.Text, &t.DocumentFrequency, &t.TotalFrequency, &t.LastUpdatedUTC, &t.CreatedUTC)
	if err == sql.ErrNoRows {
		return nil, NotFound("term", text)
	}
	if err != nil {
		return nil, IoError("", err)
	}
	return &t, nil
}

// GetByTexts resolves every text to its term row, skipping texts absent
// from the index (spec.md §4.4 step 2: "Terms absent from the index
// contribute no matches").
func (Terms) GetByTexts(tx *sql.Tx, texts []string) (map[string]*Term, error) {
	out := make(map[string]*Term, len(texts))
	for _, text := range texts {
		t, err := Terms{}.GetByText(tx, text)
		if err != nil {
			if Is(err, KindNotFound) {
				continue
			}
			return nil, err
		}
		out[text] = t
	}
	return out, nil
}

// IncrementOnAdd creates the term row on first occurrence or increments
// its counters, per spec.md §4.3 step 4.
func (Terms) IncrementOnAdd(tx *sql.Tx, text string, frequencyInDoc int) (*Term, error) {
	existing, err := Terms{}.GetByText(tx, text)
	now := xtime.Now()
	if err != nil {
		if !Is(err, KindNotFound) {
			return nil, err
		}
		t := &Term{
			ID:                idgen.New(),
			Text:              text,
			DocumentFrequency: 1,
			TotalFrequency:    frequencyInDoc,
			LastUpdatedUTC:    now,
			CreatedUTC:        now,
		}
		_, err := tx.Exec(`
			INSERT INTO terms (id, term, document_frequency, total_frequency, last_updated_utc, created_utc)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, t.Text, t.DocumentFrequency, t.TotalFrequency, t.LastUpdatedUTC, t.CreatedUTC)
		if err != nil {
			return nil, IoError("", err)
		}
		return t, nil
	}

	existing.DocumentFrequency++
	existing.TotalFrequency += frequencyInDoc
	existing.LastUpdatedUTC = now
	_, err = tx.Exec(`
		UPDATE terms SET document_frequency = ?, total_frequency = ?, last_updated_utc = ? WHERE id = ?
	`, existing.DocumentFrequency, existing.TotalFrequency, existing.LastUpdatedUTC, existing.ID)
	if err != nil {
		return nil, IoError("", err)
	}
	return existing, nil
}

// DecrementOnRemove decrements the term's counters by the frequency the
// deleted document contributed, deleting the row once both counters
// reach zero (spec.md §3 invariant 4, §4.3 remove_document step 1).
func (Terms) DecrementOnRemove(tx *sql.Tx, termID string, frequencyInDoc int) error {
	var df, tf int
	err := tx.QueryRow(`SELECT document_frequency, total_frequency FROM terms WHERE id = ?`, termID).Scan(&df, &tf)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return IoError("", err)
	}

	df--
	tf -= frequencyInDoc
	if df <= 0 && tf <= 0 {
		_, err := tx.Exec(`DELETE FROM terms WHERE id = ?`, termID)
		if err != nil {
			return IoError("", err)
		}
		return nil
	}

	_, err = tx.Exec(`
		UPDATE terms SET document_frequency = ?, total_frequency = ?, last_updated_utc = ? WHERE id = ?
	`, df, tf, xtime.Now(), termID)
	if err != nil {
		return IoError("", err)
	}
	return nil
}

// Count returns the number of distinct terms in the index.
func (Terms) Count(tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM terms`).Scan(&n); err != nil {
		return 0, IoError("", err)
	}
	return n, nil
}

// SumTotalFrequency returns the sum of total_frequency over every term.
func (Terms) SumTotalFrequency(tx *sql.Tx) (int, error) {
	var n sql.NullInt64
	if err := tx.QueryRow(`SELECT SUM(total_frequency) FROM terms`).Scan(&n); err != nil {
		return 0, IoError("", err)
	}
	return int(n.Int64), nil
}

// AvgMaxDocumentFrequency returns the mean and max document_frequency
// across every term, used by the statistics component (spec.md §4.6).
func (Terms) AvgMaxDocumentFrequency(tx *sql.Tx) (avg float64, max int, err error) {
	var avgN sql.NullFloat64
	var maxN sql.NullInt64
	row := tx.QueryRow(`SELECT AVG(document_frequency), MAX(document_frequency) FROM terms`)
	if err := row.Scan(&avgN, &maxN); err != nil {
		return 0, 0, IoError("", err)
	}
	return avgN.Float64, int(maxN.Int64), nil
}
