package database

import (
	"database/sql"
	"math"
)

// IndexStats is the aggregate statistics view for the whole index
// (spec.md §4.6).
type IndexStats struct {
	DocumentCount         int
	TermCount             int
	TotalTermOccurrences  int
	AvgTermsPerDocument   float64
	AvgDocumentFrequency  float64
	MaxDocumentFrequency  int
	MinDocumentLength     int
	MaxDocumentLength     int
	AvgDocumentLength     float64
}

// TermStats is the aggregate statistics view for one term (spec.md §4.6).
type TermStats struct {
	Term                    string
	DocumentFrequency       int
	TotalFrequency          int
	InverseDocumentFrequency float64
	AvgFrequencyInDocument  float64
	MaxFrequencyInDocument  int
	MinFrequencyInDocument  int
}

// Stats is the repository behind the statistics component.
type Stats struct{}

// Index computes the whole-index statistics in one read transaction.
func (Stats) Index(tx *sql.Tx) (*IndexStats, error) {
	var s IndexStats

	docCount, err := (Documents{}).Count(tx)
	if err != nil {
		return nil, err
	}
	s.DocumentCount = docCount

	termCount, err := (Terms{}).Count(tx)
	if err != nil {
		return nil, err
	}
	s.TermCount = termCount

	total, err := (Terms{}).SumTotalFrequency(tx)
	if err != nil {
		return nil, err
	}
	s.TotalTermOccurrences = total

	avgDF, maxDF, err := (Terms{}).AvgMaxDocumentFrequency(tx)
	if err != nil {
		return nil, err
	}
	s.AvgDocumentFrequency = avgDF
	s.MaxDocumentFrequency = maxDF

	row := tx.QueryRow(`SELECT COALESCE(MIN(document_length),0), COALESCE(MAX(document_length),0), COALESCE(AVG(document_length),0), COALESCE(AVG(term_count),0) FROM documents`)
	if err := row.Scan(&s.MinDocumentLength, &s.MaxDocumentLength, &s.AvgDocumentLength, &s.AvgTermsPerDocument); err != nil {
		return nil, IoError("", err)
	}

	return &s, nil
}

// Term computes the statistics for one term. Returns NotFound if the
// term is absent from the index.
func (Stats) Term(tx *sql.Tx, text string) (*TermStats, error) {
	t, err := (Terms{}).GetByText(tx, text)
	if err != nil {
		return nil, err
	}

	docCount, err := (Documents{}).Count(tx)
	if err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	var maxInt, minInt sql.NullInt64
	row := tx.QueryRow(`
		SELECT AVG(term_frequency), MAX(term_frequency), MIN(term_frequency)
		FROM document_terms WHERE term_id = ?
	`, t.ID)
	if err := row.Scan(&avg, &maxInt, &minInt); err != nil {
		return nil, IoError("", err)
	}

	idf := 0.0
	if docCount > 0 && t.DocumentFrequency > 0 {
		idf = math.Log(float64(docCount) / float64(t.DocumentFrequency))
	}

	return &TermStats{
		Term:                     t.Text,
		DocumentFrequency:        t.DocumentFrequency,
		TotalFrequency:           t.TotalFrequency,
		InverseDocumentFrequency: idf,
		AvgFrequencyInDocument:   avg.Float64,
		MaxFrequencyInDocument:   int(maxInt.Int64),
		MinFrequencyInDocument:   int(minInt.Int64),
	}, nil
}

// AverageDocumentLength returns avgdl across every document, used by the
// scorer (spec.md §4.5). Returns 0 if there are no documents.
func (Stats) AverageDocumentLength(tx *sql.Tx) (float64, error) {
	var avg sql.NullFloat64
	if err := tx.QueryRow(`SELECT AVG(document_length) FROM documents`).Scan(&avg); err != nil {
		return 0, IoError("", err)
	}
	return avg.Float64, nil
}
