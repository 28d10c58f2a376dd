// Package indexing wraps the analysis pipeline and the database
// repositories into the atomic add/remove/update operations of spec.md
// §4.3, maintaining the three-table invariant (terms, document_terms,
// documents) across every write.
package indexing

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/verbex/verbex/internal/analysis"
	"github.com/verbex/verbex/internal/database"
	"github.com/verbex/verbex/internal/logging"
)

var log = logging.GetLogger("indexing")

// Service implements add_document, remove_document, and the label/tag
// replacement operations over one open index.
type Service struct {
	driver *database.Driver
	cfg    analysis.Config

	documents database.Documents
	terms     database.Terms
	postings  database.Postings
	labels    database.Labels
	tags      database.Tags
	metadata  database.Metadata
}

// New builds a Service over driver using cfg for every analysis call.
func New(driver *database.Driver, cfg analysis.Config) *Service {
	return &Service{driver: driver, cfg: cfg}
}

type termAccumulator struct {
	charPositions []int
	wordPositions []int
}

// AddDocument implements spec.md §4.3 add_document.
func (s *Service) AddDocument(ctx context.Context, name, content string, labels []string, tags map[string]string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", database.InvalidArgument("name", "must not be empty")
	}

	sum := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(sum[:])

	tokens := analysis.Analyze(content, s.cfg)
	byTerm := make(map[string]*termAccumulator)
	var order []string
	for _, tok := range tokens {
		acc, ok := byTerm[tok.Term]
		if !ok {
			acc = &termAccumulator{}
			byTerm[tok.Term] = acc
			order = append(order, tok.Term)
		}
		acc.charPositions = append(acc.charPositions, tok.CharOffset)
		acc.wordPositions = append(acc.wordPositions, tok.WordIndex)
	}
	sort.Strings(order)

	documentLength := len([]rune(content))

	var documentID string
	err := s.driver.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		doc, err := s.documents.Insert(tx, name, contentHash, documentLength, len(order))
		if err != nil {
			return err
		}
		documentID = doc.ID

		for _, text := range order {
			acc := byTerm[text]
			frequency := len(acc.charPositions)
			term, err := s.terms.IncrementOnAdd(tx, text, frequency)
			if err != nil {
				return err
			}
			if _, err := s.postings.Insert(tx, doc.ID, term.ID, frequency, acc.charPositions, acc.wordPositions); err != nil {
				return err
			}
		}

		if err := s.labels.ReplaceForDocument(tx, doc.ID, normalizeLabels(labels)); err != nil {
			return err
		}
		if err := s.tags.ReplaceForDocument(tx, doc.ID, tags); err != nil {
			return err
		}

		return s.metadata.Touch(tx)
	})
	if err != nil {
		return "", err
	}

	log.LogOperation("add_document", "document_id", documentID, "name", name, "terms", len(order))
	return documentID, nil
}

// RemoveDocument implements spec.md §4.3 remove_document. Returns false,
// nil if the document did not exist.
func (s *Service) RemoveDocument(ctx context.Context, documentID string) (bool, error) {
	var existed bool
	err := s.driver.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		matches, err := s.postings.DeleteByDocument(tx, documentID)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if err := s.terms.DecrementOnRemove(tx, m.TermID, m.TermFrequency); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(`DELETE FROM labels WHERE document_id = ?`, documentID); err != nil {
			return database.IoError("", err)
		}
		if _, err := tx.Exec(`DELETE FROM tags WHERE document_id = ?`, documentID); err != nil {
			return database.IoError("", err)
		}

		ok, err := s.documents.Delete(tx, documentID)
		if err != nil {
			return err
		}
		existed = ok

		return s.metadata.Touch(tx)
	})
	if err != nil {
		return false, err
	}
	if existed {
		log.LogOperation("remove_document", "document_id", documentID)
	}
	return existed, nil
}

// UpdateDocumentLabels replaces every label on documentID ("" for
// index-level) with labels.
func (s *Service) UpdateDocumentLabels(ctx context.Context, documentID string, labels []string) error {
	return s.driver.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		if err := s.labels.ReplaceForDocument(tx, documentID, normalizeLabels(labels)); err != nil {
			return err
		}
		return s.metadata.Touch(tx)
	})
}

// UpdateDocumentTags replaces every tag on documentID ("" for
// index-level) with tags.
func (s *Service) UpdateDocumentTags(ctx context.Context, documentID string, tags map[string]string) error {
	return s.driver.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		if err := s.tags.ReplaceForDocument(tx, documentID, tags); err != nil {
			return err
		}
		return s.metadata.Touch(tx)
	})
}

// AddLabel inserts a single label on documentID ("" for index-level)
// without disturbing the existing set (spec.md §6 add_label_to_index).
func (s *Service) AddLabel(ctx context.Context, documentID, label string) error {
	normalized := normalizeLabels([]string{label})
	if len(normalized) == 0 {
		return database.InvalidArgument("label", "must not be empty")
	}
	return s.driver.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		if err := s.labels.Insert(tx, documentID, normalized[0]); err != nil {
			return err
		}
		return s.metadata.Touch(tx)
	})
}

// SetTag sets a single key/value tag on documentID ("" for index-level)
// without disturbing the rest of the set (spec.md §6 set_tag_on_index).
func (s *Service) SetTag(ctx context.Context, documentID, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return database.InvalidArgument("key", "must not be empty")
	}
	return s.driver.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		if err := s.tags.Set(tx, documentID, key, value); err != nil {
			return err
		}
		return s.metadata.Touch(tx)
	})
}

// normalizeLabels lowercases, trims, and deduplicates labels while
// preserving first-seen order (spec.md §4.3 step 5).
func normalizeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		norm := strings.ToLower(strings.TrimSpace(l))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}
