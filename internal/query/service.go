// Package query resolves a search request into a ranked, filtered result
// set over one open index (spec.md §4.4, §4.5).
package query

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/verbex/verbex/internal/analysis"
	"github.com/verbex/verbex/internal/database"
	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/logging"
)

var log = logging.GetLogger("query")

// DefaultMaxResults is the default result cap when a caller does not
// specify one (spec.md §4.4).
const DefaultMaxResults = 100

// MaxResultsCeiling is the hard clamp on max_results (spec.md §4.4,
// §8 boundary behaviors).
const MaxResultsCeiling = 10000

// Request is one search invocation (spec.md §4.4).
type Request struct {
	QueryText   string
	MaxResults  int
	UseAndLogic bool
	Labels      []string
	Tags        map[string]string
}

// Result is one ranked document (spec.md §4.4 step 8).
type Result struct {
	DocumentID       string
	Score            float64
	MatchedTermCount int
	TermFrequencies  map[string]int
}

// Response is the full result set of one search (spec.md §4.4 step 8).
type Response struct {
	Query        string
	Results      []Result
	TotalCount   int
	MaxResults   int
	SearchTimeMS float64
}

// Service implements search over one open index.
type Service struct {
	driver *database.Driver
	cfg    analysis.Config

	documents database.Documents
	terms     database.Terms
	postings  database.Postings
	labels    database.Labels
	tags      database.Tags
	stats     database.Stats
}

// New builds a Service over driver using cfg for query-time analysis.
func New(driver *database.Driver, cfg analysis.Config) *Service {
	return &Service{driver: driver, cfg: cfg}
}

type candidate struct {
	documentID      string
	termFrequencies map[string]int
}

// Search implements spec.md §4.4.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	log.LogRequest("search", "query", req.QueryText, "and_logic", req.UseAndLogic)

	maxResults := req.MaxResults
	if maxResults == 0 {
		return nil, database.InvalidArgument("max_results", "must not be zero")
	}
	if maxResults < 0 {
		return nil, database.InvalidArgument("max_results", "must be positive")
	}
	if maxResults > MaxResultsCeiling {
		maxResults = MaxResultsCeiling
	}

	started := time.Now()

	tokens := analysis.Analyze(req.QueryText, s.cfg)
	queryTerms := distinctOrdered(tokens)
	if len(queryTerms) == 0 {
		return &Response{Query: req.QueryText, Results: nil, TotalCount: 0, MaxResults: maxResults, SearchTimeMS: elapsedMS(started)}, nil
	}

	requiredLabels := lowerAll(req.Labels)

	var resp Response
	err := s.driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		termRows, err := s.terms.GetByTexts(tx, queryTerms)
		if err != nil {
			return err
		}
		if len(termRows) == 0 {
			resp = Response{Query: req.QueryText, Results: nil, TotalCount: 0, MaxResults: maxResults}
			return nil
		}

		termIDToText := make(map[string]string, len(termRows))
		termIDs := make([]string, 0, len(termRows))
		for text, t := range termRows {
			termIDToText[t.ID] = text
			termIDs = append(termIDs, t.ID)
		}

		matches, err := s.postings.ListByTermIDs(tx, termIDs)
		if err != nil {
			return err
		}

		byDoc := make(map[string]*candidate)
		for _, m := range matches {
			c, ok := byDoc[m.DocumentID]
			if !ok {
				c = &candidate{documentID: m.DocumentID, termFrequencies: make(map[string]int)}
				byDoc[m.DocumentID] = c
			}
			c.termFrequencies[termIDToText[m.TermID]] = m.TermFrequency
		}

		candidates := make([]*candidate, 0, len(byDoc))
		for _, c := range byDoc {
			if req.UseAndLogic && len(c.termFrequencies) < len(queryTerms) {
				continue
			}
			candidates = append(candidates, c)
		}

		if len(requiredLabels) > 0 {
			allowed, err := s.labels.MatchingDocumentIDs(tx, requiredLabels)
			if err != nil {
				return err
			}
			candidates = filterCandidates(candidates, allowed)
		}
		if len(req.Tags) > 0 {
			allowed, err := s.tags.MatchingDocumentIDs(tx, req.Tags)
			if err != nil {
				return err
			}
			candidates = filterCandidates(candidates, allowed)
		}

		totalCount := len(candidates)
		if totalCount == 0 {
			resp = Response{Query: req.QueryText, Results: nil, TotalCount: 0, MaxResults: maxResults}
			return nil
		}

		totalDocuments, err := s.documents.Count(tx)
		if err != nil {
			return err
		}
		avgdl, err := s.stats.AverageDocumentLength(tx)
		if err != nil {
			return err
		}

		rawScores := make(map[string]float64, len(candidates))
		for _, c := range candidates {
			doc, err := s.documents.GetByID(tx, c.documentID)
			if err != nil {
				return err
			}
			var raw float64
			for text, tf := range c.termFrequencies {
				t := termRows[text]
				raw += termWeight(t.DocumentFrequency, totalDocuments, tf, doc.DocumentLength, avgdl)
			}
			rawScores[c.documentID] = raw
		}
		scores := normalizeScores(rawScores)

		results := make([]Result, 0, len(candidates))
		for _, c := range candidates {
			results = append(results, Result{
				DocumentID:       c.documentID,
				Score:            scores[c.documentID],
				MatchedTermCount: len(c.termFrequencies),
				TermFrequencies:  c.termFrequencies,
			})
		}
		sort.Slice(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return idgen.Less(results[i].DocumentID, results[j].DocumentID)
		})

		if len(results) > maxResults {
			results = results[:maxResults]
		}

		resp = Response{Query: req.QueryText, Results: results, TotalCount: totalCount, MaxResults: maxResults}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.SearchTimeMS = elapsedMS(started)
	log.LogResponse("search", resp.SearchTimeMS, "query", req.QueryText, "total_count", resp.TotalCount)
	return &resp, nil
}

func filterCandidates(in []*candidate, allowed map[string]bool) []*candidate {
	out := in[:0]
	for _, c := range in {
		if allowed[c.documentID] {
			out = append(out, c)
		}
	}
	return out
}

func distinctOrdered(tokens []analysis.Token) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, tok := range tokens {
		if seen[tok.Term] {
			continue
		}
		seen[tok.Term] = true
		out = append(out, tok.Term)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func elapsedMS(since time.Time) float64 {
	return float64(time.Since(since).Microseconds()) / 1000.0
}
