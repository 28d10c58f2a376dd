package indexing_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbex/verbex/internal/analysis"
	"github.com/verbex/verbex/internal/database"
	"github.com/verbex/verbex/internal/indexing"
	"github.com/verbex/verbex/internal/testutil"
)

func newService(t *testing.T) (*indexing.Service, *database.Driver) {
	t.Helper()
	driver := testutil.OpenDriver(t)
	return indexing.New(driver, analysis.Config{}), driver
}

func TestAddDocumentBasic(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	id, err := svc.AddDocument(ctx, "doc1", "The quick brown fox jumps over the lazy dog.", nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	err = driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		doc, err := (database.Documents{}).GetByID(tx, id)
		require.NoError(t, err)
		assert.Equal(t, "doc1", doc.Name)
		assert.Equal(t, 8, doc.TermCount) // "the" counted once as a distinct term despite appearing twice
		assert.True(t, doc.DocumentLength > 0)

		term, err := (database.Terms{}).GetByText(tx, "fox")
		require.NoError(t, err)
		assert.Equal(t, 1, term.DocumentFrequency)
		assert.Equal(t, 1, term.TotalFrequency)
		return nil
	})
	require.NoError(t, err)
}

func TestAddDocumentDuplicateName(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, "doc1", "hello", nil, nil)
	require.NoError(t, err)

	_, err = svc.AddDocument(ctx, "doc1", "world", nil, nil)
	require.Error(t, err)
	assert.True(t, database.Is(err, database.KindAlreadyExists))
}

func TestAddDocumentEmptyContent(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	id, err := svc.AddDocument(ctx, "empty", "", nil, nil)
	require.NoError(t, err)

	err = driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		doc, err := (database.Documents{}).GetByID(tx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, doc.DocumentLength)
		assert.Equal(t, 0, doc.TermCount)

		postings, err := (database.Postings{}).ListByDocument(tx, id)
		require.NoError(t, err)
		assert.Empty(t, postings)
		return nil
	})
	require.NoError(t, err)
}

func TestRemoveDocumentRestoresCounters(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	const n = 20
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id, err := svc.AddDocument(ctx, docName(i), "alpha alpha alpha", nil, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	err := driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		term, err := (database.Terms{}).GetByText(tx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, n, term.DocumentFrequency)
		assert.Equal(t, n*3, term.TotalFrequency)
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < n/2; i++ {
		ok, err := svc.RemoveDocument(ctx, ids[i])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	err = driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		term, err := (database.Terms{}).GetByText(tx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, n/2, term.DocumentFrequency)
		assert.Equal(t, n/2*3, term.TotalFrequency)
		return nil
	})
	require.NoError(t, err)
}

func TestRemoveDocumentDeletesOrphanedTerm(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	id, err := svc.AddDocument(ctx, "doc1", "uniqueterm", nil, nil)
	require.NoError(t, err)

	ok, err := svc.RemoveDocument(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	err = driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		_, err := (database.Terms{}).GetByText(tx, "uniqueterm")
		assert.True(t, database.Is(err, database.KindNotFound))
		return nil
	})
	require.NoError(t, err)
}

func TestRemoveDocumentNotFound(t *testing.T) {
	svc, _ := newService(t)
	ok, err := svc.RemoveDocument(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddDocumentThenDeleteRoundTrip(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	before := countRows(t, driver, "terms")
	id, err := svc.AddDocument(ctx, "roundtrip", "one two three", nil, nil)
	require.NoError(t, err)

	_, err = svc.RemoveDocument(ctx, id)
	require.NoError(t, err)

	after := countRows(t, driver, "terms")
	assert.Equal(t, before, after)
}

func TestUpdateDocumentLabelsIdempotent(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	id, err := svc.AddDocument(ctx, "doc1", "hello world", nil, nil)
	require.NoError(t, err)

	err = svc.UpdateDocumentLabels(ctx, id, []string{"Green", "green", " Blue "})
	require.NoError(t, err)
	err = svc.UpdateDocumentLabels(ctx, id, []string{"Green", "green", " Blue "})
	require.NoError(t, err)

	err = driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		labels, err := (database.Labels{}).ListByDocument(tx, id)
		require.NoError(t, err)
		assert.Len(t, labels, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateDocumentTagsReplaces(t *testing.T) {
	svc, driver := newService(t)
	ctx := context.Background()

	id, err := svc.AddDocument(ctx, "doc1", "hello", nil, map[string]string{"env": "dev"})
	require.NoError(t, err)

	err = svc.UpdateDocumentTags(ctx, id, map[string]string{"env": "prod"})
	require.NoError(t, err)

	err = driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		tags, err := (database.Tags{}).ListByDocument(tx, id)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "prod", tags[0].Value)
		return nil
	})
	require.NoError(t, err)
}

func docName(i int) string {
	return "doc-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func countRows(t *testing.T, driver *database.Driver, table string) int {
	t.Helper()
	var n int
	err := driver.ExecuteRead(context.Background(), func(tx *sql.Tx) error {
		return tx.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	})
	require.NoError(t, err)
	return n
}
