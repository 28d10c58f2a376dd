package verbex_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbex/verbex/internal/query"
	"github.com/verbex/verbex/pkg/config"
	"github.com/verbex/verbex/pkg/verbex"
)

func newInMemoryIndex(t *testing.T, name string) *verbex.Index {
	t.Helper()
	cfg := config.DefaultConfig()
	idx, err := verbex.CreateIndex(context.Background(), name, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close(context.Background()) })
	return idx
}

func TestCreateAddSearchDocument(t *testing.T) {
	idx := newInMemoryIndex(t, "TestCreateAddSearchDocument")
	ctx := context.Background()

	docID, err := idx.AddDocument(ctx, "doc1", "hello distributed world", []string{"green"}, map[string]string{"env": "prod"})
	require.NoError(t, err)

	view, err := idx.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "doc1", view.Name)
	assert.Equal(t, []string{"green"}, view.Labels)
	assert.Equal(t, "prod", view.Tags["env"])

	resp, err := idx.Search(ctx, query.Request{QueryText: "distributed"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, docID, resp.Results[0].DocumentID)
}

func TestSearchDefaultsMaxResultsTo100(t *testing.T) {
	idx := newInMemoryIndex(t, "TestSearchDefaultsMaxResultsTo100")
	resp, err := idx.Search(context.Background(), query.Request{QueryText: "anything"})
	require.NoError(t, err)
	assert.Equal(t, query.DefaultMaxResults, resp.MaxResults)
}

func TestListDocuments(t *testing.T) {
	idx := newInMemoryIndex(t, "TestListDocuments")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := idx.AddDocument(ctx, fmt.Sprintf("doc-%d", i), "content", nil, nil)
		require.NoError(t, err)
	}
	views, err := idx.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 3)
}

func TestIndexLevelLabelsAndTags(t *testing.T) {
	idx := newInMemoryIndex(t, "TestIndexLevelLabelsAndTags")
	ctx := context.Background()

	require.NoError(t, idx.AddLabelToIndex(ctx, "tenant-a"))
	require.NoError(t, idx.SetTagOnIndex(ctx, "region", "us-east"))

	require.NoError(t, idx.UpdateIndexLabels(ctx, []string{"tenant-b"}))
	require.NoError(t, idx.UpdateIndexTags(ctx, map[string]string{"region": "eu-west"}))
}

func TestFlushRoundTrip(t *testing.T) {
	idx := newInMemoryIndex(t, "TestFlushRoundTrip")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := idx.AddDocument(ctx, fmt.Sprintf("doc-%d", i), fmt.Sprintf("term%d shared", i), []string{"batch"}, map[string]string{"i": fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}

	before, err := idx.IndexStats(ctx)
	require.NoError(t, err)

	dir := t.TempDir()
	onDiskCfg := config.DefaultConfig()
	onDiskCfg.StorageMode = config.StorageModeOnDisk
	onDiskCfg.StorageDirectory = dir

	require.NoError(t, idx.Flush(ctx, onDiskCfg.DatabasePath()))
	require.NoError(t, idx.Close(ctx))

	reopened, err := verbex.OpenIndex(ctx, "flushed", onDiskCfg)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	after, err := reopened.IndexStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.DocumentCount, after.DocumentCount)
	assert.Equal(t, before.TermCount, after.TermCount)

	resp, err := reopened.Search(ctx, query.Request{QueryText: "shared"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 10)
}

func TestCreateIndexRejectsExistingOnDiskFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StorageMode = config.StorageModeOnDisk
	cfg.StorageDirectory = dir

	ctx := context.Background()
	first, err := verbex.CreateIndex(ctx, "dup", cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	_, err = verbex.CreateIndex(ctx, "dup", cfg)
	require.Error(t, err)
	assert.True(t, verbex.IsAlreadyExists(err))
}

func TestGetDocumentNotFoundIsDistinguishable(t *testing.T) {
	idx := newInMemoryIndex(t, "TestGetDocumentNotFoundIsDistinguishable")
	_, err := idx.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, verbex.IsNotFound(err))
	assert.False(t, verbex.IsAlreadyExists(err))
}

func TestAddDocumentDuplicateNameIsAlreadyExists(t *testing.T) {
	idx := newInMemoryIndex(t, "TestAddDocumentDuplicateNameIsAlreadyExists")
	ctx := context.Background()
	_, err := idx.AddDocument(ctx, "dup-doc", "hello", nil, nil)
	require.NoError(t, err)

	_, err = idx.AddDocument(ctx, "dup-doc", "hello again", nil, nil)
	require.Error(t, err)
	assert.True(t, verbex.IsAlreadyExists(err))
	assert.False(t, verbex.IsNotFound(err))
}

func TestDeleteIndexRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StorageMode = config.StorageModeOnDisk
	cfg.StorageDirectory = dir

	ctx := context.Background()
	idx, err := verbex.CreateIndex(ctx, "deletable", cfg)
	require.NoError(t, err)
	require.NoError(t, idx.Delete(ctx))

	_, err = verbex.OpenIndex(ctx, "deletable", cfg)
	require.Error(t, err)
}
