// Package verbex is the public library surface of the storage and query
// engine (spec.md §6): index lifecycle, document CRUD, index-level
// label/tag management, search, and flush/checkpoint.
package verbex

import (
	"context"
	"database/sql"
	"os"

	"github.com/verbex/verbex/internal/analysis"
	"github.com/verbex/verbex/internal/database"
	"github.com/verbex/verbex/internal/indexing"
	"github.com/verbex/verbex/internal/logging"
	"github.com/verbex/verbex/internal/query"
	"github.com/verbex/verbex/pkg/config"
)

var log = logging.GetLogger("verbex")

// Index is one open named index: a storage driver plus the indexing and
// query services layered over it.
type Index struct {
	name   string
	cfg    *config.Config
	driver *database.Driver
	index  *indexing.Service
	query  *query.Service
}

func analyzerConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		MinTokenLength:   cfg.MinTokenLength,
		MaxTokenLength:   cfg.MaxTokenLength,
		EnableStopWords:  cfg.EnableStopWordRemoval,
		StopWords:        analysis.StopWordSet(cfg.StopWordHook),
		EnableLemmatizer: cfg.EnableLemmatizer,
		Lemmatizer:       analysis.Lemmatizer(cfg.LemmatizerHook),
	}
}

func storageMode(cfg *config.Config) database.Mode {
	if cfg.StorageMode == config.StorageModeOnDisk {
		return database.ModeOnDisk
	}
	return database.ModeInMemory
}

// CreateIndex initializes a new named index. For on-disk storage, it
// fails with AlreadyExists if a database file is already present at the
// configured path (spec.md §6 create_index).
func CreateIndex(ctx context.Context, name string, cfg *config.Config) (*Index, error) {
	if cfg.StorageMode == config.StorageModeOnDisk {
		if _, err := os.Stat(cfg.DatabasePath()); err == nil {
			return nil, database.AlreadyExists("index", name)
		}
		if err := cfg.EnsureStorageDirectory(); err != nil {
			return nil, database.IoError(cfg.StorageDirectory, err)
		}
	}
	return newIndex(ctx, name, cfg)
}

// OpenIndex reopens a previously created on-disk index. An in-memory
// storage mode has nothing to reopen and is rejected.
func OpenIndex(ctx context.Context, name string, cfg *config.Config) (*Index, error) {
	if cfg.StorageMode == config.StorageModeOnDisk {
		if _, err := os.Stat(cfg.DatabasePath()); err != nil {
			return nil, database.NotFound("index", name)
		}
	} else {
		return nil, database.InvalidArgument("storage_mode", "in_memory indices cannot be reopened, use CreateIndex")
	}
	return newIndex(ctx, name, cfg)
}

func newIndex(ctx context.Context, name string, cfg *config.Config) (*Index, error) {
	path := ""
	if cfg.StorageMode == config.StorageModeOnDisk {
		path = cfg.DatabasePath()
	}
	driver, err := database.Open(ctx, name, storageMode(cfg), path)
	if err != nil {
		return nil, err
	}

	analyzerCfg := analyzerConfig(cfg)
	return &Index{
		name:   name,
		cfg:    cfg,
		driver: driver,
		index:  indexing.New(driver, analyzerCfg),
		query:  query.New(driver, analyzerCfg),
	}, nil
}

// Name returns the index's name.
func (idx *Index) Name() string { return idx.name }

// Close closes the index (spec.md §6 close_index).
func (idx *Index) Close(ctx context.Context) error {
	return idx.driver.Close(ctx)
}

// Delete closes and permanently removes the index's on-disk files, if
// any (spec.md §6 delete_index).
func (idx *Index) Delete(ctx context.Context) error {
	idx.driver.Dispose(ctx)
	if idx.cfg.StorageMode != config.StorageModeOnDisk {
		return nil
	}
	path := idx.cfg.DatabasePath()
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return database.IoError(path+suffix, err)
		}
	}
	log.Info("index deleted", "name", idx.name)
	return nil
}

// AddDocument implements spec.md §6 add_document.
func (idx *Index) AddDocument(ctx context.Context, name, content string, labels []string, tags map[string]string) (string, error) {
	return idx.index.AddDocument(ctx, name, content, labels, tags)
}

// DocumentView is one document plus its attached labels and tags,
// returned by GetDocument and ListDocuments.
type DocumentView struct {
	*database.Document
	Labels []string
	Tags   map[string]string
}

// GetDocument implements spec.md §6 get_document(id).
func (idx *Index) GetDocument(ctx context.Context, id string) (*DocumentView, error) {
	var view *DocumentView
	err := idx.driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		doc, err := (database.Documents{}).GetByID(tx, id)
		if err != nil {
			return err
		}
		view, err = assembleView(tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListDocuments implements spec.md §6 list_documents().
func (idx *Index) ListDocuments(ctx context.Context) ([]*DocumentView, error) {
	var views []*DocumentView
	err := idx.driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		docs, err := (database.Documents{}).List(tx)
		if err != nil {
			return err
		}
		views = make([]*DocumentView, 0, len(docs))
		for _, doc := range docs {
			v, err := assembleView(tx, doc)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func assembleView(tx *sql.Tx, doc *database.Document) (*DocumentView, error) {
	labelRows, err := (database.Labels{}).ListByDocument(tx, doc.ID)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(labelRows))
	for i, l := range labelRows {
		labels[i] = l.Text
	}

	tagRows, err := (database.Tags{}).ListByDocument(tx, doc.ID)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string, len(tagRows))
	for _, t := range tagRows {
		tags[t.Key] = t.Value
	}

	return &DocumentView{Document: doc, Labels: labels, Tags: tags}, nil
}

// DeleteDocument implements spec.md §6 delete_document(id).
func (idx *Index) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return idx.index.RemoveDocument(ctx, id)
}

// UpdateDocumentLabels implements spec.md §6 update_document_labels.
func (idx *Index) UpdateDocumentLabels(ctx context.Context, id string, labels []string) error {
	return idx.index.UpdateDocumentLabels(ctx, id, labels)
}

// UpdateDocumentTags implements spec.md §6 update_document_tags.
func (idx *Index) UpdateDocumentTags(ctx context.Context, id string, tags map[string]string) error {
	return idx.index.UpdateDocumentTags(ctx, id, tags)
}

// AddLabelToIndex implements spec.md §6 add_label_to_index.
func (idx *Index) AddLabelToIndex(ctx context.Context, label string) error {
	return idx.index.AddLabel(ctx, "", label)
}

// SetTagOnIndex implements spec.md §6 set_tag_on_index.
func (idx *Index) SetTagOnIndex(ctx context.Context, key, value string) error {
	return idx.index.SetTag(ctx, "", key, value)
}

// UpdateIndexLabels implements spec.md §6 update_index_labels.
func (idx *Index) UpdateIndexLabels(ctx context.Context, labels []string) error {
	return idx.index.UpdateDocumentLabels(ctx, "", labels)
}

// UpdateIndexTags implements spec.md §6 update_index_tags.
func (idx *Index) UpdateIndexTags(ctx context.Context, tags map[string]string) error {
	return idx.index.UpdateDocumentTags(ctx, "", tags)
}

// Search implements spec.md §6 search(request) / §4.4. A zero MaxResults
// is treated as "not specified" and defaulted to 100, per spec.md §4.4;
// to explicitly reject a zero value instead, call the query package
// directly.
func (idx *Index) Search(ctx context.Context, req query.Request) (*query.Response, error) {
	if req.MaxResults == 0 {
		req.MaxResults = query.DefaultMaxResults
	}
	return idx.query.Search(ctx, req)
}

// Flush implements spec.md §6 flush(target_path?) / §4.1.
func (idx *Index) Flush(ctx context.Context, targetPath string) error {
	return idx.driver.Flush(ctx, targetPath)
}

// Checkpoint implements spec.md §6 checkpoint() / §4.1.
func (idx *Index) Checkpoint(ctx context.Context) error {
	return idx.driver.Checkpoint(ctx)
}

// IndexStats implements the index-wide half of spec.md §4.6.
func (idx *Index) IndexStats(ctx context.Context) (*database.IndexStats, error) {
	var s *database.IndexStats
	err := idx.driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		var err error
		s, err = (database.Stats{}).Index(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// TermStats implements the per-term half of spec.md §4.6.
func (idx *Index) TermStats(ctx context.Context, term string) (*database.TermStats, error) {
	var s *database.TermStats
	err := idx.driver.ExecuteRead(ctx, func(tx *sql.Tx) error {
		var err error
		s, err = (database.Stats{}).Term(tx, term)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
