package chromem

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/RKBobe/CtxMemGem/vector"
)

// errExternalEmbeddings is installed as the collection embedding func so a
// document arriving without a precomputed vector fails loudly instead of
// silently calling out to a remote embedding API (chromem's default).
var errExternalEmbeddings = errors.New("chromem: embeddings are supplied externally, refusing to compute one")

func externalOnly(ctx context.Context, text string) ([]float32, error) {
	return nil, errExternalEmbeddings
}

func NewChromemVectorStore(cfg vector.Config) (vector.Store, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorStore{db}, nil
}

type chromemVectorStore struct {
	db *chromem.DB
}

func (s *chromemVectorStore) Replace(ctx context.Context, name string) (vector.Collection, error) {
	// DeleteCollection is a no-op for unknown names, which makes Replace
	// idempotent and valid as the first-ever ingest path.
	if err := s.db.DeleteCollection(name); err != nil {
		return nil, err
	}

	c, err := s.db.CreateCollection(name, nil, externalOnly)
	if err != nil {
		return nil, err
	}

	return &collection{name, c}, nil
}

func (s *chromemVectorStore) Collection(ctx context.Context, name string) (vector.Collection, error) {
	c := s.db.GetCollection(name, externalOnly)
	if c == nil {
		return nil, vector.ErrCollectionNotFound
	}

	return &collection{name, c}, nil
}

func (s *chromemVectorStore) List(ctx context.Context) ([]vector.CollectionInfo, error) {
	collections := s.db.ListCollections()

	infos := make([]vector.CollectionInfo, 0, len(collections))
	for name, c := range collections {
		infos = append(infos, vector.CollectionInfo{
			Name:  name,
			Count: c.Count(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

func (s *chromemVectorStore) Close() error {
	return nil
}

type collection struct {
	name       string
	collection *chromem.Collection
}

func (c *collection) Name() string {
	return c.name
}

// AddDocuments rejects colliding IDs before handing the batch to chromem,
// whose own AddDocument overwrites on duplicate ID (last write wins).
func (c *collection) AddDocuments(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.ID]; ok {
			return vector.ErrDuplicateID
		}
		seen[doc.ID] = struct{}{}

		if _, err := c.collection.GetByID(ctx, doc.ID); err == nil {
			return vector.ErrDuplicateID
		}
	}

	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	return c.collection.AddDocuments(ctx, documents, runtime.NumCPU())
}

func (c *collection) QueryEmbedding(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	count := c.collection.Count()
	if count == 0 {
		return []vector.Result{}, nil
	}

	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]vector.Result, len(results))
	for i, result := range results {
		out[i] = vector.Result{
			ID:         result.ID,
			Metadata:   result.Metadata,
			Content:    result.Content,
			Similarity: result.Similarity,
		}
	}

	return out, nil
}

func (c *collection) Count(ctx context.Context) (int, error) {
	return c.collection.Count(), nil
}
