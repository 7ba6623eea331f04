package vector

import (
	"context"
	"errors"
)

var (
	// ErrCollectionNotFound reports a lookup or query against a collection
	// that was never created. It is distinct from querying an existing but
	// empty collection, which succeeds with zero results.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDuplicateID reports a bulk insert whose entry IDs collide, either
	// within the batch or with entries already stored.
	ErrDuplicateID = errors.New("duplicate document id")
)

type Config struct {
	Provider   string      `yaml:"provider"`
	Persistent bool        `yaml:"persistent"`
	Path       string      `yaml:"path"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

const (
	ProviderChromem = "chromem"
	ProviderRedis   = "redis"
)

// Store is a collection-oriented vector index. Embeddings are always
// supplied by the caller; implementations never compute them.
type Store interface {

	// Replace deletes any collection of that name and creates a fresh empty
	// one. Deleting a collection that does not exist is not an error; this
	// is the only re-ingestion path.
	Replace(ctx context.Context, name string) (Collection, error)

	// Collection looks up an existing collection and returns
	// ErrCollectionNotFound when it is absent. It never creates.
	Collection(ctx context.Context, name string) (Collection, error)

	// List enumerates the stored collections with their entry counts.
	List(ctx context.Context) ([]CollectionInfo, error)

	// Close releases the underlying client or storage handles.
	Close() error
}

type Collection interface {
	Name() string

	// AddDocuments bulk-inserts documents carrying precomputed embeddings.
	// Colliding IDs surface ErrDuplicateID instead of overwriting.
	AddDocuments(ctx context.Context, docs []Document) error

	// QueryEmbedding returns up to k entries nearest to the query vector by
	// cosine similarity, most similar first. An empty collection returns an
	// empty slice and no error.
	QueryEmbedding(ctx context.Context, embedding []float32, k int) ([]Result, error)

	Count(ctx context.Context) (int, error)
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
}

type Result struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
	Similarity float32           `json:"similarity"`
}

type CollectionInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
