package ctxmemgem

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RKBobe/CtxMemGem/chunk"
	"github.com/RKBobe/CtxMemGem/embedding"
	"github.com/RKBobe/CtxMemGem/source"
	"github.com/RKBobe/CtxMemGem/synthesis"
	"github.com/RKBobe/CtxMemGem/vector"
)

// Service is the ingest and retrieval pipeline of CtxMemGem.
type Service interface {

	// Close releases the vector store.
	Close() error

	// IngestRepository chunks and embeds every text file of a repository
	// and replaces the repository's collection with the result. Ingest
	// runs are serialized per collection.
	IngestRepository(ctx context.Context, owner, repo string) (*IngestReport, error)

	// RetrieveContext returns the stored chunks most similar to the
	// question, most similar first. Pass k to override the configured
	// result count.
	RetrieveContext(ctx context.Context, owner, repo, question string, k ...int) ([]vector.Result, error)

	// Ask retrieves grounding context for the question and synthesizes an
	// answer from it.
	Ask(ctx context.Context, owner, repo, question string, k ...int) (*Answer, error)

	// ListCollections lists ingested collections and their sizes.
	ListCollections(ctx context.Context) ([]vector.CollectionInfo, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, store vector.Store, embedder embedding.Embedder,
	fetcher source.Fetcher, synthesizer synthesis.Synthesizer) (Service, error) {
	if store == nil {
		return nil, ErrVectorStoreNotSet
	}

	if embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	if fetcher == nil {
		return nil, ErrSourceNotSet
	}

	if cfg.Chunk.Size == 0 && cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Size = chunk.DefaultSize
		cfg.Chunk.Overlap = chunk.DefaultOverlap
	}

	splitter, err := chunk.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}

	topK := cfg.Retrieval.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	maxFileBytes := cfg.MaxFileBytes
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}

	log := zap.L().With(
		zap.String("service", "ctxmemgem"),
	)

	return &service{
		splitter:     splitter,
		store:        store,
		embedder:     embedder,
		fetcher:      fetcher,
		synthesizer:  synthesizer,
		topK:         topK,
		maxFileBytes: maxFileBytes,
		log:          log,
	}, nil
}

type service struct {
	splitter    *chunk.Splitter
	store       vector.Store
	embedder    embedding.Embedder
	fetcher     source.Fetcher
	synthesizer synthesis.Synthesizer

	topK         int
	maxFileBytes int64

	// ingest serialization, one mutex per collection
	ingests sync.Map

	log *zap.Logger
}

func (svc *service) Close() error {
	return svc.store.Close()
}

func (svc *service) IngestRepository(ctx context.Context, owner, repo string) (*IngestReport, error) {
	if owner == "" || repo == "" {
		return nil, ErrInvalidRepository
	}

	name := CollectionName(owner, repo)

	mu := svc.ingestMutex(name)
	mu.Lock()
	defer mu.Unlock()

	log := svc.log.With(
		zap.String("action", "ingest_repository"),
		zap.String("collection", name),
	)

	started := time.Now()

	entries, err := svc.fetcher.ListEntries(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{
		Owner:      owner,
		Repository: repo,
		Collection: name,
		Files:      make([]FileResult, 0, len(entries)),
	}

	var docs []vector.Document

	for _, entry := range entries {
		if !entry.IsText || entry.Size > svc.maxFileBytes {
			report.FilesSkipped++
			continue
		}

		log := log.With(
			zap.String("path", entry.Path),
		)

		content, err := svc.fetcher.FetchContent(ctx, owner, repo, entry.Path)
		if err != nil {
			if errors.Is(err, source.ErrAuthenticationMissing) {
				return nil, err
			}

			log.Warn("file skipped", zap.Error(err))

			report.Files = append(report.Files, FileResult{Path: entry.Path, Error: err.Error()})
			report.FilesSkipped++
			continue
		}

		chunks := svc.splitter.Split(content)
		if len(chunks) == 0 {
			report.FilesSkipped++
			continue
		}

		embeddings, err := svc.embedder.EmbedTexts(ctx, chunks)
		if err != nil {
			if errors.Is(err, embedding.ErrNotInitialized) {
				return nil, err
			}

			log.Warn("file skipped", zap.Error(err))

			report.Files = append(report.Files, FileResult{Path: entry.Path, Error: err.Error()})
			report.FilesSkipped++
			continue
		}

		for i, text := range chunks {
			docs = append(docs, vector.Document{
				ID:        chunkID(entry.Path, i),
				Metadata:  map[string]string{"path": entry.Path},
				Content:   text,
				Embedding: embeddings[i],
			})
		}

		report.Files = append(report.Files, FileResult{Path: entry.Path, Chunks: len(chunks)})
	}

	// The previous collection is dropped only after every file has been
	// fetched and embedded, so a failed run leaves it intact.
	collection, err := svc.store.Replace(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := collection.AddDocuments(ctx, docs); err != nil {
		return nil, err
	}

	report.ChunksStored = len(docs)
	report.Took = Duration(time.Since(started))

	log.Info("repository ingested",
		zap.Int("chunks", report.ChunksStored),
		zap.Int("skipped", report.FilesSkipped),
	)

	return report, nil
}

func (svc *service) ingestMutex(name string) *sync.Mutex {
	mu, _ := svc.ingests.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (svc *service) RetrieveContext(ctx context.Context, owner, repo, question string, k ...int) ([]vector.Result, error) {
	if owner == "" || repo == "" {
		return nil, ErrInvalidRepository
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	// Resolve the collection before embedding so an un-ingested
	// repository fails fast without an embedding call.
	collection, err := svc.store.Collection(ctx, CollectionName(owner, repo))
	if err != nil {
		return nil, err
	}

	n := svc.topK
	if len(k) > 0 && k[0] > 0 {
		n = k[0]
	}

	query, err := svc.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}

	return collection.QueryEmbedding(ctx, query, n)
}

func (svc *service) Ask(ctx context.Context, owner, repo, question string, k ...int) (*Answer, error) {
	if svc.synthesizer == nil {
		return nil, ErrSynthesizerNotSet
	}

	question = strings.TrimSpace(question)

	results, err := svc.RetrieveContext(ctx, owner, repo, question, k...)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(results))
	for i, result := range results {
		contexts[i] = result.Content
	}

	answer, err := svc.synthesizer.Synthesize(ctx, AssemblePrompt(contexts, question))
	if err != nil {
		return nil, err
	}

	return &Answer{
		Collection: CollectionName(owner, repo),
		Question:   question,
		Answer:     answer,
		Context:    contexts,
	}, nil
}

func (svc *service) ListCollections(ctx context.Context) ([]vector.CollectionInfo, error) {
	return svc.store.List(ctx)
}
