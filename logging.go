package ctxmemgem

import (
	"context"

	"go.uber.org/zap"

	"github.com/RKBobe/CtxMemGem/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ctxmemgem"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) IngestRepository(ctx context.Context, owner, repo string) (*IngestReport, error) {
	log := mw.log.With(
		zap.String("action", "ingest_repository"),
		zap.String("owner", owner),
		zap.String("repository", repo),
	)

	report, err := mw.next.IngestRepository(ctx, owner, repo)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("repository ingested",
		zap.String("collection", report.Collection),
		zap.Int("chunks", report.ChunksStored),
		zap.Int("skipped", report.FilesSkipped),
		zap.Duration("took", report.Took.Duration()),
	)

	return report, nil
}

func (mw *loggingMiddleware) RetrieveContext(ctx context.Context, owner, repo, question string, k ...int) ([]vector.Result, error) {
	var n int
	if len(k) > 0 {
		n = k[0]
	}

	log := mw.log.With(
		zap.String("action", "retrieve_context"),
		zap.String("owner", owner),
		zap.String("repository", repo),
	)

	if n > 0 {
		log = log.With(
			zap.Int("k", n),
		)
	}

	results, err := mw.next.RetrieveContext(ctx, owner, repo, question, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("context retrieved", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, owner, repo, question string, k ...int) (*Answer, error) {
	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("owner", owner),
		zap.String("repository", repo),
	)

	answer, err := mw.next.Ask(ctx, owner, repo, question, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("question answered", zap.Int("context_chunks", len(answer.Context)))
	return answer, nil
}

func (mw *loggingMiddleware) ListCollections(ctx context.Context) ([]vector.CollectionInfo, error) {
	log := mw.log.With(
		zap.String("action", "list_collections"),
	)

	infos, err := mw.next.ListCollections(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("collections listed", zap.Int("count", len(infos)))
	return infos, nil
}
