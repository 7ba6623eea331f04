package ctxmemgem

import (
	"context"
	"errors"

	"github.com/RKBobe/CtxMemGem/vector"
)

// ProxyMiddleware serves the Service interface by forwarding every call to
// remote endpoints, for processes that talk to the pipeline over a message
// bus instead of hosting it.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) IngestRepository(ctx context.Context, owner, repo string) (*IngestReport, error) {
	req := IngestRepositoryRequest{
		Owner:      owner,
		Repository: repo,
	}

	resp, err := mw.endpoints.IngestRepository(ctx, req)
	if err != nil {
		return nil, err
	}

	report, ok := resp.(*IngestReport)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return report, nil
}

func (mw *proxyMiddleware) RetrieveContext(ctx context.Context, owner, repo, question string, k ...int) ([]vector.Result, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := RetrieveContextRequest{
		Owner:      owner,
		Repository: repo,
		Question:   question,
		K:          n,
	}

	resp, err := mw.endpoints.RetrieveContext(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]vector.Result)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

func (mw *proxyMiddleware) Ask(ctx context.Context, owner, repo, question string, k ...int) (*Answer, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := AskRequest{
		Owner:      owner,
		Repository: repo,
		Question:   question,
		K:          n,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, ok := resp.(*Answer)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return answer, nil
}

func (mw *proxyMiddleware) ListCollections(ctx context.Context) ([]vector.CollectionInfo, error) {
	resp, err := mw.endpoints.ListCollections(ctx, nil)
	if err != nil {
		return nil, err
	}

	infos, ok := resp.([]vector.CollectionInfo)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return infos, nil
}
