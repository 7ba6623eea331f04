package ctxmemgem

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	IngestRepository endpoint.Endpoint
	RetrieveContext  endpoint.Endpoint
	Ask              endpoint.Endpoint
	ListCollections  endpoint.Endpoint
}

type IngestRepositoryRequest struct {
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
}

func IngestRepositoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestRepositoryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.IngestRepository(ctx, req.Owner, req.Repository)
	}
}

type RetrieveContextRequest struct {
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
	Question   string `json:"question"`
	K          int    `json:"k,omitempty"`
}

func RetrieveContextEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(RetrieveContextRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.RetrieveContext(ctx, req.Owner, req.Repository, req.Question, req.K)
	}
}

type AskRequest struct {
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
	Question   string `json:"question"`
	K          int    `json:"k,omitempty"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Ask(ctx, req.Owner, req.Repository, req.Question, req.K)
	}
}

func ListCollectionsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListCollections(ctx)
	}
}
