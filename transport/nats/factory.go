package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
	"github.com/RKBobe/CtxMemGem/vector"
)

// ingestTimeout bounds remote ingestion requests. Fetching and embedding a
// repository takes far longer than a point query.
const ingestTimeout = 5 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *ctxmemgem.EndpointSet {
	return &ctxmemgem.EndpointSet{
		IngestRepository: IngestRepositoryEndpoint(nc, prefix+".ingest"),
		RetrieveContext:  RetrieveContextEndpoint(nc, prefix+".context"),
		Ask:              AskEndpoint(nc, prefix+".ask"),
		ListCollections:  ListCollectionsEndpoint(nc, prefix+".collections"),
	}
}

func IngestRepositoryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ctxmemgem.IngestRepositoryRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, ingestTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var report ctxmemgem.IngestReport
		if err := json.Unmarshal(resp.Data, &report); err != nil {
			return nil, err
		}

		return &report, nil
	}
}

func RetrieveContextEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ctxmemgem.RetrieveContextRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var results []vector.Result
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func AskEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ctxmemgem.AskRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var answer ctxmemgem.Answer
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return &answer, nil
	}
}

func ListCollectionsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := nc.Request(topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var infos []vector.CollectionInfo
		if err := json.Unmarshal(resp.Data, &infos); err != nil {
			return nil, err
		}

		return infos, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
