package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
)

type fakeRequest struct {
	data []byte

	respondData []byte
	errCode     string
	errDesc     string
}

func (r *fakeRequest) Respond(data []byte, opts ...micro.RespondOpt) error {
	r.respondData = data
	return nil
}

func (r *fakeRequest) RespondJSON(v any, opts ...micro.RespondOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.respondData = data
	return nil
}

func (r *fakeRequest) Error(code, description string, data []byte, opts ...micro.RespondOpt) error {
	r.errCode = code
	r.errDesc = description
	return nil
}

func (r *fakeRequest) Data() []byte {
	return r.data
}

func (r *fakeRequest) Headers() micro.Headers {
	return micro.Headers{}
}

func (r *fakeRequest) Subject() string {
	return "ctxmemgem.test"
}

func (r *fakeRequest) Reply() string {
	return ""
}

func TestIngestHandlerRespondsReport(t *testing.T) {
	assert := assert.New(t)

	handler := IngestRepositoryHandler(func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ctxmemgem.IngestRepositoryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return &ctxmemgem.IngestReport{
			Owner:        req.Owner,
			Repository:   req.Repository,
			Collection:   ctxmemgem.CollectionName(req.Owner, req.Repository),
			ChunksStored: 4,
		}, nil
	})

	req := &fakeRequest{data: []byte(`{"owner": "octocat", "repository": "hello-world"}`)}
	handler(req)

	assert.Empty(req.errCode)

	var report ctxmemgem.IngestReport
	if err := json.Unmarshal(req.respondData, &report); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("octocat-hello-world", report.Collection)
	assert.Equal(4, report.ChunksStored)
}

func TestIngestHandlerBadPayload(t *testing.T) {
	assert := assert.New(t)

	handler := IngestRepositoryHandler(func(ctx context.Context, request any) (any, error) {
		return nil, errors.New("endpoint should not be called")
	})

	req := &fakeRequest{data: []byte(`not json`)}
	handler(req)

	assert.Equal("400", req.errCode)
}

func TestAskHandlerEndpointError(t *testing.T) {
	assert := assert.New(t)

	handler := AskHandler(func(ctx context.Context, request any) (any, error) {
		return nil, errors.New("collection not found")
	})

	req := &fakeRequest{data: []byte(`{"owner": "octocat", "repository": "unknown", "question": "?"}`)}
	handler(req)

	assert.Equal("417", req.errCode)
	assert.Equal("collection not found", req.errDesc)
}

func TestRetrieveHandlerInvalidResponseType(t *testing.T) {
	assert := assert.New(t)

	handler := RetrieveContextHandler(func(ctx context.Context, request any) (any, error) {
		return "not a result slice", nil
	})

	req := &fakeRequest{data: []byte(`{"owner": "octocat", "repository": "hello-world", "question": "?"}`)}
	handler(req)

	assert.Equal("500", req.errCode)
}

func TestError(t *testing.T) {
	assert := assert.New(t)

	msg := &nats.Msg{Header: nats.Header{}}
	msg.Header.Set(micro.ErrorCodeHeader, "404")
	msg.Header.Set(micro.ErrorHeader, "collection not found")

	err := Error(msg)
	if err == nil {
		assert.Fail("expected error")
		return
	}

	assert.Equal("404:collection not found", err.Error())
}

func TestErrorCleanMessage(t *testing.T) {
	assert := assert.New(t)

	msg := &nats.Msg{Header: nats.Header{}, Data: []byte(`[]`)}

	assert.NoError(Error(msg))
}

func TestErrorNilMessage(t *testing.T) {
	assert := assert.New(t)

	assert.Error(Error(nil))
}
