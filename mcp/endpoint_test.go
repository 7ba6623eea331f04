package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
	"github.com/RKBobe/CtxMemGem/vector"
)

type stubService struct{}

func (svc stubService) Close() error {
	return nil
}

func (svc stubService) IngestRepository(ctx context.Context, owner, repo string) (*ctxmemgem.IngestReport, error) {
	return &ctxmemgem.IngestReport{
		Owner:        owner,
		Repository:   repo,
		Collection:   ctxmemgem.CollectionName(owner, repo),
		Files:        []ctxmemgem.FileResult{{Path: "main.go", Chunks: 3}},
		ChunksStored: 3,
	}, nil
}

func (svc stubService) RetrieveContext(ctx context.Context, owner, repo, question string, k ...int) ([]vector.Result, error) {
	return []vector.Result{
		{ID: "main.go-0", Content: "package main", Similarity: 0.92},
	}, nil
}

func (svc stubService) Ask(ctx context.Context, owner, repo, question string, k ...int) (*ctxmemgem.Answer, error) {
	return &ctxmemgem.Answer{
		Collection: ctxmemgem.CollectionName(owner, repo),
		Question:   question,
		Answer:     "the entry point is main()",
		Context:    []string{"package main"},
	}, nil
}

func (svc stubService) ListCollections(ctx context.Context) ([]vector.CollectionInfo, error) {
	return []vector.CollectionInfo{{Name: "octocat-hello", Count: 3}}, nil
}

func TestUnmarshalInitializeRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 1,
	  "method": "initialize",
	  "params": {
	    "protocolVersion": "2024-11-05",
	    "capabilities": {
	      "roots": {
	        "listChanged": true
	      },
	      "sampling": {},
	      "elicitation": {}
	    },
	    "clientInfo": {
	      "name": "ExampleClient",
	      "title": "Example Client Display Name",
	      "version": "1.0.0"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	var params mcp.InitializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(1)), req.ID)
	assert.Equal(mcp.MethodInitialize, req.Method)
	assert.Equal("2024-11-05", params.ProtocolVersion)
}

func TestUnmarshalCallToolRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 2,
	  "method": "tools/call",
	  "params": {
	    "name": "ingest_repository",
	    "arguments": {
	      "owner": "octocat",
	      "repo": "hello-world"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(2)), req.ID)
	assert.Equal(mcp.MethodToolsCall, req.Method)
	assert.Equal("ingest_repository", params.Name)
	assert.Contains(params.Arguments, "owner")
	assert.Contains(params.Arguments, "repo")
}

func TestListToolsEndpoint(t *testing.T) {
	assert := assert.New(t)

	endpoint := ListToolsEndpoint(stubService{})

	input := []byte(`{"jsonrpc": "2.0", "id": 3, "method": "tools/list"}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	msg := endpoint(context.Background(), req)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("invalid response type")
		return
	}

	result, ok := resp.Result.(*mcp.ListToolsResult)
	if !ok {
		assert.Fail("invalid result type")
		return
	}

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}

	assert.Equal([]string{"ingest_repository", "ask_repository", "search_context"}, names)
}

func TestCallToolIngestRepository(t *testing.T) {
	assert := assert.New(t)

	endpoint := CallToolEndpoint(stubService{})

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 4,
	  "method": "tools/call",
	  "params": {
	    "name": "ingest_repository",
	    "arguments": {
	      "owner": "octocat",
	      "repo": "hello-world"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	msg := endpoint(context.Background(), req)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("invalid response type")
		return
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		assert.Fail("invalid result type")
		return
	}

	assert.False(result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		assert.Fail("invalid content type")
		return
	}

	assert.Contains(text.Text, `"collection":"octocat-hello-world"`)
	assert.Contains(text.Text, `"chunks_stored":3`)
}

func TestCallToolAskRepository(t *testing.T) {
	assert := assert.New(t)

	endpoint := CallToolEndpoint(stubService{})

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 5,
	  "method": "tools/call",
	  "params": {
	    "name": "ask_repository",
	    "arguments": {
	      "owner": "octocat",
	      "repo": "hello-world",
	      "question": "where is the entry point?",
	      "k": 3
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	msg := endpoint(context.Background(), req)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("invalid response type")
		return
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		assert.Fail("invalid result type")
		return
	}

	assert.False(result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		assert.Fail("invalid content type")
		return
	}

	assert.Equal("the entry point is main()", text.Text)
}

func TestCallToolMissingArgument(t *testing.T) {
	assert := assert.New(t)

	endpoint := CallToolEndpoint(stubService{})

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 6,
	  "method": "tools/call",
	  "params": {
	    "name": "search_context",
	    "arguments": {
	      "owner": "octocat"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	msg := endpoint(context.Background(), req)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		assert.Fail("invalid response type")
		return
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		assert.Fail("invalid result type")
		return
	}

	assert.True(result.IsError)
}

func TestCallToolUnknownTool(t *testing.T) {
	assert := assert.New(t)

	endpoint := CallToolEndpoint(stubService{})

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 7,
	  "method": "tools/call",
	  "params": {
	    "name": "drop_repository",
	    "arguments": {}
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	msg := endpoint(context.Background(), req)

	errResp, ok := msg.(mcp.JSONRPCError)
	if !ok {
		assert.Fail("expected error response")
		return
	}

	assert.Equal(mcp.INTERNAL_ERROR, errResp.Error.Code)
	assert.Contains(errResp.Error.Message, "unknown tool")
}
