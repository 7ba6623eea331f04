package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `CtxMemGem answers questions about source repositories it has ingested:

1. **Ingest**: fetch a repository's text files, split them into overlapping chunks, embed each chunk and index the vectors
2. **Ask**: embed a question, retrieve the most similar chunks and synthesize a grounded answer
3. **Search**: retrieve the raw matching chunks without synthesis

Available tools:
- ingest_repository: index a repository (replaces any previous index for it)
- ask_repository: answer a question about an ingested repository
- search_context: return the stored chunks most similar to a query

Ingest a repository before asking about it.`

// Tools describes the fixed tool surface of the server.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("ingest_repository",
			mcp.WithDescription("Chunk, embed and index every text file of a GitHub repository, replacing any previous index for it."),
			mcp.WithString("owner",
				mcp.Required(),
				mcp.Description("Repository owner (user or organization)"),
			),
			mcp.WithString("repo",
				mcp.Required(),
				mcp.Description("Repository name"),
			),
		),
		mcp.NewTool("ask_repository",
			mcp.WithDescription("Answer a question about an ingested repository, grounded in retrieved chunks."),
			mcp.WithString("owner",
				mcp.Required(),
				mcp.Description("Repository owner (user or organization)"),
			),
			mcp.WithString("repo",
				mcp.Required(),
				mcp.Description("Repository name"),
			),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("Natural-language question about the repository"),
			),
			mcp.WithNumber("k",
				mcp.Description("How many chunks to ground the answer on"),
			),
		),
		mcp.NewTool("search_context",
			mcp.WithDescription("Retrieve the stored chunks most similar to a query, without synthesis."),
			mcp.WithString("owner",
				mcp.Required(),
				mcp.Description("Repository owner (user or organization)"),
			),
			mcp.WithString("repo",
				mcp.Required(),
				mcp.Description("Repository name"),
			),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Text to match against stored chunks"),
			),
			mcp.WithNumber("k",
				mcp.Description("How many chunks to return"),
			),
		),
	}
}

func InitializeEndpoint(svc ctxmemgem.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "ctxmemgem",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc ctxmemgem.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc ctxmemgem.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc ctxmemgem.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		callToolReq := mcp.CallToolRequest{
			Request: mcp.Request{
				Method: string(req.Method),
			},
			Params: params,
		}

		result, err := callTool(ctx, svc, callToolReq)
		if err != nil {
			return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func callTool(ctx context.Context, svc ctxmemgem.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch req.Params.Name {
	case "ingest_repository":
		return ingestRepository(ctx, svc, req)

	case "ask_repository":
		return askRepository(ctx, svc, req)

	case "search_context":
		return searchContext(ctx, svc, req)

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Params.Name)
	}
}

func ingestRepository(ctx context.Context, svc ctxmemgem.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	repo, err := req.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := svc.IngestRepository(ctx, owner, repo)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bs, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(bs)), nil
}

func askRepository(ctx context.Context, svc ctxmemgem.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	repo, err := req.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := svc.Ask(ctx, owner, repo, question, req.GetInt("k", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(answer.Answer), nil
}

func searchContext(ctx context.Context, svc ctxmemgem.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	repo, err := req.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := svc.RetrieveContext(ctx, owner, repo, query, req.GetInt("k", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bs, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(bs)), nil
}
