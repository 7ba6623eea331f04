package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
	"github.com/RKBobe/CtxMemGem/source/github"

	mcpE "github.com/RKBobe/CtxMemGem/mcp"
)

func AddRouters(r *gin.Engine, endpoints ctxmemgem.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/repos/:owner/:repo/ingest", IngestRepositoryHandler(endpoints.IngestRepository))
		api.GET("/repos/:owner/:repo/context", RetrieveContextHandler(endpoints.RetrieveContext))
		api.POST("/repos/:owner/:repo/ask", AskHandler(endpoints.Ask))
		api.GET("/collections", ListCollectionsHandler(endpoints.ListCollections))
	}
}

func AddAuthRouters(r *gin.Engine, cfg github.Config, tokens *github.TokenStore) {
	flow := newAuthFlow(cfg, tokens)

	auth := r.Group("/auth/github")
	{
		auth.GET("/login", flow.Login)
		auth.GET("/callback", flow.Callback)
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
