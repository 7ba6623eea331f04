package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
	"github.com/RKBobe/CtxMemGem/embedding"
	"github.com/RKBobe/CtxMemGem/source"
	"github.com/RKBobe/CtxMemGem/vector"
)

// statusOf maps service errors onto HTTP status codes. Anything unmapped is
// reported as an internal error.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ctxmemgem.ErrInvalidRepository),
		errors.Is(err, ctxmemgem.ErrEmptyQuestion):
		return http.StatusBadRequest

	case errors.Is(err, source.ErrAuthenticationMissing):
		return http.StatusUnauthorized

	case errors.Is(err, vector.ErrCollectionNotFound):
		return http.StatusNotFound

	case errors.Is(err, embedding.ErrNotInitialized):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

func IngestRepositoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := ctxmemgem.IngestRepositoryRequest{
			Owner:      c.Param("owner"),
			Repository: c.Param("repo"),
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.String(statusOf(err), err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func RetrieveContextHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := ctxmemgem.RetrieveContextRequest{
			Owner:      c.Param("owner"),
			Repository: c.Param("repo"),
			Question:   c.Query("q"),
		}

		if k := c.Query("k"); k != "" {
			n, err := strconv.Atoi(k)
			if err != nil {
				c.String(http.StatusBadRequest, err.Error())
				c.Error(err)
				c.Abort()
				return
			}

			req.K = n
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.String(statusOf(err), err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AskHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ctxmemgem.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		req.Owner = c.Param("owner")
		req.Repository = c.Param("repo")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.String(statusOf(err), err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ListCollectionsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			c.String(statusOf(err), err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
