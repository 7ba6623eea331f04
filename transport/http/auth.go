package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/RKBobe/CtxMemGem/source/github"
)

// authFlow runs the GitHub OAuth web flow for the single operator token.
// Login issues a fresh state nonce, Callback exchanges the code and stores
// the resulting token.
type authFlow struct {
	oauth  *oauth2.Config
	tokens *github.TokenStore

	mu    sync.Mutex
	state string
}

func newAuthFlow(cfg github.Config, tokens *github.TokenStore) *authFlow {
	return &authFlow{
		oauth:  github.OAuthConfig(cfg),
		tokens: tokens,
	}
}

func (f *authFlow) Login(c *gin.Context) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		c.Error(err)
		c.Abort()
		return
	}

	state := hex.EncodeToString(buf)

	f.mu.Lock()
	f.state = state
	f.mu.Unlock()

	c.Redirect(http.StatusFound, f.oauth.AuthCodeURL(state))
}

func (f *authFlow) Callback(c *gin.Context) {
	f.mu.Lock()
	expected := f.state
	f.state = ""
	f.mu.Unlock()

	if state := c.Query("state"); expected == "" || state != expected {
		err := errors.New("oauth state mismatch")
		c.String(http.StatusBadRequest, err.Error())
		c.Error(err)
		c.Abort()
		return
	}

	code := c.Query("code")
	if code == "" {
		err := errors.New("authorization code is required")
		c.String(http.StatusBadRequest, err.Error())
		c.Error(err)
		c.Abort()
		return
	}

	ctx := c.Request.Context()
	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		c.String(http.StatusBadGateway, err.Error())
		c.Error(err)
		c.Abort()
		return
	}

	f.tokens.Set(token.AccessToken)

	c.String(http.StatusOK, "GitHub authorization complete")
}
