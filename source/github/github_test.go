package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/RKBobe/CtxMemGem/source"
)

type githubTestSuite struct {
	suite.Suite
	server  *httptest.Server
	fetcher *Fetcher
}

func (suite *githubTestSuite) SetupTest() {
	mux := http.NewServeMux()

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("GET /repos/octocat/hello", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"default_branch": "main"})
	})

	mux.HandleFunc("GET /repos/octocat/hello/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"tree": []map[string]any{
				{"path": "cmd", "type": "tree"},
				{"path": "cmd/main.go", "type": "blob", "size": 320},
				{"path": "README.md", "type": "blob", "size": 54},
				{"path": "assets/logo.png", "type": "blob", "size": 20480},
			},
		})
	})

	mux.HandleFunc("GET /repos/octocat/hello/contents/cmd/main.go", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		// GitHub wraps base64 payloads at 60 columns.
		encoded := base64.StdEncoding.EncodeToString([]byte("package main\n\nfunc main() {}\n"))
		json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  encoded[:8] + "\n" + encoded[8:],
		})
	})

	mux.HandleFunc("GET /repos/octocat/hello/contents/cmd", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"type": "dir"})
	})

	mux.HandleFunc("GET /repos/octocat/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"message": "Not Found"})
	})

	suite.server = httptest.NewServer(mux)
	suite.fetcher = NewFetcher(Config{BaseURL: suite.server.URL}, NewTokenStore("gho_test"))
}

func (suite *githubTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *githubTestSuite) TestListEntries() {
	entries, err := suite.fetcher.ListEntries(context.Background(), "octocat", "hello")
	suite.NoError(err)
	suite.Len(entries, 3)

	suite.Equal("cmd/main.go", entries[0].Path)
	suite.Equal(int64(320), entries[0].Size)
	suite.True(entries[0].IsText)

	suite.Equal("README.md", entries[1].Path)
	suite.True(entries[1].IsText)

	suite.Equal("assets/logo.png", entries[2].Path)
	suite.False(entries[2].IsText)
}

func (suite *githubTestSuite) TestListEntriesWithoutToken() {
	fetcher := NewFetcher(Config{BaseURL: suite.server.URL}, NewTokenStore(""))

	_, err := fetcher.ListEntries(context.Background(), "octocat", "hello")
	suite.ErrorIs(err, source.ErrAuthenticationMissing)
}

func (suite *githubTestSuite) TestListEntriesRejectedToken() {
	fetcher := NewFetcher(Config{BaseURL: suite.server.URL}, NewTokenStore("gho_revoked"))

	_, err := fetcher.ListEntries(context.Background(), "octocat", "hello")
	suite.ErrorIs(err, source.ErrAuthenticationMissing)
}

func (suite *githubTestSuite) TestListEntriesRepositoryNotFound() {
	_, err := suite.fetcher.ListEntries(context.Background(), "octocat", "missing")
	suite.ErrorContains(err, "not found")
}

func (suite *githubTestSuite) TestFetchContent() {
	content, err := suite.fetcher.FetchContent(context.Background(), "octocat", "hello", "cmd/main.go")
	suite.NoError(err)
	suite.Equal("package main\n\nfunc main() {}\n", content)
}

func (suite *githubTestSuite) TestFetchContentDirectory() {
	_, err := suite.fetcher.FetchContent(context.Background(), "octocat", "hello", "cmd")
	suite.ErrorContains(err, "not a file")
}

func TestGitHubTestSuite(t *testing.T) {
	suite.Run(t, new(githubTestSuite))
}

func TestTokenStoreLastWriteWins(t *testing.T) {
	store := NewTokenStore("")

	_, ok := store.Token()
	assert.False(t, ok)

	store.Set("first")
	store.Set("second")

	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, "second", token)
}

func TestOAuthConfig(t *testing.T) {
	cfg := OAuthConfig(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost:8080/auth/github/callback",
	})

	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.RedirectURL)
	assert.Contains(t, cfg.Scopes, "repo")
	assert.NotEmpty(t, cfg.Endpoint.AuthURL)
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "docs/getting%20started.md", escapePath("docs/getting started.md"))
	assert.Equal(t, "cmd/main.go", escapePath("cmd/main.go"))
}
