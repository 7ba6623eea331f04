package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/RKBobe/CtxMemGem/source"
)

const DefaultBaseURL = "https://api.github.com"

type Config struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// OAuthConfig builds the authorization-code flow configuration for the web
// login handshake. The repo scope covers private repository listings.
func OAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     githuboauth.Endpoint,
		RedirectURL:  cfg.CallbackURL,
		Scopes:       []string{"repo"},
	}
}

// TokenStore holds the current access token. The system serves one operator
// at a time, so the token is a single slot and the last write wins.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore(token string) *TokenStore {
	return &TokenStore{token: token}
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

func (s *TokenStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.token != ""
}

// Fetcher reads repository listings and file contents through the GitHub
// REST API.
type Fetcher struct {
	baseURL string
	client  *http.Client
	tokens  *TokenStore
}

func NewFetcher(cfg Config, tokens *TokenStore) *Fetcher {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Fetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
}

func (f *Fetcher) ListEntries(ctx context.Context, owner, repo string) ([]source.Entry, error) {
	token, ok := f.tokens.Token()
	if !ok {
		return nil, source.ErrAuthenticationMissing
	}

	var repository struct {
		DefaultBranch string `json:"default_branch"`
	}

	err := f.get(ctx, token, fmt.Sprintf("/repos/%s/%s", owner, repo), &repository)
	if err != nil {
		return nil, err
	}

	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
			Size int64  `json:"size"`
		} `json:"tree"`
		Truncated bool `json:"truncated"`
	}

	err = f.get(ctx, token,
		fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, url.PathEscape(repository.DefaultBranch)),
		&tree)
	if err != nil {
		return nil, err
	}

	entries := make([]source.Entry, 0, len(tree.Tree))
	for _, node := range tree.Tree {
		if node.Type != "blob" {
			continue
		}

		entries = append(entries, source.Entry{
			Path:   node.Path,
			Size:   node.Size,
			IsText: source.IsTextPath(node.Path),
		})
	}

	return entries, nil
}

func (f *Fetcher) FetchContent(ctx context.Context, owner, repo, path string) (string, error) {
	token, ok := f.tokens.Token()
	if !ok {
		return "", source.ErrAuthenticationMissing
	}

	var payload struct {
		Type     string `json:"type"`
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}

	err := f.get(ctx, token, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path)), &payload)
	if err != nil {
		return "", err
	}

	if payload.Type != "file" {
		return "", fmt.Errorf("github: %s is a %s, not a file", path, payload.Type)
	}

	if payload.Encoding != "base64" {
		return "", fmt.Errorf("github: unexpected encoding %q for %s", payload.Encoding, path)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("github: decode %s: %w", path, err)
	}

	return string(raw), nil
}

func (f *Fetcher) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return source.ErrAuthenticationMissing

	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("github: %s: not found", path)

	case resp.StatusCode != http.StatusOK:
		var apiErr struct {
			Message string `json:"message"`
		}

		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("github: %s: %s (%s)", path, apiErr.Message, resp.Status)
		}

		return fmt.Errorf("github: %s: %s", path, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}
