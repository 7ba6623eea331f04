package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RKBobe/CtxMemGem/embedding"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "all-minilm"
)

// ProgressFunc observes model download progress while Initialize pulls the
// model. total is zero for status-only updates.
type ProgressFunc func(status string, completed int64, total int64)

// Client embeds text through a local Ollama server. Initialize pulls the
// model and probes its output dimension once per process; afterwards the
// client is safe for concurrent use.
type Client struct {
	baseURL  string
	model    string
	client   *http.Client
	progress ProgressFunc

	once    sync.Once
	initErr error
	ready   atomic.Bool
	dim     int
}

func NewClient(cfg embedding.Config, progress ProgressFunc) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		progress: progress,
	}
}

func (c *Client) Initialize(ctx context.Context) error {
	c.once.Do(func() {
		c.initErr = c.initialize(ctx)
		if c.initErr == nil {
			c.ready.Store(true)
		}
	})

	return c.initErr
}

func (c *Client) initialize(ctx context.Context) error {
	if err := c.pull(ctx); err != nil {
		return err
	}

	// Probe the model once so Dimension is known before any ingest.
	vecs, err := c.embed(ctx, []string{"dimension probe"})
	if err != nil {
		return err
	}

	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("ollama: model %s returned an empty probe vector", c.model)
	}

	c.dim = len(vecs[0])
	return nil
}

func (c *Client) pull(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"model": c.model})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: pull %s: %s", c.model, resp.Status)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var progress struct {
			Status    string `json:"status"`
			Completed int64  `json:"completed"`
			Total     int64  `json:"total"`
			Error     string `json:"error"`
		}

		if err := dec.Decode(&progress); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if progress.Error != "" {
			return fmt.Errorf("ollama: pull %s: %s", c.model, progress.Error)
		}

		if c.progress != nil {
			c.progress(progress.Status, progress.Completed, progress.Total)
		}
	}
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}

		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("ollama: embed: %s", apiErr.Error)
		}

		return nil, fmt.Errorf("ollama: embed: %s", resp.Status)
	}

	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: embed returned %d vectors for %d inputs", len(out.Embeddings), len(texts))
	}

	for i := range out.Embeddings {
		embedding.Normalize(out.Embeddings[i])
	}

	return out.Embeddings, nil
}

func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.ready.Load() {
		return nil, embedding.ErrNotInitialized
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	return c.embed(ctx, texts)
}

func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vecs[0], nil
}

func (c *Client) Dimension() int {
	if !c.ready.Load() {
		return 0
	}

	return c.dim
}

func (c *Client) ModelName() string {
	return c.model
}
