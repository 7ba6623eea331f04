package ollama

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/RKBobe/CtxMemGem/embedding"
)

type ollamaTestSuite struct {
	suite.Suite
	server *httptest.Server
	pulls  atomic.Int64
	embeds atomic.Int64
}

func (suite *ollamaTestSuite) SetupTest() {
	suite.pulls.Store(0)
	suite.embeds.Store(0)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/pull", func(w http.ResponseWriter, r *http.Request) {
		suite.pulls.Add(1)

		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"status": "pulling manifest"})
		enc.Encode(map[string]any{"status": "downloading", "completed": int64(50), "total": int64(100)})
		enc.Encode(map[string]any{"status": "success"})
	})

	mux.HandleFunc("POST /api/embed", func(w http.ResponseWriter, r *http.Request) {
		suite.embeds.Add(1)

		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		vectors := make([][]float32, len(req.Input))
		for i := range req.Input {
			vectors[i] = []float32{3, 4, 0}
		}

		json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	})

	suite.server = httptest.NewServer(mux)
}

func (suite *ollamaTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ollamaTestSuite) newClient(progress ProgressFunc) *Client {
	return NewClient(embedding.Config{BaseURL: suite.server.URL}, progress)
}

func (suite *ollamaTestSuite) TestInitializeOnce() {
	ctx := context.Background()

	var statuses []string
	client := suite.newClient(func(status string, completed, total int64) {
		statuses = append(statuses, status)
	})

	suite.NoError(client.Initialize(ctx))
	suite.NoError(client.Initialize(ctx))

	suite.Equal(int64(1), suite.pulls.Load())
	suite.Contains(statuses, "pulling manifest")
	suite.Contains(statuses, "success")

	suite.Equal(3, client.Dimension())
	suite.Equal(DefaultModel, client.ModelName())
}

func (suite *ollamaTestSuite) TestEmbedTextsNormalized() {
	ctx := context.Background()

	client := suite.newClient(nil)
	suite.NoError(client.Initialize(ctx))

	vecs, err := client.EmbedTexts(ctx, []string{"package main", "func main() {}"})
	suite.NoError(err)
	suite.Len(vecs, 2)

	for _, vec := range vecs {
		suite.InDelta(0.6, vec[0], 1e-6)
		suite.InDelta(0.8, vec[1], 1e-6)

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		suite.InDelta(1.0, math.Sqrt(norm), 1e-6)
	}
}

func (suite *ollamaTestSuite) TestEmbedRequiresInitialize() {
	ctx := context.Background()

	client := suite.newClient(nil)

	_, err := client.EmbedText(ctx, "package main")
	suite.ErrorIs(err, embedding.ErrNotInitialized)
	suite.Equal(0, client.Dimension())
}

func (suite *ollamaTestSuite) TestEmbedTextsEmptyInputSkipsCall() {
	ctx := context.Background()

	client := suite.newClient(nil)
	suite.NoError(client.Initialize(ctx))

	calls := suite.embeds.Load()

	vecs, err := client.EmbedTexts(ctx, nil)
	suite.NoError(err)
	suite.Empty(vecs)
	suite.Equal(calls, suite.embeds.Load())
}

func TestOllamaTestSuite(t *testing.T) {
	suite.Run(t, new(ollamaTestSuite))
}

func TestInitializePullError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "pull model manifest: file does not exist"})
	}))
	defer server.Close()

	client := NewClient(embedding.Config{BaseURL: server.URL, Model: "missing"}, nil)

	err := client.Initialize(context.Background())
	assert.ErrorContains(t, err, "file does not exist")

	// The failure is cached, not retried.
	assert.ErrorContains(t, client.Initialize(context.Background()), "file does not exist")
}

func TestEmbedCountMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pull", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	})
	mux.HandleFunc("POST /api/embed", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{1, 0}},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(embedding.Config{BaseURL: server.URL}, nil)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := client.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "2 inputs")
}
