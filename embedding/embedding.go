package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrNotInitialized is returned when embeddings are requested before the
// model has been loaded with Initialize.
var ErrNotInitialized = errors.New("embedder not initialized")

type Config struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Embedder turns text into fixed-dimension vectors. Initialize loads the
// model and is idempotent; it must complete before any embedding call.
// Implementations return unit-norm vectors so stored and query embeddings
// share one similarity space.
type Embedder interface {
	Initialize(ctx context.Context) error
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelName() string
}

// Normalize scales vec to unit L2 norm in place and returns it. A zero
// vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return vec
	}

	norm := math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}

	return vec
}
