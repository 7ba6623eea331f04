package synthesis

import "context"

type Config struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// Synthesizer turns an assembled grounding prompt into a final answer via an
// external text-generation model.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}
