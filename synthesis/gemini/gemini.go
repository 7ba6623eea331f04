package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/RKBobe/CtxMemGem/synthesis"
)

const DefaultModel = "gemini-2.5-flash"

type Synthesizer struct {
	client *genai.Client
	model  string
}

func NewSynthesizer(ctx context.Context, cfg synthesis.Config) (*Synthesizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Synthesizer{
		client: client,
		model:  model,
	}, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	answer := resp.Text()
	if answer == "" {
		return "", errors.New("gemini: model returned an empty response")
	}

	return answer, nil
}

func (s *Synthesizer) Model() string {
	return s.model
}
