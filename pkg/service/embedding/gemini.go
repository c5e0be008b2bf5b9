package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
)

const (
	DefaultGeminiModel     = gemini.DefaultEmbeddingModel
	DefaultGeminiDimension = 768
)

// Gemini embeds texts through a gollem LLM client
type Gemini struct {
	llm       gollem.LLMClient
	model     string
	dimension int
	label     string
}

// NewGemini wraps llm, which must already be bound to model. label
// distinguishes deployments (e.g. project/location) in the model id.
func NewGemini(llm gollem.LLMClient, model string, dimension int, label string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if dimension <= 0 {
		dimension = DefaultGeminiDimension
	}
	return &Gemini{llm: llm, model: model, dimension: dimension, label: label}
}

// ModelID implements Provider
func (p *Gemini) ModelID() string {
	if p.label == "" {
		return fmt.Sprintf("gemini:%s@%d", p.model, p.dimension)
	}
	return fmt.Sprintf("gemini:%s:%s@%d", p.model, p.label, p.dimension)
}

// EmbedBatch implements Provider. gollem does not expose typed API errors,
// so every failure except cancellation is retried.
func (p *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := p.llm.GenerateEmbedding(ctx, p.dimension, texts)
	if err != nil {
		wrapped := goerr.Wrap(err, "gemini embedding request failed", goerr.V("inputs", len(texts)))
		if errors.Is(err, context.Canceled) {
			return nil, wrapped
		}
		return nil, MarkTransient(wrapped)
	}

	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		v := make([]float32, len(e))
		for j, x := range e {
			v[j] = float32(x)
		}
		vectors[i] = v
	}
	return vectors, nil
}
