package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAI embeds texts with the OpenAI embeddings endpoint
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
}

// OpenAIOption configures the OpenAI provider
type OpenAIOption func(*openai.ClientConfig, *OpenAI)

// WithOpenAIModel sets the embedding model name
func WithOpenAIModel(model string) OpenAIOption {
	return func(_ *openai.ClientConfig, p *OpenAI) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOpenAIDimensions requests shortened vectors; 0 keeps the model default
func WithOpenAIDimensions(dim int) OpenAIOption {
	return func(_ *openai.ClientConfig, p *OpenAI) {
		p.dimensions = dim
	}
}

// WithOpenAIBaseURL points the client at an OpenAI compatible endpoint
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAI) {
		if url != "" {
			cfg.BaseURL = url
		}
	}
}

// WithOpenAIHTTPClient replaces the HTTP client
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAI) {
		cfg.HTTPClient = hc
	}
}

// NewOpenAI creates an OpenAI provider
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, goerr.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	p := &OpenAI{model: DefaultOpenAIModel}
	for _, opt := range opts {
		opt(&cfg, p)
	}
	p.client = openai.NewClientWithConfig(cfg)
	return p, nil
}

// ModelID implements Provider
func (p *OpenAI) ModelID() string {
	if p.dimensions > 0 {
		return fmt.Sprintf("openai:%s@%d", p.model, p.dimensions)
	}
	return "openai:" + p.model
}

// EmbedBatch implements Provider
func (p *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		wrapped := goerr.Wrap(err, "openai embeddings request failed", goerr.V("model", p.model), goerr.V("inputs", len(texts)))
		if openAITransient(err) {
			return nil, MarkTransient(wrapped)
		}
		return nil, wrapped
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, goerr.Wrap(ErrEmbedding, "openai returned out of range index", goerr.V("index", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// openAITransient classifies rate limiting, server errors and network failures as retryable
func openAITransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
