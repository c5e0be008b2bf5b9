package interfaces

import "context"

// Embedder turns texts into vectors
type Embedder interface {
	ModelID() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}
