package embedding

import "context"

// Provider is one call to an embeddings API. Implementations return exactly one
// vector per input text, in input order, and mark retryable failures with MarkTransient.
type Provider interface {
	// ModelID identifies the model and output dimension; vectors from different ids are not comparable
	ModelID() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
