package config

import "time"

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, feedbackPath string) *Repository {
	return &Repository{
		backend:      backend,
		feedbackPath: feedbackPath,
	}
}

// NewCorpusForTest creates a Corpus config for testing purposes
func NewCorpusForTest(configPath string, paths ...string) *Corpus {
	return &Corpus{
		configPath: configPath,
		paths:      paths,
	}
}

// NewIndexForTest creates an Index config for testing purposes
func NewIndexForTest(location string) *Index {
	return &Index{location: location}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// SearchForTest holds Search flag values for testing
type SearchForTest struct {
	DefaultK int
	MaxK     int
	MinScore float64
	Timeout  time.Duration
	Wait     string
	Fallback string
}

// NewSearchForTest creates a Search config for testing purposes
func NewSearchForTest(v SearchForTest) *Search {
	return &Search{
		defaultK: v.DefaultK,
		maxK:     v.MaxK,
		minScore: v.MinScore,
		timeout:  v.Timeout,
		wait:     v.Wait,
		fallback: v.Fallback,
	}
}

// EmbeddingForTest holds Embedding flag values for testing
type EmbeddingForTest struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	Dimensions     int
	MaxAttempts    int
	RequestTimeout time.Duration
}

// NewEmbeddingForTest creates an Embedding config for testing purposes
func NewEmbeddingForTest(v EmbeddingForTest) *Embedding {
	return &Embedding{
		provider:       v.Provider,
		apiKey:         v.APIKey,
		model:          v.Model,
		baseURL:        v.BaseURL,
		dimensions:     v.Dimensions,
		maxAttempts:    v.MaxAttempts,
		requestTimeout: v.RequestTimeout,
	}
}
