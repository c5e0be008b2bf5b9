package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"
)

const defaultGeminiLocation = "us-central1"

// Gemini selects the Vertex AI deployment used by the gemini embedding provider.
// Credentials come from Application Default Credentials.
type Gemini struct {
	projectID string
	location  string
}

func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project hosting the Vertex AI embedding model",
			Category:    "Embedding",
			Sources:     cli.EnvVars("MADOGUCHI_GEMINI_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Vertex AI region",
			Category:    "Embedding",
			Value:       defaultGeminiLocation,
			Sources:     cli.EnvVars("MADOGUCHI_GEMINI_LOCATION"),
			Destination: &g.location,
		},
	}
}

func (g Gemini) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project", g.projectID),
		slog.String("location", g.location),
	)
}

// Label identifies the deployment in embedding model ids
func (g *Gemini) Label() string {
	return g.projectID + "/" + g.location
}

// Configure connects to Vertex AI with model as the embedding model. The
// project is mandatory once the gemini provider is selected.
func (g *Gemini) Configure(ctx context.Context, model string) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "gemini-project is required for the gemini embedding provider",
			goerr.V(ProviderKey, ProviderGemini))
	}
	if g.location == "" {
		g.location = defaultGeminiLocation
	}

	client, err := gemini.New(ctx, g.projectID, g.location, gemini.WithEmbeddingModel(model))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client",
			goerr.V("project", g.projectID), goerr.V("location", g.location), goerr.V("model", model))
	}
	return client, nil
}
