package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/interfaces"
	"github.com/secmon-lab/madoguchi/pkg/repository/file"
	"github.com/secmon-lab/madoguchi/pkg/repository/firestore"
	"github.com/secmon-lab/madoguchi/pkg/repository/memory"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendFirestore = "firestore"
)

// Repository holds CLI flags for the feedback store backend
type Repository struct {
	backend          string
	feedbackPath     string
	projectID        string
	databaseID       string
	collectionPrefix string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Feedback store backend (file, firestore or memory)",
			Category:    "Feedback",
			Value:       BackendFile,
			Sources:     cli.EnvVars("MADOGUCHI_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "feedback-path",
			Usage:       "JSON Lines feedback log (file backend)",
			Category:    "Feedback",
			Value:       ".madoguchi/feedback.jsonl",
			Sources:     cli.EnvVars("MADOGUCHI_FEEDBACK_PATH"),
			Destination: &r.feedbackPath,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Feedback",
			Sources:     cli.EnvVars("MADOGUCHI_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Feedback",
			Sources:     cli.EnvVars("MADOGUCHI_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix added to Firestore collection names",
			Category:    "Feedback",
			Sources:     cli.EnvVars("MADOGUCHI_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
	}
}

// LogValue implements slog.LogValuer
func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("feedback_path", r.feedbackPath),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
		}
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendFile:
		if r.feedbackPath == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "feedback-path is required when using file backend")
		}
		repo, err := file.New(r.feedbackPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize file repository")
		}
		logging.Default().Info("Using file repository", "path", r.feedbackPath)
		return repo, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V(BackendKey, r.backend))
	}
}
