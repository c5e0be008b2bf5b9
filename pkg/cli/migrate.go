package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/repository/firestore"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var collectionPrefix string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes of the feedback store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("MADOGUCHI_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("MADOGUCHI_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix prepended to collection names",
				Sources:     cli.EnvVars("MADOGUCHI_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"collectionPrefix", collectionPrefix,
				"dryRun", dryRun)

			if databaseID == "" {
				databaseID = defaultFirestoreDatabase
			}
			indexConfig := feedbackIndexConfig(collectionPrefix)

			client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
				fireconf.WithLogger(logger),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			current, err := client.Import(ctx, indexConfig.Collections[0].Name)
			if err != nil {
				return goerr.Wrap(err, "failed to import current indexes")
			}
			diff, err := client.DiffConfigs(current)
			if err != nil {
				return goerr.Wrap(err, "failed to compare indexes")
			}

			steps := migrationSteps(diff)
			if len(steps) == 0 {
				logger.Info("No changes required")
				return nil
			}
			for _, step := range steps {
				logger.Info("Migration step",
					"collection", step.Collection,
					"operation", step.Operation,
					"fields", step.Fields)
			}

			if dryRun {
				logger.Info("Dry run mode - no changes applied")
				return nil
			}

			logger.Info("Applying migrations")
			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

const defaultFirestoreDatabase = "(default)"

// migrationStep is one index change of a migration plan
type migrationStep struct {
	Collection string
	Operation  string
	Fields     string
}

// migrationSteps flattens a fireconf diff into index additions and deletions
func migrationSteps(diff *fireconf.DiffResult) []migrationStep {
	var steps []migrationStep
	if diff == nil {
		return steps
	}
	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			steps = append(steps, migrationStep{Collection: col.Name, Operation: "create_index", Fields: indexFields(idx)})
		}
		for _, idx := range col.IndexesToDelete {
			steps = append(steps, migrationStep{Collection: col.Name, Operation: "delete_index", Fields: indexFields(idx)})
		}
	}
	return steps
}

func indexFields(idx fireconf.Index) string {
	parts := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		parts = append(parts, f.Path+" "+string(f.Order))
	}
	return strings.Join(parts, ", ")
}

// feedbackIndexConfig returns the composite indexes the feedback List queries need
func feedbackIndexConfig(prefix string) *fireconf.Config {
	newestFirst := fireconf.IndexField{Path: "CreatedAt", Order: fireconf.OrderDescending}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: prefix + firestore.FeedbackCollection,
				Indexes: []fireconf.Index{
					// filter by answer
					{
						Fields: []fireconf.IndexField{
							{Path: "AnswerID", Order: fireconf.OrderAscending},
							newestFirst,
						},
					},
					// filter by verdict
					{
						Fields: []fireconf.IndexField{
							{Path: "Helpful", Order: fireconf.OrderAscending},
							newestFirst,
						},
					},
					// filter by both
					{
						Fields: []fireconf.IndexField{
							{Path: "AnswerID", Order: fireconf.OrderAscending},
							{Path: "Helpful", Order: fireconf.OrderAscending},
							newestFirst,
						},
					},
				},
			},
		},
	}
}
