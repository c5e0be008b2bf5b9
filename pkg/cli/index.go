package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdIndex() *cli.Command {
	var engineCfg engineConfig
	var force bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Re-embed every record even when the persisted index is fresh",
			Destination: &force,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "index",
		Aliases: []string{"i"},
		Usage:   "Build or refresh the persisted vector index",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			eng, err := engineCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			result, err := eng.searchUseCase().Refresh(ctx, force)
			if err != nil {
				return err
			}

			printRefreshResult(os.Stdout, result)
			return nil
		},
	}
}

func printRefreshResult(w io.Writer, result *usecase.RefreshResult) {
	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgHiBlack)

	_, _ = title.Fprintf(w, "Index %s\n", result.Action)
	_, _ = label.Fprint(w, "  model:       ")
	_, _ = fmt.Fprintln(w, result.Manifest.ModelID)
	_, _ = label.Fprint(w, "  records:     ")
	_, _ = fmt.Fprintf(w, "%d (embedded %d, reused %d)\n", result.Manifest.Count, result.Embedded, result.Reused)
	_, _ = label.Fprint(w, "  dimension:   ")
	_, _ = fmt.Fprintln(w, result.Manifest.Dim)
	_, _ = label.Fprint(w, "  fingerprint: ")
	_, _ = fmt.Fprintln(w, result.Manifest.Fingerprint)
	_, _ = label.Fprint(w, "  built at:    ")
	_, _ = fmt.Fprintln(w, result.Manifest.BuiltAt.Format(time.RFC3339))

	if len(result.LoadErrors) > 0 {
		_, _ = color.New(color.FgYellow).Fprintf(w, "  %d rows skipped while loading the corpus\n", len(result.LoadErrors))
	}
}
