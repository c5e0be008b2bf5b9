package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdSearch() *cli.Command {
	var engineCfg engineConfig
	var k int

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "k",
			Aliases:     []string{"n"},
			Usage:       "Number of candidates to show; 0 uses the configured default",
			Destination: &k,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"q"},
		Usage:     "Ask a question against the corpus",
		ArgsUsage: "QUESTION",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("question is required")
			}

			eng, err := engineCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			uc := eng.searchUseCase()
			if err := uc.Warmup(ctx); err != nil {
				return goerr.Wrap(err, "failed to prepare index")
			}

			resp, err := uc.Search(ctx, query, k)
			if err != nil {
				return err
			}

			printSearchResponse(os.Stdout, resp)
			return nil
		},
	}
}

func printSearchResponse(w io.Writer, resp *model.SearchResponse) {
	if len(resp.Results) == 0 {
		_, _ = color.New(color.FgYellow).Fprintln(w, "No related answers found")
		return
	}

	if resp.Mode == model.SearchModeKeyword {
		_, _ = color.New(color.FgYellow).Fprintln(w, "(keyword fallback)")
	}

	for i, r := range resp.Results {
		_, _ = color.New(color.FgCyan, color.Bold).Fprintf(w, "%d. %s", i+1, r.Question)
		_, _ = color.New(color.FgHiBlack).Fprintf(w, "  [%s] %s score=%.3f\n", r.Category, r.ID, r.Score)
		for _, line := range strings.Split(r.Answer, "\n") {
			_, _ = fmt.Fprintf(w, "   %s\n", line)
		}
	}
}
