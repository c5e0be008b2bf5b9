package cli

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/cli/config"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// ErrCorpusHasErrors is returned by "corpus check --strict" when rows were skipped
var ErrCorpusHasErrors = goerr.New("corpus has load errors")

func cmdCorpus() *cli.Command {
	return &cli.Command{
		Name:  "corpus",
		Usage: "Corpus inspection commands",
		Commands: []*cli.Command{
			cmdCorpusCheck(),
		},
	}
}

func cmdCorpusCheck() *cli.Command {
	var corpusCfg config.Corpus
	var strict bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "Exit with an error when any row or file is skipped",
			Destination: &strict,
		},
	}
	flags = append(flags, corpusCfg.Flags()...)

	return &cli.Command{
		Name:  "check",
		Usage: "Load the corpus and report skipped rows without embedding anything",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			loader, err := corpusCfg.Configure()
			if err != nil {
				return err
			}

			corpus, err := loader.Load(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to load corpus")
			}

			printCorpusReport(os.Stdout, corpus)

			if strict && len(corpus.Errors) > 0 {
				return goerr.Wrap(ErrCorpusHasErrors, "strict check failed", goerr.V("errors", len(corpus.Errors)))
			}
			return nil
		},
	}
}

func printCorpusReport(w io.Writer, corpus *model.Corpus) {
	warn := color.New(color.FgYellow)
	for _, e := range corpus.Errors {
		_, _ = warn.Fprintln(w, e.Error())
	}

	categories := corpus.Categories()
	summary := color.New(color.FgGreen, color.Bold)
	if len(corpus.Errors) > 0 {
		summary = color.New(color.FgYellow, color.Bold)
	}
	_, _ = summary.Fprintf(w, "%d records in %d categories, %d skipped\n",
		len(corpus.Records), len(categories), len(corpus.Errors))
}
