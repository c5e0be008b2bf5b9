package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/cli/config"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdFeedback() *cli.Command {
	return &cli.Command{
		Name:  "feedback",
		Usage: "Feedback inspection commands",
		Commands: []*cli.Command{
			cmdFeedbackList(),
		},
	}
}

func cmdFeedbackList() *cli.Command {
	var repoCfg config.Repository
	var answerID string
	var helpful string
	var limit int

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "answer-id",
			Usage:       "Only show feedback for this answer",
			Destination: &answerID,
		},
		&cli.StringFlag{
			Name:        "helpful",
			Usage:       "Only show feedback with this verdict (true or false)",
			Destination: &helpful,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of entries",
			Value:       usecase.DefaultFeedbackLimit,
			Destination: &limit,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "list",
		Usage: "List recorded feedback, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			filter := model.FeedbackFilter{
				AnswerID: model.RecordID(answerID),
				Limit:    limit,
			}
			switch helpful {
			case "":
			case "true", "yes", "1":
				v := true
				filter.Helpful = &v
			case "false", "no", "0":
				v := false
				filter.Helpful = &v
			default:
				return goerr.New("helpful must be true or false", goerr.V("helpful", helpful))
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			list, err := usecase.NewFeedbackUseCase(repo).List(ctx, filter)
			if err != nil {
				return err
			}

			printFeedback(os.Stdout, list)
			return nil
		},
	}
}

func printFeedback(w io.Writer, list []*model.Feedback) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No feedback")
		return
	}

	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)
	for _, f := range list {
		_, _ = dim.Fprintf(w, "%s ", f.CreatedAt.Local().Format(time.DateTime))
		if f.Helpful {
			_, _ = good.Fprint(w, "helpful    ")
		} else {
			_, _ = bad.Fprint(w, "not helpful")
		}
		_, _ = fmt.Fprintf(w, " %s", f.AnswerID)
		if f.Question != "" {
			_, _ = dim.Fprintf(w, " q=%q", f.Question)
		}
		if f.Comment != "" {
			_, _ = fmt.Fprintf(w, " %q", f.Comment)
		}
		_, _ = fmt.Fprintln(w)
	}
}
