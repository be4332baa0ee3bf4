package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/example/vocabulario/internal/session"
	"github.com/example/vocabulario/pkg/models"
)

// drillCmd runs a practice session in the terminal
var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Practise in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if _, err := app.replenisher().Run(ctx); err != nil {
			app.log.WithError(err).Warn("replenishment failed")
		}
		settings, err := app.learningSettings(ctx)
		if err != nil {
			return err
		}

		// answers are read synchronously, so no timers
		ctrl := session.New(app.items, session.ConfigFromSettings(settings), session.WithLogger(app.log))
		defer ctrl.Close()

		if err := drill(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}

		summary := ctrl.Summary()
		if summary.Items > 0 {
			if err := app.sessions.Create(ctx, &summary); err != nil {
				app.log.WithError(err).Warn("failed to record session")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(drillCmd)
}

// drill runs a session to completion reading answers line by line.
// It returns early without error when the input ends.
func drill(ctx context.Context, ctrl *session.Controller, in io.Reader, out io.Writer) error {
	if err := ctrl.Start(ctx); err != nil {
		return errors.Wrap(err, "start session")
	}

	scanner := bufio.NewScanner(in)
	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := ctrl.View()

		switch v.Phase {
		case session.PhaseComplete:
			if v.Total == 0 {
				fmt.Fprintln(out, "Nothing to practise. Add words with `vocabulario add` or `vocabulario import`.")
			} else {
				fmt.Fprintf(out, "\nSession complete: %d/%d items.\n", v.Completed, v.Total)
			}
			return nil

		case session.PhaseIntro:
			printIntro(out, v.Item)
			fmt.Fprint(out, "Press Enter to continue… ")
			if _, ok := readLine(); !ok {
				return interrupted(out)
			}
			if err := ctrl.AcknowledgeIntro(); err != nil {
				return err
			}

		case session.PhaseQuestion:
			printQuestion(out, v)
			line, ok := readLine()
			if !ok {
				return interrupted(out)
			}
			if _, err := ctrl.Submit(ctx, pickOption(line, v.Question.Options)); err != nil {
				return err
			}

		case session.PhaseFeedback:
			printFeedback(out, v.Result)
			if err := ctrl.Advance(); err != nil {
				return err
			}

		default:
			return errors.Errorf("unexpected phase %s", v.Phase)
		}
	}
}

// pickOption maps a 1-based option number to its text
func pickOption(line string, options []string) string {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return line
}

func interrupted(out io.Writer) error {
	fmt.Fprintln(out, "\nSession interrupted.")
	return nil
}

func printIntro(out io.Writer, item models.Item) {
	fmt.Fprintf(out, "\nNEW  %s → %s\n", item.SourceText, item.Expected())
	if item.IsForm() {
		fmt.Fprintf(out, "     %s, %s\n", item.Tense, models.PersonLabel(item.Person))
	}
	fmt.Fprintf(out, "     %s\n", item.ExampleSentence)
	if item.ExampleTranslation != "" {
		fmt.Fprintf(out, "     %s\n", item.ExampleTranslation)
	}
}

func printQuestion(out io.Writer, v session.View) {
	q := v.Question
	fmt.Fprintf(out, "\n[%d/%d] %s\n", v.Completed, v.Total, q.Prompt)
	fmt.Fprintf(out, "  %s\n", q.Sentence)
	if q.Hint != "" {
		fmt.Fprintf(out, "  %s\n", q.Hint)
	}
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(out, "> ")
}

func printFeedback(out io.Writer, r *session.Result) {
	if r == nil {
		return
	}
	if r.Correct {
		fmt.Fprintf(out, "Correct! (streak %d)\n", r.Streak)
	} else {
		fmt.Fprintf(out, "Wrong, the answer is %q\n", r.Expected)
	}
	if r.LevelChanged {
		fmt.Fprintf(out, "Level is now %d\n", r.Level)
	}
	if r.SaveErr != nil {
		fmt.Fprintf(out, "Warning: progress not saved: %v\n", r.SaveErr)
	}
}
