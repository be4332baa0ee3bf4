package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/example/vocabulario/internal/database"
	"github.com/example/vocabulario/pkg/models"
)

// statsCmd prints collection statistics and recent sessions
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		stats, err := app.stats.Collect(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "items: %d, in learning: %d\n", stats.Total, stats.InLearning)
		for _, kind := range []models.Kind{models.KindNoun, models.KindAdjective, models.KindVerbForm} {
			fmt.Fprintf(out, "  %-10s %d\n", kind, stats.ByKind[kind])
		}
		fmt.Fprintln(out, "levels:")
		for _, b := range stats.Levels {
			fmt.Fprintf(out, "  %-10s %d\n", b.Label, b.Count)
		}

		limit, _ := cmd.Flags().GetInt("sessions")
		recent, err := app.sessions.ListRecent(ctx, limit)
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			fmt.Fprintln(out, "recent sessions:")
		}
		for _, r := range recent {
			fmt.Fprintf(out, "  %s  %d/%d items  %d answers  %.0f%% correct  %s\n",
				r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Completed, r.Items, r.Answers,
				r.Accuracy()*100, r.Duration().Round(time.Second))
		}
		return nil
	},
}

// settingsCmd shows or changes a learning setting
var settingsCmd = &cobra.Command{
	Use:   "settings [key value]",
	Short: "Show or change learning settings",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return errors.Errorf("expected no arguments or <key> <value>, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var s models.Settings
		var err error
		if len(args) == 2 {
			value, convErr := strconv.Atoi(args[1])
			if convErr != nil {
				return errors.Wrapf(convErr, "invalid value %q", args[1])
			}
			s, err = app.settings.Set(ctx, app.cfg.Learning, args[0], value)
		} else {
			s, err = app.learningSettings(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		values := map[string]int{
			"pool_size":           s.PoolSize,
			"required_streak":     s.RequiredStreak,
			"auto_add_verbs":      s.AutoAddVerbs,
			"auto_add_adjectives": s.AutoAddAdjectives,
			"auto_add_nouns":      s.AutoAddNouns,
		}
		for _, key := range database.SettingKeys() {
			fmt.Fprintf(out, "%-20s %d\n", key, values[key])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, settingsCmd)
	statsCmd.Flags().Int("sessions", 5, "number of recent sessions to list")
}
