package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/example/vocabulario/internal/bot"
	"github.com/example/vocabulario/internal/scheduler"
)

// serveCmd runs the Telegram bot and the background jobs
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Telegram bot and the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		deps := bot.Deps{
			Items:       app.items,
			Settings:    app.settings,
			Results:     app.sessions,
			Stats:       app.stats,
			Replenisher: app.replenisher(),
			Defaults:    app.cfg.Learning,
			Timings:     app.cfg.SessionFor(app.cfg.Learning),
		}
		if gen, err := app.generator(); err == nil {
			deps.Generator = gen
		} else {
			app.log.WithError(err).Warn("word generation disabled")
		}

		b, err := bot.New(app.cfg.Telegram, deps, app.log)
		if err != nil {
			return err
		}

		count := func(ctx context.Context) (int, error) {
			stats, err := app.stats.Collect(ctx)
			if err != nil {
				return 0, err
			}
			return stats.InLearning, nil
		}
		sched := scheduler.New(app.cfg.Scheduler, app.replenisher(), count, b, app.log)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()

		errCh := make(chan error, 1)
		go func() { errCh <- b.Start(ctx) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			app.log.Infof("received signal: %s, shutting down", sig)
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return b.Stop(shutdownCtx)
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
