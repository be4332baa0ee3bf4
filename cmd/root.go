package cmd

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/vocabulario/internal/ai"
	"github.com/example/vocabulario/internal/config"
	"github.com/example/vocabulario/internal/database"
	"github.com/example/vocabulario/internal/replenish"
	"github.com/example/vocabulario/pkg/models"
)

var (
	cfgFile string
	envFile string
	app     *application
)

// application bundles what every command needs once configuration is loaded
type application struct {
	cfg      *config.Config
	log      *logrus.Logger
	items    *database.ItemRepository
	settings *database.SettingsRepository
	sessions *database.SessionRepository
	stats    *database.StatsRepository
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "vocabulario",
	Short:         "Vocabulary flashcards with spaced drilling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := database.Connect(cfg.Database); err != nil {
			return errors.Wrap(err, "db connect")
		}

		app = newApplication(cfg, logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return database.Close()
	},
}

func newApplication(cfg *config.Config, logger *logrus.Logger) *application {
	return &application{
		cfg:      cfg,
		log:      logger,
		items:    database.NewItemRepository(nil),
		settings: database.NewSettingsRepository(nil),
		sessions: database.NewSessionRepository(nil),
		stats:    database.NewStatsRepository(nil),
	}
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before the config")
}

// learningSettings returns the stored settings over the configured defaults
func (a *application) learningSettings(ctx context.Context) (models.Settings, error) {
	return a.settings.Load(ctx, a.cfg.Learning)
}

func (a *application) replenisher() *replenish.Service {
	return replenish.NewService(a.items, a.learningSettings, a.log)
}

func (a *application) generator() (*ai.Generator, error) {
	return ai.NewGenerator(a.cfg.OpenAI, a.log)
}
