package config

import (
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/example/vocabulario/internal/ai"
	"github.com/example/vocabulario/internal/bot"
	"github.com/example/vocabulario/internal/database"
	"github.com/example/vocabulario/internal/scheduler"
	"github.com/example/vocabulario/internal/session"
	"github.com/example/vocabulario/pkg/models"
)

// Config holds all configuration for the application
type Config struct {
	Database  database.Config  `mapstructure:"database"`
	Log       LogConfig        `mapstructure:"log"`
	OpenAI    ai.Config        `mapstructure:"openai"`
	Telegram  bot.Config       `mapstructure:"telegram"`
	Learning  models.Settings  `mapstructure:"learning"`
	Session   SessionConfig    `mapstructure:"session"`
	Scheduler scheduler.Config `mapstructure:"scheduler"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig holds the timings of a practice session
type SessionConfig struct {
	IntroDwell      time.Duration `mapstructure:"intro_dwell"`
	FeedbackCorrect time.Duration `mapstructure:"feedback_correct"`
	FeedbackWrong   time.Duration `mapstructure:"feedback_wrong"`
}

// SessionFor merges the session timings with the learning settings
func (c *Config) SessionFor(s models.Settings) session.Config {
	cfg := session.ConfigFromSettings(s)
	cfg.IntroDwell = c.Session.IntroDwell
	cfg.FeedbackCorrect = c.Session.FeedbackCorrect
	cfg.FeedbackWrong = c.Session.FeedbackWrong
	return cfg
}

// LoadEnv loads .env style files into the process environment.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "error loading %s", f)
		}
	}
	return nil
}

// Load reads configuration from an optional file and environment variables.
// An empty path looks for config.yaml in the working directory and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the token name the bot has always used
	if err := v.BindEnv("telegram.token", "TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "error binding environment")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}
	cfg.Learning = cfg.Learning.Normalize()
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	def := models.DefaultSettings()

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "data/vocabulario.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", ai.DefaultModel)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("learning.pool_size", def.PoolSize)
	v.SetDefault("learning.required_streak", def.RequiredStreak)
	v.SetDefault("learning.auto_add_verbs", def.AutoAddVerbs)
	v.SetDefault("learning.auto_add_adjectives", def.AutoAddAdjectives)
	v.SetDefault("learning.auto_add_nouns", def.AutoAddNouns)

	v.SetDefault("session.intro_dwell", "0s")
	v.SetDefault("session.feedback_correct", "1500ms")
	v.SetDefault("session.feedback_wrong", "2500ms")

	v.SetDefault("scheduler.replenish_interval", "1h")
	v.SetDefault("scheduler.reminder_hour", 18)
}

// NewLogger builds the application logger
func (c LogConfig) NewLogger(out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	level := c.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", c.Level)
	}
	logger.SetLevel(lvl)

	switch c.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format %q", c.Format)
	}
	return logger, nil
}
