package database

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabulario/pkg/models"
)

const (
	keyPoolSize          = "pool_size"
	keyRequiredStreak    = "required_streak"
	keyAutoAddVerbs      = "auto_add_verbs"
	keyAutoAddAdjectives = "auto_add_adjectives"
	keyAutoAddNouns      = "auto_add_nouns"
)

// SettingsRepository stores learning settings as key/value pairs
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new repository instance.
// A nil db uses the global connection.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) conn() *sqlx.DB {
	if r.db != nil {
		return r.db
	}
	return DB
}

// Load returns the stored settings. Keys that were never saved keep
// their value from defaults.
func (r *SettingsRepository) Load(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := r.conn().SelectContext(ctx, &rows, "SELECT key, value FROM settings"); err != nil {
		return defaults, errors.Wrap(err, "failed to load settings")
	}

	s := defaults
	fields := settingFields(&s)
	for _, row := range rows {
		dst, ok := fields[row.Key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(row.Value)
		if err != nil {
			return defaults, errors.Wrapf(err, "invalid value for setting %s", row.Key)
		}
		*dst = v
	}
	return s, nil
}

// Save stores every setting
func (r *SettingsRepository) Save(ctx context.Context, s models.Settings) error {
	db := r.conn()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`)
	for key, v := range settingFields(&s) {
		if _, err := tx.ExecContext(ctx, query, key, strconv.Itoa(*v)); err != nil {
			return errors.Wrapf(err, "failed to save setting %s", key)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit settings")
}

// SettingKeys lists the names accepted by Set
func SettingKeys() []string {
	return []string{keyPoolSize, keyRequiredStreak, keyAutoAddVerbs, keyAutoAddAdjectives, keyAutoAddNouns}
}

// Set changes one setting by name
func (r *SettingsRepository) Set(ctx context.Context, defaults models.Settings, key string, value int) (models.Settings, error) {
	s, err := r.Load(ctx, defaults)
	if err != nil {
		return s, err
	}
	dst, ok := settingFields(&s)[key]
	if !ok {
		return s, errors.Errorf("unknown setting %q", key)
	}
	if value < 0 {
		return s, errors.Errorf("setting %s must not be negative", key)
	}
	*dst = value
	return s, r.Save(ctx, s)
}

func settingFields(s *models.Settings) map[string]*int {
	return map[string]*int{
		keyPoolSize:          &s.PoolSize,
		keyRequiredStreak:    &s.RequiredStreak,
		keyAutoAddVerbs:      &s.AutoAddVerbs,
		keyAutoAddAdjectives: &s.AutoAddAdjectives,
		keyAutoAddNouns:      &s.AutoAddNouns,
	}
}
