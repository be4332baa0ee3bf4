package backup

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/example/vocabulario/pkg/models"
)

// Version of the backup document written by Export
const Version = 2

// ErrUnsupportedVersion is returned for documents newer than Version
var ErrUnsupportedVersion = errors.New("unsupported backup version")

// Document is the JSON layout of a backup. Settings never carry the API key.
type Document struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Items      []models.Item    `json:"items"`
	Settings   *models.Settings `json:"settings,omitempty"`
}

// ItemStore is the part of the item repository a backup needs
type ItemStore interface {
	ListAll(ctx context.Context) ([]models.Item, error)
	Put(ctx context.Context, item *models.Item) error
	Clear(ctx context.Context) error
}

// SettingsStore loads and saves learning settings
type SettingsStore interface {
	Load(ctx context.Context, defaults models.Settings) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

// Result holds the outcome of an import
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Service exports and restores the whole collection
type Service struct {
	items    ItemStore
	settings SettingsStore
	defaults models.Settings
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a backup service. defaults are used for settings
// that were never stored.
func NewService(items ItemStore, settings SettingsStore, defaults models.Settings, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		items:    items,
		settings: settings,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}
}

// Export writes every item and the current settings as indented JSON
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	items, err := s.items.ListAll(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load items")
	}
	settings, err := s.settings.Load(ctx, s.defaults)
	if err != nil {
		return errors.Wrap(err, "failed to load settings")
	}

	doc := Document{
		Version:    Version,
		ExportedAt: s.now().UTC(),
		Items:      items,
		Settings:   &settings,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(doc), "failed to encode backup")
}

// Import restores a backup. Items whose id already exists are skipped, as
// are forms whose verb is missing. Verbs are written before their forms.
// Imported settings replace the stored ones.
func (s *Service) Import(ctx context.Context, r io.Reader, clearExisting bool) (Result, error) {
	var result Result

	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return result, errors.Wrap(err, "failed to decode backup")
	}
	if doc.Version > Version {
		return result, errors.Wrapf(ErrUnsupportedVersion, "version %d", doc.Version)
	}

	if clearExisting {
		if err := s.items.Clear(ctx); err != nil {
			return result, errors.Wrap(err, "failed to clear items")
		}
	}

	existing, err := s.items.ListAll(ctx)
	if err != nil {
		return result, errors.Wrap(err, "failed to load items")
	}
	known := lo.SliceToMap(existing, func(item models.Item) (string, bool) {
		return item.ID, true
	})

	items := append([]models.Item(nil), doc.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return !items[i].IsForm() && items[j].IsForm()
	})

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if known[item.ID] {
			result.Skipped++
			continue
		}
		if err := s.items.Put(ctx, item); err != nil {
			s.log.WithError(err).WithField("item_id", item.ID).Warn("skipping item")
			result.Skipped++
			continue
		}
		known[item.ID] = true
		result.Imported++
	}

	if doc.Settings != nil {
		if err := s.settings.Save(ctx, doc.Settings.Normalize()); err != nil {
			return result, errors.Wrap(err, "failed to save settings")
		}
	}

	s.log.WithFields(logrus.Fields{
		"imported": result.Imported,
		"skipped":  result.Skipped,
	}).Info("backup restored")
	return result, nil
}
