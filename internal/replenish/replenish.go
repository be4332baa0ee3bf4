package replenish

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/example/vocabulario/pkg/models"
)

// Plan is the outcome of one replenishment pass
type Plan struct {
	// Updates holds every record to write back, verbs before their forms
	Updates []models.Item
	// Activated lists the ids whose InLearning flipped to true
	Activated []string
}

// Empty reports whether nothing has to be written
func (p Plan) Empty() bool {
	return len(p.Updates) == 0
}

// Compute decides which items to pull into learning. A kind is refilled
// only when none of its items is in learning. Verbs are counted through
// their forms, and activating a verb resets all of its forms too.
// Verbs without forms are never picked. Candidates are taken in
// collection order.
func Compute(items []models.Item, settings models.Settings) Plan {
	settings = settings.Normalize()
	var plan Plan

	learning := lo.CountValuesBy(lo.Filter(items, func(item models.Item, _ int) bool {
		return item.InLearning
	}), func(item models.Item) models.Kind {
		return item.Kind
	})

	if learning[models.KindVerbForm] == 0 && settings.AutoAddVerbs > 0 {
		forms := lo.GroupBy(lo.Filter(items, func(item models.Item, _ int) bool {
			return item.IsForm()
		}), func(item models.Item) string {
			return item.VerbID
		})
		withForms := lo.Filter(items, func(item models.Item, _ int) bool {
			return item.Kind != models.KindVerb || len(forms[item.ID]) > 0
		})
		for _, verb := range candidates(withForms, models.KindVerb, settings.AutoAddVerbs) {
			plan.activate(verb)
			for _, form := range forms[verb.ID] {
				plan.activate(form)
			}
		}
	}

	for _, kind := range []models.Kind{models.KindAdjective, models.KindNoun} {
		n := settings.AutoAdd(kind)
		if learning[kind] > 0 || n <= 0 {
			continue
		}
		for _, item := range candidates(items, kind, n) {
			plan.activate(item)
		}
	}
	return plan
}

func candidates(items []models.Item, kind models.Kind, n int) []models.Item {
	available := lo.Filter(items, func(item models.Item, _ int) bool {
		return item.Kind == kind && !item.InLearning
	})
	if len(available) > n {
		available = available[:n]
	}
	return available
}

func (p *Plan) activate(item models.Item) {
	if !item.InLearning {
		p.Activated = append(p.Activated, item.ID)
	}
	item.ResetProgress()
	p.Updates = append(p.Updates, item)
}

// Repository is the part of the item store replenishment needs
type Repository interface {
	ListAll(ctx context.Context) ([]models.Item, error)
	Put(ctx context.Context, item *models.Item) error
}

// SettingsSource returns the current learning settings
type SettingsSource func(ctx context.Context) (models.Settings, error)

// Service runs replenishment against a repository
type Service struct {
	repo     Repository
	settings SettingsSource
	log      logrus.FieldLogger
}

// NewService creates a replenishment service
func NewService(repo Repository, settings SettingsSource, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{repo: repo, settings: settings, log: log}
}

// Run loads the collection, applies Compute and persists the result.
// It returns the activated ids and is a no-op when every kind has
// something in learning.
func (s *Service) Run(ctx context.Context) ([]string, error) {
	settings, err := s.settings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load items")
	}

	plan := Compute(items, settings)
	if plan.Empty() {
		return nil, nil
	}
	for i := range plan.Updates {
		if err := s.repo.Put(ctx, &plan.Updates[i]); err != nil {
			return nil, errors.Wrapf(err, "activate item %s", plan.Updates[i].ID)
		}
	}

	s.log.WithField("activated", len(plan.Activated)).Info("learning pool replenished")
	return plan.Activated, nil
}
