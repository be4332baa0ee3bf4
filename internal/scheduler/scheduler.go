package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Default job settings
const (
	DefaultReplenishInterval = time.Hour
	DefaultReminderHour      = 18
)

// Config controls the background jobs
type Config struct {
	ReplenishInterval time.Duration `mapstructure:"replenish_interval"`
	// ReminderHour is the UTC hour of the daily reminder, -1 disables it
	ReminderHour int `mapstructure:"reminder_hour"`
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, count int) error
}

// Replenisher refills the learning pool
type Replenisher interface {
	Run(ctx context.Context) ([]string, error)
}

// Counter returns the number of items currently in learning
type Counter func(ctx context.Context) (int, error)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler   *gocron.Scheduler
	cfg         Config
	replenisher Replenisher
	count       Counter
	notifier    Notifier
	log         logrus.FieldLogger
	stopOnce    sync.Once
}

// New creates a new scheduler instance. A nil notifier disables reminders.
func New(cfg Config, replenisher Replenisher, count Counter, notifier Notifier, log logrus.FieldLogger) *Scheduler {
	if cfg.ReplenishInterval <= 0 {
		cfg.ReplenishInterval = DefaultReplenishInterval
	}
	if cfg.ReminderHour > 23 {
		cfg.ReminderHour = DefaultReminderHour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:   s,
		cfg:         cfg,
		replenisher: replenisher,
		count:       count,
		notifier:    notifier,
		log:         log.WithField("component", "scheduler"),
	}
}

// Start registers the jobs and runs them in the background until ctx is
// done or Stop is called. Replenishment also runs once right away.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.scheduler.Every(s.cfg.ReplenishInterval).Do(s.RunReplenish, ctx); err != nil {
		return errors.Wrap(err, "failed to schedule replenishment")
	}

	if s.notifier != nil && s.cfg.ReminderHour >= 0 {
		at := fmt.Sprintf("%02d:00", s.cfg.ReminderHour)
		if _, err := s.scheduler.Every(1).Day().At(at).Do(s.RunReminder, ctx); err != nil {
			return errors.Wrap(err, "failed to schedule reminder")
		}
	}

	s.scheduler.StartAsync()
	s.log.WithField("jobs", len(s.scheduler.Jobs())).Info("scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		s.log.Info("scheduler stopped")
	})
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// RunReplenish refills the learning pool once
func (s *Scheduler) RunReplenish(ctx context.Context) {
	defer s.recover("replenish")
	if ctx.Err() != nil {
		return
	}
	ids, err := s.replenisher.Run(ctx)
	if err != nil {
		s.log.WithError(err).Error("replenishment failed")
		return
	}
	if len(ids) > 0 {
		s.log.WithField("activated", len(ids)).Info("replenishment activated items")
	}
}

// RunReminder sends the practice reminder if anything is in learning
func (s *Scheduler) RunReminder(ctx context.Context) {
	defer s.recover("reminder")
	if ctx.Err() != nil || s.notifier == nil {
		return
	}
	count, err := s.count(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to count items in learning")
		return
	}
	if count == 0 {
		s.log.Debug("nothing in learning, skipping reminder")
		return
	}
	if err := s.notifier.SendReminder(ctx, count); err != nil {
		s.log.WithError(err).Error("failed to send reminder")
	}
}

func (s *Scheduler) recover(job string) {
	if r := recover(); r != nil {
		s.log.WithField("job", job).Errorf("job panicked: %v", r)
	}
}
