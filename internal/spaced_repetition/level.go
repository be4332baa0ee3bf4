package spaced_repetition

import (
	"time"

	"github.com/example/vocabulario/pkg/models"
)

// LevelChangeCooldown is the minimum time between two demotions of an item
const LevelChangeCooldown = 24 * time.Hour

// LevelModel implements mastery level transitions
type LevelModel struct {
	// Highest reachable level
	MaxLevel int
	// Minimum time since the last level change before a demotion
	Cooldown time.Duration
	// Clock, replaced in tests
	Now func() time.Time
}

// NewLevelModel creates a LevelModel with default settings
func NewLevelModel() *LevelModel {
	return &LevelModel{
		MaxLevel: models.MaxLevel,
		Cooldown: LevelChangeCooldown,
		Now:      time.Now,
	}
}

// Next computes the level after an answer.
//
// A correct answer promotes by one once the session streak has reached
// requiredStreak. A wrong answer demotes by one, at most once per cooldown
// window. The returned timestamp changes only when the level does.
func (m *LevelModel) Next(current int, correct bool, streak int, lastChange *time.Time, requiredStreak int) (int, *time.Time) {
	now := m.Now()
	level := clamp(current, 0, m.MaxLevel)

	if correct {
		if streak >= requiredStreak && level < m.MaxLevel {
			return level + 1, &now
		}
		return level, lastChange
	}

	if level > 0 && CanDecrease(lastChange, now, m.Cooldown) {
		return level - 1, &now
	}
	return level, lastChange
}

// CanDecrease reports whether the cooldown since lastChange has elapsed
func CanDecrease(lastChange *time.Time, now time.Time, cooldown time.Duration) bool {
	if lastChange == nil {
		return true
	}
	return now.Sub(*lastChange) >= cooldown
}

// Apply runs Next against an item and stores the outcome on it.
// It reports whether the level changed.
func (m *LevelModel) Apply(item *models.Item, correct bool, streak, requiredStreak int) bool {
	level, changedAt := m.Next(item.Level, correct, streak, item.LastLevelChangeAt, requiredStreak)
	changed := level != item.Level
	item.Level = level
	item.LastLevelChangeAt = changedAt
	return changed
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
