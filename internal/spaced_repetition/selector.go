package spaced_repetition

import (
	"math"
	"math/rand"
	"time"

	"github.com/samber/lo"

	"github.com/example/vocabulario/pkg/models"
)

// Weight is the relative chance of an item being drawn into a session.
// It falls as the level grows, so weak items come up more often.
func Weight(level int) float64 {
	if level < 0 {
		level = 0
	}
	return 1 / math.Sqrt(float64(level)+1)
}

// Selector draws practice sessions from the collection
type Selector struct {
	rnd *rand.Rand
}

// NewSelector creates a selector. A nil rnd is seeded from the clock.
func NewSelector(rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rnd: rnd}
}

type weighted struct {
	item   models.Item
	weight float64
}

// Select picks up to poolSize selectable items by weighted sampling
// without replacement and returns them in random order.
func (s *Selector) Select(items []models.Item, poolSize int) []models.Item {
	eligible := lo.Filter(items, func(item models.Item, _ int) bool {
		return item.Selectable()
	})
	if poolSize <= 0 || len(eligible) == 0 {
		return []models.Item{}
	}

	available := lo.Map(eligible, func(item models.Item, _ int) weighted {
		return weighted{item: item, weight: Weight(item.Level)}
	})

	selected := make([]models.Item, 0, min(poolSize, len(available)))
	for len(selected) < poolSize && len(available) > 0 {
		idx := s.draw(available)
		selected = append(selected, available[idx].item)
		available = append(available[:idx], available[idx+1:]...)
	}

	s.rnd.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

// draw returns the index of one entry chosen proportionally to its weight
func (s *Selector) draw(available []weighted) int {
	var total float64
	for _, w := range available {
		total += w.weight
	}
	r := s.rnd.Float64() * total
	for i, w := range available {
		r -= w.weight
		if r <= 0 {
			return i
		}
	}
	// rounding left a sliver of weight unaccounted for
	return len(available) - 1
}
