package spaced_repetition

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabulario/pkg/models"
)

func learnable(id string, level int) models.Item {
	return models.Item{
		ID:              id,
		Kind:            models.KindNoun,
		TargetText:      id,
		ExampleSentence: "Tengo " + id + ".",
		Level:           level,
		InLearning:      true,
	}
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 1.0, Weight(0))
	assert.InDelta(t, 0.5, Weight(3), 1e-9)
	prev := Weight(0)
	for level := 1; level <= models.MaxLevel; level++ {
		w := Weight(level)
		assert.Less(t, w, prev)
		prev = w
	}
}

func TestSelector_Cardinality(t *testing.T) {
	var items []models.Item
	for i := 0; i < 30; i++ {
		items = append(items, learnable(fmt.Sprintf("w%d", i), i))
	}
	s := NewSelector(rand.New(rand.NewSource(1)))

	got := s.Select(items, 10)
	assert.Len(t, got, 10)

	seen := map[string]bool{}
	for _, item := range got {
		assert.False(t, seen[item.ID], "duplicate %s", item.ID)
		seen[item.ID] = true
	}
}

func TestSelector_Filtering(t *testing.T) {
	dormant := learnable("dormant", 0)
	dormant.InLearning = false
	noExample := learnable("bare", 0)
	noExample.ExampleSentence = "  "
	verb := learnable("hablar", 0)
	verb.Kind = models.KindVerb
	form := learnable("hablo", 0)
	form.Kind = models.KindVerbForm
	form.VerbID = verb.ID

	items := []models.Item{learnable("a", 0), dormant, noExample, verb, form, learnable("b", 40)}
	s := NewSelector(rand.New(rand.NewSource(7)))

	got := s.Select(items, 20)
	assert.ElementsMatch(t, []string{"a", "hablo", "b"}, ids(got))
}

func TestSelector_Empty(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))
	assert.Empty(t, s.Select(nil, 10))
	assert.Empty(t, s.Select([]models.Item{learnable("a", 0)}, 0))
}

func TestSelector_FewerThanPool(t *testing.T) {
	items := []models.Item{learnable("a", 0), learnable("b", 10), learnable("c", 100)}
	s := NewSelector(rand.New(rand.NewSource(3)))
	got := s.Select(items, 20)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(got))
}

func TestSelector_DoesNotMutateInput(t *testing.T) {
	items := []models.Item{learnable("a", 0), learnable("b", 1), learnable("c", 2), learnable("d", 3)}
	before := ids(items)
	s := NewSelector(rand.New(rand.NewSource(11)))
	s.Select(items, 2)
	assert.Equal(t, before, ids(items))
}

func TestSelector_WeightingTendency(t *testing.T) {
	weak := learnable("weak", 0)
	strong := learnable("strong", 50)
	filler := []models.Item{weak, strong}
	for i := 0; i < 8; i++ {
		filler = append(filler, learnable(fmt.Sprintf("f%d", i), 10))
	}

	s := NewSelector(rand.New(rand.NewSource(42)))
	counts := map[string]int{}
	for trial := 0; trial < 3000; trial++ {
		for _, item := range s.Select(filler, 3) {
			counts[item.ID]++
		}
	}

	require.Positive(t, counts["strong"], "strong items are not excluded")
	assert.Greater(t, counts["weak"], counts["strong"])
}

func TestSelector_OrderIsShuffled(t *testing.T) {
	var items []models.Item
	for i := 0; i < 10; i++ {
		items = append(items, learnable(fmt.Sprintf("w%d", i), 0))
	}
	s := NewSelector(rand.New(rand.NewSource(5)))

	orders := map[string]bool{}
	for trial := 0; trial < 20; trial++ {
		orders[fmt.Sprint(ids(s.Select(items, 10)))] = true
	}
	assert.Greater(t, len(orders), 1)
}
