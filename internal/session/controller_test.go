package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabulario/pkg/models"
)

type memRepo struct {
	mu      sync.Mutex
	items   map[string]models.Item
	order   []string
	putErr  error
	getErr  error
	puts    int
	listErr error
}

func newMemRepo(items ...models.Item) *memRepo {
	r := &memRepo{items: map[string]models.Item{}}
	for _, item := range items {
		r.items[item.ID] = item
		r.order = append(r.order, item.ID)
	}
	return r
}

func (r *memRepo) ListAll(context.Context) ([]models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Item, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s not found", id)
	}
	return &item, nil
}

func (r *memRepo) Put(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.items[item.ID] = *item
	r.puts++
	return nil
}

func (r *memRepo) level(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].Level
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func word(id string, level int) models.Item {
	return models.Item{
		ID:              id,
		Kind:            models.KindAdjective,
		SourceText:      "pl-" + id,
		TargetText:      id,
		ExampleSentence: "Es muy " + id + ".",
		Level:           level,
		InLearning:      true,
	}
}

func newController(repo Repository, cfg Config, opts ...Option) *Controller {
	opts = append([]Option{WithLogger(quietLogger()), WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return New(repo, cfg, opts...)
}

func TestController_EmptySessionCompletesImmediately(t *testing.T) {
	dormant := word("dormant", 3)
	dormant.InLearning = false
	c := newController(newMemRepo(dormant), Config{RequiredStreak: 2})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, PhaseComplete, c.Phase())
	v := c.View()
	assert.Equal(t, 0, v.Total)
	assert.Equal(t, 0.0, v.Progress())
}

func TestController_StartFailure(t *testing.T) {
	repo := newMemRepo(word("a", 1))
	repo.listErr = errors.New("disk gone")
	c := newController(repo, Config{})

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseLoading, c.Phase())
}

func TestController_FirstItemIntroForNewItems(t *testing.T) {
	c := newController(newMemRepo(word("nuevo", 0)), Config{RequiredStreak: 2})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, PhaseIntro, c.Phase())

	_, err := c.Submit(context.Background(), "nuevo")
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, c.AcknowledgeIntro())
	v := c.View()
	assert.Equal(t, PhaseQuestion, v.Phase)
	assert.True(t, v.State.IntroShown)
	assert.Equal(t, "Es muy _____.", v.Question.Sentence)
}

func TestController_KnownItemSkipsIntro(t *testing.T) {
	c := newController(newMemRepo(word("viejo", 4)), Config{RequiredStreak: 2})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, PhaseQuestion, c.Phase())
}

func TestController_IntroShownOncePerSession(t *testing.T) {
	repo := newMemRepo(word("nuevo", 0))
	c := newController(repo, Config{RequiredStreak: 2})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.AcknowledgeIntro())

	_, err := c.Submit(ctx, "mal")
	require.NoError(t, err)
	require.NoError(t, c.Advance())

	// still level 0 but the intro was already shown
	assert.Equal(t, PhaseQuestion, c.Phase())
}

// Scripted answers per item; every item is answered in session order.
func TestController_EndToEnd(t *testing.T) {
	repo := newMemRepo(word("alto", 3), word("bajo", 3), word("claro", 3))
	c := newController(repo, Config{RequiredStreak: 2})
	ctx := context.Background()

	script := map[string][]bool{
		"alto":  {true, true},
		"bajo":  {false, true, true},
		"claro": {true, true},
	}
	answered := map[string]int{}

	require.NoError(t, c.Start(ctx))
	for steps := 0; c.Phase() != PhaseComplete; steps++ {
		require.Less(t, steps, 50, "session did not terminate")
		v := c.View()
		require.Equal(t, PhaseQuestion, v.Phase)

		id := v.Item.ID
		plan := script[id]
		require.Less(t, answered[id], len(plan), "item %s asked too often", id)
		answer := "wrong"
		if plan[answered[id]] {
			answer = v.Question.Answer
		}
		answered[id]++

		res, err := c.Submit(ctx, answer)
		require.NoError(t, err)
		assert.Equal(t, plan[answered[id]-1], res.Correct)
		require.NoError(t, c.Advance())
	}

	assert.Equal(t, map[string]int{"alto": 2, "bajo": 3, "claro": 2}, answered)
	v := c.View()
	assert.Equal(t, 3, v.Completed)
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, 1.0, v.Progress())

	for id := range script {
		st, ok := c.State(id)
		require.True(t, ok)
		assert.GreaterOrEqual(t, st.Streak, 2)
	}

	// the streak-2 answer promotes once; bajo's first wrong answer demotes once
	assert.Equal(t, 4, repo.level("alto"))
	assert.Equal(t, 3, repo.level("bajo"))
	assert.Equal(t, 4, repo.level("claro"))

	sum := c.Summary()
	assert.Equal(t, 3, sum.Items)
	assert.Equal(t, 3, sum.Completed)
	assert.Equal(t, 7, sum.Answers)
	assert.Equal(t, 6, sum.Correct)
}

func TestController_CyclesToNextIncomplete(t *testing.T) {
	repo := newMemRepo(word("a", 5), word("b", 5))
	c := newController(repo, Config{RequiredStreak: 1})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	first := c.View().Item.ID
	_, err := c.Submit(ctx, "wrong")
	require.NoError(t, err)
	require.NoError(t, c.Advance())

	second := c.View().Item.ID
	assert.NotEqual(t, first, second)
	_, err = c.Submit(ctx, c.View().Question.Answer)
	require.NoError(t, err)
	require.NoError(t, c.Advance())

	// only the first item is left, wrapping around
	assert.Equal(t, first, c.View().Item.ID)
	_, err = c.Submit(ctx, c.View().Question.Answer)
	require.NoError(t, err)
	require.NoError(t, c.Advance())
	assert.Equal(t, PhaseComplete, c.Phase())

	assert.ErrorIs(t, c.Advance(), ErrWrongPhase)
}

func TestController_LevelPersistence(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	item := word("fuerte", 10)
	repo := newMemRepo(item)

	c := newController(repo, Config{RequiredStreak: 2})
	c.levels.Now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	res, err := c.Submit(ctx, "fuerte")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, res.Streak)
	assert.False(t, res.LevelChanged)
	assert.Equal(t, 0, repo.puts, "unchanged level is not rewritten")
	require.NoError(t, c.Advance())

	res, err = c.Submit(ctx, "FUERTE ")
	require.NoError(t, err)
	assert.True(t, res.LevelChanged)
	assert.True(t, res.Completed)
	assert.Equal(t, 11, res.Level)
	assert.Equal(t, 11, repo.level("fuerte"))

	stored, _ := repo.Get(ctx, "fuerte")
	require.NotNil(t, stored.LastLevelChangeAt)
	assert.Equal(t, now, *stored.LastLevelChangeAt)
}

func TestController_SaveFailureKeepsSessionGoing(t *testing.T) {
	repo := newMemRepo(word("roto", 7))
	repo.putErr = errors.New("database is locked")
	c := newController(repo, Config{RequiredStreak: 1})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	res, err := c.Submit(ctx, "roto")
	require.NoError(t, err)
	require.Error(t, res.SaveErr)
	assert.True(t, res.Correct)
	assert.Equal(t, 8, res.Level, "in-memory level follows the answer")
	assert.Equal(t, PhaseFeedback, c.Phase())

	st, _ := c.State("roto")
	assert.Equal(t, 1, st.Streak)

	require.NoError(t, c.Advance())
	assert.Equal(t, PhaseComplete, c.Phase())
}

func TestController_DeletedItemReported(t *testing.T) {
	repo := newMemRepo(word("perdido", 7))
	c := newController(repo, Config{RequiredStreak: 2})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	repo.getErr = errors.New("not found")
	res, err := c.Submit(ctx, "mal")
	require.NoError(t, err)
	assert.Error(t, res.SaveErr)
	assert.Equal(t, 6, res.Level)
}

func TestController_VerbFormOptions(t *testing.T) {
	verb := models.Item{ID: "v", Kind: models.KindVerb, SourceText: "mówić", TargetText: "hablar", InLearning: true}
	form := func(id, text string, person int, learning bool) models.Item {
		return models.Item{
			ID: id, Kind: models.KindVerbForm, VerbID: "v", SourceText: "mówić",
			TargetText: text, Tense: models.TensePresent, Person: person,
			ExampleSentence: "Yo " + text + " español.", Level: 2, InLearning: learning,
		}
	}
	repo := newMemRepo(verb,
		form("f1", "hablo", 1, true),
		form("f2", "hablas", 2, false),
		form("f3", "habla", 3, false),
	)
	c := newController(repo, Config{RequiredStreak: 2})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	v := c.View()
	require.Equal(t, 1, v.Total, "only the in-learning form is drawn")
	assert.Equal(t, "f1", v.Item.ID)
	assert.ElementsMatch(t, []string{"hablo", "hablas", "habla"}, v.Question.Options)

	res, err := c.Submit(ctx, "hablas")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "hablo", res.Expected)
}

func TestController_IntroTimer(t *testing.T) {
	var mu sync.Mutex
	var phases []Phase
	c := newController(newMemRepo(word("nuevo", 0)), Config{RequiredStreak: 2, IntroDwell: 10 * time.Millisecond},
		WithOnChange(func(v View) {
			mu.Lock()
			phases = append(phases, v.Phase)
			mu.Unlock()
		}))
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, PhaseIntro, c.Phase())

	assert.Eventually(t, func() bool { return c.Phase() == PhaseQuestion }, time.Second, 5*time.Millisecond)
	st, _ := c.State("nuevo")
	assert.True(t, st.IntroShown)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseIntro, PhaseQuestion}, phases)
}

func TestController_FeedbackTimer(t *testing.T) {
	c := newController(newMemRepo(word("a", 5), word("b", 5)), Config{
		RequiredStreak:  2,
		FeedbackCorrect: 10 * time.Millisecond,
		FeedbackWrong:   10 * time.Millisecond,
	})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	first := c.View().Item.ID

	_, err := c.Submit(ctx, "wrong")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return c.Phase() == PhaseQuestion }, time.Second, 5*time.Millisecond)
	assert.NotEqual(t, first, c.View().Item.ID)
}

func TestController_ManualAdvanceCancelsTimer(t *testing.T) {
	c := newController(newMemRepo(word("a", 5), word("b", 5), word("c", 5)), Config{
		RequiredStreak: 2,
		FeedbackWrong:  40 * time.Millisecond,
	})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	_, err := c.Submit(ctx, "wrong")
	require.NoError(t, err)
	require.NoError(t, c.Advance())
	current := c.View().Item.ID

	time.Sleep(100 * time.Millisecond)
	v := c.View()
	assert.Equal(t, PhaseQuestion, v.Phase)
	assert.Equal(t, current, v.Item.ID, "stale timer must not advance again")
}

func TestController_CloseCancelsTimers(t *testing.T) {
	c := newController(newMemRepo(word("nuevo", 0)), Config{IntroDwell: 20 * time.Millisecond})
	require.NoError(t, c.Start(context.Background()))
	c.Close()
	c.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, PhaseIntro, c.Phase())
	assert.ErrorIs(t, c.AcknowledgeIntro(), ErrClosed)
}

func TestController_PoolSize(t *testing.T) {
	var items []models.Item
	for i := 0; i < 10; i++ {
		items = append(items, word(fmt.Sprintf("w%d", i), 1))
	}
	c := newController(newMemRepo(items...), Config{PoolSize: 4, RequiredStreak: 2})
	require.NoError(t, c.Start(context.Background()))
	assert.Len(t, c.Items(), 4)
	assert.Equal(t, 4, c.View().Total)
}

func TestController_DemotedItemGetsNoIntro(t *testing.T) {
	repo := newMemRepo(word("lento", 1))
	c := newController(repo, Config{RequiredStreak: 2})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, PhaseQuestion, c.Phase())

	res, err := c.Submit(ctx, "wrong")
	require.NoError(t, err)
	assert.True(t, res.LevelChanged)
	assert.Equal(t, 0, res.Level)
	assert.Equal(t, 0, repo.level("lento"))

	require.NoError(t, c.Advance())
	v := c.View()
	assert.Equal(t, PhaseQuestion, v.Phase)
	assert.Equal(t, "lento", v.Item.ID)
	assert.Equal(t, 0, v.Item.Level)
	assert.Equal(t, 1, v.State.StartLevel)
}

func TestController_AccentRuleUsesStartLevel(t *testing.T) {
	cafe := word("café", 50)
	repo := newMemRepo(cafe)
	c := newController(repo, Config{RequiredStreak: 2})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	res, err := c.Submit(ctx, "wrong")
	require.NoError(t, err)
	require.Equal(t, 49, res.Level)
	require.NoError(t, c.Advance())

	res, err = c.Submit(ctx, "cafe")
	require.NoError(t, err)
	assert.False(t, res.Correct, "diacritics stay required for the rest of the session")
}
