package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/example/vocabulario/internal/quiz"
	"github.com/example/vocabulario/internal/spaced_repetition"
	"github.com/example/vocabulario/pkg/models"
)

var (
	// ErrWrongPhase is returned when an action does not fit the current phase
	ErrWrongPhase = errors.New("session: action not allowed in current phase")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("session: closed")
)

// Repository is the part of the item store a session needs
type Repository interface {
	ListAll(ctx context.Context) ([]models.Item, error)
	Get(ctx context.Context, id string) (*models.Item, error)
	Put(ctx context.Context, item *models.Item) error
}

// Config controls one session
type Config struct {
	PoolSize       int
	RequiredStreak int
	// IntroDwell auto-advances the intro card. Zero waits for AcknowledgeIntro.
	IntroDwell time.Duration
	// Feedback auto-dismiss delays. Zero waits for Advance.
	FeedbackCorrect time.Duration
	FeedbackWrong   time.Duration
}

// ConfigFromSettings builds a Config from stored learning settings
func ConfigFromSettings(s models.Settings) Config {
	s = s.Normalize()
	return Config{PoolSize: s.PoolSize, RequiredStreak: s.RequiredStreak}
}

// ItemState is the per-session, never persisted state of one item
type ItemState struct {
	Streak     int
	IntroShown bool
	// StartLevel is the level the item had when the session was built.
	// Intro and answer checking use it even after the stored level moves.
	StartLevel int
}

// Result describes the outcome of one answer
type Result struct {
	ItemID       string
	Answer       string
	Expected     string
	Correct      bool
	Streak       int
	Completed    bool
	Level        int
	LevelChanged bool
	// SaveErr is set when the new level could not be persisted.
	// The session carries on with its in-memory state.
	SaveErr error
}

// View is a snapshot of the session for rendering
type View struct {
	Phase     Phase
	Item      models.Item
	Question  quiz.Question
	State     ItemState
	Result    *Result
	Completed int
	Total     int
}

// Progress is the completed share of the session in [0, 1]
func (v View) Progress() float64 {
	if v.Total == 0 {
		return 0
	}
	return float64(v.Completed) / float64(v.Total)
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = log }
}

// WithRand sets the random source used for selection and options
func WithRand(rnd *rand.Rand) Option {
	return func(c *Controller) { c.rnd = rnd }
}

// WithLevelModel replaces the level model
func WithLevelModel(m *spaced_repetition.LevelModel) Option {
	return func(c *Controller) { c.levels = m }
}

// WithOnChange registers a hook called after every transition,
// including the ones fired by timers. It runs without the lock held.
func WithOnChange(fn func(View)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithClock sets the clock used for the session summary
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives one practice session.
// All transitions happen under mu; timers re-enter through fire.
type Controller struct {
	mu sync.Mutex

	repo     Repository
	cfg      Config
	log      logrus.FieldLogger
	rnd      *rand.Rand
	levels   *spaced_repetition.LevelModel
	selector *spaced_repetition.Selector
	onChange func(View)
	now      func() time.Time

	items    []models.Item
	states   map[string]*ItemState
	forms    map[string][]models.Item
	current  int
	phase    Phase
	question quiz.Question
	result   *Result

	timer      *time.Timer
	generation uint64
	closed     bool

	answers    int
	correct    int
	startedAt  time.Time
	finishedAt time.Time
}

// New creates a controller in the Loading phase
func New(repo Repository, cfg Config, opts ...Option) *Controller {
	def := models.DefaultSettings()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.RequiredStreak <= 0 {
		cfg.RequiredStreak = def.RequiredStreak
	}

	c := &Controller{
		repo:   repo,
		cfg:    cfg,
		log:    logrus.StandardLogger(),
		levels: spaced_repetition.NewLevelModel(),
		now:    time.Now,
		states: make(map[string]*ItemState),
		forms:  make(map[string][]models.Item),
		phase:  PhaseLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.selector = spaced_repetition.NewSelector(c.rnd)
	return c
}

// Start selects the session items and enters the first phase.
// An empty selection completes the session immediately.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if err := c.check(PhaseLoading); err != nil {
		c.mu.Unlock()
		return err
	}

	all, err := c.repo.ListAll(ctx)
	if err != nil {
		c.mu.Unlock()
		return errors.Wrap(err, "load items")
	}

	c.items = c.selector.Select(all, c.cfg.PoolSize)
	c.forms = lo.GroupBy(lo.Filter(all, func(item models.Item, _ int) bool {
		return item.IsForm()
	}), func(item models.Item) string {
		return item.VerbID
	})
	for _, item := range c.items {
		c.states[item.ID] = &ItemState{StartLevel: item.Level}
	}
	c.startedAt = c.now()

	c.log.WithFields(logrus.Fields{
		"items":     len(c.items),
		"available": len(all),
	}).Info("session started")

	if len(c.items) == 0 {
		c.finish()
	} else {
		c.current = 0
		c.enterCurrent()
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// AcknowledgeIntro leaves the intro card for the question
func (c *Controller) AcknowledgeIntro() error {
	c.mu.Lock()
	if err := c.check(PhaseIntro); err != nil {
		c.mu.Unlock()
		return err
	}
	c.cancelTimer()
	c.leaveIntro()
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// Submit judges an answer to the current question, updates the streak,
// persists the new level and enters Feedback.
func (c *Controller) Submit(ctx context.Context, answer string) (Result, error) {
	c.mu.Lock()
	if err := c.check(PhaseQuestion); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}

	item := &c.items[c.current]
	state := c.states[item.ID]
	judged := *item
	judged.Level = state.StartLevel
	correct := c.question.Check(answer, judged)
	if correct {
		state.Streak++
		c.correct++
	} else {
		state.Streak = 0
	}
	c.answers++

	changed, saveErr := c.persist(ctx, item, correct, state.Streak)
	if saveErr != nil {
		c.log.WithError(saveErr).WithField("item_id", item.ID).Warn("failed to save level")
	}

	result := Result{
		ItemID:       item.ID,
		Answer:       answer,
		Expected:     c.question.Answer,
		Correct:      correct,
		Streak:       state.Streak,
		Completed:    state.Streak >= c.cfg.RequiredStreak,
		Level:        item.Level,
		LevelChanged: changed,
		SaveErr:      saveErr,
	}
	c.result = &result
	c.phase = PhaseFeedback

	delay := c.cfg.FeedbackWrong
	if correct {
		delay = c.cfg.FeedbackCorrect
	}
	if delay > 0 {
		c.schedule(delay, c.advance)
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return result, nil
}

// Advance leaves Feedback for the next incomplete item or completes the session
func (c *Controller) Advance() error {
	c.mu.Lock()
	if err := c.check(PhaseFeedback); err != nil {
		c.mu.Unlock()
		return err
	}
	c.cancelTimer()
	c.advance()
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// Close cancels pending timers. Further actions return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelTimer()
}

// Phase returns the current phase
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// View returns a snapshot of the session
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// State returns the session state of one item
func (c *Controller) State(itemID string) (ItemState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[itemID]
	if !ok {
		return ItemState{}, false
	}
	return *st, true
}

// Items returns the session items in session order
func (c *Controller) Items() []models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Item(nil), c.items...)
}

// Summary returns the session outcome for recording
func (c *Controller) Summary() models.SessionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	finished := c.finishedAt
	if finished.IsZero() {
		finished = c.now()
	}
	return models.SessionResult{
		Items:      len(c.items),
		Completed:  c.completedLocked(),
		Answers:    c.answers,
		Correct:    c.correct,
		StartedAt:  c.startedAt,
		FinishedAt: finished,
	}
}

func (c *Controller) check(want Phase) error {
	if c.closed {
		return ErrClosed
	}
	if c.phase != want {
		return errors.Wrapf(ErrWrongPhase, "in %s, want %s", c.phase, want)
	}
	return nil
}

// enterCurrent shows the intro for unseen new items, the question otherwise
func (c *Controller) enterCurrent() {
	item := c.items[c.current]
	if c.needsIntro(item) {
		c.phase = PhaseIntro
		c.result = nil
		if c.cfg.IntroDwell > 0 {
			c.schedule(c.cfg.IntroDwell, c.leaveIntro)
		}
		return
	}
	c.prepareQuestion(item)
	c.phase = PhaseQuestion
}

func (c *Controller) needsIntro(item models.Item) bool {
	st := c.states[item.ID]
	return st != nil && st.StartLevel == 0 && !st.IntroShown
}

func (c *Controller) leaveIntro() {
	item := c.items[c.current]
	c.states[item.ID].IntroShown = true
	c.prepareQuestion(item)
	c.phase = PhaseQuestion
}

func (c *Controller) prepareQuestion(item models.Item) {
	q := quiz.BuildQuestion(item)
	if item.IsForm() {
		q.Options = quiz.VerbOptions(item, c.forms[item.VerbID], c.rnd)
	}
	c.question = q
	c.result = nil
}

// advance moves to the next item, scanning cyclically from the current one
func (c *Controller) advance() {
	n := len(c.items)
	for step := 1; step <= n; step++ {
		idx := (c.current + step) % n
		if c.states[c.items[idx].ID].Streak < c.cfg.RequiredStreak {
			c.current = idx
			c.enterCurrent()
			return
		}
	}
	c.finish()
}

func (c *Controller) finish() {
	c.cancelTimer()
	c.phase = PhaseComplete
	c.finishedAt = c.now()
	c.log.WithFields(logrus.Fields{
		"items":   len(c.items),
		"answers": c.answers,
		"correct": c.correct,
	}).Info("session complete")
}

// persist applies the level model to a fresh copy of the item and writes it
// back in full. The in-memory item follows the outcome even if saving fails.
func (c *Controller) persist(ctx context.Context, item *models.Item, correct bool, streak int) (bool, error) {
	base := *item
	stored, loadErr := c.repo.Get(ctx, item.ID)
	if loadErr == nil {
		base = *stored
	}

	changed := c.levels.Apply(&base, correct, streak, c.cfg.RequiredStreak)
	item.Level = base.Level
	item.LastLevelChangeAt = base.LastLevelChangeAt

	if loadErr != nil {
		return changed, errors.Wrapf(loadErr, "load item %s", item.ID)
	}
	if !changed {
		return false, nil
	}
	if err := c.repo.Put(ctx, &base); err != nil {
		return changed, errors.Wrapf(err, "save item %s", item.ID)
	}
	return changed, nil
}

func (c *Controller) completedLocked() int {
	return lo.CountBy(c.items, func(item models.Item) bool {
		return c.states[item.ID].Streak >= c.cfg.RequiredStreak
	})
}

func (c *Controller) viewLocked() View {
	v := View{
		Phase:     c.phase,
		Completed: c.completedLocked(),
		Total:     len(c.items),
	}
	if c.phase == PhaseComplete || len(c.items) == 0 {
		return v
	}
	item := c.items[c.current]
	v.Item = item
	v.State = *c.states[item.ID]
	if c.phase == PhaseQuestion || c.phase == PhaseFeedback {
		v.Question = c.question
		v.Question.Options = append([]string(nil), c.question.Options...)
	}
	if c.result != nil {
		r := *c.result
		v.Result = &r
	}
	return v
}

func (c *Controller) notify(v View) {
	if c.onChange != nil {
		c.onChange(v)
	}
}
