package bot

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabulario/internal/database"
	"github.com/example/vocabulario/internal/replenish"
	"github.com/example/vocabulario/pkg/models"
)

const testChat int64 = 42

type fakeSender struct {
	mu        sync.Mutex
	msgs      []tgbotapi.MessageConfig
	callbacks int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.msgs = append(f.msgs, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.msgs)
	return f.msgs[len(f.msgs)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func callbacksOf(t *testing.T, m tgbotapi.MessageConfig) []string {
	t.Helper()
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "message has no inline keyboard")
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			data = append(data, *btn.CallbackData)
		}
	}
	return data
}

type fixture struct {
	bot     *Bot
	sender  *fakeSender
	items   *database.ItemRepository
	results *database.SessionRepository
}

func newFixture(t *testing.T, cfg Config, seed ...models.Item) fixture {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	items := database.NewItemRepository(db)
	settings := database.NewSettingsRepository(db)
	results := database.NewSessionRepository(db)
	require.NoError(t, items.PutAll(context.Background(), seed))

	defaults := models.DefaultSettings()
	deps := Deps{
		Items:    items,
		Settings: settings,
		Results:  results,
		Stats:    database.NewStatsRepository(db),
		Replenisher: replenish.NewService(items, func(ctx context.Context) (models.Settings, error) {
			return settings.Load(ctx, defaults)
		}, log),
		Defaults: defaults,
	}

	sender := &fakeSender{}
	return fixture{
		bot:     newBot(cfg, deps, sender, log),
		sender:  sender,
		items:   items,
		results: results,
	}
}

func command(chatID int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func text(chatID int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: s,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
	}}
}

func press(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func cat() models.Item {
	return models.Item{
		ID: "n1", Kind: models.KindNoun, SourceText: "kot", TargetText: "gato", Article: "el",
		ExampleSentence: "El gato duerme.", ExampleTranslation: "Kot śpi.", Level: 1, InLearning: true,
	}
}

func TestBot_FreeTextSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{}, cat())

	f.bot.handleUpdate(ctx, command(testChat, "/learn"))
	q := f.sender.last(t)
	assert.Equal(t, testChat, q.ChatID)
	assert.Contains(t, q.Text, "_____ duerme.")
	assert.Contains(t, q.Text, "Type your answer")

	f.bot.handleUpdate(ctx, text(testChat, "el gato"))
	assert.Contains(t, f.sender.last(t).Text, "✅ Correct!")
	assert.Contains(t, callbacksOf(t, f.sender.last(t)), callbackNext)

	f.bot.handleUpdate(ctx, press(testChat, callbackNext))
	assert.Contains(t, f.sender.last(t).Text, "_____")

	// the indefinite article is accepted too
	f.bot.handleUpdate(ctx, text(testChat, "un gato"))
	fb := f.sender.last(t).Text
	assert.Contains(t, fb, "✅ Correct!")
	assert.Contains(t, fb, "Level: 2")

	f.bot.handleUpdate(ctx, press(testChat, callbackNext))
	assert.Contains(t, f.sender.last(t).Text, "Session complete! 1/1")
	assert.Nil(t, f.bot.activeSession(testChat))

	stored, err := f.items.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Level)

	recent, err := f.results.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 1, recent[0].Items)
	assert.Equal(t, 2, recent[0].Answers)
	assert.Equal(t, 2, recent[0].Correct)
	assert.Equal(t, 2, f.sender.callbacks)
}

func TestBot_WrongAnswerShowsExpected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{}, cat())

	f.bot.handleUpdate(ctx, command(testChat, "/learn"))
	f.bot.handleUpdate(ctx, text(testChat, "perro"))
	assert.Contains(t, f.sender.last(t).Text, "Correct answer: el gato")

	// typing while feedback is shown
	f.bot.handleUpdate(ctx, text(testChat, "el gato"))
	assert.Contains(t, f.sender.last(t).Text, "use the buttons")
}

func TestBot_VerbOptions(t *testing.T) {
	ctx := context.Background()
	verb := models.Item{ID: "v1", Kind: models.KindVerb, SourceText: "mówić", TargetText: "hablar", InLearning: true}
	forms := []models.Item{
		{ID: "f1", Kind: models.KindVerbForm, VerbID: "v1", SourceText: "mówię", TargetText: "hablo",
			ExampleSentence: "Yo hablo español.", Tense: models.TensePresent, Person: 1, Level: 3, InLearning: true},
		{ID: "f2", Kind: models.KindVerbForm, VerbID: "v1", SourceText: "mówisz", TargetText: "hablas",
			ExampleSentence: "Tú hablas mucho.", Tense: models.TensePresent, Person: 2, Level: 3, InLearning: true},
		{ID: "f3", Kind: models.KindVerbForm, VerbID: "v1", SourceText: "mówi", TargetText: "habla",
			ExampleSentence: "Ella habla bien.", Tense: models.TensePresent, Person: 3, Level: 3, InLearning: true},
	}
	f := newFixture(t, Config{ChatID: testChat}, append([]models.Item{verb}, forms...)...)

	f.bot.handleUpdate(ctx, command(testChat, "/learn"))
	data := callbacksOf(t, f.sender.last(t))
	require.Len(t, data, 3)

	view := f.bot.activeSession(testChat).ctrl.View()
	answer := -1
	for i, opt := range view.Question.Options {
		if opt == view.Question.Answer {
			answer = i
		}
	}
	require.GreaterOrEqual(t, answer, 0)

	f.bot.handleUpdate(ctx, press(testChat, data[answer]))
	assert.Contains(t, f.sender.last(t).Text, "✅ Correct!")

	// out of range option is ignored
	n := f.sender.count()
	f.bot.handleUpdate(ctx, press(testChat, "opt:9"))
	assert.Equal(t, n, f.sender.count())
}

func TestBot_IntroAcknowledge(t *testing.T) {
	ctx := context.Background()
	fresh := cat()
	fresh.Level = 0
	f := newFixture(t, Config{}, fresh)

	f.bot.handleUpdate(ctx, command(testChat, "/learn"))
	intro := f.sender.last(t)
	assert.Contains(t, intro.Text, "kot → el gato")
	assert.Equal(t, []string{callbackIntro}, callbacksOf(t, intro))

	f.bot.handleUpdate(ctx, press(testChat, callbackIntro))
	assert.Contains(t, f.sender.last(t).Text, "_____")
}

func TestBot_EmptySession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	f.bot.handleUpdate(ctx, command(testChat, "/learn"))
	assert.Contains(t, f.sender.last(t).Text, "Nothing to practise")
	assert.Nil(t, f.bot.activeSession(testChat))

	recent, err := f.results.ListRecent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestBot_Stop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{}, cat())

	f.bot.handleUpdate(ctx, command(testChat, "/stop"))
	assert.Equal(t, "No session running.", f.sender.last(t).Text)

	f.bot.handleUpdate(ctx, command(testChat, "/learn"))
	f.bot.handleUpdate(ctx, command(testChat, "/stop"))
	assert.Contains(t, f.sender.last(t).Text, "Session stopped")
	assert.Nil(t, f.bot.activeSession(testChat))

	f.bot.handleUpdate(ctx, press(testChat, callbackNext))
	assert.Contains(t, f.sender.last(t).Text, "session has ended")
}

func TestBot_IgnoresOtherChats(t *testing.T) {
	f := newFixture(t, Config{ChatID: testChat}, cat())
	f.bot.handleUpdate(context.Background(), command(7, "/learn"))
	assert.Equal(t, 0, f.sender.count())
}

func TestBot_Settings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	f.bot.handleUpdate(ctx, command(testChat, "/set pool_size 8"))
	assert.Contains(t, f.sender.last(t).Text, "pool_size: 8")

	f.bot.handleUpdate(ctx, command(testChat, "/settings"))
	assert.Contains(t, f.sender.last(t).Text, "pool_size: 8")

	f.bot.handleUpdate(ctx, command(testChat, "/set pool_size many"))
	assert.Equal(t, "The value must be a number.", f.sender.last(t).Text)

	f.bot.handleUpdate(ctx, command(testChat, "/set colour 3"))
	assert.Contains(t, f.sender.last(t).Text, "unknown setting")
}

func TestBot_AddWithoutGenerator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	f.bot.handleUpdate(ctx, command(testChat, "/add noun"))
	assert.Contains(t, f.sender.last(t).Text, "Usage")

	f.bot.handleUpdate(ctx, command(testChat, "/add noun dom"))
	assert.Contains(t, f.sender.last(t).Text, "OpenAI API key")
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, word string, kind models.Kind) ([]models.Item, error) {
	return []models.Item{{
		ID: "g-" + word, Kind: kind, SourceText: word, TargetText: "casa", Article: "la",
		ExampleSentence: "La casa es grande.",
	}}, nil
}

func TestBot_Add(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.bot.deps.Generator = stubGenerator{}

	f.bot.handleUpdate(ctx, command(testChat, "/add noun dom"))
	assert.Equal(t, "✅ Added dom → la casa", f.sender.last(t).Text)

	item, err := f.items.Get(ctx, "g-dom")
	require.NoError(t, err)
	assert.False(t, item.InLearning)

	f.bot.handleUpdate(ctx, command(testChat, "/add noun dom"))
	assert.Contains(t, f.sender.last(t).Text, "already in your collection")
}

func TestBot_Stats(t *testing.T) {
	f := newFixture(t, Config{}, cat())
	f.bot.handleUpdate(context.Background(), command(testChat, "/stats"))
	msg := f.sender.last(t).Text
	assert.Contains(t, msg, "Items: 1 (in learning: 1)")
	assert.Contains(t, msg, "1-9: 1")
}

func TestSendReminder(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.bot.SendReminder(context.Background(), 3))
	assert.Equal(t, 0, f.sender.count())

	f = newFixture(t, Config{ChatID: testChat})
	require.NoError(t, f.bot.SendReminder(context.Background(), 1))
	msg := f.sender.last(t)
	assert.Equal(t, testChat, msg.ChatID)
	assert.Contains(t, msg.Text, "1 item in learning")
	assert.Equal(t, []string{callbackLearn}, callbacksOf(t, msg))
}

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		args string
		kind models.Kind
		word string
		ok   bool
	}{
		{args: "noun pies", kind: models.KindNoun, word: "pies", ok: true},
		{args: "verb  mówić ", kind: models.KindVerb, word: "mówić", ok: true},
		{args: "adj biały kruk", kind: models.KindAdjective, word: "biały kruk", ok: true},
		{args: "verbForm jem", kind: models.KindVerb, word: "jem", ok: true},
		{args: "noun", ok: false},
		{args: "", ok: false},
	}
	for _, tt := range tests {
		kind, word, ok := parseAddArgs(tt.args)
		assert.Equal(t, tt.ok, ok, tt.args)
		if tt.ok {
			assert.Equal(t, tt.kind, kind, tt.args)
			assert.Equal(t, tt.word, word, tt.args)
		}
	}
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{}, Deps{}, nil)
	assert.ErrorIs(t, err, ErrNoToken)
}
