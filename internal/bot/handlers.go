package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/example/vocabulario/internal/session"
	"github.com/example/vocabulario/pkg/models"
)

const welcomeText = `Welcome to Vocabulario! 🎓

Available commands:
/learn - Start a practice session
/stop - Stop the current session
/add <noun|verb|adjective> <word> - Add a new word
/stats - Show your statistics
/settings - Show learning settings
/set <key> <value> - Change a setting`

// handleCommand dispatches bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start", "help":
		b.reply(chatID, welcomeText, [][]MenuButton{{{Text: "🎯 Start learning", CallbackData: callbackLearn}}})
	case "learn":
		b.startLearning(ctx, chatID)
	case "stop":
		b.stopLearning(chatID)
	case "add":
		b.handleAdd(ctx, chatID, message.CommandArguments())
	case "stats":
		b.handleStats(ctx, chatID)
	case "settings":
		b.handleSettings(ctx, chatID)
	case "set":
		b.handleSet(ctx, chatID, message.CommandArguments())
	default:
		b.reply(chatID, "Unknown command. Use /help to see what I can do.", nil)
	}
}

// handleText treats plain text as an answer to the current question
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	cs := b.activeSession(chatID)
	if cs == nil {
		b.reply(chatID, "No session running. Use /learn to start one.", nil)
		return
	}
	b.submit(ctx, chatID, cs, message.Text)
}

// handleCallbackQuery handles callback queries from buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	if b.sender != nil {
		if _, err := b.sender.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			b.log.WithError(err).Debug("failed to answer callback")
		}
	}

	if callback.Data == callbackLearn {
		b.startLearning(ctx, chatID)
		return
	}
	if callback.Data == callbackStop {
		b.stopLearning(chatID)
		return
	}

	cs := b.activeSession(chatID)
	if cs == nil {
		b.reply(chatID, "This session has ended. Use /learn to start a new one.", nil)
		return
	}

	var err error
	switch {
	case callback.Data == callbackIntro:
		err = cs.ctrl.AcknowledgeIntro()
	case callback.Data == callbackNext:
		err = cs.ctrl.Advance()
	case strings.HasPrefix(callback.Data, callbackOption):
		idx, convErr := strconv.Atoi(strings.TrimPrefix(callback.Data, callbackOption))
		opts := cs.ctrl.View().Question.Options
		if convErr != nil || idx < 0 || idx >= len(opts) {
			b.log.WithField("data", callback.Data).Warn("invalid option callback")
			return
		}
		b.submit(ctx, chatID, cs, opts[idx])
		return
	default:
		b.log.WithField("data", callback.Data).Warn("unknown callback")
		return
	}

	// a stale button pressed after a timer already moved the session on
	if err != nil && !errors.Is(err, session.ErrWrongPhase) && !errors.Is(err, session.ErrClosed) {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("session action failed")
	}
}

func (b *Bot) submit(ctx context.Context, chatID int64, cs *chatSession, answer string) {
	_, err := cs.ctrl.Submit(ctx, answer)
	if errors.Is(err, session.ErrWrongPhase) {
		b.reply(chatID, "Please use the buttons above to continue.", nil)
		return
	}
	if err != nil && !errors.Is(err, session.ErrClosed) {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to submit answer")
	}
}

// startLearning refills the learning pool and opens a new session,
// replacing any session already running in the chat
func (b *Bot) startLearning(ctx context.Context, chatID int64) {
	log := b.log.WithField("chat_id", chatID)
	b.stopSession(chatID)

	if b.deps.Replenisher != nil {
		if _, err := b.deps.Replenisher.Run(ctx); err != nil {
			log.WithError(err).Warn("replenishment failed")
		}
	}

	settings, err := b.deps.Settings.Load(ctx, b.deps.Defaults)
	if err != nil {
		log.WithError(err).Warn("failed to load settings, using defaults")
		settings = b.deps.Defaults
	}
	cfg := session.ConfigFromSettings(settings)
	cfg.IntroDwell = b.deps.Timings.IntroDwell
	cfg.FeedbackCorrect = b.deps.Timings.FeedbackCorrect
	cfg.FeedbackWrong = b.deps.Timings.FeedbackWrong

	cs := &chatSession{}
	cs.ctrl = session.New(b.deps.Items, cfg,
		session.WithLogger(log),
		session.WithOnChange(func(v session.View) {
			b.show(chatID, cs, v)
		}),
	)

	b.mu.Lock()
	b.sessions[chatID] = cs
	b.mu.Unlock()

	if err := cs.ctrl.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start session")
		b.dropSession(chatID, cs)
		b.reply(chatID, "❌ Could not start a session. Please try again later.", nil)
	}
}

// show renders a session view and records the session once it completes
func (b *Bot) show(chatID int64, cs *chatSession, v session.View) {
	text, buttons := renderView(v)
	b.reply(chatID, text, buttons)
	if v.Phase.Terminal() {
		b.finishSession(chatID, cs)
	}
}

func (b *Bot) finishSession(chatID int64, cs *chatSession) {
	cs.finish.Do(func() {
		summary := cs.ctrl.Summary()
		cs.ctrl.Close()
		b.dropSession(chatID, cs)

		if summary.Items == 0 || b.deps.Results == nil {
			return
		}
		// the session may finish from a timer, after the update's context is gone
		if err := b.deps.Results.Create(context.Background(), &summary); err != nil {
			b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to record session")
		}
	})
}

func (b *Bot) stopLearning(chatID int64) {
	if !b.stopSession(chatID) {
		b.reply(chatID, "No session running.", nil)
		return
	}
	b.reply(chatID, "⏹ Session stopped.", [][]MenuButton{{{Text: "🎯 Start learning", CallbackData: callbackLearn}}})
}

// stopSession closes the running session without recording it
func (b *Bot) stopSession(chatID int64) bool {
	b.mu.Lock()
	cs, ok := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()

	if ok {
		cs.ctrl.Close()
	}
	return ok
}

func (b *Bot) dropSession(chatID int64, cs *chatSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions[chatID] == cs {
		delete(b.sessions, chatID)
	}
}

// handleAdd generates a word and stores it with its forms
func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	kind, word, ok := parseAddArgs(args)
	if !ok {
		b.reply(chatID, "Usage: /add <noun|verb|adjective> <word>", nil)
		return
	}
	if b.deps.Generator == nil {
		b.reply(chatID, "Adding words needs an OpenAI API key.", nil)
		return
	}

	log := b.log.WithFields(logrus.Fields{"chat_id": chatID, "word": word, "kind": kind})
	existing, err := b.deps.Items.FindBySource(ctx, word, kind)
	if err != nil {
		log.WithError(err).Error("failed to check existing word")
		b.reply(chatID, "❌ Could not add the word. Please try again later.", nil)
		return
	}
	if existing != nil {
		b.reply(chatID, fmt.Sprintf("%q is already in your collection.", word), nil)
		return
	}

	items, err := b.deps.Generator.Generate(ctx, word, kind)
	if err == nil && len(items) == 0 {
		err = errors.New("nothing generated")
	}
	if err == nil {
		err = b.deps.Items.PutAll(ctx, items)
	}
	if err != nil {
		log.WithError(err).Error("failed to add word")
		b.reply(chatID, "❌ Could not add the word. Please try again later.", nil)
		return
	}

	text := fmt.Sprintf("✅ Added %s → %s", items[0].SourceText, items[0].Expected())
	if len(items) > 1 {
		text += fmt.Sprintf(" with %d forms", len(items)-1)
	}
	b.reply(chatID, text, nil)
}

// parseAddArgs splits "<kind> <word...>"
func parseAddArgs(args string) (models.Kind, string, bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", false
	}
	kind := models.ParseKind(fields[0])
	if kind == models.KindVerbForm {
		kind = models.KindVerb
	}
	return kind, strings.Join(fields[1:], " "), true
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	stats, err := b.deps.Stats.Collect(ctx)
	if err != nil {
		b.log.WithError(err).Error("failed to collect statistics")
		b.reply(chatID, "Statistics are not available right now.", nil)
		return
	}
	var recent []models.SessionResult
	if b.deps.Results != nil {
		if recent, err = b.deps.Results.ListRecent(ctx, 1); err != nil {
			b.log.WithError(err).Warn("failed to load recent sessions")
		}
	}
	b.reply(chatID, renderStats(stats, recent), nil)
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) {
	s, err := b.deps.Settings.Load(ctx, b.deps.Defaults)
	if err != nil {
		b.log.WithError(err).Error("failed to load settings")
		b.reply(chatID, "❌ Could not load settings.", nil)
		return
	}
	b.reply(chatID, renderSettings(s), nil)
}

func (b *Bot) handleSet(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(chatID, "Usage: /set <key> <value>", nil)
		return
	}
	value, err := strconv.Atoi(fields[1])
	if err != nil {
		b.reply(chatID, "The value must be a number.", nil)
		return
	}
	s, err := b.deps.Settings.Set(ctx, b.deps.Defaults, fields[0], value)
	if err != nil {
		b.reply(chatID, "❌ "+err.Error(), nil)
		return
	}
	b.reply(chatID, renderSettings(s), nil)
}

func reminderText(count int) string {
	noun := "items"
	if count == 1 {
		noun = "item"
	}
	return fmt.Sprintf("⏰ You have %d %s in learning. Time for a quick practice!", count, noun)
}
