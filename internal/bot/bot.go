package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/example/vocabulario/internal/session"
	"github.com/example/vocabulario/pkg/models"
)

// ErrNoToken is returned when the bot token is missing
var ErrNoToken = errors.New("telegram token is not set")

// Sender is the part of the Telegram API the bot talks through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ItemStore is the part of the item repository the bot needs
type ItemStore interface {
	session.Repository
	FindBySource(ctx context.Context, sourceText string, kind models.Kind) (*models.Item, error)
	PutAll(ctx context.Context, items []models.Item) error
}

// SettingsStore loads and changes learning settings
type SettingsStore interface {
	Load(ctx context.Context, defaults models.Settings) (models.Settings, error)
	Set(ctx context.Context, defaults models.Settings, key string, value int) (models.Settings, error)
}

// ResultStore records finished sessions
type ResultStore interface {
	Create(ctx context.Context, result *models.SessionResult) error
	ListRecent(ctx context.Context, limit int) ([]models.SessionResult, error)
}

// StatsSource computes collection statistics
type StatsSource interface {
	Collect(ctx context.Context) (*models.Stats, error)
}

// Replenisher refills the learning pool
type Replenisher interface {
	Run(ctx context.Context) ([]string, error)
}

// Generator produces the items for a new word
type Generator interface {
	Generate(ctx context.Context, word string, kind models.Kind) ([]models.Item, error)
}

// Deps are the collaborators of the bot. Generator may be nil.
type Deps struct {
	Items       ItemStore
	Settings    SettingsStore
	Results     ResultStore
	Stats       StatsSource
	Replenisher Replenisher
	Generator   Generator
	// Defaults apply to settings that were never stored
	Defaults models.Settings
	// Timings carries the intro and feedback delays of a session
	Timings session.Config
}

// chatSession is the practice session running in one chat
type chatSession struct {
	ctrl   *session.Controller
	finish sync.Once
}

// Bot represents the Telegram bot application
type Bot struct {
	cfg    Config
	deps   Deps
	log    logrus.FieldLogger
	api    *tgbotapi.BotAPI
	sender Sender

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

// New creates a new bot instance
func New(cfg Config, deps Deps, log logrus.FieldLogger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	return newBot(cfg, deps, nil, log), nil
}

func newBot(cfg Config, deps Deps, sender Sender, log logrus.FieldLogger) *Bot {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bot{
		cfg:      cfg,
		deps:     deps,
		log:      log.WithField("component", "bot"),
		sender:   sender,
		sessions: make(map[int64]*chatSession),
	}
}

// Start connects to Telegram and handles updates one by one until ctx
// is cancelled
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.cfg.Token)
	if err != nil {
		return errors.Wrap(err, "unable to create bot")
	}
	b.api = botAPI
	b.sender = botAPI
	b.log.WithField("account", botAPI.Self.UserName).Info("authorized on telegram")

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop stops polling and cancels every running session
func (b *Bot) Stop(_ context.Context) error {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[int64]*chatSession)
	b.mu.Unlock()

	for _, cs := range sessions {
		cs.ctrl.Close()
	}
	b.log.Info("bot stopped")
	return nil
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(_ context.Context, count int) error {
	if b.cfg.ChatID == 0 {
		b.log.Debug("no chat configured, reminder dropped")
		return nil
	}
	if b.sender == nil {
		return errors.New("bot is not started")
	}
	msg := tgbotapi.NewMessage(b.cfg.ChatID, reminderText(count))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "🎯 Practise now", CallbackData: callbackLearn}}})
	if _, err := b.sender.Send(msg); err != nil {
		return errors.Wrap(err, "failed to send reminder")
	}
	return nil
}

// allowed reports whether the bot serves a chat
func (b *Bot) allowed(chatID int64) bool {
	return b.cfg.ChatID == 0 || b.cfg.ChatID == chatID
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		if !b.allowed(update.Message.Chat.ID) {
			return
		}
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleText(ctx, update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		if !b.allowed(update.CallbackQuery.Message.Chat.ID) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) reply(chatID int64, text string, buttons [][]MenuButton) {
	if b.sender == nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	if _, err := b.sender.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send message")
	}
}

func (b *Bot) activeSession(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}
