package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/vocabulario/internal/session"
	"github.com/example/vocabulario/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// renderView turns a session snapshot into message text and buttons
func renderView(v session.View) (string, [][]MenuButton) {
	switch v.Phase {
	case session.PhaseIntro:
		return renderIntro(v), [][]MenuButton{{{Text: "👍 Got it", CallbackData: callbackIntro}}}
	case session.PhaseQuestion:
		return renderQuestion(v)
	case session.PhaseFeedback:
		return renderFeedback(v), [][]MenuButton{{
			{Text: "➡️ Next", CallbackData: callbackNext},
			{Text: "⏹ Stop", CallbackData: callbackStop},
		}}
	case session.PhaseComplete:
		if v.Total == 0 {
			return "Nothing to practise right now. Add words with /add <kind> <word>.", nil
		}
		text := fmt.Sprintf("🎉 Session complete! %d/%d items mastered this round.", v.Completed, v.Total)
		return text, [][]MenuButton{{{Text: "🔁 Start again", CallbackData: callbackLearn}}}
	}
	return "Loading…", nil
}

func renderIntro(v session.View) string {
	var sb strings.Builder
	sb.WriteString("🆕 New ")
	sb.WriteString(kindLabel(v.Item))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s → %s\n", v.Item.SourceText, v.Item.Expected())
	if v.Item.IsForm() {
		fmt.Fprintf(&sb, "(%s, %s)\n", v.Item.Tense, models.PersonLabel(v.Item.Person))
	}
	if v.Item.HasExample() {
		fmt.Fprintf(&sb, "\n%s\n", v.Item.ExampleSentence)
		if v.Item.ExampleTranslation != "" {
			fmt.Fprintf(&sb, "%s\n", v.Item.ExampleTranslation)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderQuestion(v session.View) (string, [][]MenuButton) {
	q := v.Question
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", progressLine(v))
	fmt.Fprintf(&sb, "%s", q.Prompt)
	if v.Item.IsForm() {
		fmt.Fprintf(&sb, " (%s, %s)", v.Item.Tense, models.PersonLabel(v.Item.Person))
	}
	fmt.Fprintf(&sb, "\n\n%s", q.Sentence)
	if q.Hint != "" {
		fmt.Fprintf(&sb, "\n%s", q.Hint)
	}

	if !q.IsMultipleChoice() {
		sb.WriteString("\n\n✍️ Type your answer")
		return sb.String(), nil
	}

	row := make([]MenuButton, 0, len(q.Options))
	for i, opt := range q.Options {
		row = append(row, MenuButton{Text: opt, CallbackData: fmt.Sprintf("%s%d", callbackOption, i)})
	}
	return sb.String(), [][]MenuButton{row}
}

func renderFeedback(v session.View) string {
	r := v.Result
	if r == nil {
		return progressLine(v)
	}

	var sb strings.Builder
	if r.Correct {
		sb.WriteString("✅ Correct!")
	} else {
		fmt.Fprintf(&sb, "❌ Wrong. Correct answer: %s", r.Expected)
	}
	fmt.Fprintf(&sb, "\nStreak: %d", r.Streak)
	if r.LevelChanged {
		fmt.Fprintf(&sb, "\nLevel: %d", r.Level)
	}
	if r.SaveErr != nil {
		sb.WriteString("\n⚠️ Progress could not be saved")
	}
	fmt.Fprintf(&sb, "\n\n%s", progressLine(v))
	return sb.String()
}

func progressLine(v session.View) string {
	return fmt.Sprintf("Progress: %d/%d (%.0f%%)", v.Completed, v.Total, v.Progress()*100)
}

func kindLabel(item models.Item) string {
	switch item.Kind {
	case models.KindVerbForm:
		return "verb form"
	case models.KindAdjective:
		return "adjective"
	case models.KindVerb:
		return "verb"
	}
	return "word"
}

func renderStats(stats *models.Stats, recent []models.SessionResult) string {
	var sb strings.Builder
	sb.WriteString("📊 Statistics\n\n")
	fmt.Fprintf(&sb, "Items: %d (in learning: %d)\n", stats.Total, stats.InLearning)
	for _, kind := range []models.Kind{models.KindNoun, models.KindAdjective, models.KindVerbForm} {
		fmt.Fprintf(&sb, "  %s: %d\n", kind, stats.ByKind[kind])
	}
	sb.WriteString("\nLevels:\n")
	for _, b := range stats.Levels {
		fmt.Fprintf(&sb, "  %s: %d\n", b.Label, b.Count)
	}
	if len(recent) > 0 {
		last := recent[0]
		fmt.Fprintf(&sb, "\nLast session: %d/%d items, %d answers, %.0f%% correct",
			last.Completed, last.Items, last.Answers, last.Accuracy()*100)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderSettings(s models.Settings) string {
	return fmt.Sprintf(`⚙️ Settings

pool_size: %d
required_streak: %d
auto_add_verbs: %d
auto_add_adjectives: %d
auto_add_nouns: %d

Change with /set <key> <value>`,
		s.PoolSize, s.RequiredStreak, s.AutoAddVerbs, s.AutoAddAdjectives, s.AutoAddNouns)
}
