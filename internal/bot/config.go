package bot

// Config represents the configuration for the bot
type Config struct {
	Token string `mapstructure:"token"`
	// ChatID restricts the bot to one chat. Zero serves any chat.
	ChatID int64 `mapstructure:"chat_id"`
}

// Callback data carried by inline buttons
const (
	callbackLearn  = "learn"
	callbackIntro  = "intro"
	callbackNext   = "next"
	callbackStop   = "stop"
	callbackOption = "opt:"
)
