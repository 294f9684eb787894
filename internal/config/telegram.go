package config

// TelegramConfig holds the Telegram connector settings. The connector only
// starts when a bot token is present.
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" yaml:"bot_token"`
	// PersonaID selects the persona served over Telegram. Empty means the
	// first configured bot.
	PersonaID string `env:"TELEGRAM_PERSONA_ID" yaml:"persona_id"`
	Debug     bool   `env:"TELEGRAM_DEBUG" yaml:"debug"`
}

// Enabled reports whether the connector is configured.
func (c *TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}
