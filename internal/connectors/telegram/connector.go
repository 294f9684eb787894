// Package telegram connects one Telegram bot to a persona on the platform.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/solinlabs/persona_bot_platform/internal/orchestrator"
	"github.com/solinlabs/persona_bot_platform/internal/reminder_service"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// Connector polls Telegram and routes messages through the orchestrator.
// Each connector instance serves one persona.
type Connector struct {
	bot       *bot.Bot
	orch      *orchestrator.Orchestrator
	personaID string
	commands  *CommandRegistry
	log       logger.Logger
}

// Config holds configuration for the Telegram connector
type Config struct {
	BotToken  string // Bot token from @BotFather
	PersonaID string // Persona this bot embodies
	Debug     bool   // Enable debug logging
	Logger    logger.Logger
}

// NewConnector creates a new Telegram connector.
func NewConnector(config Config, orch *orchestrator.Orchestrator) (*Connector, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if config.PersonaID == "" {
		return nil, fmt.Errorf("persona id is required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	connector := &Connector{
		orch:      orch,
		personaID: config.PersonaID,
		log:       config.Logger.WithFields(logger.StringField("persona_id", config.PersonaID)),
	}
	connector.commands = connector.newCommandRegistry()

	opts := []bot.Option{
		bot.WithDefaultHandler(connector.handleUpdate),
	}
	if config.Debug {
		opts = append(opts, bot.WithDebug())
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	connector.bot = b

	return connector, nil
}

// Start begins polling for updates and blocks until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.log.Info("Starting Telegram bot polling")
	c.bot.Start(ctx)
	return nil
}

// GetBotInfo returns information about the bot.
func (c *Connector) GetBotInfo(ctx context.Context) (*models.User, error) {
	return c.bot.GetMe(ctx)
}

// Deliver sends a fired reminder to its chat. Wired into the reminder
// scheduler.
func (c *Connector) Deliver(ctx context.Context, reminder reminder_service.Reminder) error {
	chatID, err := strconv.ParseInt(reminder.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", reminder.ChatID, err)
	}
	_, err = c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reminder_service.FormatDelivery(reminder.Text),
	})
	return err
}

// handleUpdate processes all incoming Telegram updates.
func (c *Connector) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.From == nil || update.Message.From.IsBot {
		return
	}

	userID := strconv.FormatInt(update.Message.From.ID, 10)
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)

	if c.commands.IsCommand(update.Message.Text) {
		response, err := c.commands.Handle(ctx, update)
		if err != nil {
			c.log.Error("Command failed",
				logger.StringField("user_id", userID),
				logger.ErrorField(err))
			response = "抱歉，处理命令时出了点问题。"
		}
		c.send(ctx, b, update.Message.Chat.ID, response)
		return
	}

	c.log.Debug("Processing message",
		logger.StringField("user_id", userID),
		logger.StringField("chat_id", chatID))

	reply, err := c.orch.HandleMessage(ctx, c.personaID, userID, chatID, update.Message.Text)
	if err != nil {
		c.log.Error("Failed to handle message",
			logger.StringField("user_id", userID),
			logger.ErrorField(err))
		c.send(ctx, b, update.Message.Chat.ID, "抱歉，我这边出了点问题，稍后再试试吧。")
		return
	}

	if reply.Text != "" {
		c.send(ctx, b, update.Message.Chat.ID, reply.Text)
	}
}

func (c *Connector) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.log.Error("Failed to send message", logger.ErrorField(err))
	}
}
