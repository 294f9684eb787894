package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// CommandHandler handles a specific Telegram bot command
type CommandHandler func(ctx context.Context, update *models.Update) (string, error)

// CommandRegistry manages bot command handlers
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

// Register adds a command handler to the registry
func (r *CommandRegistry) Register(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

// Handle processes a command from an update
func (r *CommandRegistry) Handle(ctx context.Context, update *models.Update) (string, error) {
	parts := strings.SplitN(update.Message.Text, " ", 2)
	command := strings.TrimSpace(parts[0])

	handler, exists := r.handlers[command]
	if !exists {
		return "我不认识这个命令哦，发送 /help 看看我能做什么。", nil
	}
	return handler(ctx, update)
}

// IsCommand checks if a message is a command
func (r *CommandRegistry) IsCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// newCommandRegistry wires the connector's command handlers.
func (c *Connector) newCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{handlers: make(map[string]CommandHandler)}
	r.Register("/start", c.handleStart)
	r.Register("/help", c.handleHelp)
	r.Register("/clear", c.handleClear)
	r.Register("/reminders", c.handleReminders)
	return r
}

func (c *Connector) handleStart(_ context.Context, _ *models.Update) (string, error) {
	p, err := c.orch.Personas().Get(c.personaID)
	if err != nil {
		return "", err
	}
	if p.Messages.Welcome != "" {
		return p.Messages.Welcome, nil
	}
	return fmt.Sprintf("你好，我是%s！%s", p.Name, p.Description), nil
}

func (c *Connector) handleHelp(_ context.Context, _ *models.Update) (string, error) {
	p, err := c.orch.Personas().Get(c.personaID)
	if err != nil {
		return "", err
	}
	if p.Messages.Help != "" {
		return p.Messages.Help, nil
	}
	return "直接跟我聊天就可以啦。\n\n/clear 清空我们的对话记录\n/reminders 查看你的提醒\n另外，发送「5分钟后提醒我...」可以设置提醒。", nil
}

func (c *Connector) handleClear(_ context.Context, update *models.Update) (string, error) {
	userID := strconv.FormatInt(update.Message.From.ID, 10)
	c.orch.ClearHistory(userID, c.personaID)
	return "好啦，我们的对话记录已经清空了。", nil
}

func (c *Connector) handleReminders(ctx context.Context, update *models.Update) (string, error) {
	reminders := c.orch.Reminders()
	if reminders == nil {
		return "提醒功能没有开启。", nil
	}

	userID := strconv.FormatInt(update.Message.From.ID, 10)
	list, err := reminders.GetUserReminders(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "你还没有设置过提醒。发送「5分钟后提醒我...」试试吧。", nil
	}

	var sb strings.Builder
	sb.WriteString("你的提醒：\n")
	for _, r := range list {
		status := "⏳"
		switch r.Status {
		case "sent":
			status = "✅"
		case "failed":
			status = "❌"
		}
		sb.WriteString(fmt.Sprintf("%s %s（%s）\n", status, r.Text, r.RemindAt.Local().Format("01-02 15:04")))
	}
	return sb.String(), nil
}
