package providers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"dispatch-service/internal/models"
)

// TelegramScheme prefixes push tokens that are Telegram chat ids.
const TelegramScheme = "telegram"

type telegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Telegram delivers push messages as bot messages to a chat id.
type Telegram struct {
	bot     telegramSender
	limiter *rate.Limiter
}

// NewTelegram creates a bot client limited to ratePerSecond messages.
func NewTelegram(token string, ratePerSecond int) (*Telegram, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return newTelegram(b, ratePerSecond), nil
}

func newTelegram(sender telegramSender, ratePerSecond int) *Telegram {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Telegram{
		bot:     sender,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
	}
}

// Send posts msg to the chat identified by token.
func (t *Telegram) Send(ctx context.Context, token string, msg models.PushMessage) error {
	chatID, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", token, err)
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	text := msg.Title
	if msg.Body != "" {
		text += "\n" + msg.Body
	}
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
	}
	return nil
}
