package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"wse-scanner/internal/config"
)

// TelegramNotifier sends notifications via a Telegram bot.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiURL   string // empty uses the public Bot API
	enabled  bool

	mu   sync.Mutex
	bot  *tb.Bot
	chat *tb.Chat
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// connect creates the bot and resolves the chat on first use.
func (t *TelegramNotifier) connect() (*tb.Bot, *tb.Chat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, t.chat, nil
	}

	bot, err := tb.NewBot(tb.Settings{
		URL:    t.apiURL,
		Token:  t.botToken,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
		Client: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating telegram bot: %w", t.redact(err))
	}

	chat, err := bot.ChatByID(t.chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving telegram chat %s: %w", t.chatID, t.redact(err))
	}

	t.bot, t.chat = bot, chat
	return bot, chat, nil
}

// Send posts the message text to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, m Message) error {
	if !t.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bot, chat, err := t.connect()
	if err != nil {
		return err
	}
	if _, err := bot.Send(chat, m.Text); err != nil {
		return fmt.Errorf("sending telegram message: %w", t.redact(err))
	}
	return nil
}

// redact masks the bot token, which the Bot API embeds in request URLs.
func (t *TelegramNotifier) redact(err error) error {
	if t.botToken == "" || !strings.Contains(err.Error(), t.botToken) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), t.botToken, "***"))
}
