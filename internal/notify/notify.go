// Package notify publishes scan results.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"wse-scanner/internal/config"
)

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, m Message) error
	IsEnabled() bool
}

// MultiNotifier sends messages to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	dryRun   bool
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the terminal channel on out
// plus every remote channel enabled in cfg.
func NewMultiNotifier(cfg config.NotificationConfig, out io.Writer, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{
		dryRun: cfg.DryRun,
		logger: logger,
	}

	mn.channels = append(mn.channels, NewTerminalNotifier(out))
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// SetDryRun toggles delivery to remote channels.
func (mn *MultiNotifier) SetDryRun(dryRun bool) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.dryRun = dryRun
}

// Send delivers every message to every enabled channel. In dry-run mode only
// local channels receive messages and remote delivery is logged instead.
// A failing channel does not stop the others.
func (mn *MultiNotifier) Send(ctx context.Context, messages []Message) error {
	mn.mu.RLock()
	channels := mn.channels
	dryRun := mn.dryRun
	mn.mu.RUnlock()

	var errs []string
	for _, m := range messages {
		mn.logger.Info().Str("pattern", m.Pattern).Int("dropped", m.Dropped).Str("text", m.Text).Msg("Message")

		for _, ch := range channels {
			if !ch.IsEnabled() {
				continue
			}
			if dryRun && !isLocal(ch) {
				mn.logger.Warn().Str("channel", ch.Name()).Msg("Dry run, message not sent")
				continue
			}
			if err := ch.Send(ctx, m); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

type localChannel interface {
	Local() bool
}

func isLocal(ch NotificationChannel) bool {
	l, ok := ch.(localChannel)
	return ok && l.Local()
}
