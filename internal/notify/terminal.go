package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalNotifier prints messages to a writer.
type TerminalNotifier struct {
	out io.Writer
	mu  sync.Mutex
}

// NewTerminalNotifier creates a terminal notifier. A nil writer prints to stdout.
func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalNotifier{out: out}
}

func (t *TerminalNotifier) Name() string    { return "terminal" }
func (t *TerminalNotifier) IsEnabled() bool { return true }

// Local reports that the terminal keeps receiving messages in dry-run mode.
func (t *TerminalNotifier) Local() bool { return true }

// Send prints the message text followed by a blank line.
func (t *TerminalNotifier) Send(_ context.Context, m Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "%s\n\n", m.Text)
	return err
}
