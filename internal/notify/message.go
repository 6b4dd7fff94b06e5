package notify

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"wse-scanner/internal/analysis"
	"wse-scanner/internal/analysis/patterns"
	"wse-scanner/internal/analysis/scanner"
	"wse-scanner/internal/models"
)

// DefaultMaxLength is the message length limit of the original publishing channel.
const DefaultMaxLength = 160

// DefaultHashtag opens every message.
const DefaultHashtag = "#GPWTweets"

// Message is the announcement for one pattern.
type Message struct {
	Pattern   string
	Title     string
	Direction analysis.PatternDirection
	Text      string
	Symbols   []string // symbols included in Text, highest turnover first
	Dropped   int      // symbols removed to respect the length limit
}

// MessageOptions controls message formatting.
type MessageOptions struct {
	Hashtag   string
	MaxLength int               // in UTF-16 code units
	Names     map[string]string // display names by symbol; missing entries use the symbol
}

func directionMark(d analysis.PatternDirection) string {
	switch d {
	case analysis.PatternBullish:
		return "📈"
	case analysis.PatternBearish:
		return "📉"
	default:
		return "↔"
	}
}

// TextLength counts s in UTF-16 code units, the unit the length limit is
// defined in. Emoji outside the BMP count as two.
func TextLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func granularityTag(g models.Granularity) string {
	if g == models.Weekly {
		return "#Weekly"
	}
	return "#Daily"
}

// BuildMessages creates one message per pattern with triggers, in registry order.
// Symbols are listed by turnover, highest first; the lowest-turnover symbols
// are dropped until the text fits MaxLength. A message always keeps at least
// one symbol.
func BuildMessages(result *scanner.Result, registry *patterns.Registry, opts MessageOptions) []Message {
	if opts.Hashtag == "" {
		opts.Hashtag = DefaultHashtag
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	var messages []Message
	for _, p := range registry.All() {
		ranked := result.Ranked(p.Name)
		if len(ranked) == 0 {
			continue
		}

		header := fmt.Sprintf("%s %s - %s %s\n\n", opts.Hashtag, granularityTag(result.Granularity), p.Title, directionMark(p.Direction))

		names := make([]string, len(ranked))
		symbols := make([]string, len(ranked))
		for i, t := range ranked {
			symbols[i] = t.Symbol
			names[i] = t.Symbol
			if name, ok := opts.Names[t.Symbol]; ok && name != "" {
				names[i] = name
			}
		}

		keep := len(names)
		text := header + strings.Join(names[:keep], " ")
		for keep > 1 && TextLength(text) > opts.MaxLength {
			keep--
			text = header + strings.Join(names[:keep], " ")
		}

		messages = append(messages, Message{
			Pattern:   p.Name,
			Title:     p.Title,
			Direction: p.Direction,
			Text:      text,
			Symbols:   symbols[:keep],
			Dropped:   len(names) - keep,
		})
	}
	return messages
}
