package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"wse-scanner/internal/analysis/patterns"
	"wse-scanner/internal/analysis/scanner"
	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
	"wse-scanner/internal/notify"
	"wse-scanner/internal/quotes"
	"wse-scanner/internal/store"
	"wse-scanner/pkg/utils"
)

type scanFlags struct {
	weekly      bool
	noDateCheck bool
	dryRun      bool
	record      bool
}

// scanReport is the JSON form of a scan.
type scanReport struct {
	Granularity models.Granularity           `json:"granularity"`
	AsOf        string                       `json:"as_of,omitempty"`
	Evaluated   int                          `json:"evaluated"`
	Admitted    int                          `json:"admitted"`
	Skipped     int                          `json:"skipped"`
	Triggered   map[string][]scanner.Trigger `json:"triggered"`
	Messages    []string                     `json:"messages"`
}

func newScanCmd(app *App) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan all instruments for candlestick patterns",
		Long: `Scan every instrument for candlestick patterns on the latest two bars.

The scan is repeated when no instrument could be evaluated, for example while
the day's quotes are not published yet.`,
		Example: `  scanner scan
  scanner scan --weekly
  scanner scan --no-date-check --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), app, NewOutput(cmd), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.weekly, "weekly", false, "evaluate weekly bars")
	cmd.Flags().BoolVar(&flags.noDateCheck, "no-date-check", false, "scan instruments whose last bar is not current")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print messages without sending them")
	cmd.Flags().BoolVar(&flags.record, "record", false, "store the triggers in the scan history")

	return cmd
}

func runScan(ctx context.Context, app *App, output *Output, flags scanFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := app.Config
	logger := app.Logger.With().Str("operation", "scan").Logger()

	granularity, err := models.ParseGranularity(cfg.Scanner.Granularity)
	if err != nil {
		return err
	}
	if flags.weekly {
		granularity = models.Weekly
	}
	riseMode, err := scanner.ParseRiseMode(cfg.Scanner.RiseMode)
	if err != nil {
		return err
	}

	opts := scanner.Options{
		Thresholds: scanner.Thresholds{
			MinTurnover: cfg.Scanner.MinTurnover,
			MinPrice:    cfg.Scanner.MinPrice,
			RiseFactor:  cfg.Scanner.RiseFactor,
			RiseMode:    riseMode,
		},
		Granularity: granularity,
		Concurrency: cfg.Scanner.Concurrency,
	}
	if cfg.Scanner.DateCheck && !flags.noDateCheck {
		opts.AsOf = utils.MarketNow()
		if !utils.IsTradingDay(opts.AsOf) || !utils.IsAfterClose(opts.AsOf) {
			logger.Warn().
				Str("last_session", utils.LastSessionDate(opts.AsOf)).
				Msg("Today's session has not closed, quotes may not be published yet")
		}
	}

	symbols, names, err := loadUniverse(app)
	if err != nil {
		return err
	}

	registry := app.Registry()
	sc := scanner.NewScanner(registry, opts, logger)
	source := app.Source()

	retry := utils.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialDelay:    cfg.Retry.Delay,
		MaxDelay:        cfg.Retry.MaxDelay,
		BackoffFactor:   cfg.Retry.BackoffFactor,
		RetryableErrors: []error{errors.ErrNoData},
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Nothing to scan yet, retrying")
		},
	}
	result, err := utils.RetryWithResult(ctx, retry, func() (*scanner.Result, error) {
		return sc.Scan(ctx, symbols, source.Candles)
	})
	if err != nil {
		return err
	}

	asOf := ""
	if !opts.AsOf.IsZero() {
		asOf = opts.AsOf.Format(models.DateLayout)
	}
	if flags.record {
		if err := recordScan(ctx, app, result, asOf); err != nil {
			return err
		}
	}

	messages := notify.BuildMessages(result, registry, notify.MessageOptions{
		Hashtag:   cfg.Notifications.Hashtag,
		MaxLength: cfg.Notifications.MaxLength,
		Names:     names,
	})

	var terminal io.Writer = output.Writer()
	if output.IsJSON() {
		terminal = io.Discard
	}
	notifier := notify.NewMultiNotifier(cfg.Notifications, terminal, logger)
	if flags.dryRun {
		notifier.SetDryRun(true)
	}
	sendErr := notifier.Send(ctx, messages)

	if output.IsJSON() {
		report := scanReport{
			Granularity: result.Granularity,
			AsOf:        asOf,
			Evaluated:   result.Evaluated,
			Admitted:    result.Admitted,
			Skipped:     len(result.Skipped),
			Triggered:   make(map[string][]scanner.Trigger, len(result.Triggered)),
		}
		for name := range result.Triggered {
			report.Triggered[name] = result.Ranked(name)
		}
		for _, m := range messages {
			report.Messages = append(report.Messages, m.Text)
		}
		if err := output.JSON(report); err != nil {
			return err
		}
	} else if len(messages) == 0 {
		output.Dim("No patterns found (%d evaluated, %d admitted)", result.Evaluated, result.Admitted)
	}

	return sendErr
}

// loadUniverse returns the tickers to scan with their display names. Without
// an instruments file every ticker in the quotes directory is scanned.
func loadUniverse(app *App) ([]string, map[string]string, error) {
	instruments, err := quotes.LoadInstruments(app.Config.Quotes.InstrumentsFile)
	if err == nil {
		return quotes.Tickers(instruments), quotes.Names(instruments), nil
	}
	if !errors.Is(err, errors.ErrDataNotFound) {
		return nil, nil, err
	}

	app.Logger.Warn().Str("path", app.Config.Quotes.InstrumentsFile).Msg("No instruments file, scanning every downloaded ticker")
	tickers, err := quotes.NewMSTSource(app.Config.Quotes.DataDir).Tickers()
	if err != nil {
		return nil, nil, err
	}
	return tickers, nil, nil
}

func recordScan(ctx context.Context, app *App, result *scanner.Result, asOf string) error {
	st, err := app.OpenStore()
	if err != nil {
		return err
	}

	run := store.ScanRun{
		RunAt:       time.Now(),
		Granularity: string(result.Granularity),
		AsOf:        asOf,
		Evaluated:   result.Evaluated,
		Admitted:    result.Admitted,
	}
	for name, triggers := range result.Triggered {
		for _, t := range triggers {
			run.Triggers = append(run.Triggers, store.ScanTrigger{Pattern: name, Symbol: t.Symbol, Turnover: t.Turnover})
		}
	}

	id, err := st.RecordScan(ctx, run)
	if err != nil {
		return err
	}
	app.Logger.Info().Int64("scan_id", id).Int("triggers", len(run.Triggers)).Msg("Scan recorded")
	return nil
}

func newPatternsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the patterns the scanner evaluates",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			registry := app.Registry()

			if output.IsJSON() {
				type entry struct {
					Name      string `json:"name"`
					Title     string `json:"title"`
					Direction string `json:"direction"`
				}
				var entries []entry
				for _, p := range registry.All() {
					entries = append(entries, entry{Name: p.Name, Title: p.Title, Direction: string(p.Direction)})
				}
				return output.JSON(entries)
			}

			table := NewTable(output, "NAME", "TITLE", "DIRECTION")
			for _, p := range registry.All() {
				table.AddRow(p.Name, p.Title, output.Direction(p.Direction))
			}
			table.Render()
			return nil
		},
	}
}

// registryTitles maps pattern names to titles, falling back to the extended set
// so history recorded with extended patterns still renders.
func registryTitles(r *patterns.Registry) map[string]string {
	titles := make(map[string]string)
	for _, p := range patterns.NewExtendedRegistry(patterns.DefaultHammerRatio).All() {
		titles[p.Name] = p.Title
	}
	for _, p := range r.All() {
		titles[p.Name] = p.Title
	}
	return titles
}
