package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wse-scanner/internal/analysis/resample"
	"wse-scanner/internal/export"
	"wse-scanner/internal/models"
	"wse-scanner/internal/quotes"
	"wse-scanner/pkg/utils"
)

// addDataCommands adds quote download, inspection and export commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newUpdateCmd(app))
	rootCmd.AddCommand(newResampleCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func newUpdateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download and extract the quotes archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := app.Config

			opts := []quotes.UpdaterOption{
				quotes.WithRetry(utils.RetryConfig{
					MaxAttempts:   3,
					InitialDelay:  5 * time.Second,
					MaxDelay:      time.Minute,
					BackoffFactor: 2.0,
				}),
			}
			if st, err := app.OpenStore(); err == nil {
				opts = append(opts, quotes.WithSyncRecorder(st))
			} else {
				app.Logger.Warn().Err(err).Msg("Store unavailable, cache will not see this update")
			}

			n, err := quotes.NewUpdater(cfg.Quotes.URL, cfg.Quotes.DataDir, app.Logger, opts...).Update(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"files": n, "dir": cfg.Quotes.DataDir})
			}
			output.Success("✓ %d files extracted to %s", n, cfg.Quotes.DataDir)
			return nil
		},
	}
}

// loadBars reads a ticker and resamples it to the requested granularity.
func loadBars(cmd *cobra.Command, app *App, ticker string, weekly bool) ([]models.Candle, models.Granularity, error) {
	granularity := models.Daily
	if weekly {
		granularity = models.Weekly
	}

	candles, err := app.Source().Candles(cmd.Context(), ticker)
	if err != nil {
		return nil, granularity, err
	}
	if err := models.ValidateSeries(ticker, candles); err != nil {
		return nil, granularity, err
	}
	bars, err := resample.Resample(candles, granularity)
	return bars, granularity, err
}

func newResampleCmd(app *App) *cobra.Command {
	var (
		weekly bool
		last   int
	)

	cmd := &cobra.Command{
		Use:   "resample <ticker>",
		Short: "Show an instrument's daily or weekly bars",
		Args:  cobra.ExactArgs(1),
		Example: `  scanner resample 11BIT
  scanner resample 11BIT --weekly --last 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker := strings.ToUpper(args[0])

			bars, _, err := loadBars(cmd, app, ticker, weekly)
			if err != nil {
				return err
			}
			if last > 0 && len(bars) > last {
				bars = bars[len(bars)-last:]
			}

			if output.IsJSON() {
				return output.JSON(bars)
			}

			table := NewTable(output, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "CHANGE", "VOLUME", "TURNOVER")
			for i, b := range bars {
				change := "-"
				if i > 0 && bars[i-1].Close > 0 {
					change = utils.FormatPercent((b.Close/bars[i-1].Close - 1) * 100)
				}
				table.AddRow(b.Date,
					fmt.Sprintf("%.2f", b.Open),
					fmt.Sprintf("%.2f", b.High),
					fmt.Sprintf("%.2f", b.Low),
					fmt.Sprintf("%.2f", b.Close),
					change,
					utils.FormatCompact(b.Volume),
					describeTurnover(b.Turnover()),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&weekly, "weekly", false, "aggregate into ISO weeks")
	cmd.Flags().IntVar(&last, "last", 0, "show only the last N bars")

	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var (
		weekly bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "export <ticker>...",
		Short: "Export bars to Parquet files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if dir == "" {
				dir = app.Config.Export.Dir
			}

			written := make(map[string]string)
			for _, arg := range args {
				ticker := strings.ToUpper(arg)
				bars, granularity, err := loadBars(cmd, app, ticker, weekly)
				if err != nil {
					return fmt.Errorf("exporting %s: %w", ticker, err)
				}

				path := export.FileName(dir, ticker, granularity)
				if err := export.WriteParquet(path, ticker, bars); err != nil {
					return fmt.Errorf("exporting %s: %w", ticker, err)
				}
				app.Logger.Info().Str("symbol", ticker).Int("bars", len(bars)).Str("path", path).Msg("Exported")
				written[ticker] = path

				if !output.IsJSON() {
					output.Success("✓ %s: %d bars → %s", ticker, len(bars), path)
				}
			}

			if output.IsJSON() {
				return output.JSON(written)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&weekly, "weekly", false, "export weekly bars")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default: export.dir)")

	return cmd
}
