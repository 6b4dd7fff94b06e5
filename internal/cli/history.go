package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wse-scanner/internal/store"
	"wse-scanner/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		limit   int
		symbol  string
		pattern string
		days    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scan triggers",
		Long:  "Show scans stored with 'scanner scan --record', newest first.",
		Example: `  scanner history --limit 5
  scanner history --symbol 11BIT
  scanner history --pattern shootingStar --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := app.OpenStore()
			if err != nil {
				return err
			}

			filter := store.ScanFilter{Symbol: symbol, Pattern: pattern, Limit: limit}
			if days > 0 {
				filter.Since = time.Now().AddDate(0, 0, -days)
			}
			runs, err := st.GetScanHistory(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No recorded scans")
				return nil
			}

			titles := registryTitles(app.Registry())
			for _, run := range runs {
				asOf := run.AsOf
				if asOf == "" {
					asOf = "-"
				}
				output.Bold("#%d %s %s (as of %s)", run.ID, run.RunAt.In(utils.WarsawLocation).Format("2006-01-02 15:04"), run.Granularity, asOf)
				output.Dim("%d evaluated, %d admitted", run.Evaluated, run.Admitted)

				table := NewTable(output, "PATTERN", "SYMBOL", "TURNOVER")
				for _, t := range run.Triggers {
					title := titles[t.Pattern]
					if title == "" {
						title = t.Pattern
					}
					table.AddRow(title, t.Symbol, utils.FormatPLN(t.Turnover))
				}
				table.Render()
				output.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of scans")
	cmd.Flags().StringVar(&symbol, "symbol", "", "only scans that triggered this symbol")
	cmd.Flags().StringVar(&pattern, "pattern", "", "only scans that triggered this pattern")
	cmd.Flags().IntVar(&days, "days", 0, "only scans from the last N days")

	return cmd
}

// describeTurnover renders a turnover for compact listings.
func describeTurnover(v float64) string {
	return fmt.Sprintf("%s zł", utils.FormatCompact(v))
}
