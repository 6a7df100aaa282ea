// Package stats implements the statistics subcommand.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/datastore"
)

// Command returns the statistics command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		fromStr string
		toStr   string
		topN    int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show inspection statistics and top defect classes for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date %q: %w", fromStr, err)
			}
			end, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date %q: %w", toStr, err)
			}
			// --to is inclusive on the command line; the store works on
			// half-open ranges.
			end = end.AddDate(0, 0, 1)

			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database backend enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := context.Background()
			snap, err := store.StatisticsRange(ctx, start, end)
			if err != nil {
				return err
			}

			fmt.Printf("Inspections %s .. %s\n\n", fromStr, toStr)
			fmt.Printf("  total:            %d\n", snap.TotalInspections)
			fmt.Printf("  normal:           %d\n", snap.NormalCount)
			fmt.Printf("  component defect: %d\n", snap.ComponentDefectCount)
			fmt.Printf("  solder defect:    %d\n", snap.SolderDefectCount)
			fmt.Printf("  discard:          %d\n", snap.DiscardCount)
			fmt.Printf("  defect rate:      %.2f%%\n", snap.DefectRate)

			classes, err := store.TopDefectClasses(ctx, start, end, topN)
			if err != nil {
				return err
			}
			if len(classes) > 0 {
				fmt.Printf("\nTop defect classes:\n")
				for _, c := range classes {
					avg := "-"
					if c.AvgConfidence != nil {
						avg = fmt.Sprintf("%.3f", *c.AvgConfidence)
					}
					fmt.Printf("  %-24s %6d  avg conf %s\n", c.ClassName, c.TotalCount, avg)
				}
			}
			return nil
		},
	}

	today := time.Now().Format("2006-01-02")
	cmd.Flags().StringVar(&fromStr, "from", today, "Range start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", today, "Range end date, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&topN, "top", datastore.DefaultTopDefectClasses, "Number of defect classes to show")

	return cmd
}
