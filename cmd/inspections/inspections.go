// Package inspections implements the inspection listing subcommand.
package inspections

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/datastore"
)

// Command returns the inspections listing command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		page     int
		pageSize int
		defect   string
		camera   string
		since    string
	)

	cmd := &cobra.Command{
		Use:   "inspections",
		Short: "List recent inspection records, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database backend enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filters := &datastore.SearchFilters{}
			if defect != "" {
				filters.Defect = &defect
			}
			if camera != "" {
				filters.Camera = &camera
			}
			if since != "" {
				start, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q: %w", since, err)
				}
				filters.StartTime = &start
			}

			ctx := context.Background()
			recs, err := store.Search(ctx, filters, page, pageSize)
			if err != nil {
				return err
			}
			total, err := store.Count(ctx, filters)
			if err != nil {
				return err
			}

			fmt.Printf("%-8s %-20s %-18s %-10s %s\n", "ID", "TIME", "DEFECT", "CONF", "CAMERA")
			for i := range recs {
				r := &recs[i]
				fmt.Printf("%-8d %-20s %-18s %-10.3f %s\n",
					r.ID, r.InspectedAt.Format("2006-01-02 15:04:05"), r.Defect, r.Confidence, r.Camera)
			}
			fmt.Printf("\npage %d of %d matching records\n", page, total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number, 1-based")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Records per page")
	cmd.Flags().StringVar(&defect, "defect", "", "Filter by defect classification")
	cmd.Flags().StringVar(&camera, "camera", "", "Filter by camera identifier")
	cmd.Flags().StringVar(&since, "since", "", "Only records on or after this date (YYYY-MM-DD)")

	return cmd
}
