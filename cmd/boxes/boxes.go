// Package boxes implements the sorting-box occupancy subcommand.
package boxes

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/datastore"
)

// Command returns the box occupancy command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boxes",
		Short: "Show occupancy of the physical sorting boxes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database backend enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			boxes, err := store.GetAllBoxStatus(context.Background())
			if err != nil {
				return err
			}

			sort.Slice(boxes, func(i, j int) bool { return boxes[i].BoxID < boxes[j].BoxID })

			fmt.Printf("%-16s %-18s %-8s %-6s %s\n", "BOX", "CATEGORY", "SLOT", "FULL", "TOTAL")
			for i := range boxes {
				b := &boxes[i]
				full := ""
				if b.IsFull {
					full = "FULL"
				}
				fmt.Printf("%-16s %-18s %d/%-6d %-6s %d\n",
					b.BoxID, b.Category, b.CurrentSlot, b.MaxSlots-1, full, b.TotalCount)
			}
			return nil
		},
	}

	return cmd
}
