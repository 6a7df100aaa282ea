package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pcbaoi/aoi-go/cmd/boxes"
	"github.com/pcbaoi/aoi-go/cmd/inspections"
	"github.com/pcbaoi/aoi-go/cmd/stats"
	"github.com/pcbaoi/aoi-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aoi",
		Short: "PCB AOI inspection record store CLI",
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")

	rootCmd.AddCommand(
		inspections.Command(settings),
		stats.Command(settings),
		boxes.Command(settings),
	)

	return rootCmd
}
