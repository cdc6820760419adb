package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/s0up4200/wialon/wialon"
)

var geocodeFlags int64

// geocodeCmd represents the geocode command
var geocodeCmd = &cobra.Command{
	Use:   "geocode <lat> <lon>",
	Short: "Resolve coordinates to an address",
	Args:  cobra.ExactArgs(2),
	RunE:  runGeocode,
}

func init() {
	rootCmd.AddCommand(geocodeCmd)

	geocodeCmd.Flags().Int64Var(&geocodeFlags, "flags", wialon.DefaultGeocodeFlags, "address format flags")
}

func runGeocode(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q: %w", args[0], err)
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q: %w", args[1], err)
	}

	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	address, err := client.ReverseGeocode(cmd.Context(), lat, lon, geocodeFlags)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), address)
	return nil
}
