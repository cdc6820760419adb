package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/wialon/filter"
	"github.com/s0up4200/wialon/wialon"
)

// filterCacheSize bounds the compiled expressions kept by unitFilters
const filterCacheSize = 64

// unitFilters is shared by the units command and the shell, where the same
// expression is usually run many times
var unitFilters = filter.NewCompiler(filter.WithCache(filterCacheSize))

var (
	unitsMask   string
	unitsFilter string
	unitsPreset string
)

// unitsCmd represents the units command
var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List units, optionally narrowed by a filter expression",
	Long: `List units with their last known position.

Units can be narrowed client side with an expression or a preset from the
config file:

  wialon units --filter 'moving() and Speed > 80'
  wialon units --preset silent`,
	Args: cobra.NoArgs,
	RunE: runUnits,
}

func init() {
	rootCmd.AddCommand(unitsCmd)

	unitsCmd.Flags().StringVarP(&unitsMask, "mask", "m", "*", "unit name mask")
	unitsCmd.Flags().StringVarP(&unitsFilter, "filter", "f", "", "filter expression")
	unitsCmd.Flags().StringVarP(&unitsPreset, "preset", "p", "", "use a preset filter from config")
}

func runUnits(cmd *cobra.Command, args []string) error {
	// Compile before logging in so a typo costs no session
	f, err := unitFilters.Resolve(cfg.Filter, unitsPreset, unitsFilter)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}

	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	units, err := findUnits(cmd.Context(), client, unitsMask, f)
	if err != nil {
		return err
	}

	printUnits(cmd.OutOrStdout(), units)
	return nil
}

// findUnits searches units by name mask and keeps those matching f
func findUnits(ctx context.Context, api wialon.API, mask string, f *filter.Filter) ([]wialon.Item, error) {
	params := wialon.NewSearchByName(wialon.ItemTypeUnit, mask, wialon.FlagBase|wialon.FlagUnitLastMessage)
	resp, err := api.SearchItems(ctx, params)
	if err != nil {
		return nil, err
	}

	units, err := f.Apply(resp.Items)
	if err != nil {
		return nil, err
	}

	if f != nil {
		logger.Info().
			Str("filter", f.String()).
			Int("matched", len(units)).
			Int("total", len(resp.Items)).
			Msg("Filter applied")
	}
	return units, nil
}

func printUnits(out io.Writer, items []wialon.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No units found matching the filter criteria.")
		return
	}

	fmt.Fprintf(out, "Found %d units:\n\n", len(items))
	fmt.Fprintln(out, strings.Repeat("━", 96))
	fmt.Fprintf(out, "%-10s %-32s %-20s %-22s %s\n", "ID", "NAME", "LAST SEEN", "POSITION", "SPEED")
	fmt.Fprintln(out, strings.Repeat("━", 96))

	for _, item := range items {
		unit := filter.NewUnit(item)

		lastSeen, position, speed := "never", "-", "-"
		if unit.HasPosition {
			lastSeen = unit.LastSeen.Local().Format(time.DateTime)
			position = fmt.Sprintf("%.5f,%.5f", unit.Lat, unit.Lon)
			speed = fmt.Sprintf("%d km/h", unit.Speed)
		}

		fmt.Fprintf(out, "%-10d %-32s %-20s %-22s %s\n", unit.ID, truncate(unit.Name, 32), lastSeen, position, speed)
	}
	fmt.Fprintln(out, strings.Repeat("━", 96))
}
