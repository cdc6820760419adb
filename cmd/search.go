package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/wialon/wialon"
)

var (
	searchType  string
	searchMask  string
	searchProp  string
	searchFlags int64
	searchFrom  int
	searchTo    int
	searchJSON  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [mask]",
	Short: "Search items by property mask",
	Long: `Search items with core/search_items.

The mask supports the server side wildcards * and ?. Items are matched on
sys_name unless --prop selects another property.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchType, "type", "t", string(wialon.ItemTypeUnit), "item type (avl_unit, avl_unit_group, avl_resource, user, ...)")
	searchCmd.Flags().StringVarP(&searchMask, "mask", "m", "*", "property value mask")
	searchCmd.Flags().StringVar(&searchProp, "prop", "sys_name", "property to match")
	searchCmd.Flags().Int64Var(&searchFlags, "flags", wialon.FlagBase, "data flags of the returned items")
	searchCmd.Flags().IntVar(&searchFrom, "from", 0, "index of the first item")
	searchCmd.Flags().IntVar(&searchTo, "to", 0, "index of the last item (0 returns all)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the raw response")
}

func runSearch(cmd *cobra.Command, args []string) error {
	mask := searchMask
	if len(args) == 1 {
		mask = args[0]
	}

	params := wialon.NewSearchByName(wialon.ItemType(searchType), mask, searchFlags)
	params.Spec.PropName = searchProp
	params.From = searchFrom
	params.To = searchTo

	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	logger.Debug().Str("type", searchType).Str("mask", mask).Msg("Searching items")

	resp, err := client.SearchItems(cmd.Context(), params)
	if err != nil {
		return err
	}

	if searchJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}

	printItems(cmd, resp.Items)
	if resp.HasMoreItems() {
		fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %d items, use --from/--to to page.\n",
			len(resp.Items), resp.TotalItemsCount)
	}
	return nil
}

// printItems renders items as a table
func printItems(cmd *cobra.Command, items []wialon.Item) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items found.")
		return
	}

	itemText := "item"
	if len(items) != 1 {
		itemText = "items"
	}
	fmt.Fprintf(out, "Found %d %s:\n\n", len(items), itemText)

	fmt.Fprintln(out, strings.Repeat("━", 70))
	fmt.Fprintf(out, "%-12s %-48s %s\n", "ID", "NAME", "CLASS")
	fmt.Fprintln(out, strings.Repeat("━", 70))
	for _, item := range items {
		fmt.Fprintf(out, "%-12d %-48s %d\n", item.ID, truncate(item.Name, 48), item.Class)
	}
	fmt.Fprintln(out, strings.Repeat("━", 70))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
