package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/wialon/wialon"
)

// callCmd represents the call command
var callCmd = &cobra.Command{
	Use:   "call <svc> [params-json]",
	Short: "Perform a raw Remote API call",
	Long: `Perform any Remote API call and print the JSON result.

The service may be given as "core/search_item" or in flat form
"core_search_item". Params default to {}.

Example:
  wialon call core/search_item '{"id":734455,"flags":1}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	svc, params, err := parseCallArgs(args)
	if err != nil {
		return err
	}

	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}

	result, err := client.Call(cmd.Context(), svc, params)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

// parseCallArgs turns "svc [json]" into a service name and params
func parseCallArgs(args []string) (string, json.RawMessage, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("missing service name")
	}

	svc := wialon.ServiceName(args[0])
	if svc == "" {
		return "", nil, fmt.Errorf("missing service name")
	}

	params := json.RawMessage("{}")
	if len(args) > 1 {
		raw := strings.TrimSpace(args[1])
		if raw != "" {
			if !json.Valid([]byte(raw)) {
				return "", nil, fmt.Errorf("params for %s are not valid JSON", svc)
			}
			params = json.RawMessage(raw)
		}
	}

	return svc, params, nil
}
