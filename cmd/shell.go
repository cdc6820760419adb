package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/s0up4200/wialon/wialon"
)

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run Remote API calls interactively over one session",
	Long: `Start an interactive shell. Each line is a service name followed by
optional JSON params, quoted like a shell argument:

  > core/search_item '{"id":734455,"flags":1}'
  > core_get_hw_types '{"filterType":"name","filterValue":["Teltonika FMB920"]}'

"units" lists units, narrowed by an optional filter expression or preset:

  > units moving() and Speed > 80
  > units silent

"exit" or end of input leaves the shell.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	if err := ensureSession(cmd.Context()); err != nil {
		return err
	}
	return repl(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
}

// replUnits runs the units builtin. A single word naming a preset selects it.
func replUnits(ctx context.Context, api wialon.API, line string, out io.Writer) error {
	var presets map[string]string
	if cfg != nil {
		presets = cfg.Filter
	}

	expression := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "units"))
	preset := ""
	if _, ok := presets[expression]; ok {
		preset, expression = expression, ""
	}

	f, err := unitFilters.Resolve(presets, preset, expression)
	if err != nil {
		fmt.Fprintf(out, "Invalid filter: %s\n", err)
		return nil
	}

	units, err := findUnits(ctx, api, "*", f)
	if err != nil {
		return err
	}
	printUnits(out, units)
	return nil
}

// repl reads calls from in until exit, printing results and call errors to out
func repl(ctx context.Context, api wialon.API, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for fmt.Fprint(out, "> "); scanner.Scan(); fmt.Fprint(out, "> ") {
		words, err := shlex.Split(scanner.Text())
		if len(words) == 0 {
			continue
		}
		if words[0] == "exit" || words[0] == "quit" {
			return nil
		}
		if words[0] == "units" {
			if err := replUnits(ctx, api, scanner.Text(), out); err != nil {
				fmt.Fprintf(out, "Error (%s): %s\n", wialon.KindOf(err), err)
				if errors.Is(err, wialon.ErrNotAuthenticated) || isSessionExpired(err) {
					return err
				}
			}
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "Invalid command: %s\n", err)
			continue
		}
		if len(words) > 2 {
			fmt.Fprintln(out, "Invalid command: expected <svc> [params-json]")
			continue
		}

		svc, params, err := parseCallArgs(words)
		if err != nil {
			fmt.Fprintf(out, "Invalid command: %s\n", err)
			continue
		}

		result, err := api.Call(ctx, svc, params)
		if err != nil {
			fmt.Fprintf(out, "Error (%s): %s\n", wialon.KindOf(err), err)
			// The server dropped the session, nothing else will work
			if errors.Is(err, wialon.ErrNotAuthenticated) || isSessionExpired(err) {
				return err
			}
			continue
		}
		if err := printJSON(out, result); err != nil {
			fmt.Fprintf(out, "Invalid response: %s\n", err)
		}
	}
	fmt.Fprintln(out)

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading command: %w", err)
	}
	return nil
}

func isSessionExpired(err error) bool {
	var apiErr *wialon.APIError
	return errors.As(err, &apiErr) && apiErr.IsSessionExpired()
}
