package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and show the session",
	Long: `Log in with the configured access token and print the user and session.

The session is closed again on exit unless --keep is given. A kept session id
can be passed to later commands with --sid or WIALON_SID, and its user id with
--uid or WIALON_UID (geocoding needs it).`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().BoolVar(&keepSession, "keep", false, "keep the session open and print its id")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if client.IsAuthenticated() && !ownSession {
		// --sid was given; a cheap authenticated call checks it is still alive
		if _, err := client.CreateAuthHash(cmd.Context()); err != nil {
			return fmt.Errorf("session check failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Session %s is valid on %s\n", client.SessionID(), client.Host())
		return nil
	}

	token, _, err := resolveToken()
	if err != nil {
		return err
	}

	resp, err := client.Login(cmd.Context(), token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	ownSession = true

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Logged in to %s\n", client.Host())
	fmt.Fprintf(out, "  User: %s (ID: %d)\n", resp.User.Name, resp.User.ID)
	if t := resp.Time(); !t.IsZero() {
		fmt.Fprintf(out, "  Server time: %s\n", t.Format("2006-01-02 15:04:05 MST"))
	}
	if keepSession {
		fmt.Fprintf(out, "  Session: %s\n", client.SessionID())
		fmt.Fprintf(out, "  Resume with: --sid %s --uid %d\n", client.SessionID(), client.UserID())
	}

	return nil
}
