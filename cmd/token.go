package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/s0up4200/wialon/config"
)

const (
	tokenKey = "access-token"

	// EnvKeyringPassword unlocks the file keyring backend without a prompt
	EnvKeyringPassword = "WIALON_KEYRING_PASSWORD"
)

var (
	errTokenNotStored = errors.New("no token stored in keyring")

	showToken bool
)

// tokenCmd groups the keyring token commands
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the access token stored in the system keyring",
	Long: `Store, show or remove the Wialon access token kept in the system keyring.

The backend is chosen with keyring.backend in the config file. The file
backend asks for a password, or reads it from WIALON_KEYRING_PASSWORD.`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store an access token",
	Long:  `Store an access token in the keyring. Without an argument the token is read from the terminal.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenSet,
}

var tokenGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the stored access token",
	Args:  cobra.NoArgs,
	RunE:  runTokenGet,
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored access token",
	Args:  cobra.NoArgs,
	RunE:  runTokenDelete,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenGetCmd, tokenDeleteCmd)

	tokenGetCmd.Flags().BoolVar(&showToken, "show", false, "print the whole token instead of a masked form")
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		var err error
		token, err = readSecret(cmd.ErrOrStderr(), "Access token")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	if err := saveToken(cfg.Keyring, token); err != nil {
		return err
	}

	logger.Info().Str("service", cfg.Keyring.Service).Msg("Token stored in keyring")
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Token stored")
	return nil
}

func runTokenGet(cmd *cobra.Command, args []string) error {
	token, err := loadToken(cfg.Keyring)
	if err != nil {
		return err
	}

	if showToken {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), maskToken(token))
	return nil
}

func runTokenDelete(cmd *cobra.Command, args []string) error {
	kr, err := openKeyring(cfg.Keyring)
	if err != nil {
		return err
	}

	if err := kr.Remove(tokenKey); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) || os.IsNotExist(err) {
			return errTokenNotStored
		}
		return fmt.Errorf("failed to remove token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Token removed")
	return nil
}

// openKeyring opens the configured keyring backend
func openKeyring(kc config.KeyringConfig) (keyring.Keyring, error) {
	krCfg := keyring.Config{
		ServiceName:              kc.Service,
		FileDir:                  kc.FileDir,
		FilePasswordFunc:         filePassword,
		KeychainTrustApplication: true,
		KWalletAppID:             kc.Service,
		KWalletFolder:            kc.Service,
		LibSecretCollectionName:  kc.Service,
		WinCredPrefix:            kc.Service,
		PassPrefix:               kc.Service,
	}
	if kc.Backend != "" {
		krCfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(kc.Backend)}
	}

	kr, err := keyring.Open(krCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return kr, nil
}

func loadToken(kc config.KeyringConfig) (string, error) {
	kr, err := openKeyring(kc)
	if err != nil {
		return "", err
	}

	item, err := kr.Get(tokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", errTokenNotStored
		}
		return "", fmt.Errorf("could not load token: %w", err)
	}
	return string(item.Data), nil
}

func saveToken(kc config.KeyringConfig, token string) error {
	kr, err := openKeyring(kc)
	if err != nil {
		return err
	}

	if err := kr.Set(keyring.Item{
		Key:         tokenKey,
		Data:        []byte(token),
		Label:       "Wialon access token",
		Description: "Wialon Remote API access token",
	}); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// filePassword unlocks the file backend
func filePassword(prompt string) (string, error) {
	if password, ok := os.LookupEnv(EnvKeyringPassword); ok {
		return password, nil
	}
	return readSecret(os.Stderr, prompt)
}

// readSecret reads a line from the terminal without echoing it
func readSecret(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal available to read %s", strings.ToLower(prompt))
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return string(b), nil
}

// maskToken keeps the first and last four characters
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
