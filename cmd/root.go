package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/wialon/config"
	"github.com/s0up4200/wialon/wialon"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *wialon.Client

	// Command flags
	tokenFlag   string
	sidFlag     string
	uidFlag     int64
	hostFlag    string
	devFlag     bool
	logLevel    string
	keepSession bool

	// ownSession is set when this process opened the session it is using
	ownSession bool

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wialon",
	Short: "A command line client for the Wialon Remote API",
	Long: `wialon talks to the Wialon Remote API (ajax.html) of Wialon Hosting or a
Wialon Local installation. It logs in with an access token, performs remote
calls and prints their JSON results.

The token is taken from --token, then from the config file or WIALON_TOKEN,
then from the system keyring (see "wialon token set").`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: finishSession,
}

// SetVersion records the build version shown by the version and update commands.
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.wialon/config.yaml)")
	flags.StringVar(&tokenFlag, "token", "", "access token (overrides config and keyring)")
	flags.StringVar(&sidFlag, "sid", "", "reuse an existing session id instead of logging in")
	flags.Int64Var(&uidFlag, "uid", 0, "user id of the session given with --sid (needed for geocoding)")
	flags.StringVar(&hostFlag, "host", "", "Remote API host (overrides config)")
	flags.BoolVar(&devFlag, "dev", false, "use the development API path")
	flags.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

// initializeApp loads the configuration and builds the logger and client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Command line overrides
	if cmd.Flags().Changed("host") {
		cfg.Wialon.Host = hostFlag
	}
	if cmd.Flags().Changed("dev") {
		cfg.Wialon.Development = devFlag
	}
	if cmd.Flags().Changed("sid") {
		cfg.Wialon.SessionID = sidFlag
	}
	if cmd.Flags().Changed("uid") {
		cfg.Wialon.UserID = uidFlag
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	logger = setupLogger(cfg.Logging)

	client, err = newClient(cfg.Wialon, logger)
	if err != nil {
		return fmt.Errorf("failed to create Wialon client: %w", err)
	}
	ownSession = false

	return nil
}

// newClient maps the connection settings onto client options
func newClient(wc config.WialonConfig, log zerolog.Logger) (*wialon.Client, error) {
	opts := []wialon.Option{
		wialon.WithScheme(wc.Scheme),
		wialon.WithHost(wc.Host),
		wialon.WithPort(wc.Port),
		wialon.WithDevelopment(wc.Development),
		wialon.WithTimeout(wc.Timeout),
	}
	if wc.HTTPMethod != "" {
		opts = append(opts, wialon.WithHTTPMethod(strings.ToUpper(wc.HTTPMethod)))
	}
	if wc.SessionID != "" {
		opts = append(opts, wialon.WithSessionID(wc.SessionID), wialon.WithUserID(wc.UserID))
	}
	if len(wc.ExtraParams) > 0 {
		opts = append(opts, wialon.WithExtraParams(wc.ExtraParams))
	}
	if wc.UserAgent != "" {
		opts = append(opts, wialon.WithUserAgent(wc.UserAgent))
	}
	if wc.GeocodeURL != "" {
		opts = append(opts, wialon.WithGeocodeURL(wc.GeocodeURL))
	}

	return wialon.NewClient(log, opts...)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	fd := os.Stderr.Fd()
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// ensureSession logs in unless the client already carries a session
func ensureSession(ctx context.Context) error {
	if client.IsAuthenticated() {
		return nil
	}

	token, source, err := resolveToken()
	if err != nil {
		return err
	}

	logger.Debug().Str("source", source).Msg("Logging in")

	resp, err := client.Login(ctx, token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	ownSession = true

	logger.Info().
		Str("user", resp.User.Name).
		Int64("user_id", resp.User.ID).
		Str("host", client.Host()).
		Msg("Logged in")

	return nil
}

// resolveToken returns the access token and where it was found.
// Priority: --token flag > config/environment > keyring.
func resolveToken() (string, string, error) {
	if token := strings.TrimSpace(tokenFlag); token != "" {
		return token, "flag", nil
	}
	if token := strings.TrimSpace(cfg.Wialon.Token); token != "" {
		return token, "config", nil
	}

	token, err := loadToken(cfg.Keyring)
	if err == nil {
		return token, "keyring", nil
	}
	if errors.Is(err, errTokenNotStored) {
		return "", "", fmt.Errorf("no access token: use --token, set wialon.token or run 'wialon token set'")
	}
	return "", "", err
}

// finishSession closes sessions opened by this process unless asked to keep them
func finishSession(cmd *cobra.Command, args []string) error {
	if client == nil || !ownSession || keepSession || !client.IsAuthenticated() {
		return nil
	}

	if err := client.Logout(cmd.Context()); err != nil {
		logger.Warn().Err(err).Msg("Failed to log out")
		return nil
	}
	ownSession = false
	logger.Debug().Msg("Logged out")
	return nil
}

// printJSON writes an indented rendering of a remote result
func printJSON(w io.Writer, v any) error {
	raw, ok := v.(json.RawMessage)
	if !ok {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		raw = data
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	out.WriteByte('\n')

	_, err := out.WriteTo(w)
	return err
}

// describeError formats a command failure for the terminal
func describeError(err error) string {
	var apiErr *wialon.APIError
	if errors.As(err, &apiErr) && apiErr.IsSessionExpired() {
		return fmt.Sprintf("Error: %v (log in again)", err)
	}
	return fmt.Sprintf("Error: %v", err)
}
