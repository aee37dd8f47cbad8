// Package cmd implements the CLI commands for mythctl.
package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/gomyth/internal/config"
	"github.com/jmylchreest/gomyth/internal/observability"
	"github.com/jmylchreest/gomyth/internal/version"
)

var (
	// cfgFile holds the config file path from CLI flag.
	cfgFile string

	// cfg and logger are set by the root command before any subcommand runs.
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "mythctl",
	Short:   "MythTV backend and database client",
	Version: version.Short(),
	Long: `mythctl talks to a MythTV backend over the myth protocol and reads the
MythTV database, decoding every reply and row against the field layout of the
negotiated protocol or schema version.

Protocol versions 56 through 91 are understood. When the backend rejects the
configured version, mythctl retries once with the version the backend
offers.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Root().PersistentFlags())
	}

	// Flags are not bound to viper; they override config and env values only
	// when explicitly set, preserving flag > env > config > default.
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/mythctl and $HOME/.mythctl)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("backend", "", "backend address as host[:port]")
	flags.Int("protocol-version", 0, "protocol version to offer the backend")
	flags.StringP("output", "o", "table", "output format (table, json)")
}

// setup loads configuration, applies explicitly set flags and installs the
// logger.
func setup(flags *pflag.FlagSet) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := applyFlags(c, flags); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	logger = observability.WithComponent(observability.NewLogger(c.Logging), "mythctl")
	slog.SetDefault(logger)
	return nil
}

func applyFlags(c *config.Config, flags *pflag.FlagSet) error {
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		c.Logging.Level = strings.ToLower(level)
	}
	// Handle "warning" as an alias for "warn"
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		c.Logging.Format = strings.ToLower(format)
	}
	if flags.Changed("backend") {
		addr, _ := flags.GetString("backend")
		host, port, err := splitBackend(addr, c.Backend.Port)
		if err != nil {
			return err
		}
		c.Backend.Host, c.Backend.Port = host, port
	}
	if flags.Changed("protocol-version") {
		c.Backend.ProtocolVersion, _ = flags.GetInt("protocol-version")
	}
	return nil
}

// splitBackend parses host[:port], keeping defPort when no port is given.
func splitBackend(addr string, defPort int) (string, int, error) {
	if addr == "" {
		return "", 0, fmt.Errorf("--backend: empty address")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defPort, nil //nolint:nilerr // no port given
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("--backend: invalid port %q", portStr)
	}
	return host, port, nil
}

// outputFormat returns the value of the --output flag.
func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return strings.ToLower(format)
}
