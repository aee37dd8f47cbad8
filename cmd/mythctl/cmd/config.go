package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/gomyth/internal/config"
)

var configDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing mythctl configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format, with secrets masked.

With --defaults only the built-in defaults are shown. Redirect the output to
a file to create a configuration template:

  mythctl config dump --defaults > config.yaml

Configuration can be set via:
  - Config file (config.yaml in ., /etc/mythctl or $HOME/.mythctl)
  - Environment variables (MYTHCTL_BACKEND_HOST, MYTHCTL_DATABASE_PASSWORD, etc.)
  - Command-line flags (for some options)

Environment variables use the MYTHCTL_ prefix and underscores for nesting.
Example: backend.host -> MYTHCTL_BACKEND_HOST`,
	RunE: runConfigDump,
}

func init() {
	configDumpCmd.Flags().BoolVar(&configDefaults, "defaults", false, "dump built-in defaults only")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	c := cfg
	if configDefaults {
		v := viper.New()
		config.SetDefaults(v)
		d, err := config.Unmarshal(v)
		if err != nil {
			return fmt.Errorf("loading defaults: %w", err)
		}
		c = d
	}
	return writeConfig(cmd.OutOrStdout(), c.Redacted())
}

func writeConfig(w io.Writer, c config.Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Fprintln(w, "# mythctl configuration")
	fmt.Fprintln(w, "#")
	fmt.Fprintln(w, "# Duration format: 30s, 5m, 1h, 2d, 1w")
	fmt.Fprintln(w, "# Size format: 512MB, 50GB, 1.5TB")
	fmt.Fprintln(w, "#")
	_, err = w.Write(data)
	return err
}
