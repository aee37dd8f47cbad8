package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gomyth/internal/version"
	"github.com/jmylchreest/gomyth/pkg/mythtv/protocol"
)

var versionJSON bool

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit, and build date of mythctl, and the protocol versions it speaks.",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionJSON {
			fmt.Fprintln(out, version.JSON())
			return
		}

		fmt.Fprintln(out, version.String())
		versions := protocol.Versions()
		fmt.Fprintf(out, "protocol versions %d-%d (default %d)\n",
			versions[0], versions[len(versions)-1], protocol.DefaultVersion)
		if version.IsSnapshot() {
			fmt.Fprintln(out, "snapshot build")
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
