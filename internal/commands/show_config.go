// internal/commands/show_config.go
package mmrag

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/mmrag/internal/appconfig"
)

var showConfigDump bool

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overridden by flags and MMRAG_ environment variables accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		if showConfigDump && cfg != nil {
			appconfig.DumpConfig(cmd.OutOrStdout(), *cfg)
			return
		}
		file := ""
		if configLoaded {
			file = cfgFile
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), file, cfg, appconfig.Default())
	},
}

func init() {
	showConfigCmd.Flags().BoolVar(&showConfigDump, "dump", false, "print the full configuration struct")
	showCmd.AddCommand(showConfigCmd)
}
