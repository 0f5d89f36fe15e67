package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func initConfigCommand() *cobra.Command {
	configCMD := &cobra.Command{
		Use:   "config",
		Short: "Inspect the portguard configuration",
	}

	showCMD := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			var cfg = loadConfig()

			stored, _ := cmd.Flags().GetBool("stored")
			if stored {
				db := openStore(cfg)
				defer db.Close()

				app, err := db.GetConfiguration(context.Background())
				if err != nil {
					qwe(exitCodeError, err, "failed to read stored configuration")
				}
				cfg.App = app
			}

			settings, err := cfg.Settings()
			if err != nil {
				qwe(exitCodeError, err)
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(settings); err != nil {
				qwe(exitCodeError, err, "failed to print configuration")
			}
		},
	}
	showCMD.Flags().Bool("stored", false, "show the policy settings saved by the running daemon")

	validateCMD := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			_ = loadConfig()
			qwm(exitCodeSuccess, "configuration is valid")
		},
	}

	configCMD.AddCommand(showCMD, validateCMD)
	return configCMD
}
