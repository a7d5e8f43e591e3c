package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"collabvc/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		outputName string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "collabvc",
		Short:         "collabvc keeps a linear version history for every file in a shared workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return configureOutput(&jsonOutput, outputName)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVarP(&outputName, "output", "o", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newLoginCmd(cfg, &jsonOutput),
		newLogoutCmd(cfg),
		newWhoamiCmd(cfg, &jsonOutput),
		newWorkspaceCmd(cfg, &jsonOutput),
		newCommitCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newHistoryCmd(cfg, &jsonOutput),
		newLogCmd(cfg, &jsonOutput),
		newFilesCmd(cfg, &jsonOutput),
		newRevertCmd(cfg, &jsonOutput),
		newVersionCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newAdminCmd(cfg, &jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
		newSeedCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
