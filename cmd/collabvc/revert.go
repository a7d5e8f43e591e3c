package main

import (
	"github.com/spf13/cobra"

	"collabvc/internal/api"
	"collabvc/internal/config"
)

func newRevertCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <workspace> <path> <version-id>",
		Short: "Restore a file to an earlier version as a new version",
		Args:  requireExactlyArgs(3, "workspace, path and version id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				rec, err := client.Revert(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(rec)
				}
				return writePlain("committed %s %s (revert of %s)\n", rec.VersionID, rec.FilePath, rec.RevertedFromVersionID)
			})
		},
	}
}
