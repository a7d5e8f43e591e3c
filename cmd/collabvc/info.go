package main

import (
	"github.com/spf13/cobra"

	"collabvc/internal/api"
	"collabvc/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server storage info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("backend: %s\n", resp.Backend)
				if resp.DBPath != "" {
					_ = writePlain("db_path: %s\n", resp.DBPath)
				}
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("workspaces: %d\n", resp.Workspaces)
				_ = writePlain("users: %d\n", resp.Users)
				_ = writePlain("versions: %d\n", resp.Versions)
				_ = writePlain("blobs: %d (%d bytes)\n", resp.Blobs, resp.BlobBytes)
				return nil
			})
		},
	}
}
