package main

import (
	"os"

	"github.com/spf13/cobra"

	"collabvc/internal/api"
	"collabvc/internal/config"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		versionID string
		metaOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "show <workspace> <path>",
		Short: "Print a file at its latest or a given version",
		Args:  requireWorkspaceAndPath,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				file, err := client.GetFile(cmd.Context(), args[0], args[1], versionID)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(file)
				}
				if metaOnly {
					return writeVersionDetail(file)
				}
				content, err := file.DecodeContent()
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(content)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&versionID, "version", "", "version id to read (default: latest)")
	cmd.Flags().BoolVar(&metaOnly, "meta", false, "print version metadata instead of content")
	return cmd
}

func newVersionCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "version <workspace> <version-id>",
		Short: "Show one version by id",
		Args:  requireExactlyArgs(2, "workspace and version id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				file, err := client.GetVersion(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(file)
				}
				return writeVersionDetail(file)
			})
		},
	}
}
