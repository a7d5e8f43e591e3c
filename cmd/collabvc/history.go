package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"collabvc/internal/api"
	"collabvc/internal/config"
)

func newHistoryCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <workspace> <path>",
		Short: "List a file's versions, newest first",
		Args:  requireWorkspaceAndPath,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.History(cmd.Context(), args[0], args[1], limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeVersionList(resp.Versions)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum versions to show (default: server history limit)")
	return cmd
}

func newLogCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log <workspace>",
		Short: "List recent versions across a workspace",
		Args:  requireExactlyArgs(1, "workspace is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.RecentVersions(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeVersionList(resp.Versions)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum versions to show (default 20)")
	return cmd
}

func newFilesCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "files <workspace>",
		Short: "List every file path with at least one version",
		Args:  requireExactlyArgs(1, "workspace is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListFiles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				for _, file := range resp.Files {
					if err := writePlain("%s\n", file); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
