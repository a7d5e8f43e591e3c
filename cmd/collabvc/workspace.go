package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"collabvc/internal/api"
	"collabvc/internal/config"
)

func newWorkspaceCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces and their members",
	}
	cmd.AddCommand(
		newWorkspaceCreateCmd(cfg, jsonOutput),
		newWorkspaceListCmd(cfg, jsonOutput),
		newWorkspaceShowCmd(cfg, jsonOutput),
		newWorkspaceUpdateCmd(cfg, jsonOutput),
		newWorkspaceAddMemberCmd(cfg, jsonOutput),
		newWorkspaceRemoveMemberCmd(cfg),
	)
	return cmd
}

func newWorkspaceCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace owned by the current user",
		Args:  requireExactlyArgs(1, "name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				ws, err := client.CreateWorkspace(cmd.Context(), api.WorkspaceCreateRequest{Name: args[0], Description: description})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ws)
				}
				return writePlain("created workspace %s (%s)\n", ws.ID, ws.Name)
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "workspace description")
	return cmd
}

func newWorkspaceListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				workspaces, err := client.ListWorkspaces(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(workspaces)
				}
				if len(workspaces) == 0 {
					return writePlain("no workspaces\n")
				}
				if err := writePlain("ID\tROLE\tNAME\n"); err != nil {
					return err
				}
				for _, ws := range workspaces {
					if err := writePlain("%s\t%s\t%s\n", ws.ID, ws.Role, ws.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newWorkspaceShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workspace>",
		Short: "Show a workspace and its members",
		Args:  requireExactlyArgs(1, "workspace is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				ws, err := client.GetWorkspace(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ws)
				}
				return writeWorkspaceDetail(ws)
			})
		},
	}
}

func newWorkspaceUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <workspace> [--name name] [--description text]",
		Short: "Rename a workspace or change its description",
		Args:  requireExactlyArgs(1, "workspace is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := workspaceUpdateRequest(cmd, name, description)
			if req.Name == nil && req.Description == nil {
				return fmt.Errorf("nothing to update; pass --name or --description")
			}
			return withClient(cfg, func(client *api.Client) error {
				ws, err := client.UpdateWorkspace(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ws)
				}
				return writeWorkspaceDetail(ws)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new workspace name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description (empty clears it)")
	return cmd
}

// workspaceUpdateRequest sends only the flags the user set.
func workspaceUpdateRequest(cmd *cobra.Command, name, description string) api.WorkspaceUpdateRequest {
	var req api.WorkspaceUpdateRequest
	if cmd.Flags().Changed("name") {
		req.Name = &name
	}
	if cmd.Flags().Changed("description") {
		req.Description = &description
	}
	return req
}

func newWorkspaceAddMemberCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "add-member <workspace> <username>",
		Short: "Add a user to a workspace or change their role",
		Args:  requireExactlyArgs(2, "workspace and username are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				ws, err := client.AddMember(cmd.Context(), args[0], api.MemberAddRequest{Username: args[1], Role: role})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ws)
				}
				return writeWorkspaceDetail(ws)
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "editor", "member role (editor|viewer)")
	return cmd
}

func newWorkspaceRemoveMemberCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "remove-member <workspace> <username>",
		Aliases: []string{"rm-member"},
		Short:   "Remove a user from a workspace",
		Args:    requireExactlyArgs(2, "workspace and username are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if err := client.RemoveMember(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return writePlain("removed %s from %s\n", args[1], args[0])
			})
		},
	}
}
