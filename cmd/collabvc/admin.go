package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	internalauth "collabvc/internal/auth"
	"collabvc/internal/blobstore"
	"collabvc/internal/config"
	"collabvc/internal/store"
)

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands run directly against the local database",
	}
	cmd.AddCommand(newAdminUserCmd(cfg, jsonOutput))
	return cmd
}

func newAdminUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local users",
	}
	cmd.AddCommand(newAdminUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserSetDisabledCmd(cfg, jsonOutput, "disable", "Disable one user and block new logins", true))
	cmd.AddCommand(newAdminUserSetDisabledCmd(cfg, jsonOutput, "enable", "Enable one user", false))
	return cmd
}

func newAdminUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one local user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPasswordInput(cmd, passwordStdin)
			if err != nil {
				return err
			}

			return withLocalStore(cfg, func(st *store.Store, _ blobstore.BlobStore) error {
				created, err := provisionUser(cmd.Context(), st, args[0], password, time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(created)
				}
				return writePlain("created user %s (%s)\n", created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin instead of prompting")
	return cmd
}

func newAdminUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLocalStore(cfg, func(st *store.Store, _ blobstore.BlobStore) error {
				users, err := st.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(users), "users": users})
				}
				if len(users) == 0 {
					return writePlain("no users configured\n")
				}
				if err := writePlain("USERNAME\tSTATUS\tID\n"); err != nil {
					return err
				}
				for _, user := range users {
					if err := writePlain("%s\t%s\t%s\n", user.Username, userStatus(user), user.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAdminUserSetDisabledCmd(cfg *config.Config, jsonOutput *bool, name, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withLocalStore(cfg, func(st *store.Store, _ blobstore.BlobStore) error {
				updated, err := st.SetUserDisabled(cmd.Context(), username, disabled, time.Now().UTC())
				if err != nil {
					return err
				}
				if updated == nil {
					return fmt.Errorf("user %s not found", username)
				}
				if *jsonOutput {
					return writeJSON(updated)
				}
				return writePlain("%s user %s\n", userStatus(*updated), updated.Username)
			})
		},
	}
}

// provisionUser validates and hashes the credentials before storing them.
func provisionUser(ctx context.Context, st store.AuthStore, rawUsername, password string, now time.Time) (*store.AuthUser, error) {
	username, err := internalauth.NormalizeUsername(rawUsername)
	if err != nil {
		return nil, err
	}
	if err := internalauth.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := internalauth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return st.CreateUser(ctx, username, hash, now)
}

func userStatus(user store.AuthUser) string {
	if user.Disabled {
		return "disabled"
	}
	return "enabled"
}
