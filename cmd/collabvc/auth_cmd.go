package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"collabvc/internal/api"
	internalauth "collabvc/internal/auth"
	"collabvc/internal/config"
)

func newLoginCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save a session token for later commands",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			password, err := readPasswordInput(cmd, passwordStdin)
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Login(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				err = saveSession(session{
					APIURL:    cfg.APIURL,
					Token:     resp.Token,
					UserID:    resp.UserID,
					Username:  resp.Username,
					ExpiresAt: resp.ExpiresAt,
				})
				if err != nil {
					return fmt.Errorf("save session: %w", err)
				}

				if *jsonOutput {
					return writeJSON(map[string]any{
						"user_id":    resp.UserID,
						"username":   resp.Username,
						"expires_at": resp.ExpiresAt,
					})
				}
				return writePlain("logged in as %s (session expires %s)\n", resp.Username, formatTime(resp.ExpiresAt))
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin instead of prompting")
	return cmd
}

func newLogoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withClient(cfg, func(client *api.Client) error {
				if !client.HasToken() {
					return nil
				}
				return client.Logout(cmd.Context())
			})
			if err != nil && !api.IsUnauthorized(err) {
				return err
			}
			if err := clearSession(); err != nil {
				return err
			}
			return writePlain("logged out\n")
		},
	}
}

func newWhoamiCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				me, err := client.Me(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(me)
				}
				return writePlain("%s (%s)\n", me.Username, me.UserID)
			})
		},
	}
}
