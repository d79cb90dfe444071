package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/injectly/injectly/internal/config"
)

func newSetupCmd() *cobra.Command {
	var username string
	var password string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the admin account on a fresh daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			username = strings.TrimSpace(username)
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if password == "" {
				password, err = promptPassword(cmd, "Password")
				if err != nil {
					return err
				}
				confirm, err := promptPassword(cmd, "Confirm password")
				if err != nil {
					return err
				}
				if confirm != password {
					return fmt.Errorf("passwords do not match")
				}
			}

			if err := api.Setup(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin account %q created on %s.\n", username, rt.Server)
			fmt.Fprintln(cmd.OutOrStdout(), "Next: run 'injectly login' to obtain a session token.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (prompted when omitted)")
	return cmd
}

func newLoginCmd() *cobra.Command {
	var username string
	var password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			username = strings.TrimSpace(username)
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if password == "" {
				password, err = promptPassword(cmd, "Password")
				if err != nil {
					return err
				}
			}

			resp, err := api.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			updated := config.Config{Server: rt.Server, Token: resp.Token}
			if err := config.Save(rt.ConfigPath, updated); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s.\n", rt.Server, resp.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "Session token written to %s.\n", rt.ConfigPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			if rt.Config.Token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored session token.")
				return nil
			}
			// Clear the stored token even when the server rejects it; a
			// stale token is already dead on the daemon side.
			logoutErr := api.Logout(cmd.Context())
			rt.Config.Token = ""
			if err := config.Save(rt.ConfigPath, rt.Config); err != nil {
				return err
			}
			if logoutErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared stored token (server logout failed: %v).\n", logoutErr)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
