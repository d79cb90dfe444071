package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/injectly/injectly/internal/output"
)

func newSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage registered website domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newSiteListCmd())
	cmd.AddCommand(newSiteAddCmd())
	cmd.AddCommand(newSiteRemoveCmd())
	return cmd
}

func newSiteListCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(outputMode)
			if err != nil {
				return err
			}

			resp, err := api.ListSites(cmd.Context())
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, resp)
			}
			if len(resp.Sites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sites registered.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Sites))
			for _, site := range resp.Sites {
				kind := "exact"
				if site.Wildcard {
					kind = "wildcard"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", site.ID),
					site.Domain,
					kind,
					site.CreatedAt,
				})
			}
			return output.WriteTable(cmd.OutOrStdout(), []string{"ID", "DOMAIN", "MATCH", "CREATED"}, rows)
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	return cmd
}

func newSiteAddCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "add <domain>",
		Short: "Register a site domain (prefix with *. for wildcard matching)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(outputMode)
			if err != nil {
				return err
			}

			site, err := api.CreateSite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, site)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site registered:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  ID:     %d\n", site.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Domain: %s\n\n", site.Domain)
			fmt.Fprintf(cmd.OutOrStdout(), "Embed on the site:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  <script src=\"https://<daemon-host>/inject.js\" defer></script>\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	return cmd
}

func newSiteRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a site and its script assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "site")
			if err != nil {
				return err
			}
			if err := api.DeleteSite(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site %d removed.\n", id)
			return nil
		},
	}
	return cmd
}
