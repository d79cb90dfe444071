package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/injectly/injectly/internal/client"
	"github.com/injectly/injectly/internal/output"
)

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage injectable scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newScriptListCmd())
	cmd.AddCommand(newScriptCreateCmd())
	cmd.AddCommand(newScriptGetCmd())
	cmd.AddCommand(newScriptUpdateCmd())
	cmd.AddCommand(newScriptDeleteCmd())
	cmd.AddCommand(newScriptAssignCmd())
	return cmd
}

func newScriptListCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scripts with their assigned sites",
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

			resp, err := api.ListScripts(cmd.Context())
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, resp)
			}
			if len(resp.Scripts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scripts registered.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Scripts))
			for _, script := range resp.Scripts {
				rows = append(rows, []string{
					fmt.Sprintf("%d", script.ID),
					output.Truncate(script.Name, 40),
					fmt.Sprintf("%d", len(script.AssignedSites)),
					script.UpdatedAt,
				})
			}
			return output.WriteTable(cmd.OutOrStdout(), []string{"ID", "NAME", "SITES", "UPDATED"}, rows)
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	return cmd
}

func newScriptCreateCmd() *cobra.Command {
	var outputMode string
	var content string
	var file string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new script",
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
			body, err := readContent(content, file)
			if err != nil {
				return err
			}

			script, err := api.CreateScript(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, script)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script created:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  ID:   %d\n", script.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Name: %s\n\n", script.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Next: run 'injectly script assign %d --sites <id,...>' to pick sites.\n", script.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	cmd.Flags().StringVar(&content, "content", "", "Script source inline")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read script source from a file")
	return cmd
}

func newScriptGetCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a script, its source, and its assignments",
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
			id, err := parseID(args[0], "script")
			if err != nil {
				return err
			}

			script, err := api.GetScript(cmd.Context(), id)
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, script)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ID:      %d\n", script.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Name:    %s\n", script.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", script.CreatedAt)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s\n", script.UpdatedAt)
			fmt.Fprintf(cmd.OutOrStdout(), "Sites:   %s\n\n", formatSiteRefs(script.AssignedSites))
			fmt.Fprintln(cmd.OutOrStdout(), script.Content)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	return cmd
}

func newScriptUpdateCmd() *cobra.Command {
	var outputMode string
	var name string
	var content string
	var file string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a script's name or source",
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
			id, err := parseID(args[0], "script")
			if err != nil {
				return err
			}

			current, err := api.GetScript(cmd.Context(), id)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				name = current.Name
			}
			body := current.Content
			if content != "" || file != "" {
				body, err = readContent(content, file)
				if err != nil {
					return err
				}
			}

			script, err := api.UpdateScript(cmd.Context(), id, name, body)
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, script)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script %d updated (%s).\n", script.ID, script.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	cmd.Flags().StringVar(&name, "name", "", "New script name")
	cmd.Flags().StringVar(&content, "content", "", "New script source inline")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read new script source from a file")
	return cmd
}

func newScriptDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a script and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api, err := runtimeAndClientFromCommand(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "script")
			if err != nil {
				return err
			}
			if err := api.DeleteScript(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script %d deleted.\n", id)
			return nil
		},
	}
	return cmd
}

func newScriptAssignCmd() *cobra.Command {
	var outputMode string
	var sitesFlag string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Replace the set of sites a script is injected into",
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
			id, err := parseID(args[0], "script")
			if err != nil {
				return err
			}
			siteIDs, err := parseSiteIDs(sitesFlag)
			if err != nil {
				return err
			}

			script, err := api.AssignScript(cmd.Context(), id, siteIDs)
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, script)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script %d now injected into: %s\n", script.ID, formatSiteRefs(script.AssignedSites))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	cmd.Flags().StringVar(&sitesFlag, "sites", "", "Comma-separated site IDs (empty clears all assignments)")
	return cmd
}

// parseSiteIDs accepts "1,2,3" or "" (clear every assignment).
func parseSiteIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []int64{}, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := parseID(part, "site")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatSiteRefs(refs []client.SiteRef) string {
	if len(refs) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Domain)
	}
	return strings.Join(names, ", ")
}
