package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/injectly/injectly/internal/output"
)

func newStatsCmd() *cobra.Command {
	var outputMode string
	cmd := &cobra.Command{
		Use:   "stats <script-id>",
		Short: "Show 24h injection counts for a script",
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

			stats, err := api.ScriptStats(cmd.Context(), id)
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteStructured(cmd.OutOrStdout(), format, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script %d: %d injections in the last 24h\n", stats.ScriptID, stats.Total24h)
			if len(stats.Hourly) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(stats.Hourly))
			for _, bucket := range stats.Hourly {
				rows = append(rows, []string{bucket.Hour, fmt.Sprintf("%d", bucket.Count)})
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return output.WriteTable(cmd.OutOrStdout(), []string{"HOUR", "COUNT"}, rows)
		},
	}
	cmd.Flags().StringVarP(&outputMode, "output", "o", "table", "Output format (table|json|yaml)")
	return cmd
}
