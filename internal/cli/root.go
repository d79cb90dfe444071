package cli

import "github.com/spf13/cobra"

// NewRootCmd builds the injectly command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "injectly",
		Short: "CLI for the injectlyd tag manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("server", "", "Daemon base URL (default from config file)")

	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newScriptCmd())
	cmd.AddCommand(newSiteCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	if version == "" {
		version = "dev"
	}

	return &cobra.Command{
		Use:   "version",
		Short: "Print injectly version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(version)
			return nil
		},
	}
}
