package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stripekit",
		Short:         "Stripe subscription billing server",
		Long:          "stripekit serves the billing pages and the Stripe webhook endpoint, applies its database migrations and syncs plans from Stripe or a YAML catalogue.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newMigrateCmd(app),
		newSyncPlansCmd(app),
	)

	return rootCmd
}
