package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncPlansCmd(app *app) *cobra.Command {
	var catalog string

	cmd := &cobra.Command{
		Use:   "sync-plans",
		Short: "Mirror plans from Stripe or from a YAML catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := app.openStorage(ctx, false)
			if err != nil {
				return err
			}
			defer st.close()

			svc, _, _, err := app.newService(st.store)
			if err != nil {
				return err
			}

			source := "stripe"
			var n int
			if catalog != "" {
				source = catalog
				n, err = app.loadCatalog(ctx, svc, catalog)
			} else {
				n, err = svc.SyncPlans(ctx)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d plans from %s\n", n, source)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "", "YAML plan catalogue to load instead of calling Stripe")

	return cmd
}
