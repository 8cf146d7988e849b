package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the billing database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg.Store != storePostgres {
				return errors.New("migrate requires STORE_DRIVER=postgres")
			}
			st, err := app.openStorage(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.close()

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
