package main

import (
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := background(cmd)
			a, err := newApp(ctx, "")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.container.Migrate(ctx); err != nil {
				return err
			}
			a.log.Info("schema up to date", "driver", a.cfg.DBDriver)
			return nil
		},
	}
}
