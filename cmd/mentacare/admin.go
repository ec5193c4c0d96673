package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func createAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first super admin",
		Long:  "Create the first super admin account. Fails once an active super admin exists.",
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
			admin, err := a.container.Bootstrap(ctx, email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created super admin %s (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
