package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		logLevel string
		migrate  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.container.Migrate(ctx); err != nil {
					return err
				}
			}

			srv := a.container.Server()
			a.log.Info("starting server", "addr", srv.Addr(), "env", a.cfg.AppEnv)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Create missing tables before serving")
	return cmd
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
