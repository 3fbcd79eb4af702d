package main

import (
	"context"

	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/harunnryd/voxlate/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			// The server needs the controller, which only exists once the
			// engine is built. Hooks run later, inside Run.
			var srv *server.Server
			hooks := runner.Hooks{
				OnStart: func(ctx context.Context) error { return srv.Start(ctx) },
				OnStop:  func() { _ = srv.Stop() },
			}
			engine, err := a.newEngine(cmd.Context(), cmd, cfg, hooks)
			if err != nil {
				return err
			}
			srv = server.New(server.Config{
				Addr:           cfg.Server.Addr,
				AllowAnyOrigin: cfg.Server.AllowAnyOrigin,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}, engine.Controller(), a.commandLogger(cmd, cfg))
			return engine.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
