package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbckr/domainlens/internal/server"
)

func newServeCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		Long: `Serve /analyze, /healthz, /health, /metrics and DELETE /cache/{domain}.

The server stops gracefully on interrupt.`,
		Args:    cobra.NoArgs,
		GroupID: "analysis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := d.newStack()
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(); err != nil {
					d.logger.Warn("closing resources", "error", err)
				}
			}()

			srv, err := server.New(s.engine, d.logger,
				server.Options{Addr: d.cfg.Listen, SweepInterval: d.cfg.CacheSweepInterval},
				server.WithMetrics(s.metrics),
				server.WithPurger(s.cache),
			)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
}
