package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ankunstudio/backoffice/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cc)
		},
	}
}

func runServe(ctx context.Context, cc *commandContext) error {
	cfg, log := cc.cfg, cc.log
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to serve")
	}

	st, err := bootstrap(ctx, cfg, log, bootstrapOptions{
		withAudit:    true,
		withThrottle: true,
		auditWorkers: cfg.Mongo.AuditWorkers,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		st.close(closeCtx, log)
	}()

	st.service.Probe(ctx)
	go st.service.Run(ctx)

	e := api.NewRouter(api.Deps{
		Service:     st.service,
		Tokens:      st.tokens,
		Limiter:     st.limiter,
		Events:      st.events,
		Mongo:       st.mongoDB,
		Redis:       st.redis,
		JWTSecret:   cfg.JWTSecret,
		ExposeDebug: !cfg.IsProduction(),
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
