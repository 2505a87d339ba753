package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/api"
	"github.com/venture-galaxy/matchmaker/internal/artifact"
	"github.com/venture-galaxy/matchmaker/internal/fetcher"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matchmaking HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Classification stays disabled when the artifact backend is incomplete.
		var up artifact.Uploader
		if err := cfg.Validate("artifact"); err != nil {
			zap.L().Warn("classification disabled", zap.Error(err))
		} else if up, err = artifact.New(cfg.Artifact, nil); err != nil {
			return eris.Wrap(err, "init artifact backend")
		}

		srvAPI := api.New(cfg.Server, api.Deps{
			Docs:     env.Store,
			Health:   env.Store,
			Scorer:   env.Scorer,
			Funnel:   env.funnel(),
			Importer: env.importer(nil),
			Uploader: up,
			Fetcher:  fetcher.NewHTTP(cfg.Fetch),
			Metrics:  env.Metrics,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srvAPI.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
