package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/funnel"
	"github.com/venture-galaxy/matchmaker/internal/identity"
	"github.com/venture-galaxy/matchmaker/internal/importer"
	"github.com/venture-galaxy/matchmaker/internal/metrics"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// appEnv holds the collaborators shared by every subcommand.
type appEnv struct {
	Store   store.Store
	Scorer  *scorer.Scorer
	Metrics *metrics.Recorder
}

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv opens the store and builds the scorer. The embedded SQLite schema
// is applied on open; Postgres deployments run the migrate command instead.
func initEnv(ctx context.Context) (*appEnv, error) {
	if err := scorer.ValidateConfig(cfg.Scoring); err != nil {
		return nil, eris.Wrap(err, "scoring config")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if cfg.Store.Driver == "sqlite" {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	return &appEnv{
		Store:   st,
		Scorer:  scorer.New(cfg.Scoring),
		Metrics: metrics.New(),
	}, nil
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func (e *appEnv) importer(progress func(importer.Progress)) *importer.Importer {
	opts := importer.OptionsFromConfig(cfg.Import)
	opts.Metrics = e.Metrics
	opts.Progress = progress
	return importer.New(identity.NewLocal(e.Store, cfg.Identity), e.Store, e.Scorer, opts)
}

func (e *appEnv) funnel() *funnel.Service {
	return funnel.New(e.Store, e.Scorer, cfg.Funnel.Concurrency, e.Metrics)
}
