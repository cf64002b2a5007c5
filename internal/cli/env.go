package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nhle/checklist/internal/migrate"
	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/repository"
	"github.com/nhle/checklist/internal/store"
)

// env is the persistence stack for one command run.
type env struct {
	cfg   *model.AppConfig
	store *store.Store
	repo  *repository.Repository
}

// openOptions control openEnv.
type openOptions struct {
	// skipMigration leaves the legacy import to the caller.
	skipMigration bool
}

// openEnv loads the config, opens the configured backend and store, and
// runs the legacy migration once.
func openEnv(ctx context.Context, configPath string, opts openOptions) (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, backend, store.Options{
		FlushDelay: cfg.Storage.FlushDelay(),
		OnFlushError: func(err error) {
			log.Printf("store: flush failed, changes kept in memory: %v", err)
		},
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	e := &env{cfg: cfg, store: s, repo: repository.New(s)}

	if !opts.skipMigration {
		if _, err := e.migrate(ctx); err != nil {
			// Startup continues; the legacy data stays for the next run.
			log.Printf("legacy migration failed: %v", err)
		}
	}
	return e, nil
}

func newBackend(cfg model.StorageConfig) (store.Backend, error) {
	switch cfg.Backend {
	case model.BackendBlob:
		return store.NewBlobBackend(cfg.Path, cfg.MaxBlobBytes), nil
	case model.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		b, err := store.NewSQLiteBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// migrate imports legacy data when a legacy directory is configured.
func (e *env) migrate(ctx context.Context) (migrate.Result, error) {
	if e.cfg.Storage.LegacyPath == "" {
		return migrate.Result{Status: migrate.NoLegacyData}, nil
	}
	if _, err := os.Stat(e.cfg.Storage.LegacyPath); errors.Is(err, os.ErrNotExist) {
		return migrate.Result{Status: migrate.NoLegacyData}, nil
	}
	src := migrate.NewDiskvSource(e.cfg.Storage.LegacyPath)
	return migrate.New(src, e.repo).Run(ctx)
}

// Close flushes pending changes and closes the backend.
func (e *env) Close(ctx context.Context) error {
	if err := e.store.Close(ctx); err != nil {
		return fmt.Errorf("saving changes: %w", err)
	}
	return nil
}
