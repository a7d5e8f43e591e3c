package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"collabvc/internal/blobstore"
	"collabvc/internal/config"
	"collabvc/internal/server"
	"collabvc/internal/store"
	"collabvc/internal/versioning"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the collabvc API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			st, blobs, err := openBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			versions := versioning.NewService(st, blobs, versioningOptions(cfg, logger))
			srv := server.New(addr, st, versions, server.Options{
				BackendName:     cfg.Storage.Backend,
				DBPath:          st.Path(),
				MaxContentBytes: cfg.Versioning.MaxContentBytes,
				Logger:          logger,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
}

// openBackend opens the configured store with its matching blob store.
func openBackend(cfg *config.Config, logger *slog.Logger) (*store.Store, blobstore.BlobStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; all data is lost on exit")
		st, err := store.OpenMemory()
		if err != nil {
			return nil, nil, err
		}
		return st, blobstore.NewMemoryCAS(), nil
	case config.BackendSQLite, "":
		if cfg.DBPath == "" {
			return nil, nil, fmt.Errorf("db path is required")
		}
		logger.Info("opening database", "path", cfg.DBPath, "blob_dir", cfg.Storage.BlobDir)
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		blobs, err := blobstore.NewLocalCAS(cfg.Storage.BlobDir)
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, blobs, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func versioningOptions(cfg *config.Config, logger *slog.Logger) versioning.Options {
	return versioning.Options{
		CommitAttempts:  cfg.Versioning.CommitAttempts,
		MaxContentBytes: cfg.Versioning.MaxContentBytes,
		HistoryLimit:    cfg.Versioning.HistoryLimit,
		Logger:          logger,
	}
}

// withLocalStore runs fn directly against the configured sqlite database,
// bypassing the API. Used for provisioning that precedes any login.
func withLocalStore(cfg *config.Config, fn func(*store.Store, blobstore.BlobStore) error) error {
	if cfg.Storage.Backend == config.BackendMemory {
		return fmt.Errorf("storage backend %q has no database to administer; use sqlite", cfg.Storage.Backend)
	}
	st, blobs, err := openBackend(cfg, slog.Default().With("component", "admin"))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st, blobs)
}
