package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/config"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
	"github.com/xkilldash9x/vatm-cli/internal/store"
)

// Definitions are the file-backed inputs of a run.
type Definitions struct {
	Registry  *screen.Registry
	Catalog   *playlist.Catalog
	Playlists []playlist.Playlist
}

// LoadDefinitions reads the screen registry, the transactions and the
// playlists named by cfg. Relative paths resolve against baseDir.
func LoadDefinitions(cfg *config.Config, baseDir string, logger *zap.Logger) (*Definitions, error) {
	defs, err := LoadTransactionDefinitions(cfg, baseDir, logger)
	if err != nil {
		return nil, err
	}

	plDir, err := resolvePath(baseDir, cfg.Preferences.PlaylistsPath)
	if err != nil {
		return nil, err
	}
	playlists, err := playlist.LoadPlaylists(plDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	defs.Playlists = playlists
	return defs, nil
}

// LoadTransactionDefinitions is LoadDefinitions without the playlists
// directory, which need not exist.
func LoadTransactionDefinitions(cfg *config.Config, baseDir string, logger *zap.Logger) (*Definitions, error) {
	registry, err := config.LoadScreens(cfg, baseDir)
	if err != nil {
		return nil, err
	}

	txDir, err := resolvePath(baseDir, cfg.Preferences.TransactionsPath)
	if err != nil {
		return nil, err
	}
	txs, err := playlist.LoadTransactions(txDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	catalog, err := playlist.NewCatalog(txs)
	if err != nil {
		return nil, err
	}
	return &Definitions{Registry: registry, Catalog: catalog}, nil
}

// InitializeJournal connects to PostgreSQL and prepares the run journal.
// The caller owns the returned pool.
func InitializeJournal(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Journal, *pgxpool.Pool, error) {
	logger.Info("Initializing run journal.")
	pool, err := store.Open(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	journal, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := journal.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return journal, pool, nil
}

func resolvePath(baseDir, path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if !filepath.IsAbs(expanded) && baseDir != "" {
		expanded = filepath.Join(baseDir, expanded)
	}
	return expanded, nil
}
