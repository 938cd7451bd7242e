package playlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// LoadTransactions reads every *.json transaction in dir. Files that do not
// parse are logged and skipped.
func LoadTransactions(dir string, logger *zap.Logger) ([]Transaction, error) {
	return loadDir(dir, "transaction", logger, func(t Transaction) string { return t.Name }, func() Transaction {
		return Transaction{}
	})
}

// LoadPlaylists reads every *.json playlist in dir. Missing options take
// their defaults.
func LoadPlaylists(dir string, logger *zap.Logger) ([]Playlist, error) {
	return loadDir(dir, "playlist", logger, func(p Playlist) string { return p.Name }, func() Playlist {
		return Playlist{Options: DefaultPlaylistOptions()}
	})
}

func loadDir[T any](dir, kind string, logger *zap.Logger, name func(T) string, fresh func() T) ([]T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s directory %q: %w", kind, dir, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s directory: %w", kind, err)
	}

	var out []T
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(abs, e.Name())
		item, err := readJSON(path, fresh())
		if err == nil && strings.TrimSpace(name(item)) == "" {
			err = errors.New("name is required")
		}
		if err != nil {
			logger.Error("Failed to load file.", zap.String("kind", kind), zap.String("file", path), zap.Error(err))
			continue
		}
		logger.Info("Loaded.", zap.String("kind", kind), zap.String("name", name(item)))
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoDefinitions, kind, abs)
	}
	return out, nil
}

func readJSON[T any](path string, into T) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return into, err
	}
	if err := json.Unmarshal(data, &into); err != nil {
		return into, fmt.Errorf("decode: %w", err)
	}
	return into, nil
}
