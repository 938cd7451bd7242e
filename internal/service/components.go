// Package service assembles the terminal automation stack from configuration.
package service

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/config"
	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
	"github.com/xkilldash9x/vatm-cli/internal/store"
	"github.com/xkilldash9x/vatm-cli/internal/terminal"
)

// Terminal is the set of simulator APIs one terminal exposes.
type Terminal struct {
	Agent          paragon.Agent
	VirtualMachine paragon.VirtualMachine
	Devices        paragon.Devices
	Connection     paragon.Connection
}

// Components holds everything a command needs to drive one terminal.
type Components struct {
	Config     *config.Config
	Registry   *screen.Registry
	Terminal   Terminal
	Automation *automation.Service
	Keypad     *terminal.Keypad
	Dispatcher *terminal.Dispatcher
	Session    *terminal.Session

	// Set only when the factory was asked for transactions or playlists.
	Catalog *playlist.Catalog
	Runner  *playlist.Runner
	// Set only when the factory was asked for playlists.
	Playlists []playlist.Playlist

	// Set only when a database URL is configured.
	Journal *store.Journal
	DBPool  *pgxpool.Pool

	playlistIndex map[string]playlist.Playlist
}

func playlistKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// setPlaylists stores pls and indexes them by normalized name. The first
// playlist loaded under a name wins.
func (c *Components) setPlaylists(pls []playlist.Playlist) {
	c.Playlists = pls
	c.playlistIndex = make(map[string]playlist.Playlist, len(pls))
	for _, pl := range pls {
		key := playlistKey(pl.Name)
		if _, dup := c.playlistIndex[key]; !dup {
			c.playlistIndex[key] = pl
		}
	}
}

// Playlist returns the loaded playlist called name, ignoring case and
// surrounding space.
func (c *Components) Playlist(name string) (playlist.Playlist, error) {
	pl, ok := c.playlistIndex[playlistKey(name)]
	if !ok {
		return playlist.Playlist{}, fmt.Errorf("%w: %q", playlist.ErrUnknownPlaylist, name)
	}
	return pl, nil
}

// Shutdown releases resources held by the components. The terminal
// session is not closed here; callers Disconnect it themselves.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	if c.DBPool != nil {
		c.DBPool.Close()
		c.DBPool = nil
		logger.Debug("Database connection pool closed.")
	}
	logger.Debug("Components shut down.")
}
