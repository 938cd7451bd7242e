package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/config"
	"github.com/xkilldash9x/vatm-cli/internal/mocks"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

func testScreens() []screen.Definition {
	return []screen.Definition{
		{Name: "Welcome", Phrases: []screen.Phrase{{Text: "please insert your card", MatchConfidence: 0.8}}},
		{Name: "PIN", Phrases: []screen.Phrase{{Text: "enter your pin", MatchConfidence: 1}}},
	}
}

// newWorkspace lays out transactions/ and playlists/ under a temp dir and
// returns a config pointing at them with relative paths.
func newWorkspace(t *testing.T) (*config.Config, string) {
	t.Helper()
	base := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(base, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	write("transactions/balance.json", `{"name": "Balance Inquiry", "screenFlow": [
		{"screen": "welcome", "actionType": "insertCard", "actionValue": "4000"},
		{"screen": "pin", "actionType": "keypad", "actionValue": "1234"}]}`)
	write("playlists/smoke.json", `{"name": "Smoke", "transactions": ["Balance Inquiry"]}`)

	cfg := config.NewDefaultConfig()
	cfg.Screens = testScreens()
	cfg.Preferences.DownloadPath = filepath.Join(base, "downloads")
	return cfg, base
}

func testTerminal() Terminal {
	return Terminal{
		Agent:          new(mocks.MockAgent),
		VirtualMachine: new(mocks.MockVirtualMachine),
		Devices:        new(mocks.MockDevices),
		Connection:     new(mocks.MockConnection),
	}
}

func TestLoadDefinitions(t *testing.T) {
	cfg, base := newWorkspace(t)

	defs, err := LoadDefinitions(cfg, base, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, defs.Registry.Len())
	assert.Equal(t, []string{"Balance Inquiry"}, defs.Catalog.Names())
	require.Len(t, defs.Playlists, 1)
	assert.NoError(t, defs.Catalog.Validate(defs.Playlists[0], defs.Registry))

	t.Run("missing transactions directory", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		cfg.Preferences.TransactionsPath = "nowhere"
		_, err := LoadDefinitions(cfg, base, zap.NewNop())
		assert.ErrorContains(t, err, "failed to load transactions")
	})

	t.Run("no screens", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		cfg.Screens = nil
		_, err := LoadDefinitions(cfg, base, zap.NewNop())
		assert.ErrorContains(t, err, "no screen definitions configured")
	})
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal only", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		c, err := Assemble(ctx, cfg, testTerminal(), Options{BaseDir: base}, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, c.Session)
		assert.NotNil(t, c.Dispatcher)
		assert.Same(t, c.Dispatcher, c.Session.Dispatcher())
		assert.Nil(t, c.Runner)
		assert.Nil(t, c.Catalog)
	})

	t.Run("with playlists and no database", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		c, err := Assemble(ctx, cfg, testTerminal(), Options{BaseDir: base, Playlists: true, Journal: true}, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, c.Runner)
		assert.Nil(t, c.Journal)
		assert.Nil(t, c.DBPool)

		pl, err := c.Playlist(" smoke ")
		require.NoError(t, err)
		assert.Equal(t, "Smoke", pl.Name)

		_, err = c.Playlist("nightly")
		assert.ErrorIs(t, err, playlist.ErrUnknownPlaylist)

		c.Shutdown()
	})

	t.Run("transactions without a playlists directory", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		require.NoError(t, os.RemoveAll(filepath.Join(base, "playlists")))

		_, err := Assemble(ctx, cfg, testTerminal(), Options{BaseDir: base, Playlists: true}, zap.NewNop())
		assert.ErrorContains(t, err, "failed to load playlists")

		c, err := Assemble(ctx, cfg, testTerminal(), Options{BaseDir: base, Transactions: true}, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, c.Runner)
		_, err = c.Catalog.Lookup("balance inquiry")
		assert.NoError(t, err)
		assert.Empty(t, c.Playlists)
		_, err = c.Playlist("smoke")
		assert.ErrorIs(t, err, playlist.ErrUnknownPlaylist)
	})

	t.Run("registry without an idle screen", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		cfg.Screens = []screen.Definition{testScreens()[1]}
		_, err := Assemble(ctx, cfg, testTerminal(), Options{BaseDir: base}, zap.NewNop())
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to build dispatcher")
		assert.ErrorIs(t, err, screen.ErrUnknownScreen)
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	factory := NewComponentFactory()

	t.Run("session settings are required", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		_, err := factory.Create(ctx, cfg, Options{BaseDir: base}, zap.NewNop())
		assert.ErrorContains(t, err, "terminal.host is a required")
	})

	t.Run("builds http clients", func(t *testing.T) {
		cfg, base := newWorkspace(t)
		cfg.Terminal.Host = "https://sim.example.com:8443"
		cfg.Credentials.Username = "tester"
		cfg.Credentials.Password = "secret"

		c, err := factory.Create(ctx, cfg, Options{BaseDir: base}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &paragon.AgentClient{}, c.Terminal.Agent)
		assert.IsType(t, &paragon.VirtualMachineClient{}, c.Terminal.VirtualMachine)
		assert.IsType(t, &paragon.DeviceClient{}, c.Terminal.Devices)
		assert.IsType(t, &paragon.ConnectionClient{}, c.Terminal.Connection)
	})
}

func TestOpenJournal(t *testing.T) {
	factory := NewComponentFactory()

	_, _, err := factory.OpenJournal(context.Background(), config.DatabaseConfig{}, zap.NewNop())
	assert.ErrorContains(t, err, "database.url is not set")

	_, _, err = factory.OpenJournal(context.Background(), config.DatabaseConfig{URL: "://not a url"}, zap.NewNop())
	assert.ErrorContains(t, err, "invalid database url")
}

func TestResolvePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "playlists")

	got, err := resolvePath("/srv/vatm", "playlists")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/vatm", "playlists"), got)

	got, err = resolvePath("/srv/vatm", abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	got, err = resolvePath("", "playlists")
	require.NoError(t, err)
	assert.Equal(t, "playlists", got)
}

func TestComponents_Playlist(t *testing.T) {
	c := &Components{}
	_, err := c.Playlist("smoke")
	assert.ErrorIs(t, err, playlist.ErrUnknownPlaylist)

	c.setPlaylists([]playlist.Playlist{
		{Name: "Smoke", Transactions: []string{"Balance Inquiry"}},
		{Name: " SMOKE ", Transactions: []string{"Withdrawal"}},
		{Name: "Nightly"},
	})
	pl, err := c.Playlist("smoke")
	require.NoError(t, err)
	assert.Equal(t, []string{"Balance Inquiry"}, pl.Transactions, "the first playlist loaded under a name wins")

	pl, err = c.Playlist("nightly ")
	require.NoError(t, err)
	assert.Equal(t, "Nightly", pl.Name)
	assert.Len(t, c.Playlists, 3)
}
