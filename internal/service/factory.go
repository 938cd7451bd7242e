package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/config"
	"github.com/xkilldash9x/vatm-cli/internal/network"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/store"
	"github.com/xkilldash9x/vatm-cli/internal/terminal"
)

// Options select what the factory builds beyond the terminal stack.
type Options struct {
	// BaseDir resolves relative screens, transactions and playlists paths.
	BaseDir string
	// Transactions loads the transaction catalog and builds a Runner.
	Transactions bool
	// Playlists also loads the playlists directory. It implies Transactions.
	Playlists bool
	// Journal connects the run journal when database.url is set.
	Journal bool
}

// ComponentFactory builds the components a command needs. Commands take a
// factory so tests can substitute simulator doubles.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*Components, error)
	// OpenJournal connects the run journal on its own. The returned func
	// releases the connection.
	OpenJournal(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Journal, func(), error)
}

// concreteFactory talks to a real simulator over HTTP.
type concreteFactory struct{}

// NewComponentFactory creates the production factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create validates the session settings, builds the HTTP clients and
// assembles the stack on top of them.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*Components, error) {
	if err := cfg.ValidateSession(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clientCfg, err := network.ClientConfigFrom(cfg.Network, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure http client: %w", err)
	}
	base, err := paragon.NewClient(cfg.Terminal.Host, network.NewClient(clientCfg), logger)
	if err != nil {
		return nil, err
	}
	clients := paragon.NewClients(base, paragon.Endpoints{
		Agent:          cfg.API.Agent,
		VirtualMachine: cfg.API.VirtualMachine,
		ATM:            cfg.API.ATM,
		Connection:     cfg.API.Connection,
	})

	return Assemble(ctx, cfg, Terminal{
		Agent:          clients.Agent,
		VirtualMachine: clients.VirtualMachine,
		Devices:        clients.Devices,
		Connection:     clients.Connection,
	}, opts, logger)
}

// OpenJournal requires database.url; there is nothing to read without it.
func (f *concreteFactory) OpenJournal(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Journal, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("database.url is not set")
	}
	journal, pool, err := InitializeJournal(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return journal, pool.Close, nil
}

// Assemble wires the automation stack onto term. On error every resource
// it acquired has been released.
func Assemble(ctx context.Context, cfg *config.Config, term Terminal, opts Options, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Components{Config: cfg, Terminal: term}

	runner := opts.Transactions || opts.Playlists
	switch {
	case opts.Playlists:
		defs, err := LoadDefinitions(cfg, opts.BaseDir, logger)
		if err != nil {
			return nil, err
		}
		c.Registry, c.Catalog = defs.Registry, defs.Catalog
		c.setPlaylists(defs.Playlists)
	case opts.Transactions:
		defs, err := LoadTransactionDefinitions(cfg, opts.BaseDir, logger)
		if err != nil {
			return nil, err
		}
		c.Registry, c.Catalog = defs.Registry, defs.Catalog
	default:
		registry, err := config.LoadScreens(cfg, opts.BaseDir)
		if err != nil {
			return nil, err
		}
		c.Registry = registry
	}

	c.Automation = automation.NewService(term.VirtualMachine, logger)
	c.Keypad = terminal.NewKeypad(term.Devices, cfg.Keypad.KeyInterval, terminal.KeypadConfig{
		DigitPrefix: cfg.Keypad.DigitPrefix,
		EnterKey:    cfg.Keypad.EnterKey,
		CancelKey:   cfg.Keypad.CancelKey,
	}, logger)
	media := terminal.NewMediaCollector(term.Devices, cfg.Preferences.DownloadPath, logger)

	dispatcher, err := terminal.NewDispatcher(c.Automation, c.Keypad, media, c.Registry, terminal.DispatchConfig{
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
		Timeout:       cfg.Dispatch.Timeout,
		StandardDelay: cfg.Terminal.StandardDelay,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatcher: %w", err)
	}
	c.Dispatcher = dispatcher

	c.Session = terminal.NewSession(term.Agent, term.Connection, term.Devices, c.Automation, dispatcher, c.Registry, terminal.SessionConfig{
		Credentials: paragon.Credentials{
			Username: cfg.Credentials.Username,
			Password: cfg.Credentials.Password,
			GroupID:  cfg.Credentials.GroupID,
		},
		HwProfile:      cfg.Terminal.HwProfile,
		StartupApps:    cfg.Terminal.StartupApps,
		StartupDelay:   cfg.Terminal.StartupDelay,
		StartupTimeout: cfg.Terminal.StartupTimeout,
		StartupRefresh: cfg.Terminal.StartupRefresh,
	}, logger)

	if !runner {
		return c, nil
	}

	deps := playlist.Dependencies{
		Automation: c.Automation,
		VM:         term.VirtualMachine,
		Devices:    term.Devices,
		Keypad:     c.Keypad,
		Dispatcher: dispatcher,
		Registry:   c.Registry,
		Catalog:    c.Catalog,
	}
	if opts.Journal && cfg.Database.URL != "" {
		journal, pool, err := InitializeJournal(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize run journal: %w", err)
		}
		c.Journal, c.DBPool = journal, pool
		deps.Recorder = journal
	}
	c.Runner = playlist.NewRunner(deps, playlist.Config{
		DownloadPath:       cfg.Preferences.DownloadPath,
		Screenshots:        cfg.Preferences.Screenshots,
		ButtonEditDistance: cfg.Preferences.ButtonEditDistance,
	}, logger)
	return c, nil
}
