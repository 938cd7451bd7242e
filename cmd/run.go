package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/service"
)

type runOptions struct {
	transactions []string
	noJournal    bool
}

func newRunCmd(factory service.ComponentFactory) *cobra.Command {
	opts := &runOptions{}
	runCmd := &cobra.Command{
		Use:   "run [playlist...]",
		Short: "Runs playlists or single transactions against the terminal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(opts.transactions) == 0 {
				return errors.New("name at least one playlist or use --transaction")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stateFrom(cmd.Context())
			if err != nil {
				return err
			}
			return runPlaylists(cmd.Context(), observability.GetLogger(), st, factory, args, opts)
		},
	}
	runCmd.Flags().StringSliceVarP(&opts.transactions, "transaction", "t", nil, "Transaction to run once, after any playlists (repeatable)")
	runCmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "Do not record runs even when database.url is set")
	return runCmd
}

// runPlaylists resolves and validates everything requested before the
// terminal is touched, then runs it under the session lock.
func runPlaylists(ctx context.Context, logger *zap.Logger, st *appState, factory service.ComponentFactory, names []string, opts *runOptions) (err error) {
	comps, err := factory.Create(ctx, st.cfg, service.Options{
		BaseDir:      st.baseDir,
		Transactions: true,
		Playlists:    len(names) > 0,
		Journal:      !opts.noJournal,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer comps.Shutdown()

	playlists := make([]playlist.Playlist, 0, len(names))
	for _, name := range names {
		pl, err := comps.Playlist(name)
		if err != nil {
			return err
		}
		if err := comps.Catalog.Validate(pl, comps.Registry); err != nil {
			return fmt.Errorf("playlist %q: %w", pl.Name, err)
		}
		playlists = append(playlists, pl)
	}
	txs := make([]playlist.Transaction, 0, len(opts.transactions))
	for _, name := range opts.transactions {
		tx, err := comps.Catalog.Lookup(name)
		if err != nil {
			return err
		}
		if err := playlist.ValidateTransaction(tx, comps.Registry); err != nil {
			return fmt.Errorf("transaction %q: %w", tx.Name, err)
		}
		txs = append(txs, tx)
	}

	// Connect closes what it opened when it fails.
	if err := comps.Session.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to terminal: %w", err)
	}
	defer func() {
		if dErr := comps.Session.Disconnect(ctx); dErr != nil {
			err = errors.Join(err, fmt.Errorf("disconnect: %w", dErr))
		}
	}()

	return comps.Session.Exclusive(ctx, func(ctx context.Context) error {
		for _, pl := range playlists {
			logger.Info("Running playlist.", zap.String("playlist", pl.Name))
			if err := comps.Runner.RunPlaylist(ctx, pl); err != nil {
				return fmt.Errorf("playlist %q: %w", pl.Name, err)
			}
		}
		for _, tx := range txs {
			if err := comps.Dispatcher.DispatchToIdle(ctx); err != nil {
				return err
			}
			logger.Info("Running transaction.", zap.String("transaction", tx.Name))
			if err := comps.Runner.RunTransaction(ctx, tx); err != nil {
				return fmt.Errorf("transaction %q: %w", tx.Name, err)
			}
		}
		return nil
	})
}
