package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/playlist"
	"github.com/xkilldash9x/vatm-cli/internal/service"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Checks screens, transactions and playlists without contacting the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stateFrom(cmd.Context())
			if err != nil {
				return err
			}
			defs, err := service.LoadDefinitions(st.cfg, st.baseDir, observability.GetLogger())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var errs []error
			for _, name := range defs.Catalog.Names() {
				tx, err := defs.Catalog.Lookup(name)
				if err == nil {
					err = playlist.ValidateTransaction(tx, defs.Registry)
				}
				if err != nil {
					fmt.Fprintf(out, "FAIL  transaction %s\n", name)
					errs = append(errs, fmt.Errorf("transaction %q: %w", name, err))
				}
			}
			for _, pl := range defs.Playlists {
				if err := defs.Catalog.Validate(pl, defs.Registry); err != nil {
					fmt.Fprintf(out, "FAIL  playlist %s\n", pl.Name)
					errs = append(errs, fmt.Errorf("playlist %q: %w", pl.Name, err))
					continue
				}
				fmt.Fprintf(out, "ok    playlist %s\n", pl.Name)
			}
			fmt.Fprintf(out, "%d screens, %d transactions, %d playlists\n",
				defs.Registry.Len(), len(defs.Catalog.Names()), len(defs.Playlists))
			return errors.Join(errs...)
		},
	}
}
