package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/service"
)

func newDispatchCmd(factory service.ComponentFactory) *cobra.Command {
	var collectMedia bool
	dispatchCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Returns the terminal to an idle screen",
		Long: `Connects to the terminal and works it back to the welcome screen,
answering prompts, cancelling PIN entry and collecting any card, receipt or
cash left behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stateFrom(cmd.Context())
			if err != nil {
				return err
			}
			return runDispatch(cmd.Context(), observability.GetLogger(), st, factory, collectMedia)
		},
	}
	dispatchCmd.Flags().BoolVar(&collectMedia, "collect-media", false, "Also collect media from every device once idle")
	return dispatchCmd
}

func runDispatch(ctx context.Context, logger *zap.Logger, st *appState, factory service.ComponentFactory, collectMedia bool) (err error) {
	comps, err := factory.Create(ctx, st.cfg, service.Options{BaseDir: st.baseDir}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer comps.Shutdown()

	if err := comps.Session.Attach(ctx); err != nil {
		return fmt.Errorf("failed to attach to terminal: %w", err)
	}
	defer func() {
		if dErr := comps.Session.Detach(ctx); dErr != nil {
			err = errors.Join(err, fmt.Errorf("detach: %w", dErr))
		}
	}()

	return comps.Session.Exclusive(ctx, func(ctx context.Context) error {
		if err := comps.Dispatcher.DispatchToIdle(ctx); err != nil {
			return err
		}
		if collectMedia {
			if err := comps.Dispatcher.TakeAllMedia(ctx); err != nil {
				return err
			}
		}
		logger.Info("Terminal is idle.")
		return nil
	})
}
