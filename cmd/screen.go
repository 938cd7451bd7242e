package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/service"
	"github.com/xkilldash9x/vatm-cli/internal/terminal"
)

func newScreenCmd(factory service.ComponentFactory) *cobra.Command {
	screenCmd := &cobra.Command{
		Use:   "screen",
		Short: "Inspects what the terminal is showing without acting on it",
	}

	screenCmd.AddCommand(&cobra.Command{
		Use:   "words",
		Short: "Prints the OCR words of the current screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTerminal(cmd, factory, func(ctx context.Context, comps *service.Components) error {
				words, err := comps.Automation.ScreenWords(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(words, " "))
				return nil
			})
		},
	})

	screenCmd.AddCommand(&cobra.Command{
		Use:   "match",
		Short: "Scores the current screen against every screen definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTerminal(cmd, factory, func(ctx context.Context, comps *service.Components) error {
				words, err := comps.Automation.ScreenWords(ctx)
				if err != nil {
					return err
				}
				return printMatches(cmd.OutOrStdout(), comps, words)
			})
		},
	})

	var out string
	shotCmd := &cobra.Command{
		Use:   "shot",
		Short: "Saves a screenshot of the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTerminal(cmd, factory, func(ctx context.Context, comps *service.Components) error {
				folder := out
				if folder == "" {
					folder = comps.Config.Preferences.DownloadPath
				}
				path, err := terminal.SaveScreenshot(ctx, comps.Terminal.VirtualMachine, folder)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	shotCmd.Flags().StringVarP(&out, "out", "o", "", "Folder for the screenshot (default is preferences.download_path)")
	screenCmd.AddCommand(shotCmd)

	return screenCmd
}

func printMatches(w io.Writer, comps *service.Components, words []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCREEN\tSCORE\tMATCH")
	for _, def := range comps.Registry.All() {
		mark := ""
		if def.Matches(words) {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", def.Name, def.Score(words), mark)
	}
	return tw.Flush()
}

// withTerminal attaches to the terminal for fn and always detaches.
func withTerminal(cmd *cobra.Command, factory service.ComponentFactory, fn func(ctx context.Context, comps *service.Components) error) (err error) {
	ctx := cmd.Context()
	st, err := stateFrom(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

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
			logger.Warn("Detach failed.", zap.Error(dErr))
			err = errors.Join(err, dErr)
		}
	}()
	return comps.Session.Exclusive(ctx, func(ctx context.Context) error { return fn(ctx, comps) })
}
