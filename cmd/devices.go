package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/service"
)

func newDevicesCmd(factory service.ComponentFactory) *cobra.Command {
	var operatorSwitch string
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Lists the terminal's devices and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTerminal(cmd, factory, func(ctx context.Context, comps *service.Components) error {
				return printDevices(ctx, cmd.OutOrStdout(), comps.Terminal.Devices, operatorSwitch)
			})
		},
	}
	devicesCmd.Flags().StringVar(&operatorSwitch, "operator-switch", "", "Also print the position of this operator switch device")
	return devicesCmd
}

func printDevices(ctx context.Context, w io.Writer, devices paragon.Devices, operatorSwitch string) error {
	list, err := devices.GetServices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tOPEN\tMEDIA\tSTATE")
	for _, d := range list {
		state, err := devices.GetDeviceState(ctx, d.Name)
		if err != nil {
			observability.GetLogger().Debug("Device state unavailable.", zap.String("device", d.Name), zap.Error(err))
			state = "?"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n", d.Name, d.DeviceType, d.IsOpen, d.Media, state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if pinpad, ok := paragon.FindDevice(list, paragon.DevicePinPad); ok {
		keys, err := devices.GetPinpadKeys(ctx, pinpad.Name)
		if err != nil {
			return fmt.Errorf("pin pad keys: %w", err)
		}
		fmt.Fprintf(w, "\n%s supported keys: %s\n%s enabled keys: %s\n", pinpad.Name, keys.Supported, pinpad.Name, keys.Enabled)
	}
	if operatorSwitch != "" {
		status, err := devices.OperatorSwitchStatus(ctx, operatorSwitch)
		if err != nil {
			return fmt.Errorf("operator switch: %w", err)
		}
		fmt.Fprintf(w, "\n%s position: %s\n", operatorSwitch, status)
	}
	return nil
}

// newGroupsCmd lists the user groups the configured credentials may open a
// session with. It does not open one.
func newGroupsCmd(factory service.ComponentFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Lists the user groups available to the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := stateFrom(ctx)
			if err != nil {
				return err
			}
			comps, err := factory.Create(ctx, st.cfg, service.Options{BaseDir: st.baseDir}, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer comps.Shutdown()

			groups, err := comps.Terminal.Agent.GetUserGroups(ctx, paragon.Credentials{
				Username: st.cfg.Credentials.Username,
				Password: st.cfg.Credentials.Password,
			})
			if err != nil {
				return fmt.Errorf("get user groups: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, g := range groups {
				fmt.Fprintf(tw, "%d\t%s\n", g.ID, g.Name)
			}
			return tw.Flush()
		},
	}
}
