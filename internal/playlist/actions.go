package playlist

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/terminal"
)

// Action types a step may use. Matching is case-insensitive.
const (
	ActionNone        = "none"
	ActionInsertCard  = "insertcard"
	ActionButton      = "button"
	ActionKeypad      = "keypad"
	ActionTakeCard    = "takecard"
	ActionTakeReceipt = "takereceipt"
	// ActionInsertMedia deposits the item named by the action value.
	ActionInsertMedia = "insertmedia"
	// ActionTTUKey presses the action value on the text terminal unit.
	ActionTTUKey = "ttukey"
	// ActionOperatorSwitch takes "supervisor", "run" or "push".
	ActionOperatorSwitch = "operatorswitch"
	// ActionSupervisorMode takes "enter" or "exit".
	ActionSupervisorMode = "supervisormode"
)

type actionFunc func(ctx context.Context, r *Runner, ex *execution, step Step) error

var actions = map[string]actionFunc{
	ActionNone:           func(context.Context, *Runner, *execution, Step) error { return nil },
	ActionInsertCard:     insertCard,
	ActionButton:         pressButton,
	ActionKeypad:         typeKeys,
	ActionTakeCard:       takeCard,
	ActionTakeReceipt:    takeReceipt,
	ActionInsertMedia:    insertMedia,
	ActionTTUKey:         pressTTUKey,
	ActionOperatorSwitch: operatorSwitch,
	ActionSupervisorMode: supervisorMode,
}

// actionValues restricts the values of actions that take a keyword.
var actionValues = map[string][]string{
	ActionOperatorSwitch: {"supervisor", "run", "push"},
	ActionSupervisorMode: {"enter", "exit"},
}

func knownAction(name string) bool {
	_, ok := actions[name]
	return ok
}

// checkActionValue reports a keyword action whose value is not one of its
// keywords.
func checkActionValue(step Step) error {
	allowed, ok := actionValues[step.Action()]
	if !ok || slices.Contains(allowed, normalize(step.ActionValue)) {
		return nil
	}
	return fmt.Errorf("%w: %s value %q, expected one of %v", ErrInvalidActionValue, step.ActionType, step.ActionValue, allowed)
}

func insertCard(ctx context.Context, r *Runner, ex *execution, step Step) error {
	devices, err := r.devices.GetServices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	reader, ok := paragon.FindDevice(devices, paragon.DeviceCardReader)
	if !ok {
		return fmt.Errorf("%w: card reader not found", terminal.ErrDeviceUnavailable)
	}
	if !reader.IsOpen {
		return fmt.Errorf("%w: card reader %s is not open", terminal.ErrDeviceUnavailable, reader.Name)
	}
	ex.logger.Info("Inserting card.", zap.String("reader", reader.Name), zap.String("card", step.ActionValue))
	if err := r.devices.InsertCard(ctx, step.ActionValue, reader.Name); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func pressButton(ctx context.Context, r *Runner, ex *execution, step Step) error {
	ok, err := r.auto.FindAndClick(ctx, step.ActionValue, r.cfg.ButtonEditDistance)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrTargetNotFound, step.ActionValue)
	}
	return nil
}

func typeKeys(ctx context.Context, r *Runner, ex *execution, step Step) error {
	return r.keypad.Type(ctx, step.ActionValue)
}

func takeCard(ctx context.Context, r *Runner, ex *execution, step Step) error {
	audit, err := r.devices.TakeCard(ctx)
	if err != nil {
		return fmt.Errorf("take card: %w", err)
	}
	ex.logger.Info("Took card.", zap.String("audit", audit.Data))
	return nil
}

func takeReceipt(ctx context.Context, r *Runner, ex *execution, step Step) error {
	devices, err := r.devices.GetServices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	printer, ok := paragon.FindDevice(devices, paragon.DeviceReceiptPrinter)
	if !ok {
		return fmt.Errorf("%w: receipt printer not found", terminal.ErrDeviceUnavailable)
	}
	receipt, err := r.devices.TakeReceipt(ctx, printer.Name)
	if err != nil {
		return fmt.Errorf("take receipt: %w", err)
	}
	fields := []zap.Field{zap.String("text", receipt.Text())}
	if ex.folder != "" {
		path, err := terminal.SaveReceipt(ex.folder, receipt)
		if err != nil {
			return err
		}
		fields = append(fields, zap.String("path", path))
	}
	ex.logger.Info("Took receipt.", fields...)
	return nil
}

// depositDevices are tried in order when inserting media.
var depositDevices = []paragon.DeviceType{paragon.DeviceItemProcessor, paragon.DeviceCashIn}

func insertMedia(ctx context.Context, r *Runner, ex *execution, step Step) error {
	devices, err := r.devices.GetServices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	for _, t := range depositDevices {
		dev, ok := paragon.FindDevice(devices, t)
		if !ok {
			continue
		}
		ex.logger.Info("Inserting media.", zap.String("device", dev.Name), zap.String("media", step.ActionValue))
		media := paragon.Media{ID: step.ActionValue, DeviceName: dev.Name, DeviceType: dev.DeviceType}
		if err := r.devices.InsertMedia(ctx, media); err != nil {
			return fmt.Errorf("insert media: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: no deposit device", terminal.ErrDeviceUnavailable)
}

func pressTTUKey(ctx context.Context, r *Runner, ex *execution, step Step) error {
	devices, err := r.devices.GetServices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	ttu, ok := paragon.FindDevice(devices, paragon.DeviceTextTerminal)
	if !ok {
		return fmt.Errorf("%w: text terminal unit not found", terminal.ErrDeviceUnavailable)
	}
	return r.devices.PressTTUKey(ctx, ttu.Name, step.ActionValue)
}

func operatorSwitch(ctx context.Context, r *Runner, ex *execution, step Step) error {
	if err := checkActionValue(step); err != nil {
		return err
	}
	switch normalize(step.ActionValue) {
	case "supervisor":
		return r.devices.ChangeOperatorSwitch(ctx, paragon.ModeSupervisor)
	case "run":
		return r.devices.ChangeOperatorSwitch(ctx, paragon.ModeRun)
	default:
		return r.devices.PushOperatorSwitch(ctx)
	}
}

func supervisorMode(ctx context.Context, r *Runner, ex *execution, step Step) error {
	if err := checkActionValue(step); err != nil {
		return err
	}
	if normalize(step.ActionValue) == "enter" {
		return r.devices.EnterSupervisorMode(ctx)
	}
	return r.devices.ExitSupervisorMode(ctx)
}
