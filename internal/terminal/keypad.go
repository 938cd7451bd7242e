package terminal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/vatm-cli/internal/paragon"
)

// KeypadConfig maps characters and commands onto pinpad key names.
type KeypadConfig struct {
	DigitPrefix string
	EnterKey    string
	CancelKey   string
}

// Keypad types on the terminal's pinpad. Presses are paced by a limiter
// so the simulated device keeps up.
type Keypad struct {
	devices paragon.Devices
	limiter *rate.Limiter
	cfg     KeypadConfig
	logger  *zap.Logger
}

// NewKeypad returns a keypad that presses at most one key per interval.
// A zero interval disables pacing.
func NewKeypad(devices paragon.Devices, interval time.Duration, cfg KeypadConfig, logger *zap.Logger) *Keypad {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Keypad{
		devices: devices,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		logger:  logger.Named("keypad"),
	}
}

// Type presses one key per character of text, then Enter.
func (k *Keypad) Type(ctx context.Context, text string) error {
	pad, err := k.pinpad(ctx)
	if err != nil {
		return err
	}
	k.logger.Info("Entering keys.", zap.String("device", pad.Name), zap.Int("count", len([]rune(text))))
	for _, c := range text {
		if err := k.press(ctx, pad.Name, k.cfg.DigitPrefix+string(c)); err != nil {
			return err
		}
	}
	return k.press(ctx, pad.Name, k.cfg.EnterKey)
}

// Cancel presses the pinpad's cancel key.
func (k *Keypad) Cancel(ctx context.Context) error {
	pad, err := k.pinpad(ctx)
	if err != nil {
		return err
	}
	return k.press(ctx, pad.Name, k.cfg.CancelKey)
}

func (k *Keypad) press(ctx context.Context, device, key string) error {
	if err := k.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := k.devices.PressKey(ctx, device, key); err != nil {
		return fmt.Errorf("press %q: %w", key, err)
	}
	return nil
}

func (k *Keypad) pinpad(ctx context.Context) (paragon.DeviceInfo, error) {
	devices, err := k.devices.GetServices(ctx)
	if err != nil {
		return paragon.DeviceInfo{}, fmt.Errorf("list devices: %w", err)
	}
	pad, ok := paragon.FindDevice(devices, paragon.DevicePinPad)
	if !ok {
		return paragon.DeviceInfo{}, fmt.Errorf("%w: no pinpad", ErrDeviceUnavailable)
	}
	return pad, nil
}
