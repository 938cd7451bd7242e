package terminal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/paragon"
)

// MediaCollector empties the terminal's customer-facing devices.
type MediaCollector struct {
	devices       paragon.Devices
	receiptFolder string
	logger        *zap.Logger
}

// NewMediaCollector saves taken receipts under receiptFolder. An empty
// folder disables saving.
func NewMediaCollector(devices paragon.Devices, receiptFolder string, logger *zap.Logger) *MediaCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaCollector{devices: devices, receiptFolder: receiptFolder, logger: logger.Named("media")}
}

// TakeAllMedia takes the card, then any receipt, cash or items the
// terminal is holding out.
func (m *MediaCollector) TakeAllMedia(ctx context.Context) error {
	if _, err := m.devices.TakeCard(ctx); err != nil {
		// The simulator answers with an API error when no card is presented.
		var apiErr *paragon.APIError
		if !errors.As(err, &apiErr) {
			return fmt.Errorf("take card: %w", err)
		}
		m.logger.Debug("No card to take.", zap.Int("status", apiErr.StatusCode))
	} else {
		m.logger.Info("Took card.")
	}

	devices, err := m.devices.GetServices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	if ptr, ok := paragon.FindDevice(devices, paragon.DeviceReceiptPrinter); ok && ptr.Media > 0 {
		if err := m.takeReceipt(ctx, ptr); err != nil {
			return err
		}
	}
	for _, t := range []paragon.DeviceType{paragon.DeviceDispenser, paragon.DeviceItemProcessor} {
		dev, ok := paragon.FindDevice(devices, t)
		if !ok || dev.Media <= 0 {
			continue
		}
		audit, err := m.devices.TakeMedia(ctx, dev.Name, dev.Media)
		if err != nil {
			return fmt.Errorf("take media from %s: %w", dev.Name, err)
		}
		m.logger.Info("Took media.",
			zap.String("device", dev.Name),
			zap.String("type", string(t)),
			zap.Int("count", dev.Media),
			zap.String("audit", audit.Data),
		)
	}
	return nil
}

func (m *MediaCollector) takeReceipt(ctx context.Context, ptr paragon.DeviceInfo) error {
	receipt, err := m.devices.TakeReceipt(ctx, ptr.Name)
	if err != nil {
		return fmt.Errorf("take receipt from %s: %w", ptr.Name, err)
	}
	fields := []zap.Field{zap.String("device", ptr.Name), zap.String("text", receipt.Text())}
	if m.receiptFolder != "" {
		path, err := SaveReceipt(m.receiptFolder, receipt)
		if err != nil {
			// The receipt is already out of the printer; keep going.
			m.logger.Warn("Failed to save receipt image.", zap.Error(err))
		} else if path != "" {
			fields = append(fields, zap.String("path", path))
		}
	}
	m.logger.Info("Took receipt.", fields...)
	return nil
}
