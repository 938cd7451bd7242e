package paragon

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DeviceClient implements Devices over the ATM API.
type DeviceClient struct {
	client *Client
	prefix string
	logger *zap.Logger
}

// NewDeviceClient binds the ATM API at prefix.
func NewDeviceClient(c *Client, prefix string) *DeviceClient {
	return &DeviceClient{client: c, prefix: prefix, logger: c.logger.Named("atm")}
}

func (d *DeviceClient) GetServices(ctx context.Context) ([]DeviceInfo, error) {
	var resp struct {
		Services []DeviceInfo `json:"services"`
	}
	if err := d.client.post(ctx, d.prefix, "get-services", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Services, nil
}

func (d *DeviceClient) InsertCard(ctx context.Context, cardID, readerName string) error {
	d.logger.Info("Inserting card.", zap.String("card", cardID), zap.String("reader", readerName))
	body := map[string]string{"cardId": cardID, "cardReaderName": readerName}
	if err := d.client.post(ctx, d.prefix, "insert-card", body, nil); err != nil {
		return fmt.Errorf("insert card %q: %w", cardID, err)
	}
	return nil
}

func (d *DeviceClient) PressKey(ctx context.Context, deviceName, key string) error {
	d.logger.Debug("Pressing key.", zap.String("device", deviceName), zap.String("key", key))
	body := map[string]string{"pinpadName": deviceName, "pinpadKeys": key}
	if err := d.client.post(ctx, d.prefix, "press-key", body, nil); err != nil {
		return fmt.Errorf("press %q on %q: %w", key, deviceName, err)
	}
	return nil
}

func (d *DeviceClient) TakeCard(ctx context.Context) (AuditRecord, error) {
	d.logger.Info("Taking card.")
	var audit AuditRecord
	if err := d.client.post(ctx, d.prefix, "take-card", nil, &audit); err != nil {
		return AuditRecord{}, err
	}
	return audit, nil
}

// TakeReceipt collects the printed receipt and asks the simulator to OCR it.
func (d *DeviceClient) TakeReceipt(ctx context.Context, deviceName string) (*Receipt, error) {
	d.logger.Info("Taking receipt.", zap.String("device", deviceName))
	body := struct {
		DeviceName string `json:"deviceName"`
		RunOCR     bool   `json:"runOcr"`
	}{deviceName, true}
	var receipt Receipt
	if err := d.client.post(ctx, d.prefix, "take-receipt", body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (d *DeviceClient) TakeMedia(ctx context.Context, deviceName string, count int) (AuditRecord, error) {
	d.logger.Info("Taking media.", zap.String("device", deviceName), zap.Int("count", count))
	body := struct {
		DeviceName string `json:"deviceName"`
		Count      int    `json:"count"`
	}{deviceName, count}
	var audit AuditRecord
	if err := d.client.post(ctx, d.prefix, "take-media", body, &audit); err != nil {
		return AuditRecord{}, err
	}
	return audit, nil
}

// Recover asks the simulator to reset a wedged ATM application.
func (d *DeviceClient) Recover(ctx context.Context) error {
	d.logger.Warn("Requesting ATM recovery.")
	return d.client.post(ctx, d.prefix, "recover", nil, nil)
}

// InsertMedia offers an item, such as a cheque or a bundle of notes, to a
// deposit device.
func (d *DeviceClient) InsertMedia(ctx context.Context, media Media) error {
	d.logger.Info("Inserting media.", zap.String("media", media.ID), zap.String("device", media.DeviceName))
	if err := d.client.post(ctx, d.prefix, "insert-media", media, nil); err != nil {
		return fmt.Errorf("insert media %q: %w", media.ID, err)
	}
	return nil
}

// GetDeviceState returns the simulator's state document for one device
// as it was sent.
func (d *DeviceClient) GetDeviceState(ctx context.Context, deviceName string) (string, error) {
	var raw []byte
	body := map[string]string{"deviceName": deviceName}
	if err := d.client.post(ctx, d.prefix, "get-device-state", body, &raw); err != nil {
		return "", fmt.Errorf("device state %q: %w", deviceName, err)
	}
	return string(raw), nil
}

func (d *DeviceClient) GetPinpadKeys(ctx context.Context, pinpadName string) (PinpadKeys, error) {
	var keys PinpadKeys
	body := map[string]string{"pinpadName": pinpadName}
	if err := d.client.post(ctx, d.prefix, "get-pin-pad-keys", body, &keys); err != nil {
		return PinpadKeys{}, fmt.Errorf("pinpad keys %q: %w", pinpadName, err)
	}
	return keys, nil
}

// PressTTUKey presses a key on a text terminal unit.
func (d *DeviceClient) PressTTUKey(ctx context.Context, ttuName, key string) error {
	d.logger.Debug("Pressing TTU key.", zap.String("device", ttuName), zap.String("key", key))
	body := map[string]string{"ttuName": ttuName, "ttuKey": key}
	if err := d.client.post(ctx, d.prefix, "press-ttu-key", body, nil); err != nil {
		return fmt.Errorf("press %q on %q: %w", key, ttuName, err)
	}
	return nil
}

func (d *DeviceClient) ChangeOperatorSwitch(ctx context.Context, mode OperatorMode) error {
	d.logger.Info("Changing operator switch.", zap.String("mode", string(mode)))
	body := map[string]string{"mode": string(mode)}
	if err := d.client.post(ctx, d.prefix, "change-operator-switch", body, nil); err != nil {
		return fmt.Errorf("operator switch to %s: %w", mode, err)
	}
	return nil
}

func (d *DeviceClient) PushOperatorSwitch(ctx context.Context) error {
	d.logger.Info("Pushing operator switch.")
	return d.client.post(ctx, d.prefix, "push-operator-switch", nil, nil)
}

func (d *DeviceClient) OperatorSwitchStatus(ctx context.Context, deviceName string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	body := map[string]string{"deviceName": deviceName}
	if err := d.client.post(ctx, d.prefix, "operator-switch-status", body, &resp); err != nil {
		return "", fmt.Errorf("operator switch status %q: %w", deviceName, err)
	}
	return resp.Status, nil
}

// EnterSupervisorMode and ExitSupervisorMode toggle the supervisor mode of
// Diebold Nixdorf terminals, which have no operator switch.
func (d *DeviceClient) EnterSupervisorMode(ctx context.Context) error {
	d.logger.Info("Entering supervisor mode.")
	return d.client.post(ctx, d.prefix, "enter-dn-supervisor-mode", nil, nil)
}

func (d *DeviceClient) ExitSupervisorMode(ctx context.Context) error {
	d.logger.Info("Exiting supervisor mode.")
	return d.client.post(ctx, d.prefix, "exit-dn-supervisor-mode", nil, nil)
}
