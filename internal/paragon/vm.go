package paragon

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
)

// VirtualMachineClient implements VirtualMachine over HTTP.
type VirtualMachineClient struct {
	client *Client
	prefix string
	logger *zap.Logger
}

// NewVirtualMachineClient binds the VM API at prefix.
func NewVirtualMachineClient(c *Client, prefix string) *VirtualMachineClient {
	return &VirtualMachineClient{client: c, prefix: prefix, logger: c.logger.Named("vm")}
}

type screenRequest struct {
	ScreenName string `json:"screenName"`
}

// GetScreenText returns the OCR tree of the current display. A rejected
// request or a reply without OCR data is reported as ErrScreenUnavailable.
func (v *VirtualMachineClient) GetScreenText(ctx context.Context) (*ocr.Page, error) {
	var resp struct {
		OCRData *ocr.Page `json:"ocrData"`
	}
	if err := v.client.post(ctx, v.prefix, "get-screen-text", screenRequest{}, &resp); err != nil {
		return nil, asUnavailable(err)
	}
	if resp.OCRData == nil {
		return nil, fmt.Errorf("%w: no OCR data", ErrScreenUnavailable)
	}
	return resp.OCRData, nil
}

// GetScreenJpeg returns the display as a base64 JPEG.
func (v *VirtualMachineClient) GetScreenJpeg(ctx context.Context) (string, error) {
	var resp struct {
		Result string `json:"result"`
	}
	if err := v.client.post(ctx, v.prefix, "get-screen-jpeg", screenRequest{}, &resp); err != nil {
		return "", asUnavailable(err)
	}
	if resp.Result == "" {
		return "", fmt.Errorf("%w: empty screenshot", ErrScreenUnavailable)
	}
	return resp.Result, nil
}

func (v *VirtualMachineClient) ClickScreen(ctx context.Context, p ocr.Point, rightClick bool) error {
	endpoint := "click-screen"
	if rightClick {
		endpoint = "right-click-screen"
	}
	v.logger.Debug("Clicking screen.", zap.Float64("x", p.X), zap.Float64("y", p.Y), zap.Bool("right", rightClick))
	return v.client.post(ctx, v.prefix, endpoint, p, nil)
}

func (v *VirtualMachineClient) GetLocationByText(ctx context.Context, text string) (Location, error) {
	var loc Location
	body := map[string]string{"text": text}
	if err := v.client.post(ctx, v.prefix, "get-location-by-text", body, &loc); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// asUnavailable marks simulator rejections of a screen read as transient.
// Transport and decoding failures are passed through untouched.
func asUnavailable(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrScreenUnavailable, err)
	}
	return err
}
