package terminal

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/mocks"
	"github.com/xkilldash9x/vatm-cli/internal/ocr"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

func TestNewDispatcher(t *testing.T) {
	logger := zap.NewNop()
	auto := automation.NewService(new(mocks.MockVirtualMachine), logger)

	t.Run("requires an idle screen", func(t *testing.T) {
		reg, err := screen.NewRegistry([]screen.Definition{{Name: "pin", Phrases: phrase("enter your pin", 1)}})
		require.NoError(t, err)
		_, err = NewDispatcher(auto, nil, nil, reg, DispatchConfig{MaxAttempts: 1, Timeout: time.Second}, logger)
		assert.ErrorIs(t, err, screen.ErrUnknownScreen)
	})

	t.Run("rejects unbounded loops", func(t *testing.T) {
		reg, err := screen.NewRegistry(testDefinitions())
		require.NoError(t, err)
		_, err = NewDispatcher(auto, nil, nil, reg, DispatchConfig{Timeout: time.Second}, logger)
		assert.Error(t, err)
		_, err = NewDispatcher(auto, nil, nil, reg, DispatchConfig{MaxAttempts: 3}, logger)
		assert.Error(t, err)
	})

	t.Run("any idle screen is enough", func(t *testing.T) {
		reg, err := screen.NewRegistry([]screen.Definition{{Name: "OutOfService", Phrases: phrase("out of service", 1)}})
		require.NoError(t, err)
		_, err = NewDispatcher(auto, nil, nil, reg, DispatchConfig{MaxAttempts: 1, Timeout: time.Second}, logger)
		assert.NoError(t, err)
		assert.True(t, IsIdleScreen(ScreenOutOfService))
		assert.False(t, IsIdleScreen(ScreenPIN))
	})

	t.Run("skips rules for missing screens", func(t *testing.T) {
		reg, err := screen.NewRegistry([]screen.Definition{{Name: "welcome", Phrases: phrase("welcome", 1)}})
		require.NoError(t, err)
		d, err := NewDispatcher(auto, nil, nil, reg, DispatchConfig{MaxAttempts: 1, Timeout: time.Second}, logger)
		require.NoError(t, err)
		assert.Len(t, d.rules, 1)
	})
}

func TestDispatchToIdle_AlreadyIdle(t *testing.T) {
	for name, page := range map[string]*ocr.Page{
		"welcome":        welcomePage,
		"out of service": mocks.Page("Sorry, this ATM is out of service"),
		"desktop":        desktopPage,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, DispatchConfig{})
			f.screens(page)

			require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))

			f.vm.AssertNumberOfCalls(t, "GetScreenText", 1)
			f.vm.AssertNotCalled(t, "ClickScreen", mock.Anything, mock.Anything, mock.Anything)
			f.devices.AssertNotCalled(t, "PressKey", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDispatchToIdle_AnotherTransaction(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Would you like another transaction?", "Yes", "No"), welcomePage)
	noButton := ocr.Point{X: 50, Y: 50}
	f.vm.On("GetLocationByText", mock.Anything, "No").Return(paragon.Location{Found: true, Point: noButton}, nil).Once()
	f.vm.On("ClickScreen", mock.Anything, noButton, false).Return(nil).Once()

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))
	f.vm.AssertNotCalled(t, "GetLocationByText", mock.Anything, "Exit")
}

func TestDispatchToIdle_MoreTimeFallsThroughLabels(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Do you need more time?"), welcomePage)
	exit := ocr.Point{X: 10, Y: 10}
	f.vm.On("GetLocationByText", mock.Anything, "No").Return(paragon.Location{}, nil).Once()
	f.vm.On("GetLocationByText", mock.Anything, "Exit").Return(paragon.Location{Found: true, Point: exit}, nil).Once()
	f.vm.On("ClickScreen", mock.Anything, exit, false).Return(nil).Once()

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))
}

func TestDispatchToIdle_PleaseWaitThenIdle(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Please wait"), mocks.Page("Please wait"), welcomePage)

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))
	f.vm.AssertNumberOfCalls(t, "GetScreenText", 3)
}

func TestDispatchToIdle_CancelsPIN(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Please enter your PIN"), welcomePage)
	f.devices.On("GetServices", mock.Anything).Return([]paragon.DeviceInfo{{Name: "EPP", DeviceType: "pin", IsOpen: true}}, nil).Once()
	f.devices.On("PressKey", mock.Anything, "EPP", "Cancel").Return(nil).Once()

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))
}

func TestDispatchToIdle_CollectsMedia(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Please take your card"), welcomePage)

	image := base64.StdEncoding.EncodeToString([]byte("\xff\xd8receipt"))
	f.devices.On("TakeCard", mock.Anything).Return(paragon.AuditRecord{Data: "card"}, nil).Once()
	f.devices.On("GetServices", mock.Anything).Return([]paragon.DeviceInfo{
		{Name: "Printer", DeviceType: paragon.DeviceReceiptPrinter, Media: 1},
		{Name: "Dispenser", DeviceType: paragon.DeviceDispenser, Media: 0},
		{Name: "Depository", DeviceType: paragon.DeviceItemProcessor, Media: 2},
	}, nil).Once()
	f.devices.On("TakeReceipt", mock.Anything, "Printer").Return(&paragon.Receipt{
		Image: image,
		OCR:   mocks.Page("BALANCE", "$100.00"),
	}, nil).Once()
	f.devices.On("TakeMedia", mock.Anything, "Depository", 2).Return(paragon.AuditRecord{Data: "items"}, nil).Once()

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))

	files, err := filepath.Glob(filepath.Join(f.receipts, "Receipt-*.jpg"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8receipt", string(data))
	f.devices.AssertNotCalled(t, "TakeMedia", mock.Anything, "Dispenser", mock.Anything)
}

func TestDispatchToIdle_UnrecognizedIsBestEffort(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Lorem ipsum dolor"), welcomePage)
	// No pinpad, no cancel button and no card: every step fails or misses.
	f.devices.On("GetServices", mock.Anything).Return([]paragon.DeviceInfo{}, nil)
	f.vm.On("GetLocationByText", mock.Anything, "Cancel").Return(paragon.Location{}, nil).Once()
	f.devices.On("TakeCard", mock.Anything).Return(paragon.AuditRecord{}, &paragon.APIError{Endpoint: "take-card", StatusCode: 409}).Once()

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))
}

func TestDispatchToIdle_BlankScreen(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page(), welcomePage)

	require.NoError(t, f.dispatcher.DispatchToIdle(context.Background()))
	f.devices.AssertNotCalled(t, "GetServices", mock.Anything)
}

func TestDispatchToIdle_Exhausted(t *testing.T) {
	f := newFixture(t, DispatchConfig{MaxAttempts: 3})
	f.screens(mocks.Page("Please wait"))

	err := f.dispatcher.DispatchToIdle(context.Background())
	require.ErrorIs(t, err, ErrDispatchExhausted)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "pleasewait", exhausted.LastScreen)
	assert.Contains(t, err.Error(), "last screen: pleasewait")
}

func TestDispatchToIdle_ScreenUnavailableStops(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.vm.On("GetScreenText", mock.Anything).Return(nil, paragon.ErrScreenUnavailable).Once()

	err := f.dispatcher.DispatchToIdle(context.Background())
	assert.ErrorIs(t, err, paragon.ErrScreenUnavailable)
	assert.NotErrorIs(t, err, ErrDispatchExhausted)
}

func TestDispatchToIdle_ActionFailureStops(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.screens(mocks.Page("Please enter your PIN"))
	f.devices.On("GetServices", mock.Anything).Return(nil, &paragon.APIError{Endpoint: "get-services", StatusCode: 500}).Once()

	err := f.dispatcher.DispatchToIdle(context.Background())
	var apiErr *paragon.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestDispatchToIdle_Cancelled(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.dispatcher.DispatchToIdle(ctx), context.Canceled)
}

func TestKeypad_Type(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.devices.On("GetServices", mock.Anything).Return([]paragon.DeviceInfo{{Name: "EPP", DeviceType: paragon.DevicePinPad}}, nil).Once()
	var pressed []string
	f.devices.On("PressKey", mock.Anything, "EPP", mock.Anything).
		Run(func(args mock.Arguments) { pressed = append(pressed, args.String(2)) }).
		Return(nil)

	require.NoError(t, f.keypad.Type(context.Background(), "1234"))
	assert.Equal(t, []string{"n1", "n2", "n3", "n4", "Enter"}, pressed)
}

func TestKeypad_NoPinpad(t *testing.T) {
	f := newFixture(t, DispatchConfig{})
	f.devices.On("GetServices", mock.Anything).Return([]paragon.DeviceInfo{{Name: "Reader", DeviceType: paragon.DeviceCardReader}}, nil).Once()

	assert.ErrorIs(t, f.keypad.Type(context.Background(), "1"), ErrDeviceUnavailable)
}
