package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/mocks"
	"github.com/xkilldash9x/vatm-cli/internal/ocr"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

func phrase(text string, conf float64) []screen.Phrase {
	return []screen.Phrase{{Text: text, MatchConfidence: conf}}
}

func testDefinitions() []screen.Definition {
	return []screen.Definition{
		{Name: "Welcome", Phrases: phrase("welcome please insert your card", 0.8)},
		{Name: "OutOfService", Phrases: phrase("out of service", 1)},
		{Name: "Desktop", Phrases: phrase("recycle bin", 1)},
		{Name: "PleaseWait", Phrases: phrase("please wait", 1)},
		{Name: "MoreTime", Phrases: phrase("do you need more time", 0.8)},
		{Name: "AnotherTransaction", Phrases: phrase("would you like another transaction", 0.8)},
		{Name: "TakeCard", Phrases: phrase("please take your card", 1)},
		{Name: "ThankYou", Phrases: phrase("thank you", 1)},
		{Name: "PIN", Phrases: phrase("enter your pin", 1)},
	}
}

var (
	welcomePage = mocks.Page("Welcome", "Please insert your card")
	desktopPage = mocks.Page("Recycle Bin", "This PC")
)

type fixture struct {
	vm         *mocks.MockVirtualMachine
	devices    *mocks.MockDevices
	agent      *mocks.MockAgent
	conn       *mocks.MockConnection
	registry   *screen.Registry
	auto       *automation.Service
	keypad     *Keypad
	media      *MediaCollector
	dispatcher *Dispatcher
	receipts   string
}

func newFixture(t *testing.T, cfg DispatchConfig) *fixture {
	t.Helper()
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	f := &fixture{
		vm:       new(mocks.MockVirtualMachine),
		devices:  new(mocks.MockDevices),
		agent:    new(mocks.MockAgent),
		conn:     new(mocks.MockConnection),
		receipts: t.TempDir(),
	}
	t.Cleanup(func() {
		f.vm.AssertExpectations(t)
		f.devices.AssertExpectations(t)
		f.agent.AssertExpectations(t)
		f.conn.AssertExpectations(t)
	})

	reg, err := screen.NewRegistry(testDefinitions())
	require.NoError(t, err)
	f.registry = reg

	logger := zap.NewNop()
	f.auto = automation.NewService(f.vm, logger)
	f.keypad = NewKeypad(f.devices, 0, KeypadConfig{DigitPrefix: "n", EnterKey: "Enter", CancelKey: "Cancel"}, logger)
	f.media = NewMediaCollector(f.devices, f.receipts, logger)
	f.dispatcher, err = NewDispatcher(f.auto, f.keypad, f.media, reg, cfg, logger)
	require.NoError(t, err)
	return f
}

// screens queues pages for successive reads; the last page repeats.
func (f *fixture) screens(pages ...*ocr.Page) {
	for i, p := range pages {
		call := f.vm.On("GetScreenText", mock.Anything).Return(p, nil)
		if i < len(pages)-1 {
			call.Once()
		}
	}
}
