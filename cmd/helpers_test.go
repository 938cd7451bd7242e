package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/config"
	"github.com/xkilldash9x/vatm-cli/internal/mocks"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/service"
	"github.com/xkilldash9x/vatm-cli/internal/store"
)

// fakeFactory assembles the real stack on simulator doubles.
type fakeFactory struct {
	agent   *mocks.MockAgent
	vm      *mocks.MockVirtualMachine
	devices *mocks.MockDevices
	conn    *mocks.MockConnection
	opts    []service.Options
	err     error
	// db backs OpenJournal; nil means no journal is configured.
	db pgxmock.PgxPoolIface
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		agent:   new(mocks.MockAgent),
		vm:      new(mocks.MockVirtualMachine),
		devices: new(mocks.MockDevices),
		conn:    new(mocks.MockConnection),
	}
}

func (f *fakeFactory) Create(ctx context.Context, cfg *config.Config, opts service.Options, logger *zap.Logger) (*service.Components, error) {
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return service.Assemble(ctx, cfg, service.Terminal{
		Agent:          f.agent,
		VirtualMachine: f.vm,
		Devices:        f.devices,
		Connection:     f.conn,
	}, opts, logger)
}

func (f *fakeFactory) OpenJournal(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Journal, func(), error) {
	if f.db == nil {
		return nil, nil, errors.New("database.url is not set")
	}
	journal, err := store.New(ctx, f.db, logger)
	if err != nil {
		return nil, nil, err
	}
	return journal, func() {}, nil
}

func (f *fakeFactory) assertExpectations(t *testing.T) {
	t.Helper()
	f.agent.AssertExpectations(t)
	f.vm.AssertExpectations(t)
	f.devices.AssertExpectations(t)
	f.conn.AssertExpectations(t)
}

// expectAttach scripts a fresh session that opens and closes cleanly.
func (f *fakeFactory) expectAttach() {
	f.agent.On("GetStatus", mock.Anything).Return(&paragon.AgentStatus{State: paragon.StateIdle}, nil).Once()
	f.agent.On("OpenSession", mock.Anything, mock.Anything).Return(nil).Once()
	f.agent.On("GetStatus", mock.Anything).Return(&paragon.AgentStatus{State: paragon.StateAPIControlled}, nil).Once()
	f.conn.On("Open", mock.Anything).Return(nil).Once()
	f.conn.On("Close", mock.Anything).Return(nil).Once()
	f.agent.On("CloseSession", mock.Anything).Return(nil).Once()
}

// expectBalanceInquiry scripts the screens and devices of one Balance
// Inquiry run between an attach and a disconnect, both of which find the
// terminal idle.
func (f *fakeFactory) expectBalanceInquiry() {
	welcome := mocks.Page("Welcome", "Please insert your card")
	f.vm.On("GetScreenText", mock.Anything).Return(welcome, nil).Times(3)
	f.vm.On("GetScreenText", mock.Anything).Return(mocks.Page("Enter your PIN"), nil).Once()
	f.vm.On("GetScreenText", mock.Anything).Return(welcome, nil).Once()

	f.devices.On("GetServices", mock.Anything).Return([]paragon.DeviceInfo{
		{Name: "Reader1", DeviceType: paragon.DeviceCardReader, IsOpen: true},
		{Name: "Pinpad1", DeviceType: paragon.DevicePinPad, IsOpen: true},
	}, nil).Twice()
	f.devices.On("InsertCard", mock.Anything, "4000", "Reader1").Return(nil).Once()
	for _, key := range []string{"n1", "n2", "n3", "n4", "Enter"} {
		f.devices.On("PressKey", mock.Anything, "Pinpad1", key).Return(nil).Once()
	}
}

const testConfig = `
logger:
  level: error
terminal:
  standard_delay: 0s
keypad:
  key_interval: 0s
screens:
  - name: Welcome
    phrases:
      - text: please insert your card
        match_confidence: 0.8
  - name: PIN
    phrases:
      - text: enter your pin
        match_confidence: 1
`

// newWorkspace writes a config file plus transactions and playlists next
// to it and returns the config path.
func newWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	all := map[string]string{
		"config.yaml": testConfig + "preferences:\n  screenshots: false\n  download_path: " + filepath.Join(dir, "downloads") + "\n",
		"transactions/balance.json": `{"name": "Balance Inquiry", "screenFlow": [
			{"screen": "welcome", "actionType": "insertCard", "actionValue": "4000"},
			{"screen": "pin", "actionType": "keypad", "actionValue": "1234"}]}`,
		"playlists/smoke.json": `{"name": "Smoke", "transactions": ["Balance Inquiry"]}`,
	}
	for name, body := range files {
		all[name] = body
	}
	for name, body := range all {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	return filepath.Join(dir, "config.yaml")
}

// execute runs the command tree against factory and returns its output.
func execute(t *testing.T, factory service.ComponentFactory, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(factory)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
