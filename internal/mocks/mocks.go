// Package mocks holds testify mocks of the simulator collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
)

// -- Virtual machine --

// MockVirtualMachine mocks paragon.VirtualMachine.
type MockVirtualMachine struct {
	mock.Mock
}

func (m *MockVirtualMachine) GetScreenText(ctx context.Context) (*ocr.Page, error) {
	args := m.Called(ctx)
	page, _ := args.Get(0).(*ocr.Page)
	return page, args.Error(1)
}

func (m *MockVirtualMachine) GetScreenJpeg(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockVirtualMachine) ClickScreen(ctx context.Context, p ocr.Point, rightClick bool) error {
	args := m.Called(ctx, p, rightClick)
	return args.Error(0)
}

func (m *MockVirtualMachine) GetLocationByText(ctx context.Context, text string) (paragon.Location, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(paragon.Location), args.Error(1)
}

// -- Devices --

// MockDevices mocks paragon.Devices.
type MockDevices struct {
	mock.Mock
}

func (m *MockDevices) GetServices(ctx context.Context) ([]paragon.DeviceInfo, error) {
	args := m.Called(ctx)
	devices, _ := args.Get(0).([]paragon.DeviceInfo)
	return devices, args.Error(1)
}

func (m *MockDevices) InsertCard(ctx context.Context, cardID, readerName string) error {
	return m.Called(ctx, cardID, readerName).Error(0)
}

func (m *MockDevices) PressKey(ctx context.Context, deviceName, key string) error {
	return m.Called(ctx, deviceName, key).Error(0)
}

func (m *MockDevices) TakeCard(ctx context.Context) (paragon.AuditRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(paragon.AuditRecord), args.Error(1)
}

func (m *MockDevices) TakeReceipt(ctx context.Context, deviceName string) (*paragon.Receipt, error) {
	args := m.Called(ctx, deviceName)
	receipt, _ := args.Get(0).(*paragon.Receipt)
	return receipt, args.Error(1)
}

func (m *MockDevices) TakeMedia(ctx context.Context, deviceName string, count int) (paragon.AuditRecord, error) {
	args := m.Called(ctx, deviceName, count)
	return args.Get(0).(paragon.AuditRecord), args.Error(1)
}

func (m *MockDevices) InsertMedia(ctx context.Context, media paragon.Media) error {
	return m.Called(ctx, media).Error(0)
}

func (m *MockDevices) GetDeviceState(ctx context.Context, deviceName string) (string, error) {
	args := m.Called(ctx, deviceName)
	return args.String(0), args.Error(1)
}

func (m *MockDevices) GetPinpadKeys(ctx context.Context, pinpadName string) (paragon.PinpadKeys, error) {
	args := m.Called(ctx, pinpadName)
	return args.Get(0).(paragon.PinpadKeys), args.Error(1)
}

func (m *MockDevices) PressTTUKey(ctx context.Context, ttuName, key string) error {
	return m.Called(ctx, ttuName, key).Error(0)
}

func (m *MockDevices) ChangeOperatorSwitch(ctx context.Context, mode paragon.OperatorMode) error {
	return m.Called(ctx, mode).Error(0)
}

func (m *MockDevices) PushOperatorSwitch(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDevices) OperatorSwitchStatus(ctx context.Context, deviceName string) (string, error) {
	args := m.Called(ctx, deviceName)
	return args.String(0), args.Error(1)
}

func (m *MockDevices) EnterSupervisorMode(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDevices) ExitSupervisorMode(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDevices) Recover(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Agent --

// MockAgent mocks paragon.Agent.
type MockAgent struct {
	mock.Mock
}

func (m *MockAgent) GetStatus(ctx context.Context) (*paragon.AgentStatus, error) {
	args := m.Called(ctx)
	status, _ := args.Get(0).(*paragon.AgentStatus)
	return status, args.Error(1)
}

func (m *MockAgent) OpenSession(ctx context.Context, creds paragon.Credentials) error {
	return m.Called(ctx, creds).Error(0)
}

func (m *MockAgent) CloseSession(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAgent) OpenHardwareProfile(ctx context.Context, profileID string) error {
	return m.Called(ctx, profileID).Error(0)
}

func (m *MockAgent) StartApplication(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockAgent) GetUserGroups(ctx context.Context, creds paragon.Credentials) ([]paragon.UserGroup, error) {
	args := m.Called(ctx, creds)
	groups, _ := args.Get(0).([]paragon.UserGroup)
	return groups, args.Error(1)
}

// -- Connection --

// MockConnection mocks paragon.Connection.
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Open(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConnection) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Fixtures --

// Page builds an OCR page with one element per text. Boxes are stacked
// vertically, 100x20 each, so every element has a distinct midpoint.
func Page(texts ...string) *ocr.Page {
	p := &ocr.Page{Width: 800, Height: 600}
	for i, t := range texts {
		y := float64(i * 20)
		box := ocr.Box{X0: 0, Y0: y, X1: 100, Y1: y + 20}
		p.Elements = append(p.Elements, ocr.Element{
			Box:  box,
			Text: t,
			Lines: []ocr.Line{{
				Box:  box,
				Text: t,
			}},
		})
	}
	return p
}
