// Package paragon talks to the remote terminal simulator: the agent that
// owns sessions, the virtual machine that renders the ATM screen, the ATM
// device layer and the connection manager.
package paragon

import (
	"context"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
)

// VirtualMachine reads the terminal display and drives its pointer.
type VirtualMachine interface {
	GetScreenText(ctx context.Context) (*ocr.Page, error)
	GetScreenJpeg(ctx context.Context) (string, error)
	ClickScreen(ctx context.Context, p ocr.Point, rightClick bool) error
	GetLocationByText(ctx context.Context, text string) (Location, error)
}

// Devices exposes the ATM peripherals.
type Devices interface {
	GetServices(ctx context.Context) ([]DeviceInfo, error)
	InsertCard(ctx context.Context, cardID, readerName string) error
	PressKey(ctx context.Context, deviceName, key string) error
	TakeCard(ctx context.Context) (AuditRecord, error)
	TakeReceipt(ctx context.Context, deviceName string) (*Receipt, error)
	TakeMedia(ctx context.Context, deviceName string, count int) (AuditRecord, error)
	InsertMedia(ctx context.Context, media Media) error
	GetDeviceState(ctx context.Context, deviceName string) (string, error)
	GetPinpadKeys(ctx context.Context, pinpadName string) (PinpadKeys, error)
	PressTTUKey(ctx context.Context, ttuName, key string) error
	ChangeOperatorSwitch(ctx context.Context, mode OperatorMode) error
	PushOperatorSwitch(ctx context.Context) error
	OperatorSwitchStatus(ctx context.Context, deviceName string) (string, error)
	EnterSupervisorMode(ctx context.Context) error
	ExitSupervisorMode(ctx context.Context) error
	Recover(ctx context.Context) error
}

// Agent controls the remote session and the applications it runs.
type Agent interface {
	GetStatus(ctx context.Context) (*AgentStatus, error)
	OpenSession(ctx context.Context, creds Credentials) error
	CloseSession(ctx context.Context) error
	OpenHardwareProfile(ctx context.Context, profileID string) error
	StartApplication(ctx context.Context, name string) error
	GetUserGroups(ctx context.Context, creds Credentials) ([]UserGroup, error)
}

// Connection opens and closes the link between the agent and the terminal.
type Connection interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}
