package paragon

import (
	"strings"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
)

// DeviceType identifies a peripheral class as reported by get-services.
type DeviceType string

const (
	DeviceCardReader     DeviceType = "IDC"
	DevicePinPad         DeviceType = "PIN"
	DeviceReceiptPrinter DeviceType = "PTR"
	DeviceDispenser      DeviceType = "CDM"
	DeviceItemProcessor  DeviceType = "IPM"
	DeviceCashIn         DeviceType = "CIM"
	DeviceTextTerminal   DeviceType = "TTU"
)

// DeviceInfo describes one peripheral. Media is the number of items the
// device is holding out for the customer.
type DeviceInfo struct {
	Name       string     `json:"name"`
	DeviceType DeviceType `json:"deviceType"`
	IsOpen     bool       `json:"isOpen"`
	Media      int        `json:"media"`
}

// Is compares the device type case-insensitively; the simulator is not
// consistent about casing.
func (d DeviceInfo) Is(t DeviceType) bool {
	return strings.EqualFold(string(d.DeviceType), string(t))
}

// FindDevice returns the first device of type t.
func FindDevice(devices []DeviceInfo, t DeviceType) (DeviceInfo, bool) {
	for _, d := range devices {
		if d.Is(t) {
			return d, true
		}
	}
	return DeviceInfo{}, false
}

// Media is an item offered to a deposit device.
type Media struct {
	ID         string     `json:"mediaId"`
	DeviceName string     `json:"deviceName"`
	DeviceType DeviceType `json:"deviceType"`
}

// PinpadKeys lists the keys a pinpad has and the ones currently enabled,
// as reported by the simulator.
type PinpadKeys struct {
	Supported string `json:"supportedKeys"`
	Enabled   string `json:"enabledKeys"`
}

// OperatorMode is a position of the operator switch.
type OperatorMode string

const (
	ModeSupervisor OperatorMode = "Supervisor"
	ModeRun        OperatorMode = "Run"
)

// UserGroup is a group the simulator user may open a session in.
type UserGroup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AuditRecord is the opaque audit payload returned by media operations.
type AuditRecord struct {
	Data string `json:"auditData"`
}

// Receipt is a printed receipt. Image is a base64 encoded JPEG.
type Receipt struct {
	Timestamp int64     `json:"timestamp"`
	Format    string    `json:"format"`
	Image     string    `json:"result"`
	OCR       *ocr.Page `json:"ocrData"`
}

// Text joins the recognized element texts of the receipt, one per line.
func (r *Receipt) Text() string {
	if r == nil || r.OCR == nil {
		return ""
	}
	lines := make([]string, 0, len(r.OCR.Elements))
	for _, e := range r.OCR.Elements {
		if e.Text != "" {
			lines = append(lines, e.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// AgentState is the agent's control state.
type AgentState string

const (
	StateIdle          AgentState = "IDLE"
	StatePaused        AgentState = "PAUSED"
	StateAPIControlled AgentState = "APICONTROLLED"
)

// AgentStatus is the get-agent-status payload.
type AgentStatus struct {
	Timestamp      int64      `json:"timestamp"`
	State          AgentState `json:"agentStatus"`
	WebFTStatus    string     `json:"webftStatus"`
	ProxyStatus    string     `json:"proxyStatus"`
	CurrentUser    string     `json:"currentUser"`
	CPUUsage       float64    `json:"cpuUsage"`
	MemoryUsage    float64    `json:"memoryUsage"`
	IsScreenLocked bool       `json:"isScreenLocked"`
}

// Is compares the state case-insensitively.
func (s *AgentStatus) Is(state AgentState) bool {
	return s != nil && strings.EqualFold(string(s.State), string(state))
}

// Credentials identify the user opening a session.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	GroupID  string `json:"groupId"`
}

// Location is the result of a text lookup on the VM side.
type Location struct {
	Found bool      `json:"found"`
	Point ocr.Point `json:"point"`
}
