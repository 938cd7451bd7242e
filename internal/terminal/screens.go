// Package terminal brings a simulated ATM into a known state and keeps it
// there: session lifecycle, recovery to the idle screen and collection of
// whatever media the terminal is presenting.
package terminal

// Registry names the recovery logic looks for. Screen definitions are
// user configuration; any of these may be absent.
const (
	ScreenWelcome              = "welcome"
	ScreenOutOfService         = "outofservice"
	ScreenDesktop              = "desktop"
	ScreenPleaseWait           = "pleasewait"
	ScreenMoreTime             = "moretime"
	ScreenAnotherTransaction   = "anothertransaction"
	ScreenTakeCard             = "takecard"
	ScreenThankYou             = "thankyou"
	ScreenTransactionComplete  = "transactioncomplete"
	ScreenTransactionCancelled = "transactioncancelled"
	ScreenPIN                  = "pin"
)

// IsIdleScreen reports whether name is a screen the terminal can rest on.
func IsIdleScreen(name string) bool {
	switch name {
	case ScreenWelcome, ScreenOutOfService, ScreenDesktop:
		return true
	}
	return false
}
