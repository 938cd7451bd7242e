// Package playlist executes scripted ATM transactions. A transaction is a
// screen flow: wait for a screen, perform one action on it, move on. A
// playlist runs named transactions in order, optionally repeated and
// shuffled.
package playlist

import (
	"strings"
	"time"
)

const (
	defaultStepTimeout     = 30 * time.Second
	defaultRefreshInterval = time.Second
)

// Step is one screen of a transaction's flow. Timeout and RefreshInterval
// are in seconds.
type Step struct {
	Screen string `json:"screen"`
	// Name is an older spelling of Screen.
	Name            string `json:"name,omitempty"`
	Timeout         int    `json:"timeout"`
	RefreshInterval int    `json:"refreshInterval"`
	ActionType      string `json:"actionType"`
	ActionValue     string `json:"actionValue"`
}

// ScreenName is the screen this step waits for.
func (s Step) ScreenName() string {
	if s.Screen != "" {
		return s.Screen
	}
	return s.Name
}

// Action is the normalized action type.
func (s Step) Action() string {
	return strings.ToLower(strings.TrimSpace(s.ActionType))
}

// TimeoutDuration returns the wait bound, defaulting to 30s.
func (s Step) TimeoutDuration() time.Duration {
	if s.Timeout <= 0 {
		return defaultStepTimeout
	}
	return time.Duration(s.Timeout) * time.Second
}

// RefreshDuration returns the poll interval, defaulting to 1s.
func (s Step) RefreshDuration() time.Duration {
	if s.RefreshInterval <= 0 {
		return defaultRefreshInterval
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

// TransactionOptions tune a transaction. StandardDelay is in milliseconds.
type TransactionOptions struct {
	StandardDelay int `json:"standardDelay"`
}

// Transaction is a named screen flow.
type Transaction struct {
	Name       string             `json:"name"`
	Options    TransactionOptions `json:"options"`
	ScreenFlow []Step             `json:"screenFlow"`
}

// PlaylistOptions tune a playlist. RepeatDelay is in milliseconds.
type PlaylistOptions struct {
	Repeat      int  `json:"repeat"`
	RepeatDelay int  `json:"repeatDelay"`
	Shuffle     bool `json:"shuffle"`
}

// DefaultPlaylistOptions runs a playlist once, with a 10s pause between
// repeats when Repeat is raised.
func DefaultPlaylistOptions() PlaylistOptions {
	return PlaylistOptions{Repeat: 1, RepeatDelay: 10000}
}

// Cycles is the number of passes over the playlist; at least one.
func (o PlaylistOptions) Cycles() int {
	return max(o.Repeat, 1)
}

// Playlist names transactions to run.
type Playlist struct {
	Name         string          `json:"name"`
	Options      PlaylistOptions `json:"options"`
	Transactions []string        `json:"transactions"`
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
