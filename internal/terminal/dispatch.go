package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/automation"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

type recovery int

const (
	recoverIdle recovery = iota
	recoverWait
	recoverDismiss
	recoverMedia
	recoverCancelPIN
)

func (r recovery) String() string {
	switch r {
	case recoverIdle:
		return "idle"
	case recoverWait:
		return "wait"
	case recoverDismiss:
		return "dismiss"
	case recoverMedia:
		return "collect-media"
	case recoverCancelPIN:
		return "cancel-pin"
	}
	return "unknown"
}

// ruleTable is checked top to bottom; the first rule with a matching
// screen wins.
var ruleTable = []struct {
	screens []string
	action  recovery
}{
	{[]string{ScreenWelcome, ScreenOutOfService}, recoverIdle},
	{[]string{ScreenDesktop}, recoverIdle},
	{[]string{ScreenPleaseWait}, recoverWait},
	{[]string{ScreenMoreTime, ScreenAnotherTransaction}, recoverDismiss},
	{[]string{ScreenTakeCard, ScreenThankYou, ScreenTransactionComplete, ScreenTransactionCancelled}, recoverMedia},
	{[]string{ScreenPIN}, recoverCancelPIN},
}

// dismissLabels are tried in order on prompts that ask whether to continue.
var dismissLabels = []string{"No", "Exit", "Return card"}

type rule struct {
	defs   []screen.Definition
	action recovery
}

// DispatchConfig bounds the recovery loop.
type DispatchConfig struct {
	MaxAttempts   int
	Timeout       time.Duration
	StandardDelay time.Duration
}

// Dispatcher drives the terminal from whatever it is showing back to an
// idle screen.
type Dispatcher struct {
	auto   *automation.Service
	keypad *Keypad
	media  *MediaCollector
	rules  []rule
	cfg    DispatchConfig
	logger *zap.Logger
}

// NewDispatcher resolves the rule table against registry. Rules naming
// screens the registry lacks are dropped; at least one idle screen must
// remain.
func NewDispatcher(auto *automation.Service, keypad *Keypad, media *MediaCollector, registry *screen.Registry, cfg DispatchConfig, logger *zap.Logger) (*Dispatcher, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("dispatch max attempts must be positive")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("dispatch timeout must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var rules []rule
	idle := false
	for _, entry := range ruleTable {
		r := rule{action: entry.action, defs: registry.Select(entry.screens...)}
		if len(r.defs) == 0 {
			continue
		}
		for _, def := range r.defs {
			if r.action == recoverIdle && IsIdleScreen(screen.NormalizeName(def.Name)) {
				idle = true
			}
		}
		rules = append(rules, r)
	}
	if !idle {
		return nil, fmt.Errorf("%w: no idle screen (%s, %s or %s) is defined",
			screen.ErrUnknownScreen, ScreenWelcome, ScreenOutOfService, ScreenDesktop)
	}

	return &Dispatcher{
		auto:   auto,
		keypad: keypad,
		media:  media,
		rules:  rules,
		cfg:    cfg,
		logger: logger.Named("dispatch"),
	}, nil
}

// dispatchState is carried across iterations of the loop.
type dispatchState struct {
	attempts   int
	lastScreen string
	start      time.Time
}

// DispatchToIdle returns nil once an idle screen is showing. A terminal
// that is already idle is left untouched. An unreadable screen ends the
// loop immediately with the read error.
func (d *Dispatcher) DispatchToIdle(ctx context.Context) error {
	st := dispatchState{start: time.Now()}
	d.logger.Info("Dispatch to idle.")

	for st.attempts < d.cfg.MaxAttempts && time.Since(st.start) < d.cfg.Timeout {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.attempts++

		words, err := d.auto.ScreenWords(ctx)
		if err != nil {
			d.logger.Error("Dispatch failed to read screen.", zap.Int("attempt", st.attempts), zap.Error(err))
			return fmt.Errorf("dispatch: %w", err)
		}

		name, action, known := d.classify(words)
		st.lastScreen = name
		log := d.logger.With(zap.Int("attempt", st.attempts), zap.String("screen", name))

		switch {
		case len(words) == 0:
			log.Info("Screen is blank.")
		case !known:
			log.Info("Unrecognized screen, attempting generic recovery.", zap.Strings("words", words))
			if err := d.recoverUnknown(ctx); err != nil {
				log.Warn("Generic recovery incomplete.", zap.Error(err))
			}
		case action == recoverIdle:
			log.Info("Terminal is idle.", zap.Duration("elapsed", time.Since(st.start)))
			return nil
		default:
			log.Info("Recovering.", zap.Stringer("action", action))
			if err := d.perform(ctx, action); err != nil {
				return fmt.Errorf("dispatch %s on %s: %w", action, name, err)
			}
		}

		if err := automation.Sleep(ctx, d.cfg.StandardDelay); err != nil {
			return err
		}
	}

	err := &ExhaustedError{Attempts: st.attempts, Elapsed: time.Since(st.start), LastScreen: st.lastScreen}
	d.logger.Error("Dispatch gave up.", zap.Int("attempts", err.Attempts), zap.String("last_screen", err.LastScreen))
	return err
}

// classify returns the first matching rule's screen name and action.
func (d *Dispatcher) classify(words []string) (string, recovery, bool) {
	if len(words) == 0 {
		return "", 0, false
	}
	for _, r := range d.rules {
		for _, def := range r.defs {
			if def.Matches(words) {
				return screen.NormalizeName(def.Name), r.action, true
			}
		}
	}
	return "", 0, false
}

func (d *Dispatcher) perform(ctx context.Context, action recovery) error {
	switch action {
	case recoverWait:
		return nil
	case recoverDismiss:
		_, err := d.auto.FindAndClickAny(ctx, dismissLabels...)
		return err
	case recoverMedia:
		return d.media.TakeAllMedia(ctx)
	case recoverCancelPIN:
		return d.keypad.Cancel(ctx)
	}
	return fmt.Errorf("unhandled recovery %s", action)
}

// recoverUnknown tries every generic way out of an unknown screen and
// reports everything that failed.
func (d *Dispatcher) recoverUnknown(ctx context.Context) error {
	var errs []error
	if err := d.keypad.Cancel(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := d.auto.FindAndClickAny(ctx, "Cancel"); err != nil {
		errs = append(errs, err)
	}
	if err := d.media.TakeAllMedia(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TakeAllMedia collects any media the terminal is presenting.
func (d *Dispatcher) TakeAllMedia(ctx context.Context) error {
	return d.media.TakeAllMedia(ctx)
}
