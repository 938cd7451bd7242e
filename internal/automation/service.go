// Package automation turns the virtual machine's screen API into screen
// recognition primitives: reading the word bag, matching screens, waiting
// for them and clicking on recognized text.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// ErrScreenNotFound is returned by the Expect helpers when the screen did
// not show up in time.
var ErrScreenNotFound = errors.New("expected screen not shown")

// Service reads and drives one terminal display. It holds no screen state:
// every call fetches a fresh OCR page.
type Service struct {
	vm     paragon.VirtualMachine
	logger *zap.Logger
}

// NewService wraps vm.
func NewService(vm paragon.VirtualMachine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vm: vm, logger: logger.Named("automation")}
}

// ScreenWords fetches the current word bag.
func (s *Service) ScreenWords(ctx context.Context) ([]string, error) {
	page, err := s.vm.GetScreenText(ctx)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%w: empty reply", paragon.ErrScreenUnavailable)
	}
	if page.Empty() {
		s.logger.Debug("Blank OCR frame.")
		return []string{}, nil
	}
	return ocr.Words(page), nil
}

// MatchScreen reports whether def is currently showing.
func (s *Service) MatchScreen(ctx context.Context, def screen.Definition) (bool, error) {
	words, err := s.ScreenWords(ctx)
	if err != nil {
		return false, err
	}
	return def.Match(words)
}

// MatchAny returns the first of defs that is currently showing.
func (s *Service) MatchAny(ctx context.Context, defs []screen.Definition) (screen.Definition, bool, error) {
	words, err := s.ScreenWords(ctx)
	if err != nil {
		return screen.Definition{}, false, err
	}
	d, ok, err := screen.FirstMatch(defs, words)
	if err != nil {
		s.logger.Debug("Some screen definitions could not be evaluated.", zap.Error(err))
	}
	return d, ok, nil
}

// FindAndClick clicks the best match for target on the current screen. It
// returns false without error when nothing on screen matches.
func (s *Service) FindAndClick(ctx context.Context, target string, editDistance int) (bool, error) {
	page, err := s.vm.GetScreenText(ctx)
	if err != nil {
		return false, err
	}
	if page.Empty() {
		s.logger.Info("Screen is blank, nothing to click.", zap.String("target", target))
		return false, nil
	}
	c, ok := ResolveClickTarget(page, target, editDistance)
	if !ok {
		s.logger.Info("Text not found on screen.", zap.String("target", target))
		return false, nil
	}
	s.logger.Info("Clicking text.",
		zap.String("target", target),
		zap.String("matched", c.Text),
		zap.String("level", c.Level),
		zap.Float64("confidence", c.Confidence),
	)
	if err := s.vm.ClickScreen(ctx, c.Location, false); err != nil {
		return false, fmt.Errorf("click %q: %w", target, err)
	}
	return true, nil
}

// FindAndClickAny asks the VM to locate each candidate in turn and clicks
// the first one it finds. A candidate that cannot be located or clicked is
// skipped; the errors are only returned when no candidate was clicked.
func (s *Service) FindAndClickAny(ctx context.Context, candidates ...string) (bool, error) {
	var errs []error
	for _, text := range candidates {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		loc, err := s.vm.GetLocationByText(ctx, text)
		if err != nil {
			s.logger.Warn("Failed to locate text.", zap.String("text", text), zap.Error(err))
			errs = append(errs, fmt.Errorf("locate %q: %w", text, err))
			continue
		}
		if !loc.Found {
			continue
		}
		s.logger.Info("Clicking located text.", zap.String("text", text), zap.Float64("x", loc.Point.X), zap.Float64("y", loc.Point.Y))
		if err := s.vm.ClickScreen(ctx, loc.Point, false); err != nil {
			s.logger.Warn("Failed to click located text.", zap.String("text", text), zap.Error(err))
			errs = append(errs, fmt.Errorf("click %q: %w", text, err))
			continue
		}
		return true, nil
	}
	if len(errs) > 0 {
		return false, errors.Join(errs...)
	}
	s.logger.Info("None of the candidates were found on screen.", zap.Strings("candidates", candidates))
	return false, nil
}

func (s *Service) poller(timeout, interval time.Duration) Poller {
	return Poller{Timeout: timeout, Interval: interval, Logger: s.logger}
}
