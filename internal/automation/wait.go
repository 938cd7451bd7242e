package automation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// WaitForScreen polls until def is showing or timeout passes.
func (s *Service) WaitForScreen(ctx context.Context, def screen.Definition, timeout, interval time.Duration) (bool, error) {
	s.logger.Debug("Waiting for screen.", zap.String("screen", def.Name), zap.Duration("timeout", timeout))
	_, ok, err := Poll(ctx, s.poller(timeout, interval), func(ctx context.Context) (struct{}, bool, error) {
		ok, err := s.MatchScreen(ctx, def)
		return struct{}{}, ok, err
	})
	return ok, err
}

// WaitForScreens polls until any of defs is showing and returns the first
// match in list order.
func (s *Service) WaitForScreens(ctx context.Context, defs []screen.Definition, timeout, interval time.Duration) (screen.Definition, bool, error) {
	return Poll(ctx, s.poller(timeout, interval), func(ctx context.Context) (screen.Definition, bool, error) {
		return s.MatchAny(ctx, defs)
	})
}

// WaitForText polls until phrase is present with the given confidence.
func (s *Service) WaitForText(ctx context.Context, phrase screen.Phrase, timeout, interval time.Duration) (bool, error) {
	_, ok, err := s.WaitForAnyText(ctx, []screen.Phrase{phrase}, timeout, interval)
	return ok, err
}

// WaitForAnyText polls until one of phrases is present and returns it.
func (s *Service) WaitForAnyText(ctx context.Context, phrases []screen.Phrase, timeout, interval time.Duration) (screen.Phrase, bool, error) {
	return Poll(ctx, s.poller(timeout, interval), func(ctx context.Context) (screen.Phrase, bool, error) {
		words, err := s.ScreenWords(ctx)
		if err != nil {
			return screen.Phrase{}, false, err
		}
		for _, p := range phrases {
			ok, err := screen.CompareText(words, p.Text, p.MatchConfidence, p.EditDistance)
			if err != nil {
				return screen.Phrase{}, false, err
			}
			if ok {
				return p, true, nil
			}
		}
		return screen.Phrase{}, false, nil
	})
}

// ExpectScreen is WaitForScreen that turns a timeout into ErrScreenNotFound
// and logs how close the display came to the expected screen.
func (s *Service) ExpectScreen(ctx context.Context, def screen.Definition, timeout, interval time.Duration) error {
	start := time.Now()
	ok, err := s.WaitForScreen(ctx, def, timeout, interval)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	fields := []zap.Field{
		zap.String("screen", def.Name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64s("required", requiredConfidences(def)),
	}
	if words, werr := s.ScreenWords(ctx); werr == nil {
		fields = append(fields, zap.Float64("best_confidence", def.Score(words)), zap.Strings("words", words))
	}
	s.logger.Error("Expected screen not shown.", fields...)
	return fmt.Errorf("%w: %s after %s", ErrScreenNotFound, def.Name, time.Since(start).Round(time.Second))
}

func requiredConfidences(def screen.Definition) []float64 {
	out := make([]float64, len(def.Phrases))
	for i, p := range def.Phrases {
		out[i] = p.MatchConfidence
	}
	return out
}
