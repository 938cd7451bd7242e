package screen

import (
	"errors"
	"fmt"
)

// Phrase is one textual cue that identifies a screen.
type Phrase struct {
	Text            string  `mapstructure:"text" yaml:"text" json:"text"`
	MatchConfidence float64 `mapstructure:"match_confidence" yaml:"match_confidence" json:"matchConfidence"`
	EditDistance    int     `mapstructure:"edit_distance" yaml:"edit_distance" json:"editDistance"`
}

// Definition names a screen and lists alternative phrases for it. The
// screen is showing when any one phrase matches.
type Definition struct {
	Name    string   `mapstructure:"name" yaml:"name" json:"name"`
	Phrases []Phrase `mapstructure:"phrases" yaml:"phrases" json:"phrases"`
}

// Match reports whether any phrase of d is present in words. Phrases that
// cannot be evaluated are skipped; their ErrInvalidInput errors are
// returned only when no other phrase matched.
func (d Definition) Match(words []string) (bool, error) {
	var errs []error
	for _, p := range d.Phrases {
		ok, err := CompareText(words, p.Text, p.MatchConfidence, p.EditDistance)
		if err != nil {
			errs = append(errs, fmt.Errorf("screen %q phrase %q: %w", d.Name, p.Text, err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// Matches is Match with invalid phrases counted as misses. Definitions
// loaded through a Registry are validated up front, so this only loses
// information for hand-built definitions.
func (d Definition) Matches(words []string) bool {
	ok, _ := d.Match(words)
	return ok
}

// Score is the best phrase confidence of d against words. It is used for
// diagnostics when a wait gives up.
func (d Definition) Score(words []string) float64 {
	best := 0.0
	for _, p := range d.Phrases {
		c, err := Confidence(words, p.Text, p.EditDistance)
		if err == nil && c > best {
			best = c
		}
	}
	return best
}

// MatchScreen reports whether def is showing given the word bag.
func MatchScreen(def Definition, words []string) bool {
	return def.Matches(words)
}

// MatchAny returns the first definition, in slice order, that matches.
func MatchAny(defs []Definition, words []string) (Definition, bool) {
	d, ok, _ := FirstMatch(defs, words)
	return d, ok
}

// FirstMatch is MatchAny that also reports definitions that could not be
// evaluated. The error is informational: a later definition may still match.
func FirstMatch(defs []Definition, words []string) (Definition, bool, error) {
	var errs []error
	for _, d := range defs {
		ok, err := d.Match(words)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			return d, true, errors.Join(errs...)
		}
	}
	return Definition{}, false, errors.Join(errs...)
}
