package screen

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
)

// ErrUnknownScreen is returned when a screen name is not registered.
var ErrUnknownScreen = errors.New("unknown screen")

// Registry holds the screen definitions keyed by normalized name. It is
// built once at startup and is read-only afterwards.
type Registry struct {
	byName map[string]Definition
	order  []string
}

// NormalizeName is the key under which a screen is registered.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewRegistry validates defs and indexes them.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]Definition, len(defs))}
	for i, d := range defs {
		key := NormalizeName(d.Name)
		if key == "" {
			return nil, fmt.Errorf("screen #%d: name is required", i)
		}
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("screen %q: duplicate definition", d.Name)
		}
		if err := validateDefinition(d); err != nil {
			return nil, fmt.Errorf("screen %q: %w", d.Name, err)
		}
		r.byName[key] = d
		r.order = append(r.order, key)
	}
	return r, nil
}

func validateDefinition(d Definition) error {
	if len(d.Phrases) == 0 {
		return fmt.Errorf("%w: at least one phrase is required", ErrInvalidInput)
	}
	for j, p := range d.Phrases {
		if len(ocr.Tokenize(p.Text)) == 0 {
			return fmt.Errorf("%w: phrase #%d has no words", ErrInvalidInput, j)
		}
		if math.IsNaN(p.MatchConfidence) || p.MatchConfidence < 0 || p.MatchConfidence > 1 {
			return fmt.Errorf("%w: phrase %q match_confidence must be between 0.0 and 1.0", ErrInvalidInput, p.Text)
		}
		if p.EditDistance < 0 {
			return fmt.Errorf("%w: phrase %q edit_distance must not be negative", ErrInvalidInput, p.Text)
		}
	}
	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.byName[NormalizeName(name)]
	return d, ok
}

// Lookup is Get with an ErrUnknownScreen error for missing names.
func (r *Registry) Lookup(name string) (Definition, error) {
	d, ok := r.Get(name)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	return d, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[NormalizeName(name)]
	return ok
}

// Select returns the registered definitions for names, in the given order,
// silently skipping names that are not registered.
func (r *Registry) Select(names ...string) []Definition {
	out := make([]Definition, 0, len(names))
	for _, n := range names {
		if d, ok := r.Get(n); ok {
			out = append(out, d)
		}
	}
	return out
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byName[k])
	}
	return out
}

// Names returns the normalized names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len is the number of registered screens.
func (r *Registry) Len() int { return len(r.order) }
