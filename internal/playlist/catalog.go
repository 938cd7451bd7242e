package playlist

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// Catalog indexes loaded transactions by normalized name.
type Catalog struct {
	byName map[string]Transaction
	order  []string
}

// NewCatalog rejects duplicate transaction names.
func NewCatalog(txs []Transaction) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Transaction, len(txs))}
	for _, t := range txs {
		key := normalize(t.Name)
		if key == "" {
			return nil, errors.New("transaction name is required")
		}
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("transaction %q: duplicate definition", t.Name)
		}
		c.byName[key] = t
		c.order = append(c.order, t.Name)
	}
	return c, nil
}

// Lookup returns the transaction called name.
func (c *Catalog) Lookup(name string) (Transaction, error) {
	t, ok := c.byName[normalize(name)]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownTransaction, name, c.order)
	}
	return t, nil
}

// Names lists transactions in load order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// ValidateTransaction checks that every step names a registered screen and
// a known action. All problems are reported together.
func ValidateTransaction(tx Transaction, registry *screen.Registry) error {
	var errs []error
	if len(tx.ScreenFlow) == 0 {
		errs = append(errs, fmt.Errorf("transaction %q: screen flow is empty", tx.Name))
	}
	for i, step := range tx.ScreenFlow {
		if _, err := registry.Lookup(step.ScreenName()); err != nil {
			errs = append(errs, fmt.Errorf("transaction %q step %d: %w", tx.Name, i+1, err))
		}
		if !knownAction(step.Action()) {
			errs = append(errs, fmt.Errorf("transaction %q step %d: %w: %q", tx.Name, i+1, ErrUnknownAction, step.ActionType))
		} else if err := checkActionValue(step); err != nil {
			errs = append(errs, fmt.Errorf("transaction %q step %d: %w", tx.Name, i+1, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks a playlist against the catalog and the screen registry
// before anything touches the terminal.
func (c *Catalog) Validate(pl Playlist, registry *screen.Registry) error {
	var errs []error
	if len(pl.Transactions) == 0 {
		errs = append(errs, fmt.Errorf("playlist %q: no transactions", pl.Name))
	}
	if pl.Options.Repeat < 0 || pl.Options.RepeatDelay < 0 {
		errs = append(errs, fmt.Errorf("playlist %q: repeat and repeatDelay must not be negative", pl.Name))
	}
	seen := make(map[string]bool)
	for _, name := range pl.Transactions {
		tx, err := c.Lookup(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("playlist %q: %w", pl.Name, err))
			continue
		}
		if seen[normalize(name)] {
			continue
		}
		seen[normalize(name)] = true
		if err := ValidateTransaction(tx, registry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
