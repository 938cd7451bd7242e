// Package screen recognizes terminal screens from OCR word bags.
package screen

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xkilldash9x/vatm-cli/internal/ocr"
)

// ErrInvalidInput marks a matcher call that can never be answered, such as
// a missing word bag or a confidence outside [0,1]. It signals a
// configuration defect, not a failed match.
var ErrInvalidInput = errors.New("invalid match input")

// Comparer performs word-level fuzzy phrase matching.
type Comparer struct {
	// AllowEmptyPhrase makes a phrase with no words match unconditionally.
	// By default such a phrase never matches.
	AllowEmptyPhrase bool
}

// Confidence returns the fraction of the phrase's words present in words,
// either exactly or within editDistance edits.
func (c Comparer) Confidence(words []string, phrase string, editDistance int) (float64, error) {
	if words == nil {
		return 0, fmt.Errorf("%w: nil word bag", ErrInvalidInput)
	}
	if editDistance < 0 {
		return 0, fmt.Errorf("%w: negative edit distance %d", ErrInvalidInput, editDistance)
	}

	phraseWords := ocr.Tokenize(phrase)
	if len(phraseWords) == 0 {
		if c.AllowEmptyPhrase {
			return 1, nil
		}
		return 0, nil
	}

	bag := normalize(words)
	matched := 0
	for _, pw := range phraseWords {
		if containsWord(bag, pw, editDistance) {
			matched++
		}
	}
	return float64(matched) / float64(len(phraseWords)), nil
}

// CompareText reports whether phrase is present in words with at least the
// required confidence.
func (c Comparer) CompareText(words []string, phrase string, required float64, editDistance int) (bool, error) {
	if math.IsNaN(required) || required < 0 || required > 1 {
		return false, fmt.Errorf("%w: required confidence %.2f outside [0,1]", ErrInvalidInput, required)
	}
	confidence, err := c.Confidence(words, phrase, editDistance)
	if err != nil {
		return false, err
	}
	if !c.AllowEmptyPhrase && len(ocr.Tokenize(phrase)) == 0 {
		return false, nil
	}
	return confidence >= required, nil
}

// CompareText uses the default Comparer, which rejects empty phrases.
func CompareText(words []string, phrase string, required float64, editDistance int) (bool, error) {
	return Comparer{}.CompareText(words, phrase, required, editDistance)
}

// Confidence uses the default Comparer.
func Confidence(words []string, phrase string, editDistance int) (float64, error) {
	return Comparer{}.Confidence(words, phrase, editDistance)
}

// containsWord looks for an exact hit first and only then falls back to the
// first word within the edit distance.
func containsWord(bag []string, word string, editDistance int) bool {
	for _, w := range bag {
		if w == word {
			return true
		}
	}
	if editDistance <= 0 {
		return false
	}
	for _, w := range bag {
		if ocr.WithinDistance(w, word, editDistance) {
			return true
		}
	}
	return false
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
