package ocr

import "strings"

// Delimiters is the fixed set of runes screen text and phrases are split on.
const Delimiters = " ,.?;:\n"

func isDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}

// Tokenize splits s on Delimiters and returns the lower-cased, trimmed,
// non-empty tokens in order.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, isDelimiter)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Words builds the screen word bag from the element texts of p. Lines and
// words are ignored. Duplicates are kept. A nil page yields a nil bag; a
// page without text yields an empty, non-nil bag.
func Words(p *Page) []string {
	if p == nil {
		return nil
	}
	bag := []string{}
	for _, e := range p.Elements {
		if e.Text == "" {
			continue
		}
		bag = append(bag, Tokenize(e.Text)...)
	}
	return bag
}
