// Package ocr models the recognized-text tree returned by the terminal's
// screen service and derives the normalized word bag the matchers work on.
package ocr

// Point is a screen coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned bounding box in screen coordinates.
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Midpoint returns the centre of the box, which is where clicks land.
func (b Box) Midpoint() Point {
	return Point{X: (b.X0 + b.X1) / 2, Y: (b.Y0 + b.Y1) / 2}
}

// Word is a single recognized token. Confidence is the recognizer's own
// score and has nothing to do with phrase match confidence.
type Word struct {
	Box
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Line is a run of words on one baseline.
type Line struct {
	Box
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

// Element is a block of text as grouped by the recognizer.
type Element struct {
	Box
	Text  string `json:"text"`
	Lines []Line `json:"lines"`
}

// Page is the root of one screen read. Pages are fetched fresh for every
// query and must not be cached between polls.
type Page struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Elements []Element `json:"elements"`
}

// Empty reports whether the page carries no recognized text at all.
func (p *Page) Empty() bool {
	if p == nil {
		return true
	}
	for _, e := range p.Elements {
		if e.Text != "" {
			return false
		}
	}
	return true
}
