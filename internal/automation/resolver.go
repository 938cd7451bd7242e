package automation

import (
	"github.com/xkilldash9x/vatm-cli/internal/ocr"
)

// Tree levels a candidate can come from.
const (
	LevelElement = "element"
	LevelLine    = "line"
	LevelWord    = "word"
)

// ClickCandidate is a node of the OCR tree that matched some of the target
// words. It lives for one find-and-click call.
type ClickCandidate struct {
	Location   ocr.Point
	Text       string
	Confidence float64
	Level      string
}

// ResolveClickTarget walks page element by element, descending into lines
// and then words only while the parent is not a full match. It returns the
// highest-confidence candidate, the first one seen winning ties. A word's
// confidence is scaled by the confidence of its line.
func ResolveClickTarget(page *ocr.Page, target string, editDistance int) (ClickCandidate, bool) {
	targetWords := ocr.Tokenize(target)
	if page == nil || len(targetWords) == 0 {
		return ClickCandidate{}, false
	}

	var best ClickCandidate
	found := false
	consider := func(c ClickCandidate) {
		if !found || c.Confidence > best.Confidence {
			best, found = c, true
		}
	}

	for _, el := range page.Elements {
		elConf, ok := nodeConfidence(el.Text, targetWords, editDistance)
		if !ok {
			continue
		}
		if elConf > 0 {
			consider(ClickCandidate{Location: el.Midpoint(), Text: el.Text, Confidence: elConf, Level: LevelElement})
		}
		if elConf >= 1 {
			continue
		}
		for _, ln := range el.Lines {
			lnConf, ok := nodeConfidence(ln.Text, targetWords, editDistance)
			if !ok {
				continue
			}
			if lnConf > 0 {
				consider(ClickCandidate{Location: ln.Midpoint(), Text: ln.Text, Confidence: lnConf, Level: LevelLine})
			}
			if lnConf >= 1 {
				continue
			}
			for _, w := range ln.Words {
				wConf, ok := nodeConfidence(w.Text, targetWords, editDistance)
				if !ok || wConf*lnConf == 0 {
					continue
				}
				consider(ClickCandidate{Location: w.Midpoint(), Text: w.Text, Confidence: wConf * lnConf, Level: LevelWord})
			}
		}
	}

	return best, found
}

// nodeConfidence is matched/max(len(target), len(node)) where matched
// counts node words present among the target words. ok is false for nodes
// without text.
func nodeConfidence(text string, targetWords []string, editDistance int) (float64, bool) {
	nodeWords := ocr.Tokenize(text)
	if len(nodeWords) == 0 {
		return 0, false
	}
	matched := 0
	for _, nw := range nodeWords {
		for _, tw := range targetWords {
			if ocr.WithinDistance(nw, tw, editDistance) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(max(len(targetWords), len(nodeWords))), true
}
