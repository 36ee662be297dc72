package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"harvester/internal/core/document"
	"harvester/internal/logger"
)

// maxCandidatesPerStrategy bounds how many raw captures one strategy may
// test, so pathological pages cannot stall a batch.
const maxCandidatesPerStrategy = 25

// Extractor evaluates field cascades against a parsed document. It holds no
// per-page state and is safe for concurrent use.
type Extractor struct {
	rules Rules
	log   *logger.Logger
}

func New(rules Rules) *Extractor {
	return &Extractor{rules: rules, log: logger.New("Extract")}
}

// Field resolves one field against the document. Strategies run in table
// order; within a strategy, candidates are tested in document order; the
// first candidate accepted by the strategy's predicate wins outright and no
// later strategy runs. A miss across the whole cascade is not an error.
func (e *Extractor) Field(doc *document.Document, field Field, prior Context) (string, bool) {
	cascade, ok := e.rules[field]
	if !ok {
		return "", false
	}
	for _, st := range cascade {
		for _, raw := range e.candidates(doc, st, prior) {
			if v, accepted := st.Accept(raw); accepted {
				return v, true
			}
		}
	}
	return "", false
}

func (e *Extractor) candidates(doc *document.Document, st Strategy, prior Context) []string {
	switch st.Kind {
	case KindSelector:
		return selectorCandidates(doc, st)
	case KindLabel:
		return labelCandidates(doc, st)
	case KindDerive:
		if st.Derive == nil {
			return nil
		}
		return st.Derive(doc, prior)
	}
	return nil
}

func selectorCandidates(doc *document.Document, st Strategy) []string {
	var out []string
	for _, sel := range st.Selectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw := ""
			if st.CaptureHTML {
				raw, _ = s.Html()
			} else {
				raw = s.Text()
			}
			if raw = strings.TrimSpace(raw); raw != "" {
				out = append(out, raw)
			}
			return len(out) < maxCandidatesPerStrategy
		})
		if len(out) >= maxCandidatesPerStrategy {
			break
		}
	}
	return out
}

func labelCandidates(doc *document.Document, st Strategy) []string {
	flat := doc.FlatText()
	var out []string
	for _, re := range st.Patterns {
		for _, m := range re.FindAllStringSubmatch(flat, maxCandidatesPerStrategy) {
			if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
				out = append(out, strings.TrimSpace(m[1]))
			}
		}
		if len(out) >= maxCandidatesPerStrategy {
			break
		}
	}
	return out
}
