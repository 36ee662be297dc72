package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"harvester/internal/core/document"
)

// deriveMeta yields the content of the first populated metadata tag from the
// given names, checked against both name= and property= attributes.
func deriveMeta(names ...string) DeriveFunc {
	return func(doc *document.Document, _ Context) []string {
		var out []string
		for _, n := range names {
			if v := doc.Meta(n); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
}

// deriveSpecTable scans specification tables for rows whose label cell
// matches one of the given labels and yields the adjacent value cell. It
// covers the common spec-sheet layouts: definition tables, dl lists and
// label/value div pairs.
func deriveSpecTable(labels ...string) DeriveFunc {
	return func(doc *document.Document, _ Context) []string {
		var out []string
		seen := map[string]struct{}{}
		add := func(v string) {
			v = strings.TrimSpace(v)
			if v == "" {
				return
			}
			if _, dup := seen[v]; dup {
				return
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}

		doc.Find("table tr, .spec-row, .product-attribute").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td, .label, .value, span, div").FilterFunction(func(_ int, c *goquery.Selection) bool {
				return c.Children().Length() == 0
			})
			texts := make([]string, 0, cells.Length())
			cells.Each(func(_ int, c *goquery.Selection) {
				texts = append(texts, strings.TrimSpace(c.Text()))
			})
			for i := 0; i+1 < len(texts); i++ {
				if matchesLabel(texts[i], labels) {
					add(texts[i+1])
				}
			}
		})

		// dt/dd pairs carry the same label/value relationship positionally.
		doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
			dts := dl.Find("dt")
			dds := dl.Find("dd")
			dts.Each(func(i int, dt *goquery.Selection) {
				if i < dds.Length() && matchesLabel(strings.TrimSpace(dt.Text()), labels) {
					add(strings.TrimSpace(dds.Eq(i).Text()))
				}
			})
		})

		return out
	}
}

func matchesLabel(cell string, labels []string) bool {
	c := strings.ToLower(strings.Trim(strings.TrimSpace(cell), ":"))
	for _, l := range labels {
		if c == l {
			return true
		}
	}
	return false
}

// deriveBrandFromTitle matches the resolved title against the closed brand
// vocabulary. Earliest position in the title wins.
func deriveBrandFromTitle(_ *document.Document, prior Context) []string {
	if prior.Title == "" {
		return nil
	}
	lowerTitle := strings.ToLower(prior.Title)
	best, bestPos := "", -1
	for _, b := range knownBrands {
		pos := strings.Index(lowerTitle, strings.ToLower(b))
		if pos < 0 {
			continue
		}
		if bestPos == -1 || pos < bestPos {
			best, bestPos = b, pos
		}
	}
	if best == "" {
		return nil
	}
	return []string{best}
}

// deriveLongestParagraph yields body paragraphs longest first, so the first
// one to clear the description predicate is the longest acceptable candidate.
func deriveLongestParagraph(doc *document.Document, _ Context) []string {
	var paras []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	sort.SliceStable(paras, func(i, j int) bool {
		return len(paras[i]) > len(paras[j])
	})
	return paras
}
