package extract

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"harvester/internal/core/document"
	"harvester/internal/core/product"
)

const (
	maxFeatureItems     = 10
	featureMinLen       = 10
	featureMaxLen       = 200
	maxAdditionalImages = 4
	multiValueSeparator = " | "
)

// Assembler turns a parsed page into a product record. Title resolves first
// so later strategies can derive from it; every other field is independent
// and best-effort.
type Assembler struct {
	ex *Extractor
}

func NewAssembler(rules Rules) *Assembler {
	return &Assembler{ex: New(rules)}
}

// Assemble extracts every field from the document and applies the
// record-level fallbacks: a title derived from the URL path when the page
// yields none, and a synthesized description templated from the resolved
// title. Field absence never fails assembly.
func (a *Assembler) Assemble(doc *document.Document, sourceURL string) *product.Product {
	ctx := Context{URL: sourceURL}

	title, _ := a.ex.Field(doc, FieldTitle, ctx)
	if title == "" {
		title = TitleFromURL(sourceURL)
	}
	ctx.Title = title

	p := &product.Product{
		Title:     title,
		SourceURL: sourceURL,
		ScrapedAt: time.Now().UTC(),
	}

	p.Price, _ = a.ex.Field(doc, FieldPrice, ctx)
	p.PartNumber, _ = a.ex.Field(doc, FieldPartNumber, ctx)
	p.EAN, _ = a.ex.Field(doc, FieldEAN, ctx)
	p.Brand, _ = a.ex.Field(doc, FieldBrand, ctx)
	p.Color, _ = a.ex.Field(doc, FieldColor, ctx)
	p.Condition, _ = a.ex.Field(doc, FieldCondition, ctx)
	p.Availability, _ = a.ex.Field(doc, FieldAvailability, ctx)

	p.Description, _ = a.ex.Field(doc, FieldDescription, ctx)
	if p.Description == "" && title != "" {
		p.Description = fmt.Sprintf("%s. Please refer to the listed specifications for full product details.", title)
	}

	p.Features = extractFeatures(doc)
	p.ImageURL, p.AdditionalImages = extractImages(doc)

	return p
}

// TitleFromURL derives a readable title from the last URL path segment:
// "wireless-headset-pro.html" becomes "Wireless Headset Pro".
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return ""
	}
	if i := strings.LastIndex(seg, "."); i > 0 {
		seg = seg[:i]
	}
	seg = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(seg)
	words := strings.Fields(seg)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

var featureSelectors = []string{
	".product-features li",
	".features li",
	".key-features li",
	".product-info ul li",
	".specifications li",
	"ul.features li",
}

// extractFeatures collects bullet-point feature items from known feature
// list containers, bounded in count and per-item length, joined with the
// multi-value separator for flat storage.
func extractFeatures(doc *document.Document) string {
	var items []string
	seen := map[string]struct{}{}
	for _, sel := range featureSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, li *goquery.Selection) bool {
			t := collapseSpace(li.Text())
			if len(t) < featureMinLen || len(t) > featureMaxLen {
				return true
			}
			if _, dup := seen[t]; dup {
				return true
			}
			seen[t] = struct{}{}
			items = append(items, t)
			return len(items) < maxFeatureItems
		})
		if len(items) >= maxFeatureItems {
			break
		}
	}
	return strings.Join(items, multiValueSeparator)
}

var imageSelectors = []string{
	".product-image-main img",
	".product-image img",
	".gallery-image img",
	".product-media img",
	".product-photo img",
	"img[itemprop=image]",
	"img[src*=product]",
	"img[data-src*=product]",
}

// productImageTokens mark a source path as product media rather than site
// chrome.
var productImageTokens = []string{
	"product", "media", "gallery", "catalog", "upload", "item",
}

var imagePlaceholderTokens = []string{
	"placeholder", "spinner", "loading", "blank", "pixel", "1x1",
	"sprite", "icon", "logo",
}

// extractImages returns the primary image URL and up to four additional
// images joined with the multi-value separator. Sources are resolved to
// absolute URLs and deduplicated in document order.
func extractImages(doc *document.Document) (string, string) {
	var urls []string
	seen := map[string]struct{}{}
	for _, sel := range imageSelectors {
		doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, _ = img.Attr("data-src")
			}
			if !acceptImageSrc(src) {
				return
			}
			abs := doc.ResolveURL(src)
			if _, dup := seen[abs]; dup {
				return
			}
			seen[abs] = struct{}{}
			urls = append(urls, abs)
		})
		if len(urls) > maxAdditionalImages {
			break
		}
	}
	if len(urls) == 0 {
		return "", ""
	}
	extra := urls[1:]
	if len(extra) > maxAdditionalImages {
		extra = extra[:maxAdditionalImages]
	}
	return urls[0], strings.Join(extra, multiValueSeparator)
}

func acceptImageSrc(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return false
	}
	lower := strings.ToLower(src)
	for _, bad := range imagePlaceholderTokens {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	for _, tok := range productImageTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
