package extract

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"harvester/internal/core/document"
)

// Field names one extractable product attribute.
type Field string

const (
	FieldTitle        Field = "title"
	FieldPrice        Field = "price"
	FieldDescription  Field = "description"
	FieldPartNumber   Field = "part_number"
	FieldEAN          Field = "ean"
	FieldBrand        Field = "brand"
	FieldColor        Field = "color"
	FieldCondition    Field = "condition"
	FieldAvailability Field = "availability"
)

// Kind is the strategy family. Within a field's cascade, strategies run in
// declaration order and the first accepted capture wins outright.
type Kind string

const (
	// KindSelector queries the parsed tree with an ordered list of candidate
	// CSS paths, most specific first.
	KindSelector Kind = "selector"
	// KindLabel scans the flattened text with regex alternatives keyed on
	// known field labels in multiple phrasings and separator conventions.
	KindLabel Kind = "label"
	// KindDerive computes candidates from context: spec-table rows, an
	// already-extracted title, page metadata.
	KindDerive Kind = "derive"
)

// Context carries already-resolved fields into later strategies, e.g. the
// title for brand-from-title derivation.
type Context struct {
	Title string
	URL   string
}

// Predicate validates a raw capture and returns the normalized value to
// store. Raw selector/regex hits are frequently garbage; nothing is accepted
// without passing its strategy's predicate.
type Predicate func(raw string) (string, bool)

// DeriveFunc produces candidate values in priority order.
type DeriveFunc func(doc *document.Document, prior Context) []string

// Strategy is one rung of a field's cascade.
type Strategy struct {
	Kind      Kind
	Selectors []string
	Patterns  []*regexp.Regexp
	Derive    DeriveFunc
	Accept    Predicate
	// CaptureHTML makes selector strategies hand the matched element's inner
	// HTML (normalized to plain text) to the predicate instead of raw text.
	// Used by description extraction to strip markup cleanly.
	CaptureHTML bool
}

// Rules maps each field to its ordered strategy cascade. New sites are
// supported by adding table rows, not new code paths.
type Rules map[Field][]Strategy

func rx(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// DefaultRules returns the built-in cascade table. Selector lists and label
// phrasings are the consolidated union of per-site variants observed in the
// wild; the order encodes specificity.
func DefaultRules() Rules {
	return Rules{
		FieldTitle: {
			{
				Kind: KindSelector,
				Selectors: []string{
					"h1.page-title",
					".page-title h1",
					".product-name h1",
					"h1.product-title",
					".product-title",
					"h1",
					"title",
				},
				Accept: acceptTitle,
			},
			{
				Kind:   KindDerive,
				Derive: deriveMeta("og:title", "twitter:title"),
				Accept: acceptTitle,
			},
		},
		FieldPrice: {
			{
				Kind: KindSelector,
				Selectors: []string{
					".price-box .price",
					".special-price .price",
					".product-price",
					"[data-price-amount]",
					".price-current",
					".current-price",
					".regular-price",
					".price",
				},
				Accept: acceptPrice,
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)(?:price|now|our price)\s*[:|]?\s*\n?([£$€]\s?[\d,]+(?:\.\d+)?)`,
					`([£$€]\s?[\d,]+(?:\.\d+)?)`,
				),
				Accept: acceptPrice,
			},
		},
		FieldPartNumber: {
			{
				Kind: KindSelector,
				Selectors: []string{
					"[itemprop=mpn]",
					".product-sku",
					".sku",
				},
				Accept: acceptPartNumber,
			},
			{
				Kind:   KindDerive,
				Derive: deriveSpecTable("part number", "part #", "part no", "mpn", "model", "sku"),
				Accept: acceptPartNumber,
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)part\s*(?:number|no\.?|#)\s*[:|]?\s*\n?([A-Za-z0-9][A-Za-z0-9./_-]{1,18})`,
					`(?i)\b(?:mpn|sku)\b\s*[:|]?\s*\n?([A-Za-z0-9][A-Za-z0-9./_-]{1,18})`,
					`(?i)model(?:\s*(?:number|no\.?))?\s*[:|]\s*\n?([A-Za-z0-9][A-Za-z0-9./_-]{1,18})`,
				),
				Accept: acceptPartNumber,
			},
			{
				// Last resort: brand-code-like tokens anywhere in the text.
				Kind: KindLabel,
				Patterns: rx(
					`\b([A-Z]{2,6}-[A-Z0-9]{2,10}(?:-[A-Z0-9]{1,6})?)\b`,
				),
				Accept: acceptPartNumber,
			},
		},
		FieldEAN: {
			{
				Kind:   KindDerive,
				Derive: deriveSpecTable("ean", "upc", "barcode", "gtin"),
				Accept: acceptBarcode,
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)\b(?:ean|upc|barcode|gtin)\b\s*[:|]?\s*\n?(\d{8,18})`,
				),
				Accept: acceptBarcode,
			},
		},
		FieldBrand: {
			{
				Kind: KindSelector,
				Selectors: []string{
					"[itemprop=brand]",
					".product-brand",
					".brand",
				},
				Accept: acceptShortText(40),
			},
			{
				Kind:   KindDerive,
				Derive: deriveSpecTable("brand", "manufacturer", "make"),
				Accept: acceptShortText(40),
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)(?:brand|manufacturer)\s*[:|]\s*\n?([^\n|]{2,40})`,
				),
				Accept: acceptShortText(40),
			},
			{
				Kind:   KindDerive,
				Derive: deriveBrandFromTitle,
				Accept: acceptShortText(40),
			},
		},
		FieldColor: {
			{
				Kind:      KindSelector,
				Selectors: []string{"[itemprop=color]", ".product-color", ".colour"},
				Accept:    acceptShortText(30),
			},
			{
				Kind:   KindDerive,
				Derive: deriveSpecTable("colour", "color"),
				Accept: acceptShortText(30),
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)colou?r\s*[:|]\s*\n?([^\n|]{2,30})`,
				),
				Accept: acceptShortText(30),
			},
		},
		FieldCondition: {
			{
				Kind:   KindDerive,
				Derive: deriveSpecTable("condition"),
				Accept: acceptShortText(30),
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)condition\s*[:|]\s*\n?([^\n|]{2,30})`,
				),
				Accept: acceptShortText(30),
			},
		},
		FieldAvailability: {
			{
				Kind: KindSelector,
				Selectors: []string{
					"[itemprop=availability]",
					".availability",
					".stock-status",
					".stock",
				},
				Accept: acceptShortText(40),
			},
			{
				Kind:   KindDerive,
				Derive: deriveSpecTable("availability", "stock"),
				Accept: acceptShortText(40),
			},
			{
				Kind: KindLabel,
				Patterns: rx(
					`(?i)(?:availability|stock)\s*[:|]\s*\n?([^\n|]{2,40})`,
					`(?i)\b(in stock|out of stock|pre[- ]?order|back[- ]?order(?:ed)?)\b`,
				),
				Accept: acceptShortText(40),
			},
		},
		FieldDescription: {
			{
				// Page metadata summary is preferred over anything scraped
				// out of the body.
				Kind:   KindDerive,
				Derive: deriveMeta("description", "og:description"),
				Accept: acceptDescription,
			},
			{
				Kind: KindSelector,
				Selectors: []string{
					".product-description",
					"[itemprop=description]",
					".short-description",
					"#description",
					".product-details",
					".description",
				},
				Accept:      acceptDescription,
				CaptureHTML: true,
			},
			{
				Kind:   KindDerive,
				Derive: deriveLongestParagraph,
				Accept: acceptDescription,
			},
		},
	}
}

// Overrides is the shape of the optional YAML rules file: per field, extra
// selectors (tried before the defaults of the first selector strategy) and
// extra label regexes (tried after the built-in label patterns).
type Overrides struct {
	Fields map[Field]struct {
		Selectors []string `yaml:"selectors"`
		Labels    []string `yaml:"labels"`
	} `yaml:"fields"`
}

// LoadOverrides reads the YAML overrides file and merges it into the rules.
func (r Rules) LoadOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var ov Overrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	for field, extra := range ov.Fields {
		cascade, ok := r[field]
		if !ok {
			return fmt.Errorf("rules file: unknown field %q", field)
		}
		if len(extra.Selectors) > 0 {
			if i := indexOfKind(cascade, KindSelector); i >= 0 {
				cascade[i].Selectors = append(append([]string{}, extra.Selectors...), cascade[i].Selectors...)
			}
		}
		for _, pat := range extra.Labels {
			re, err := regexp.Compile(pat)
			if err != nil {
				return fmt.Errorf("rules file: field %q: bad pattern %q: %w", field, pat, err)
			}
			if i := indexOfKind(cascade, KindLabel); i >= 0 {
				cascade[i].Patterns = append(cascade[i].Patterns, re)
			}
		}
		r[field] = cascade
	}
	return nil
}

func indexOfKind(cascade []Strategy, kind Kind) int {
	for i, s := range cascade {
		if s.Kind == kind {
			return i
		}
	}
	return -1
}
