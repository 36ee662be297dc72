package extract

import (
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const (
	priceCeiling = 50000

	descriptionMinLen = 30
	descriptionMaxLen = 1200
)

// sectionHeadings are navigation and section labels that selector or regex
// strategies routinely capture by accident. Short-text fields reject them.
var sectionHeadings = map[string]struct{}{
	"description":    {},
	"specification":  {},
	"specifications": {},
	"features":       {},
	"details":        {},
	"overview":       {},
	"reviews":        {},
	"delivery":       {},
	"returns":        {},
	"warranty":       {},
	"related":        {},
	"accessories":    {},
	"n/a":            {},
	"na":             {},
	"-":              {},
	"none":           {},
	"see below":      {},
	"various":        {},
}

// descriptionStoplist marks boilerplate fragments that disqualify a paragraph
// from serving as a product description.
var descriptionStoplist = []string{
	"cookie",
	"cookies",
	"privacy policy",
	"terms and conditions",
	"terms of service",
	"javascript",
	"enable javascript",
	"your browser",
	"sign up to our newsletter",
	"subscribe to our newsletter",
	"all rights reserved",
	"free delivery on orders",
	"add to basket",
	"add to cart",
}

// knownBrands is the closed vocabulary for brand-from-title derivation. Open
// matching against the title produces junk, so only exact known names count.
var knownBrands = []string{
	"Bosch", "Makita", "DeWalt", "Milwaukee", "Ryobi", "Hitachi", "Hikoki",
	"Stanley", "Draper", "Sealey", "Silverline", "Festool", "Metabo",
	"Karcher", "Einhell", "Worx", "Black & Decker",
	"Sony", "Samsung", "LG", "Panasonic", "Philips", "Sharp", "Toshiba",
	"Apple", "Dell", "Lenovo", "HP", "Asus", "Acer", "Logitech",
	"Canon", "Nikon", "Epson", "Brother", "Xerox",
	"Dyson", "Shark", "Hoover", "Vax", "Henry",
	"Siemens", "Miele", "Zanussi", "Hotpoint", "Indesit", "Beko", "AEG",
	"Whirlpool", "Smeg", "Neff", "Candy", "Hisense",
}

var (
	priceNumberRe = regexp.MustCompile(`([£$€])?\s*([\d,]+(?:\.\d+)?)`)
	partNumberRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9./_-]*[A-Za-z0-9]$`)
	digitsOnlyRe  = regexp.MustCompile(`^\d+$`)
	hasDigitRe    = regexp.MustCompile(`\d`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	mdNoiseRe     = regexp.MustCompile(`[#*_>\x60]+`)
	blankRunRe    = regexp.MustCompile(`\n{2,}`)
	innerSpaceRe  = regexp.MustCompile(`[ \t]+`)
)

// titleSuffixSeparators split a page title from trailing site branding, e.g.
// "Wireless Headset Pro | Example Store".
var titleSuffixSeparators = []string{" | ", " :: ", " » "}

func trimTitleSuffix(s string) string {
	for _, sep := range titleSuffixSeparators {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func acceptTitle(raw string) (string, bool) {
	t := trimTitleSuffix(collapseSpace(raw))
	if len(t) <= 5 {
		return "", false
	}
	return t, true
}

// acceptPrice requires a parseable amount with a plausible magnitude. The
// stored form keeps the currency tag and drops thousands separators:
// "£1,299.00" becomes "£1299.00".
func acceptPrice(raw string) (string, bool) {
	m := priceNumberRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	sym, num := m[1], strings.ReplaceAll(m[2], ",", "")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 || v > priceCeiling {
		return "", false
	}
	return sym + num, true
}

// acceptPartNumber wants an alphanumeric code with optional separators, 3 to
// 20 characters, containing at least one digit. Plain words slip through the
// shape check otherwise.
func acceptPartNumber(raw string) (string, bool) {
	s := collapseSpace(raw)
	if len(s) < 3 || len(s) > 20 {
		return "", false
	}
	if !partNumberRe.MatchString(s) || !hasDigitRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// acceptBarcode admits UPC-A, EAN-13 and GTIN-14 lengths only.
func acceptBarcode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if !digitsOnlyRe.MatchString(s) {
		return "", false
	}
	switch len(s) {
	case 12, 13, 14:
		return s, true
	}
	return "", false
}

// acceptShortText builds a predicate for label-style values (brand, color,
// condition, availability): bounded length and not a section heading.
func acceptShortText(maxLen int) Predicate {
	return func(raw string) (string, bool) {
		s := strings.Trim(collapseSpace(raw), " :|-")
		if len(s) < 2 || len(s) > maxLen {
			return "", false
		}
		if _, bad := sectionHeadings[strings.ToLower(s)]; bad {
			return "", false
		}
		return s, true
	}
}

// acceptDescription enforces the length window and the boilerplate stoplist.
// Candidates outside the window are rejected, never truncated.
func acceptDescription(raw string) (string, bool) {
	s := cleanDescription(raw)
	if len(s) < descriptionMinLen || len(s) > descriptionMaxLen {
		return "", false
	}
	lower := strings.ToLower(s)
	for _, stop := range descriptionStoplist {
		if strings.Contains(lower, stop) {
			return "", false
		}
	}
	return s, true
}

var mdConverter = md.NewConverter("", true, nil)

// cleanDescription normalizes a description capture to plain prose. Markup is
// converted through markdown so lists and emphasis degrade to readable text
// instead of tag soup.
func cleanDescription(raw string) string {
	s := raw
	if strings.Contains(s, "<") && tagRe.MatchString(s) {
		if converted, err := mdConverter.ConvertString(s); err == nil {
			s = converted
		} else {
			s = tagRe.ReplaceAllString(s, " ")
		}
		s = mdNoiseRe.ReplaceAllString(s, "")
	}
	s = innerSpaceRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

func collapseSpace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
