package document

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed, queryable view of one fetched page: the goquery tree
// for structural lookups plus a flattened plain-text projection built once
// and shared by every extractor pass.
type Document struct {
	base *url.URL
	doc  *goquery.Document
	flat string
}

var spaceRe = regexp.MustCompile(`[ \t\r\f]+`)

// Parse builds a Document from decoded HTML bytes. Malformed markup degrades
// to whatever partial tree the parser recovers; it is never a hard error.
func Parse(body []byte, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)
	d := &Document{base: base, doc: doc}
	d.flat = d.flatten()
	return d, nil
}

// Find runs a CSS selector query against the tree.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// FlatText returns the flattened visible-text projection: one line per
// element's own text, scripts and styles stripped, whitespace collapsed.
func (d *Document) FlatText() string { return d.flat }

// Title returns the <title> text, trimmed.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Meta returns the content of a <meta> tag matched by name or property.
func (d *Document) Meta(name string) string {
	sel := fmt.Sprintf(`meta[name=%q], meta[property=%q]`, name, name)
	content, _ := d.doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

// URL returns the page URL the document was parsed from.
func (d *Document) URL() string {
	if d.base == nil {
		return ""
	}
	return d.base.String()
}

// ResolveURL makes ref absolute against the page URL. Unparseable refs come
// back unchanged.
func (d *Document) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || d.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return d.base.ResolveReference(u).String()
}

// flatten walks every element and collects its own direct text nodes, so
// sibling cells like <td>Part Number</td><td>ABC-123</td> land on adjacent
// lines instead of being jammed into one token.
func (d *Document) flatten() string {
	root := d.doc.Find("body")
	if root.Length() == 0 {
		root = d.doc.Selection
	}
	root.Find("script, style, noscript, template, iframe").Remove()

	var parts []string
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		own := s.Contents().Not("*")
		text := strings.TrimSpace(spaceRe.ReplaceAllString(own.Text(), " "))
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}
