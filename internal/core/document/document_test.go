package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenPutsSiblingCellsOnAdjacentLines(t *testing.T) {
	html := `<html><body>
		<table><tr><td>Part Number</td><td>ABC-123</td></tr></table>
	</body></html>`
	doc, err := Parse([]byte(html), "https://shop.example.com/p/x")
	require.NoError(t, err)

	flat := doc.FlatText()
	lines := strings.Split(flat, "\n")
	idx := -1
	for i, l := range lines {
		if l == "Part Number" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "label line missing from %q", flat)
	require.Less(t, idx+1, len(lines))
	assert.Equal(t, "ABC-123", lines[idx+1])
}

func TestFlattenStripsScriptsAndStyles(t *testing.T) {
	html := `<html><body>
		<script>var tracking = "secret";</script>
		<style>.x{color:red}</style>
		<p>Visible content here.</p>
	</body></html>`
	doc, err := Parse([]byte(html), "https://x.test/p")
	require.NoError(t, err)

	flat := doc.FlatText()
	assert.NotContains(t, flat, "tracking")
	assert.NotContains(t, flat, "color:red")
	assert.Contains(t, flat, "Visible content here.")
}

func TestParseMalformedHTMLDegrades(t *testing.T) {
	html := `<html><body><div><p>Unclosed everywhere <span>still readable`
	doc, err := Parse([]byte(html), "https://x.test/p")
	require.NoError(t, err)
	assert.Contains(t, doc.FlatText(), "still readable")
}

func TestMetaMatchesNameAndProperty(t *testing.T) {
	html := `<html><head>
		<meta name="description" content="By name.">
		<meta property="og:title" content="By property.">
	</head><body></body></html>`
	doc, err := Parse([]byte(html), "https://x.test/p")
	require.NoError(t, err)

	assert.Equal(t, "By name.", doc.Meta("description"))
	assert.Equal(t, "By property.", doc.Meta("og:title"))
	assert.Empty(t, doc.Meta("og:image"))
}

func TestResolveURL(t *testing.T) {
	doc, err := Parse([]byte("<html></html>"), "https://shop.example.com/products/item.html")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/media/1.jpg", doc.ResolveURL("/media/1.jpg"))
	assert.Equal(t, "https://shop.example.com/products/2.jpg", doc.ResolveURL("2.jpg"))
	assert.Equal(t, "https://cdn.example.com/3.jpg", doc.ResolveURL("https://cdn.example.com/3.jpg"))
	assert.Equal(t, "", doc.ResolveURL("  "))
}

func TestTitle(t *testing.T) {
	doc, err := Parse([]byte("<html><head><title>  Widget Page </title></head></html>"), "https://x.test")
	require.NoError(t, err)
	assert.Equal(t, "Widget Page", doc.Title())
}
