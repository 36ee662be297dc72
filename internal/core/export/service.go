package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"harvester/internal/core/job"
	"harvester/internal/core/product"
	"harvester/internal/logger"
)

var (
	// ErrJobNotFound is returned when the export target job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrNoProducts is returned when the job exists but produced no products.
	ErrNoProducts = errors.New("no products found for job")
)

// JobReader resolves the export target.
type JobReader interface {
	Get(ctx context.Context, id string) (*job.Job, error)
}

// ProductReader lists a job's products in insertion order.
type ProductReader interface {
	ListByJob(ctx context.Context, jobID string) ([]product.Product, error)
}

// Service renders a job's products as a Shopify product-import CSV.
type Service struct {
	jobs     JobReader
	products ProductReader
	log      *logger.Logger
}

func NewService(jobs JobReader, products ProductReader) *Service {
	return &Service{jobs: jobs, products: products, log: logger.New("ExportService")}
}

// shopifyColumns is the full Shopify import header row. Columns without a
// source field stay empty but must still be present for the import to parse.
var shopifyColumns = []string{
	"Handle", "Title", "Body (HTML)", "Vendor", "Product Category", "Type",
	"Tags", "Published", "Option1 Name", "Option1 Value", "Option2 Name", "Option2 Value",
	"Option3 Name", "Option3 Value", "Variant SKU", "Variant Grams", "Variant Inventory Tracker",
	"Variant Inventory Qty", "Variant Inventory Policy", "Variant Fulfillment Service",
	"Variant Price", "Variant Compare At Price", "Variant Requires Shipping", "Variant Taxable",
	"Variant Barcode", "Image Src", "Image Position", "Image Alt Text", "Gift Card",
	"SEO Title", "SEO Description", "Cost per item", "Status",
}

const seoDescriptionMaxLen = 160

// ShopifyCSV builds the CSV document for one job and the download filename to
// serve it under. One row per stored product, in insertion order.
func (s *Service) ShopifyCSV(ctx context.Context, jobID string) ([]byte, string, error) {
	j, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return nil, "", ErrJobNotFound
		}
		return nil, "", fmt.Errorf("load job: %w", err)
	}

	products, err := s.products.ListByJob(ctx, j.ID)
	if err != nil {
		return nil, "", fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		return nil, "", ErrNoProducts
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(shopifyColumns); err != nil {
		return nil, "", fmt.Errorf("write header: %w", err)
	}
	for i := range products {
		if err := w.Write(shopifyRow(&products[i])); err != nil {
			return nil, "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("flush csv: %w", err)
	}

	s.log.LogInfof("exported %d products for job %s", len(products), jobID)
	return buf.Bytes(), Filename(jobID, time.Now()), nil
}

// Filename builds the download name: shopify_products_<job8>_<yyyymmdd>.csv.
func Filename(jobID string, now time.Time) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("shopify_products_%s_%s.csv", short, now.Format("20060102"))
}

var (
	handleStripRe    = regexp.MustCompile(`[^a-z0-9\s-]`)
	handleCollapseRe = regexp.MustCompile(`\s+`)
	priceDigitsRe    = regexp.MustCompile(`([\d,]+\.?\d*)`)
)

// Handle slugs a title the way Shopify expects: lowercase, alphanumerics and
// hyphens only. An empty title yields an empty handle.
func Handle(title string) string {
	h := handleStripRe.ReplaceAllString(strings.ToLower(title), "")
	h = handleCollapseRe.ReplaceAllString(h, "-")
	return strings.Trim(h, "-")
}

// csvPrice strips the currency tag and thousands separators, keeping only the
// bare amount Shopify accepts.
func csvPrice(price string) string {
	m := priceDigitsRe.FindStringSubmatch(price)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", "")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func shopifyRow(p *product.Product) []string {
	row := make(map[string]string, len(shopifyColumns))
	row["Handle"] = Handle(p.Title)
	row["Title"] = p.Title
	row["Body (HTML)"] = p.Description
	row["Vendor"] = p.Brand
	row["Published"] = "TRUE"
	row["Variant SKU"] = p.PartNumber
	row["Variant Inventory Tracker"] = "shopify"
	row["Variant Inventory Qty"] = "10"
	row["Variant Inventory Policy"] = "deny"
	row["Variant Fulfillment Service"] = "manual"
	row["Variant Price"] = csvPrice(p.Price)
	row["Variant Requires Shipping"] = "TRUE"
	row["Variant Taxable"] = "TRUE"
	row["Variant Barcode"] = p.EAN
	row["Image Src"] = p.ImageURL
	row["Image Position"] = "1"
	row["Image Alt Text"] = p.Title
	row["Gift Card"] = "FALSE"
	row["SEO Title"] = p.Title
	row["SEO Description"] = truncate(p.Description, seoDescriptionMaxLen)
	row["Status"] = "active"

	out := make([]string, len(shopifyColumns))
	for i, col := range shopifyColumns {
		out[i] = row[col]
	}
	return out
}
