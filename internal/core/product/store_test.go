package product

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStoreWithDB(mock), mock
}

func TestStoreInsert(t *testing.T) {
	store, mock := newMockStore(t)
	scraped := time.Now().UTC()

	p := &Product{
		JobID:        "job-1",
		Title:        "Wireless Headset Pro",
		Price:        "£1299.00",
		Description:  "Premium wireless headset.",
		PartNumber:   "WHP-1000X",
		EAN:          "4548736141315",
		Brand:        "Sony",
		Availability: "In Stock",
		ImageURL:     "https://shop.example.com/media/product/whp.jpg",
		SourceURL:    "https://shop.example.com/products/wireless-headset-pro.html",
		ScrapedAt:    scraped,
	}

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.JobID, p.Title, p.Price, p.Description, p.PartNumber, p.EAN,
			p.Brand, p.Color, p.Condition, p.ImageURL, p.AdditionalImages,
			p.SourceURL, p.Features, p.Availability, p.ScrapedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListByJob(t *testing.T) {
	store, mock := newMockStore(t)
	scraped := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "job_id", "title", "price", "description", "part_number", "ean",
		"brand", "color", "condition", "image_url", "additional_images",
		"source_url", "features", "availability", "scraped_at",
	}).
		AddRow(int64(1), "job-1", "First", "£10.00", "", "", "", "", "", "", "", "", "https://x.test/1", "", "", scraped).
		AddRow(int64(2), "job-1", "Second", "£20.00", "", "", "", "", "", "", "", "", "https://x.test/2", "", "", scraped)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE job_id").
		WithArgs("job-1").
		WillReturnRows(rows)

	got, err := store.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "Second", got[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListByJobEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE job_id").
		WithArgs("job-x").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "job_id", "title", "price", "description", "part_number", "ean",
			"brand", "color", "condition", "image_url", "additional_images",
			"source_url", "features", "availability", "scraped_at",
		}))

	got, err := store.ListByJob(context.Background(), "job-x")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
