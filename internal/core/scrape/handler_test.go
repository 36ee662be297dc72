package scrape

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvester/internal/core/job"
	"harvester/internal/core/product"
)

type fakeJobReader struct {
	jobs map[string]*job.Job
	list []job.Job
}

func (f *fakeJobReader) Get(_ context.Context, id string) (*job.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, job.ErrNotFound
}

func (f *fakeJobReader) List(_ context.Context, limit int) ([]job.Job, error) {
	if len(f.list) > limit {
		return f.list[:limit], nil
	}
	return f.list, nil
}

type fakeProductReader struct {
	byJob map[string][]product.Product
}

func (f *fakeProductReader) ListByJob(_ context.Context, jobID string) ([]product.Product, error) {
	return f.byJob[jobID], nil
}

func newTestApp(jobs *fakeJobReader, products *fakeProductReader) *fiber.App {
	svc := newTestService(&fakeJobs{}, &fakeProducts{}, &fakeEnqueuer{}, &fakeFetcher{}, nil)
	h := NewHandler(svc, jobs, products)

	app := fiber.New()
	app.Post("/v1/scrape", h.HandleCreateScrape)
	app.Get("/v1/jobs", h.HandleListJobs)
	app.Get("/v1/jobs/:jobId", h.HandleGetJob)
	app.Get("/v1/jobs/:jobId/products", h.HandleGetProducts)
	return app
}

func TestHandleCreateScrape(t *testing.T) {
	app := newTestApp(&fakeJobReader{}, &fakeProductReader{})

	req := httptest.NewRequest("POST", "/v1/scrape", strings.NewReader(`{"urls":["https://x.test/p1"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body CreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.JobID)
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, 1, body.TotalURLs)
}

func TestHandleCreateScrapeRejectsEmpty(t *testing.T) {
	app := newTestApp(&fakeJobReader{}, &fakeProductReader{})

	for _, payload := range []string{`{"urls":[]}`, `{"urls":["", "  "]}`, `{}`} {
		req := httptest.NewRequest("POST", "/v1/scrape", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, payload)
	}
}

func TestHandleGetJobWithProgress(t *testing.T) {
	now := time.Now().UTC()
	jobs := &fakeJobReader{jobs: map[string]*job.Job{
		"job-1": {ID: "job-1", Status: job.StatusRunning, TotalURLs: 4, CompletedURLs: 1, CreatedAt: now},
	}}
	app := newTestApp(jobs, &fakeProductReader{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/jobs/job-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, 25.0, body["progress"])
}

func TestHandleGetJobNotFound(t *testing.T) {
	app := newTestApp(&fakeJobReader{}, &fakeProductReader{})
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/jobs/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleGetProducts(t *testing.T) {
	jobs := &fakeJobReader{jobs: map[string]*job.Job{
		"job-1": {ID: "job-1", Status: job.StatusCompleted, TotalURLs: 1, CompletedURLs: 1},
	}}
	products := &fakeProductReader{byJob: map[string][]product.Product{
		"job-1": {{JobID: "job-1", Title: "Thing", SourceURL: "https://x.test/p"}},
	}}
	app := newTestApp(jobs, products)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/jobs/job-1/products", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		JobID    string            `json:"job_id"`
		Count    int               `json:"count"`
		Products []product.Product `json:"products"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Thing", body.Products[0].Title)
}

func TestHandleListJobs(t *testing.T) {
	jobs := &fakeJobReader{list: []job.Job{
		{ID: "job-2", Status: job.StatusPending},
		{ID: "job-1", Status: job.StatusCompleted},
	}}
	app := newTestApp(jobs, &fakeProductReader{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/jobs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Jobs  []json.RawMessage `json:"jobs"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Jobs, 2)
}
