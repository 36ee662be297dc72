package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"harvester/internal/core/document"
	"harvester/internal/core/extract"
	"harvester/internal/core/fetch"
	"harvester/internal/core/product"
	"harvester/internal/logger"
	"harvester/internal/platform/tasks"
)

// ErrNoURLs is returned by Submit when the request contains no usable URLs
// after trimming.
var ErrNoURLs = errors.New("no valid urls provided")

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// JobStore is the job lifecycle surface the orchestrator drives.
type JobStore interface {
	Create(ctx context.Context, id string, totalURLs int) error
	MarkRunning(ctx context.Context, id string) error
	SetProgress(ctx context.Context, id string, completed, failed int, currentURL string) error
	Complete(ctx context.Context, id string, totalURLs, failed int) error
	Fail(ctx context.Context, id string, errMsg string) error
}

// ProductStore persists extraction results.
type ProductStore interface {
	Insert(ctx context.Context, p *product.Product) error
}

// Enqueuer hands batch tasks to the queue.
type Enqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

// Cache is the page-level result cache. A nil cache disables caching.
type Cache interface {
	CacheGet(ctx context.Context, key string, dest interface{}) error
	CacheSet(ctx context.Context, key string, val interface{}, ttl time.Duration) error
}

// Config carries the orchestrator knobs resolved at startup.
type Config struct {
	CacheTTL       time.Duration
	TaskMaxRetries int
}

// Service owns the scrape job lifecycle: it accepts URL batches, enqueues one
// task per batch, and processes that task URL by URL. URLs run sequentially
// so the per-request politeness delays hold across the whole batch.
type Service struct {
	jobs      JobStore
	products  ProductStore
	tasks     Enqueuer
	fetcher   Fetcher
	cache     Cache
	assembler *extract.Assembler
	cfg       Config
	log       *logger.Logger
}

func NewService(jobs JobStore, products ProductStore, enq Enqueuer, fetcher Fetcher, cache Cache, assembler *extract.Assembler, cfg Config) *Service {
	return &Service{
		jobs:      jobs,
		products:  products,
		tasks:     enq,
		fetcher:   fetcher,
		cache:     cache,
		assembler: assembler,
		cfg:       cfg,
		log:       logger.New("ScrapeService"),
	}
}

// BatchTaskPayload is the queued unit of work: one job, all of its URLs.
type BatchTaskPayload struct {
	JobID string   `json:"job_id"`
	URLs  []string `json:"urls"`
}

// Submit validates the URL list, registers a pending job and enqueues the
// batch task. Blank entries are dropped; duplicates are kept and processed
// independently. The returned id is immediately pollable.
func (s *Service) Submit(ctx context.Context, rawURLs []string) (string, error) {
	urls := make([]string, 0, len(rawURLs))
	for _, u := range rawURLs {
		if t := strings.TrimSpace(u); t != "" {
			urls = append(urls, t)
		}
	}
	if len(urls) == 0 {
		return "", ErrNoURLs
	}

	id := uuid.New().String()
	if err := s.jobs.Create(ctx, id, len(urls)); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	payload, _ := json.Marshal(BatchTaskPayload{JobID: id, URLs: urls})
	task := asynq.NewTask(tasks.TaskTypeScrapeBatch, payload)
	if err := s.tasks.Enqueue(task, "default", s.cfg.TaskMaxRetries); err != nil {
		_ = s.jobs.Fail(ctx, id, "failed to enqueue batch task")
		return "", fmt.Errorf("enqueue batch: %w", err)
	}

	s.log.LogInfof("enqueued job %s with %d urls", id, len(urls))
	return id, nil
}

// HandleBatchTask processes one queued batch. The job moves to running before
// the first URL is touched; completed_urls is set to the URL's index right
// before each attempt so observers can see which position is in flight.
// Per-URL failures are isolated and counted; only persistence failures are
// job-fatal. The handler never returns an error for scrape failures, since
// re-running a partially processed batch would double-write products.
func (s *Service) HandleBatchTask(ctx context.Context, t *asynq.Task) error {
	var p BatchTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode batch payload: %w", err)
	}
	s.log.LogInfof("processing job %s with %d urls", p.JobID, len(p.URLs))

	if err := s.jobs.MarkRunning(ctx, p.JobID); err != nil {
		s.log.LogError(fmt.Sprintf("job %s: mark running", p.JobID), err)
		_ = s.jobs.Fail(ctx, p.JobID, "failed to start job: "+err.Error())
		return nil
	}

	total := len(p.URLs)
	failed := 0

	for i, u := range p.URLs {
		if err := s.jobs.SetProgress(ctx, p.JobID, i, failed, u); err != nil {
			s.log.LogError(fmt.Sprintf("job %s: set progress", p.JobID), err)
			_ = s.jobs.Fail(ctx, p.JobID, "failed to update progress: "+err.Error())
			return nil
		}

		prod, err := s.scrapeOne(ctx, u)
		if err != nil {
			failed++
			s.log.LogWarnf("job %s: url %d/%d failed: %v", p.JobID, i+1, total, err)
			continue
		}
		prod.JobID = p.JobID

		if err := s.products.Insert(ctx, prod); err != nil {
			s.log.LogError(fmt.Sprintf("job %s: insert product", p.JobID), err)
			_ = s.jobs.Fail(ctx, p.JobID, "failed to persist product: "+err.Error())
			return nil
		}
	}

	if err := s.jobs.Complete(ctx, p.JobID, total, failed); err != nil {
		s.log.LogError(fmt.Sprintf("job %s: complete", p.JobID), err)
		_ = s.jobs.Fail(ctx, p.JobID, "failed to finalize job: "+err.Error())
		return nil
	}

	s.log.LogInfof("completed job %s: total=%d failed=%d", p.JobID, total, failed)
	return nil
}

// scrapeOne resolves one URL to a product record, via cache when possible.
func (s *Service) scrapeOne(ctx context.Context, rawURL string) (*product.Product, error) {
	key := cacheKey(rawURL)

	if s.cache != nil {
		var cached product.Product
		if err := s.cache.CacheGet(ctx, key, &cached); err == nil && cached.SourceURL != "" {
			s.log.LogDebugf("cache hit %s", rawURL)
			cached.ID = 0
			return &cached, nil
		}
	}

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse(page.Body, page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	prod := s.assembler.Assemble(doc, rawURL)

	if s.cache != nil {
		if err := s.cache.CacheSet(ctx, key, prod, s.cfg.CacheTTL); err != nil {
			s.log.LogWarnf("cache write failed for %s: %v", rawURL, err)
		}
	}
	return prod, nil
}

func cacheKey(rawURL string) string {
	safe := strings.NewReplacer(":", "_", "/", "_", "?", "_", "&", "_").Replace(rawURL)
	return "product:" + safe
}
