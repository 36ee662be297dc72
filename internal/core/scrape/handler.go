package scrape

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"harvester/internal/core/job"
	"harvester/internal/core/product"
)

// JobReader is the read side of the job store used by status endpoints.
type JobReader interface {
	Get(ctx context.Context, id string) (*job.Job, error)
	List(ctx context.Context, limit int) ([]job.Job, error)
}

// ProductReader lists stored products for a job.
type ProductReader interface {
	ListByJob(ctx context.Context, jobID string) ([]product.Product, error)
}

const listJobsLimit = 20

type Handler struct {
	service  *Service
	jobs     JobReader
	products ProductReader
}

func NewHandler(service *Service, jobs JobReader, products ProductReader) *Handler {
	return &Handler{service: service, jobs: jobs, products: products}
}

type CreateRequest struct {
	URLs []string `json:"urls"`
}

type CreateResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	TotalURLs int    `json:"total_urls"`
}

// jobView augments the stored job with its derived progress percentage.
type jobView struct {
	job.Job
	Progress float64 `json:"progress"`
}

func viewOf(j *job.Job) jobView {
	return jobView{Job: *j, Progress: j.Progress()}
}

func (h *Handler) HandleCreateScrape(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}

	id, err := h.service.Submit(c.Context(), req.URLs)
	if err != nil {
		if errors.Is(err, ErrNoURLs) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "urls is required"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(CreateResponse{
		JobID:     id,
		Status:    string(job.StatusPending),
		TotalURLs: len(req.URLs),
	})
}

func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(viewOf(j))
}

func (h *Handler) HandleListJobs(c *fiber.Ctx) error {
	jobs, err := h.jobs.List(c.Context(), listJobsLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, viewOf(&jobs[i]))
	}
	return c.JSON(fiber.Map{"jobs": views, "count": len(views)})
}

func (h *Handler) HandleGetProducts(c *fiber.Ctx) error {
	id := c.Params("jobId")
	if _, err := h.jobs.Get(c.Context(), id); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	products, err := h.products.ListByJob(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"job_id": id, "count": len(products), "products": products})
}
