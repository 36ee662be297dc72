package server

import (
	"github.com/gofiber/fiber/v2"

	"harvester/internal/core/export"
	"harvester/internal/core/job"
	"harvester/internal/core/product"
	"harvester/internal/core/scrape"
	"harvester/internal/health"
	"harvester/internal/platform/postgres"
	"harvester/internal/platform/redis"
)

type Dependencies struct {
	Scrape   *scrape.Service
	Jobs     *job.Store
	Products *product.Store
	Export   *export.Service
	Redis    *redis.Service
	Postgres *postgres.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Redis, d.Postgres)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	scrapeHandler := scrape.NewHandler(d.Scrape, d.Jobs, d.Products)
	api.Post("/scrape", scrapeHandler.HandleCreateScrape)
	api.Get("/jobs", scrapeHandler.HandleListJobs)
	api.Get("/jobs/:jobId", scrapeHandler.HandleGetJob)
	api.Get("/jobs/:jobId/products", scrapeHandler.HandleGetProducts)

	exportHandler := export.NewHandler(d.Export)
	api.Get("/jobs/:jobId/export/shopify", exportHandler.HandleExportShopify)

	return healthHandler
}
