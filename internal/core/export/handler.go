package export

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleExportShopify streams the job's products as a CSV attachment.
func (h *Handler) HandleExportShopify(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	data, filename, err := h.service.ShopifyCSV(c.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "job not found"})
		case errors.Is(err, ErrNoProducts):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "no products found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(data)
}
