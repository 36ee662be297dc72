package product

import "time"

// Product is one normalized extraction result for a single URL within a job.
// Everything except SourceURL and ScrapedAt is best-effort and may be empty.
type Product struct {
	ID               int64     `json:"id"`
	JobID            string    `json:"job_id"`
	Title            string    `json:"title,omitempty"`
	Price            string    `json:"price,omitempty"`
	Description      string    `json:"description,omitempty"`
	PartNumber       string    `json:"part_number,omitempty"`
	EAN              string    `json:"ean,omitempty"`
	Brand            string    `json:"brand,omitempty"`
	Color            string    `json:"color,omitempty"`
	Condition        string    `json:"condition,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	AdditionalImages string    `json:"additional_images,omitempty"`
	SourceURL        string    `json:"source_url"`
	Features         string    `json:"features,omitempty"`
	Availability     string    `json:"availability,omitempty"`
	ScrapedAt        time.Time `json:"scraped_at"`
}
