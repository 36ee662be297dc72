package job

import "time"

// Status for batch job tracking. Transitions are one-way:
// pending -> running -> completed|failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Job is one batch run over a submitted URL list. CompletedURLs counts URLs
// attempted (success or failure), FailedURLs the failures among them.
type Job struct {
	ID            string     `json:"id"`
	Status        Status     `json:"status"`
	TotalURLs     int        `json:"total_urls"`
	CompletedURLs int        `json:"completed_urls"`
	FailedURLs    int        `json:"failed_urls"`
	CurrentURL    *string    `json:"current_url,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Progress returns percent of URLs attempted, 0 for an empty batch.
func (j *Job) Progress() float64 {
	if j.TotalURLs == 0 {
		return 0
	}
	return float64(j.CompletedURLs) / float64(j.TotalURLs) * 100
}
