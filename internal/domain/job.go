package domain

import "time"

// JobStatus enumerates try-on job lifecycle states. The names mirror the
// generation provider's own enum; completed and failed are terminal.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobError carries the machine code and human message of a failed job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job encapsulates one virtual try-on generation request for a shop.
type Job struct {
	ID               string
	ShopDomain       string
	Status           JobStatus
	PersonImageKey   string
	ClothingImageKey string
	ClothingImageURL string
	ImageURL         string
	ErrorCode        string
	ErrorMessage     string
	WebhookURL       string
	ProductID        string
	ProductTitle     string
	CustomerID       string
	CustomerEmail    string
	AspectRatio      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Err returns the job error when the job failed, nil otherwise.
func (j *Job) Err() *JobError {
	if j == nil || j.Status != JobStatusFailed {
		return nil
	}
	return &JobError{Code: j.ErrorCode, Message: j.ErrorMessage}
}
