package fashionphoto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Job statuses reported by the generation service. Completed and failed are
// terminal; the service never transitions a job out of them.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrJobNotFound is returned when the service does not know the job id.
var ErrJobNotFound = errors.New("fashionphoto: job not found")

// ErrPollBudgetExhausted is returned by Await when the attempt budget runs
// out before the job reaches a terminal status.
var ErrPollBudgetExhausted = errors.New("fashionphoto: generation timed out")

// APIError is a typed error carrying the service's machine code.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fashionphoto: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("fashionphoto: http %d", e.StatusCode)
}

// Retryable reports whether the request may succeed later without changes.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the external fashion-photo generation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.fashionphoto.ai/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

// Image is raw upload content for a multipart submission.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// CreateJobRequest carries the person photo plus either a garment photo or a
// garment URL.
type CreateJobRequest struct {
	PersonImage      Image
	ClothingImage    *Image
	ClothingImageURL string
	AspectRatio      string
	Metadata         map[string]string
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RemoteJob is the service-side view of a generation job.
type RemoteJob struct {
	ID        string       `json:"jobId"`
	Status    string       `json:"status"`
	ImageURL  string       `json:"imageUrl,omitempty"`
	Error     *remoteError `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Terminal reports whether the remote status admits no further transitions.
func (j *RemoteJob) Terminal() bool {
	return j != nil && (j.Status == StatusCompleted || j.Status == StatusFailed)
}

// ErrCode returns the carried error code, empty when the job did not fail.
func (j *RemoteJob) ErrCode() string {
	if j == nil || j.Error == nil {
		return ""
	}
	return j.Error.Code
}

// ErrMessage returns the carried error message.
func (j *RemoteJob) ErrMessage() string {
	if j == nil || j.Error == nil {
		return ""
	}
	return j.Error.Message
}

// CreateJob submits a generation request and returns the assigned job id.
// The call returns as soon as the service accepts the job; it never waits on
// generation.
func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest) (string, error) {
	if c == nil {
		return "", errors.New("fashionphoto: client not configured")
	}
	if c.token == "" {
		return "", errors.New("fashionphoto: API key is missing")
	}
	if len(req.PersonImage.Data) == 0 {
		return "", errors.New("fashionphoto: person image required")
	}
	if req.ClothingImage == nil && strings.TrimSpace(req.ClothingImageURL) == "" {
		return "", errors.New("fashionphoto: clothing image or url required")
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := writeImagePart(mw, "personImage", req.PersonImage); err != nil {
		return "", err
	}
	if req.ClothingImage != nil {
		if err := writeImagePart(mw, "clothingImage", *req.ClothingImage); err != nil {
			return "", err
		}
	} else {
		if err := mw.WriteField("clothingImageUrl", strings.TrimSpace(req.ClothingImageURL)); err != nil {
			return "", err
		}
	}
	if req.AspectRatio != "" {
		if err := mw.WriteField("aspectRatio", req.AspectRatio); err != nil {
			return "", err
		}
	}
	for key, value := range req.Metadata {
		if err := mw.WriteField(key, value); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/fashion-photo"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", decodeAPIError(resp)
	}
	var out struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", errors.New("fashionphoto: empty job id in response")
	}
	return out.JobID, nil
}

// FetchJob retrieves the current status of a job.
func (c *Client) FetchJob(ctx context.Context, jobID string) (*RemoteJob, error) {
	if c == nil {
		return nil, errors.New("fashionphoto: client not configured")
	}
	endpoint := c.baseURL + "/fashion-photo/status/" + jobID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var job RemoteJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Await polls the job at a fixed interval until it reaches a terminal status
// or the attempt budget is exhausted. Transport and retryable service errors
// consume an attempt and the loop continues; unknown-job and non-retryable
// errors abort immediately. Cancelling ctx stops the loop without another
// request.
func (c *Client) Await(ctx context.Context, jobID string, interval time.Duration, maxAttempts int) (*RemoteJob, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 120
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		job, err := c.FetchJob(ctx, jobID)
		switch {
		case err == nil:
			if job.Terminal() {
				return job, nil
			}
		case errors.Is(err, ErrJobNotFound):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable() {
				return nil, err
			}
			// Transport or retryable service error; stay on the interval.
		}

		if attempt == maxAttempts-1 {
			break
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, ErrPollBudgetExhausted
}

func writeImagePart(mw *multipart.Writer, field string, img Image) error {
	name := img.Name
	if name == "" {
		name = field
	}
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = part.Write(img.Data)
	return err
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var payload struct {
			Error   string      `json:"error"`
			Code    string      `json:"code"`
			Message string      `json:"message"`
			Details remoteError `json:"details"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
			if apiErr.Message == "" {
				apiErr.Message = payload.Error
			}
		}
	}
	if apiErr.Code == "" {
		if resp.StatusCode >= http.StatusInternalServerError {
			apiErr.Code = "SERVER_ERROR"
		} else {
			apiErr.Code = "VALIDATION_ERROR"
		}
	}
	return apiErr
}
