// Package tryon is the client SDK for the virtual try-on API. It submits
// generation jobs and polls their status until a terminal state. The SDK
// keeps no state beyond the in-flight request; jobs live server-side and the
// local view is discarded once polling ends.
package tryon

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

// Status mirrors the server-side job status enum.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobError carries the machine code and message of a failed job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreditSnapshot accompanies entitlement failures so callers can present an
// upgrade path.
type CreditSnapshot struct {
	Balance int    `json:"creditBalance"`
	Plan    string `json:"plan"`
}

// APIError is a typed submission error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Credits    *CreditSnapshot
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tryon: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("tryon: http %d", e.StatusCode)
}

// Retryable reports whether resubmitting the same request later may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Shop       string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client submits try-on jobs to the app backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	shop       string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		shop:       strings.TrimSpace(opts.Shop),
	}
}

// SubmitRequest carries the person photo plus either a garment photo or a
// garment URL, with optional merchandising metadata.
type SubmitRequest struct {
	PersonImage       []byte
	PersonImageName   string
	ClothingImage     []byte
	ClothingImageName string
	ClothingImageURL  string
	WebhookURL        string
	ProductID         string
	ProductTitle      string
	CustomerID        string
	CustomerEmail     string
	AspectRatio       string
}

// Submission is the accepted-job acknowledgement.
type Submission struct {
	JobID     string `json:"jobId"`
	StatusURL string `json:"statusUrl"`
}

// Submit sends the job and returns immediately with the assigned id; it never
// blocks on generation.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if c == nil {
		return nil, errors.New("tryon: client not configured")
	}
	if len(req.PersonImage) == 0 {
		return nil, errors.New("tryon: person image required")
	}
	if len(req.ClothingImage) == 0 && strings.TrimSpace(req.ClothingImageURL) == "" {
		return nil, errors.New("tryon: clothing image or url required")
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := writeFilePart(mw, "personImage", req.PersonImageName, req.PersonImage); err != nil {
		return nil, err
	}
	if len(req.ClothingImage) > 0 {
		if err := writeFilePart(mw, "clothingImage", req.ClothingImageName, req.ClothingImage); err != nil {
			return nil, err
		}
	} else {
		if err := mw.WriteField("clothingImageUrl", strings.TrimSpace(req.ClothingImageURL)); err != nil {
			return nil, err
		}
	}
	for field, value := range map[string]string{
		"webhookUrl":    req.WebhookURL,
		"productId":     req.ProductID,
		"productTitle":  req.ProductTitle,
		"customerId":    req.CustomerID,
		"customerEmail": req.CustomerEmail,
		"aspectRatio":   req.AspectRatio,
	} {
		if value == "" {
			continue
		}
		if err := mw.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/fashion-photo"
	if c.shop != "" {
		endpoint += "?shop=" + c.shop
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, decodeAPIError(resp)
	}
	var out Submission
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, errors.New("tryon: empty job id in response")
	}
	return &out, nil
}

// JobView is the status payload returned by the backend.
type JobView struct {
	JobID     string    `json:"jobId"`
	Status    Status    `json:"status"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Error     *JobError `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrUnknownJob is returned when the backend does not know the job id.
var ErrUnknownJob = errors.New("tryon: unknown job")

// FetchStatus performs one status poll.
func (c *Client) FetchStatus(ctx context.Context, jobID string) (*JobView, error) {
	if c == nil {
		return nil, errors.New("tryon: client not configured")
	}
	endpoint := c.baseURL + "/api/fashion-photo/status/" + jobID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownJob
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var view JobView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, err
	}
	return &view, nil
}

func writeFilePart(mw *multipart.Writer, field, name string, data []byte) error {
	if name == "" {
		name = field
	}
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var payload struct {
			Error   string `json:"error"`
			Code    string `json:"code"`
			Message string `json:"message"`
			Details struct {
				Reason        string `json:"reason"`
				CreditBalance int    `json:"creditBalance"`
				Plan          string `json:"plan"`
			} `json:"details"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
			if apiErr.Message == "" {
				apiErr.Message = payload.Error
			}
			if payload.Details.Reason == "insufficient_credits" {
				apiErr.Credits = &CreditSnapshot{
					Balance: payload.Details.CreditBalance,
					Plan:    payload.Details.Plan,
				}
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
