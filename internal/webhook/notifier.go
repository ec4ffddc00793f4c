package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// Event is the payload delivered to a caller-supplied webhook URL when a job
// reaches a terminal state.
type Event struct {
	Event     string           `json:"event"`
	JobID     string           `json:"jobId"`
	Status    domain.JobStatus `json:"status"`
	ImageURL  string           `json:"imageUrl,omitempty"`
	Error     *domain.JobError `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// Notifier delivers terminal-state notifications. Delivery is fire-and-forget
// by contract: a failed or ignored delivery is logged and dropped, never
// retried. Consumers must poll the status endpoint as the source of truth.
type Notifier struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewNotifier(timeout time.Duration, logger zerolog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Notify posts the event to url. Intended to run in its own goroutine so job
// processing is never blocked on a slow consumer.
func (n *Notifier) Notify(ctx context.Context, url string, event Event) {
	if n == nil || url == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Str("job_id", event.JobID).Msg("webhook: failed to marshal payload")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn().Err(err).Str("url", url).Msg("webhook: failed to create request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("url", url).Str("job_id", event.JobID).Msg("webhook: delivery failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn().Str("url", url).Int("status", resp.StatusCode).Str("job_id", event.JobID).Msg("webhook: non-2xx response")
		return
	}
	n.logger.Info().Str("url", url).Str("job_id", event.JobID).Msg("webhook: delivered")
}
