package tryon

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is the client-imposed terminal condition reached when the
// attempt budget runs out before the server reports a terminal status. It is
// policy, not a server contract; the job may still finish remotely.
var ErrTimedOut = errors.New("tryon: generation is taking too long")

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 120
)

// Result is the outcome of a completed poll loop.
type Result struct {
	JobID    string
	Status   Status
	ImageURL string
	Err      *JobError
}

// Poller drives the fixed-interval status loop for one job at a time. It
// holds no state across calls; Wait may be restarted for the same job after
// a failure or timeout.
type Poller struct {
	Client      *Client
	Interval    time.Duration
	MaxAttempts int
}

// NewPoller creates a poller with the reference defaults (5s x 120 attempts,
// ten minutes of patience).
func NewPoller(client *Client) *Poller {
	return &Poller{
		Client:      client,
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Wait polls until the job reaches completed or failed, the attempt budget
// is exhausted (ErrTimedOut), or ctx is cancelled. Transport errors consume
// an attempt and the loop continues on the same interval; they are never
// surfaced individually. An unknown job id aborts immediately.
func (p *Poller) Wait(ctx context.Context, jobID string) (*Result, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		view, err := p.Client.FetchStatus(ctx, jobID)
		switch {
		case err == nil:
			if view.Status.Terminal() {
				return &Result{
					JobID:    view.JobID,
					Status:   view.Status,
					ImageURL: view.ImageURL,
					Err:      view.Error,
				}, nil
			}
		case errors.Is(err, ErrUnknownJob):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			// Transport failure or transient server error; distinct from a
			// terminal failed status. Keep the interval and spend an attempt.
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
	return nil, ErrTimedOut
}
