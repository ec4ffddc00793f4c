package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func pollServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Shop: "demo.myshopify.com"})
}

func fastPoller(client *Client, attempts int) *Poller {
	return &Poller{Client: client, Interval: time.Millisecond, MaxAttempts: attempts}
}

func TestWaitCompletes(t *testing.T) {
	var calls atomic.Int32
	client := pollServer(t, func(w http.ResponseWriter, r *http.Request) {
		view := JobView{JobID: "job-1", Status: StatusProcessing}
		if calls.Add(1) >= 3 {
			view.Status = StatusCompleted
			view.ImageURL = "https://cdn.example.com/result.png"
		}
		_ = json.NewEncoder(w).Encode(view)
	})

	result, err := fastPoller(client, 10).Wait(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.Status != StatusCompleted || result.ImageURL == "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestWaitReturnsCarriedError(t *testing.T) {
	client := pollServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(JobView{
			JobID:  "job-2",
			Status: StatusFailed,
			Error:  &JobError{Code: "PROCESSING_FAILURE", Message: "model failed on this job"},
		})
	})

	result, err := fastPoller(client, 10).Wait(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.Status != StatusFailed || result.Err == nil || result.Err.Code != "PROCESSING_FAILURE" {
		t.Fatalf("result = %+v", result)
	}
}

func TestWaitTimedOutAfterExactBudget(t *testing.T) {
	var calls atomic.Int32
	client := pollServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(JobView{JobID: "job-3", Status: StatusProcessing})
	})

	_, err := fastPoller(client, 5).Wait(context.Background(), "job-3")
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if got := calls.Load(); got != 5 {
		t.Fatalf("requests issued = %d, want exactly 5", got)
	}
}

func TestWaitSurvivesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 3 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		view := JobView{JobID: "job-4", Status: StatusProcessing}
		if n >= 5 {
			view.Status = StatusCompleted
			view.ImageURL = "https://cdn.example.com/result.png"
		}
		_ = json.NewEncoder(w).Encode(view)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	result, err := fastPoller(client, 20).Wait(context.Background(), "job-4")
	if err != nil {
		t.Fatalf("Wait after transport errors: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
}

func TestWaitUnknownJobAborts(t *testing.T) {
	var calls atomic.Int32
	client := pollServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := fastPoller(client, 10).Wait(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("requests issued = %d, want 1", calls.Load())
	}
}

func TestWaitCancellationStopsTimer(t *testing.T) {
	client := pollServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(JobView{JobID: "job-5", Status: StatusPending})
	})

	ctx, cancel := context.WithCancel(context.Background())
	poller := &Poller{Client: client, Interval: time.Hour, MaxAttempts: 10}

	done := make(chan error, 1)
	go func() {
		_, err := poller.Wait(ctx, "job-5")
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not stop after cancellation")
	}
}
