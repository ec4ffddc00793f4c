package fashionphoto

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

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{BaseURL: srv.URL, APIKey: "fp-test"})
	return client, srv
}

func TestCreateJobAccepted(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/fashion-photo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("personImage"); err != nil {
			t.Errorf("personImage missing: %v", err)
		}
		if got := r.FormValue("clothingImageUrl"); got != "https://example.com/shirt.png" {
			t.Errorf("clothingImageUrl = %q", got)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"jobId": "job-123"})
	}))

	jobID, err := client.CreateJob(context.Background(), CreateJobRequest{
		PersonImage:      Image{Name: "person.jpg", MIME: "image/jpeg", Data: []byte{0xff, 0xd8}},
		ClothingImageURL: "https://example.com/shirt.png",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if jobID != "job-123" {
		t.Fatalf("jobID = %q", jobID)
	}
}

func TestCreateJobValidationError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "VALIDATION_ERROR", "message": "unsupported image format"})
	}))

	_, err := client.CreateJob(context.Background(), CreateJobRequest{
		PersonImage:      Image{Data: []byte{0x00}},
		ClothingImageURL: "https://example.com/shirt.png",
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Retryable() {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestCreateJobServerErrorIsRetryable(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.CreateJob(context.Background(), CreateJobRequest{
		PersonImage:      Image{Data: []byte{0x00}},
		ClothingImageURL: "https://example.com/shirt.png",
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.Retryable() {
		t.Fatal("503 should be retryable")
	}
}

func TestCreateJobLocalValidation(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://unused", APIKey: "fp-test"})
	if _, err := client.CreateJob(context.Background(), CreateJobRequest{}); err == nil {
		t.Fatal("expected error without person image")
	}
	if _, err := client.CreateJob(context.Background(), CreateJobRequest{
		PersonImage: Image{Data: []byte{0x01}},
	}); err == nil {
		t.Fatal("expected error without clothing source")
	}
}

func TestFetchJobNotFound(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := client.FetchJob(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestAwaitReachesTerminal(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		job := RemoteJob{ID: "job-1", Status: StatusProcessing}
		if n >= 3 {
			job.Status = StatusCompleted
			job.ImageURL = "https://cdn.example.com/out.png"
		}
		_ = json.NewEncoder(w).Encode(job)
	}))

	job, err := client.Await(context.Background(), "job-1", time.Millisecond, 10)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if job.Status != StatusCompleted || job.ImageURL == "" {
		t.Fatalf("job = %+v", job)
	}
}

func TestAwaitBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(RemoteJob{ID: "job-1", Status: StatusProcessing})
	}))

	_, err := client.Await(context.Background(), "job-1", time.Millisecond, 4)
	if !errors.Is(err, ErrPollBudgetExhausted) {
		t.Fatalf("err = %v, want ErrPollBudgetExhausted", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("poll count = %d, want exactly 4", got)
	}
}

func TestAwaitSurvivesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 3 {
			// Slam the connection shut to simulate a network failure.
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
		_ = json.NewEncoder(w).Encode(RemoteJob{ID: "job-1", Status: StatusCompleted, ImageURL: "https://cdn.example.com/out.png"})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "fp-test"})
	job, err := client.Await(context.Background(), "job-1", time.Millisecond, 10)
	if err != nil {
		t.Fatalf("Await after transport errors: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("status = %q", job.Status)
	}
}

func TestAwaitCancellation(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RemoteJob{ID: "job-1", Status: StatusPending})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Await(ctx, "job-1", time.Hour, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
