package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/providers/fashionphoto"
	"server/internal/storage"
	"server/internal/webhook"
)

// createAttempts bounds retries of the initial submission; polling afterwards
// has its own budget.
const createAttempts = 3

type jobWorker struct {
	ctx      context.Context
	cfg      *infra.Config
	logger   infra.Logger
	jobs     domain.JobRepository
	provider *fashionphoto.Client
	store    *storage.FileStore
	notifier *webhook.Notifier
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	apiKey := strings.TrimSpace(cfg.FashionAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.FashionPhotoAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load fashion api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Fatal().Msg("worker: fashion api key not configured")
	}

	worker := &jobWorker{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		jobs:   repo.NewJobRepository(runner),
		provider: fashionphoto.NewClient(fashionphoto.Options{
			BaseURL: cfg.FashionAPIBaseURL,
			APIKey:  apiKey,
			Timeout: cfg.FashionAPITimeout,
		}),
		store:    fileStore,
		notifier: webhook.NewNotifier(cfg.WebhookTimeout, logger),
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.Claim(w.ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-time.After(w.cfg.WorkerPollInterval):
			}
			continue
		}

		w.handleJob(job)
	}
}

func (w *jobWorker) handleJob(job *domain.Job) {
	w.logger.Info().Str("job_id", job.ID).Str("shop", job.ShopDomain).Msg("worker: picked job")

	imageURL, jobErr := w.generate(job)
	if jobErr != nil {
		// A shutdown mid-job is not a job failure: the claim query only
		// considers pending rows, so the job must go back to pending or no
		// restart will ever pick it up again.
		if w.ctx.Err() != nil {
			w.requeue(job)
			return
		}
		w.fail(job, *jobErr)
		return
	}
	w.complete(job, imageURL)
}

// terminalCtx returns a short-lived context detached from the worker context,
// so terminal-state updates still land when the worker is shutting down.
func terminalCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (w *jobWorker) requeue(job *domain.Job) {
	ctx, cancel := terminalCtx()
	defer cancel()
	if err := w.jobs.Requeue(ctx, job.ID); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: requeue failed")
		return
	}
	w.logger.Warn().Str("job_id", job.ID).Msg("worker: interrupted, job requeued")
}

// generate drives one job through the external service. The returned JobError
// is nil on success.
func (w *jobWorker) generate(job *domain.Job) (string, *domain.JobError) {
	req, err := w.buildRequest(job)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: unusable job input")
		return "", &domain.JobError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	remoteID, err := w.createRemoteJob(req)
	if err != nil {
		var apiErr *fashionphoto.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", &domain.JobError{Code: apiErr.Code, Message: apiErr.Message}
		}
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: submission failed")
		return "", &domain.JobError{Code: "SERVER_ERROR", Message: "generation service unavailable"}
	}

	remote, err := w.provider.Await(w.ctx, remoteID, w.cfg.ProviderPollEvery, w.cfg.ProviderPollBudget)
	switch {
	case err == nil:
	case errors.Is(err, fashionphoto.ErrPollBudgetExhausted):
		return "", &domain.JobError{Code: "TIMED_OUT", Message: "generation did not finish in time"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Shutdown mid-poll; handleJob sees the canceled worker context and
		// requeues instead of failing.
		return "", &domain.JobError{Code: "SERVER_ERROR", Message: "worker interrupted"}
	default:
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: polling failed")
		return "", &domain.JobError{Code: "SERVER_ERROR", Message: "generation service unavailable"}
	}

	if remote.Status == fashionphoto.StatusFailed {
		code := remote.ErrCode()
		if code == "" {
			code = "PROCESSING_FAILURE"
		}
		message := remote.ErrMessage()
		if message == "" {
			message = "generation failed"
		}
		return "", &domain.JobError{Code: code, Message: message}
	}
	if remote.ImageURL == "" {
		return "", &domain.JobError{Code: "PROCESSING_FAILURE", Message: "completed job carried no image"}
	}

	return w.mirrorResult(job, remote.ImageURL), nil
}

func (w *jobWorker) buildRequest(job *domain.Job) (fashionphoto.CreateJobRequest, error) {
	person, err := w.store.Read(w.ctx, job.PersonImageKey)
	if err != nil {
		return fashionphoto.CreateJobRequest{}, fmt.Errorf("read person image: %w", err)
	}
	req := fashionphoto.CreateJobRequest{
		PersonImage: fashionphoto.Image{
			Name: path.Base(job.PersonImageKey),
			Data: person,
		},
		ClothingImageURL: job.ClothingImageURL,
		AspectRatio:      job.AspectRatio,
	}
	if job.ClothingImageKey != "" {
		clothing, err := w.store.Read(w.ctx, job.ClothingImageKey)
		if err != nil {
			return fashionphoto.CreateJobRequest{}, fmt.Errorf("read clothing image: %w", err)
		}
		req.ClothingImage = &fashionphoto.Image{
			Name: path.Base(job.ClothingImageKey),
			Data: clothing,
		}
		req.ClothingImageURL = ""
	}
	return req, nil
}

func (w *jobWorker) createRemoteJob(req fashionphoto.CreateJobRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-w.ctx.Done():
				return "", w.ctx.Err()
			case <-time.After(w.cfg.ProviderPollEvery):
			}
		}
		id, err := w.provider.CreateJob(w.ctx, req)
		if err == nil {
			return id, nil
		}
		lastErr = err
		var apiErr *fashionphoto.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", err
		}
	}
	return "", lastErr
}

// mirrorResult copies the generated image into local storage and returns its
// public URL. When the copy fails the remote URL is used as-is; a try-on the
// merchant can see beats a perfectly mirrored one they cannot.
func (w *jobWorker) mirrorResult(job *domain.Job, remoteURL string) string {
	data, ext, err := w.download(remoteURL)
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("worker: result mirror failed, keeping remote url")
		return remoteURL
	}
	key := path.Join("results", job.ShopDomain, job.ID+ext)
	savedKey, err := w.store.Write(w.ctx, key, data)
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("worker: result store failed, keeping remote url")
		return remoteURL
	}
	return strings.TrimRight(w.cfg.StorageBaseURL, "/") + "/" + savedKey
}

func (w *jobWorker) download(url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(w.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	client := &http.Client{Timeout: w.cfg.FashionAPITimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, "", err
	}
	ext := ".png"
	switch resp.Header.Get("Content-Type") {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	return data, ext, nil
}

func (w *jobWorker) complete(job *domain.Job, imageURL string) {
	ctx, cancel := terminalCtx()
	defer cancel()
	if err := w.jobs.MarkCompleted(ctx, job.ID, imageURL); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark completed failed")
		return
	}
	w.logger.Info().Str("job_id", job.ID).Msg("worker: job completed")
	w.notify(job, domain.JobStatusCompleted, imageURL, nil)
}

func (w *jobWorker) fail(job *domain.Job, jobErr domain.JobError) {
	ctx, cancel := terminalCtx()
	defer cancel()
	if err := w.jobs.MarkFailed(ctx, job.ID, jobErr); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark failed failed")
		return
	}
	w.logger.Info().Str("job_id", job.ID).Str("code", jobErr.Code).Msg("worker: job failed")
	w.notify(job, domain.JobStatusFailed, "", &jobErr)
}

func (w *jobWorker) notify(job *domain.Job, status domain.JobStatus, imageURL string, jobErr *domain.JobError) {
	if job.WebhookURL == "" {
		return
	}
	event := webhook.Event{
		Event:     "tryon." + string(status),
		JobID:     job.ID,
		Status:    status,
		ImageURL:  imageURL,
		Error:     jobErr,
		Timestamp: time.Now().UTC(),
	}
	if job.ProductID != "" {
		event.Metadata = map[string]any{"productId": job.ProductID}
	}
	// Detached from the worker context so shutdown does not cut deliveries
	// short; the notifier has its own timeout.
	go w.notifier.Notify(context.Background(), job.WebhookURL, event)
}
