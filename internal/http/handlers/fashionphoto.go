package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
)

// maxUploadBytes caps the whole multipart body; the upstream service rejects
// larger inputs anyway.
const maxUploadBytes = 25 << 20

var allowedImageMIMEs = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

var allowedAspectRatios = map[string]struct{}{
	"1:1": {}, "3:4": {}, "4:3": {}, "9:16": {}, "16:9": {}, "2:3": {}, "3:2": {},
}

type submitResponse struct {
	Status    string `json:"status"`
	JobID     string `json:"jobId"`
	StatusURL string `json:"statusUrl"`
}

// FashionPhotoSubmit accepts a multipart try-on request, consumes one shop
// credit, stores the uploads, and enqueues the job. It responds as soon as
// the job is accepted; generation happens in the worker.
func (a *App) FashionPhotoSubmit(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(a.currentShop(r))
	if shop == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop query parameter is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid multipart payload")
		return
	}

	personData, personMIME, err := readImagePart(r, "personImage")
	if err != nil {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	clothingData, clothingMIME, clothingErr := readImagePart(r, "clothingImage")
	clothingURL := strings.TrimSpace(r.FormValue("clothingImageUrl"))
	switch {
	case clothingErr == nil && clothingURL != "":
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "provide clothingImage or clothingImageUrl, not both")
		return
	case clothingErr != nil && clothingURL == "":
		if errors.Is(clothingErr, errPartMissing) {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "clothingImage or clothingImageUrl is required")
		} else {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", clothingErr.Error())
		}
		return
	case clothingURL != "":
		if parsed, err := url.Parse(clothingURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "clothingImageUrl must be an http(s) URL")
			return
		}
	}

	webhookURL := strings.TrimSpace(r.FormValue("webhookUrl"))
	if webhookURL != "" {
		if parsed, err := url.Parse(webhookURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "webhookUrl must be an http(s) URL")
			return
		}
	}

	aspectRatio := strings.TrimSpace(r.FormValue("aspectRatio"))
	if aspectRatio != "" {
		if _, ok := allowedAspectRatios[aspectRatio]; !ok {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("unsupported aspect ratio %q", aspectRatio))
			return
		}
	}

	uploadID := uuid.NewString()
	personKey, err := a.Store.Write(r.Context(), uploadKey(shop, uploadID, "person", personMIME), personData)
	if err != nil {
		a.Logger.Error().Err(err).Msg("submit: failed to store person image")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "upload storage unavailable")
		return
	}
	var clothingKey string
	if clothingErr == nil {
		clothingKey, err = a.Store.Write(r.Context(), uploadKey(shop, uploadID, "clothing", clothingMIME), clothingData)
		if err != nil {
			a.Logger.Error().Err(err).Msg("submit: failed to store clothing image")
			a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "upload storage unavailable")
			return
		}
	}

	job := &domain.Job{
		ShopDomain:       shop,
		PersonImageKey:   personKey,
		ClothingImageKey: clothingKey,
		ClothingImageURL: clothingURL,
		WebhookURL:       webhookURL,
		ProductID:        strings.TrimSpace(r.FormValue("productId")),
		ProductTitle:     strings.TrimSpace(r.FormValue("productTitle")),
		CustomerID:       strings.TrimSpace(r.FormValue("customerId")),
		CustomerEmail:    strings.TrimSpace(r.FormValue("customerEmail")),
		AspectRatio:      aspectRatio,
	}

	snapshot, err := a.Jobs.Enqueue(r.Context(), job)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientCredits):
		details := map[string]any{"reason": "insufficient_credits"}
		if snapshot != nil {
			details["creditBalance"] = snapshot.Balance
			details["plan"] = snapshot.Plan
		}
		a.errorWithDetails(w, http.StatusForbidden, "insufficient_credits", "credit balance exhausted", details)
		return
	case errors.Is(err, domain.ErrShopInactive):
		a.error(w, http.StatusForbidden, "shop_inactive", "app is not installed on this shop")
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "unknown shop")
		return
	default:
		a.Logger.Error().Err(err).Str("shop", shop).Msg("submit: enqueue failed")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "backing store unavailable")
		return
	}

	a.json(w, http.StatusAccepted, submitResponse{
		Status:    "accepted",
		JobID:     job.ID,
		StatusURL: "/api/fashion-photo/status/" + job.ID,
	})
}

type statusResponse struct {
	JobID     string           `json:"jobId"`
	Status    domain.JobStatus `json:"status"`
	ImageURL  string           `json:"imageUrl,omitempty"`
	Error     *domain.JobError `json:"error,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// FashionPhotoStatus reports the current state of a job. Polling is
// idempotent; terminal payloads never change between calls.
func (a *App) FashionPhotoStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "job id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	default:
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status: lookup failed")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "backing store unavailable")
		return
	}

	resp := statusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Status == domain.JobStatusCompleted {
		resp.ImageURL = job.ImageURL
	}
	resp.Error = job.Err()
	a.json(w, http.StatusOK, resp)
}

var errPartMissing = errors.New("part missing")

func readImagePart(r *http.Request, field string) ([]byte, string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", fmt.Errorf("%s: %w", field, errPartMissing)
		}
		return nil, "", fmt.Errorf("%s is not readable", field)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("%s is not readable", field)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s: %w", field, errPartMissing)
	}
	mime := sniffImageMIME(data)
	if _, ok := allowedImageMIMEs[mime]; !ok {
		return nil, "", fmt.Errorf("%s must be a JPEG, PNG, WebP, or AVIF image", field)
	}
	return data, mime, nil
}

// sniffImageMIME detects the content type from the bytes; the client-supplied
// header is never trusted. AVIF is not covered by the stdlib sniffer, so the
// ISO-BMFF brand is checked by hand.
func sniffImageMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if mime == "application/octet-stream" && len(data) >= 12 && string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "avif" || brand == "avis" {
			return "image/avif"
		}
	}
	return mime
}

func uploadKey(shop, uploadID, role, mime string) string {
	ext := allowedImageMIMEs[mime]
	if ext == "" {
		ext = ".bin"
	}
	return path.Join("uploads", shop, uploadID+"-"+role+ext)
}
