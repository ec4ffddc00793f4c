package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"server/pkg/zip"
)

// AdminExport streams a zip of the shop's recent completed try-on images.
// Only images mirrored into local storage are included; results that only
// exist as remote URLs are skipped rather than re-fetched on request time.
func (a *App) AdminExport(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(a.currentShop(r))
	if shop == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop is required")
		return
	}

	limit := a.Config.ExportDownloadLimit
	if limit <= 0 {
		limit = 50
	}
	jobs, err := a.Jobs.ListCompletedByShop(r.Context(), shop, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("shop", shop).Msg("export: listing failed")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "backing store unavailable")
		return
	}

	base := strings.TrimRight(a.Config.StorageBaseURL, "/") + "/"
	var assets []zip.Asset
	for _, job := range jobs {
		if !strings.HasPrefix(job.ImageURL, base) {
			continue
		}
		key := strings.TrimPrefix(job.ImageURL, base)
		data, err := a.Store.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("export: missing stored image")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("%s%s", job.ID, path.Ext(key)),
			Data:     data,
		})
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=tryons-%s.zip", shop))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
