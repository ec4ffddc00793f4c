package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"server/internal/bridge"
	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/session"
)

const maxPixelBodyBytes = 64 << 10

// PixelEvents ingests analytics events from the storefront web pixel. Each
// request carries one bridge envelope; the envelope's kind and origin are
// validated before anything is stored.
func (a *App) PixelEvents(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(a.currentShop(r))
	if shop == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop query parameter is required")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPixelBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body")
		return
	}

	env, err := a.Bridge.Decode(raw, r.Header.Get("Origin"))
	switch {
	case err == nil:
	case errors.Is(err, bridge.ErrOriginNotAllowed):
		a.error(w, http.StatusForbidden, "origin_not_allowed", "origin is not allowed")
		return
	default:
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var payload struct {
		ProductID string `json:"productId"`
	}
	if len(env.Payload) > 0 {
		_ = json.Unmarshal(env.Payload, &payload)
	}

	if err := a.Sessions.Put(r.Context(), &session.Record{
		ID:         env.SessionID,
		ShopDomain: shop,
		Properties: map[string]any{"lastKind": string(env.Kind)},
	}); err != nil {
		a.Logger.Warn().Err(err).Str("session_id", env.SessionID).Msg("pixel: session upsert failed")
	}

	event := &domain.PixelEvent{
		ShopDomain: shop,
		SessionID:  env.SessionID,
		Kind:       string(env.Kind),
		ProductID:  payload.ProductID,
		Country:    middleware.CountryFromContext(r.Context()),
		Locale:     middleware.LocaleFromContext(r.Context()),
	}
	if len(env.Payload) > 0 {
		props := map[string]any{}
		if json.Unmarshal(env.Payload, &props) == nil {
			event.Properties = props
		}
	}

	if err := a.Pixels.Insert(r.Context(), event); err != nil {
		a.Logger.Error().Err(err).Str("shop", shop).Msg("pixel: insert failed")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "backing store unavailable")
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// StatsDashboard returns last-24h pixel aggregates for the admin UI.
func (a *App) StatsDashboard(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(a.currentShop(r))
	if shop == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop is required")
		return
	}
	summary, err := a.Pixels.Summary24h(r.Context(), shop)
	if err != nil {
		a.Logger.Error().Err(err).Str("shop", shop).Msg("stats: summary failed")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "backing store unavailable")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"widget_opens":    summary.WidgetOpens,
		"tryon_starts":    summary.TryOnStarts,
		"tryon_completes": summary.TryOnCompletes,
		"add_to_carts":    summary.AddToCarts,
		"sessions":        summary.Sessions,
	})
}
