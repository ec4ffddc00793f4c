package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/bridge"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/session"
	"server/internal/shopify"
	"server/internal/storage"
)

// App bundles the dependencies handlers need.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Jobs     domain.JobRepository
	Shops    domain.ShopRepository
	Pixels   domain.PixelRepository
	Sessions session.Store
	Store    *storage.FileStore
	Bridge   *bridge.Channel
	Billing  *shopify.Client
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": message, "code": code})
}

func (a *App) errorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	a.json(w, status, map[string]any{"error": message, "code": code, "details": details})
}

// currentShop returns the shop domain for the request: the proxy-verified
// context value when present, the shop query parameter otherwise.
func (a *App) currentShop(r *http.Request) string {
	if shop := middleware.ShopFromContext(r.Context()); shop != "" {
		return shop
	}
	return r.URL.Query().Get("shop")
}
