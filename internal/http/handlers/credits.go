package handlers

import (
	"errors"
	"net/http"
	"strings"

	"server/internal/domain"
)

// Credits returns the shop's credit snapshot for the embedded admin UI,
// enriched with active subscriptions when the Admin API is reachable.
func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	shopDomain := strings.TrimSpace(a.currentShop(r))
	if shopDomain == "" {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop is required")
		return
	}

	shop, err := a.Shops.GetByDomain(r.Context(), shopDomain)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "unknown shop")
		return
	default:
		a.Logger.Error().Err(err).Str("shop", shopDomain).Msg("credits: lookup failed")
		a.error(w, http.StatusServiceUnavailable, "SERVER_ERROR", "backing store unavailable")
		return
	}

	resp := map[string]any{
		"creditBalance": shop.CreditBalance,
		"plan":          shop.Plan,
		"active":        shop.Active,
	}

	if a.Billing != nil && shop.Active && shop.AccessToken != "" {
		subs, err := a.Billing.ActiveSubscriptions(r.Context(), shop.Domain, shop.AccessToken)
		if err != nil {
			a.Logger.Warn().Err(err).Str("shop", shopDomain).Msg("credits: subscription lookup failed")
		} else {
			resp["subscriptions"] = subs
		}
	}

	a.json(w, http.StatusOK, resp)
}
