package handlers

import (
	"io"
	"net/http"
	"strings"

	"server/internal/shopify"
)

// ShopifyWebhook receives Shopify webhooks. The HMAC is computed over the raw
// body, so verification happens here rather than in middleware. Shopify
// retries on non-2xx; anything past signature verification acks with 200 even
// when the topic is unhandled.
func (a *App) ShopifyWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body")
		return
	}

	header := r.Header.Get("X-Shopify-Hmac-Sha256")
	if !shopify.VerifyWebhookHMAC(a.Config.ShopifyAPISecret, body, header) {
		a.error(w, http.StatusUnauthorized, "invalid_hmac", "webhook signature verification failed")
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	shop := strings.TrimSpace(r.Header.Get("X-Shopify-Shop-Domain"))

	switch topic {
	case "app/uninstalled":
		if shop == "" {
			a.error(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop domain header missing")
			return
		}
		if err := a.Shops.Deactivate(r.Context(), shop); err != nil {
			a.Logger.Error().Err(err).Str("shop", shop).Msg("webhook: deactivate failed")
			// Ack anyway; Shopify retrying will not make the store healthier.
		}
		a.Logger.Info().Str("shop", shop).Msg("webhook: app uninstalled")
	case "customers/data_request", "customers/redact", "shop/redact":
		// Mandatory GDPR topics. No customer data is retained beyond pixel
		// events keyed by opaque session ids, so acknowledging suffices.
		a.Logger.Info().Str("topic", topic).Str("shop", shop).Msg("webhook: compliance topic acknowledged")
	default:
		a.Logger.Debug().Str("topic", topic).Str("shop", shop).Msg("webhook: unhandled topic")
	}

	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}
