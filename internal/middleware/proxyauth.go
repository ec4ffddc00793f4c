package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/shopify"
)

type shopContextKey struct{}

var ShopKey = shopContextKey{}

// ProxyAuth verifies the Shopify app-proxy signature on requests reaching the
// backend through the storefront proxy, and stores the shop domain on the
// context. Requests without a valid signature never reach the handler.
func ProxyAuth(apiSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if !shopify.VerifyProxySignature(apiSecret, query) {
				writeProxyError(w, http.StatusUnauthorized, "invalid_signature", "invalid proxy signature")
				return
			}
			shop := strings.TrimSpace(query.Get("shop"))
			if shop == "" {
				writeProxyError(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop parameter required")
				return
			}
			ctx := context.WithValue(r.Context(), ShopKey, shop)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeProxyError mirrors the handlers' {error, code} envelope so proxy
// rejections look the same as every other API error.
func writeProxyError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

// ShopFromContext returns the proxy-verified shop domain, if any.
func ShopFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ShopKey).(string); ok {
		return v
	}
	return ""
}
