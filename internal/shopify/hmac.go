package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyWebhookHMAC checks the X-Shopify-Hmac-Sha256 header against the raw
// request body. Shopify signs the raw bytes, so callers must pass the body
// exactly as received.
func VerifyWebhookHMAC(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header)))
}

// VerifyProxySignature checks the `signature` parameter Shopify attaches to
// app-proxy requests: hex HMAC-SHA256 over the remaining query parameters,
// sorted by key, joined without separators, multi-values joined by commas.
func VerifyProxySignature(secret string, query url.Values) bool {
	if secret == "" {
		return false
	}
	signature := query.Get("signature")
	if signature == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		if key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		values := query[key]
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(strings.Join(values, ","))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(sb.String()))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
