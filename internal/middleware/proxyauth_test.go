package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func proxySignature(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestProxyAuthAcceptsSignedRequest(t *testing.T) {
	secret := "hush"
	sig := proxySignature(secret, "shop=demo.myshopify.comtimestamp=1700000000")

	var gotShop string
	handler := ProxyAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotShop = ShopFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet,
		"/api/credits?shop=demo.myshopify.com&timestamp=1700000000&signature="+sig, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if gotShop != "demo.myshopify.com" {
		t.Errorf("shop from context = %q", gotShop)
	}
}

func TestProxyAuthRejectsWithJSONEnvelope(t *testing.T) {
	handler := ProxyAuth("hush")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached despite invalid signature")
	}))

	req := httptest.NewRequest(http.MethodGet,
		"/api/credits?shop=demo.myshopify.com&signature=deadbeef", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code != "invalid_signature" || resp.Error == "" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestProxyAuthRequiresShopParam(t *testing.T) {
	secret := "hush"
	sig := proxySignature(secret, "timestamp=1700000000")

	handler := ProxyAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without shop")
	}))

	req := httptest.NewRequest(http.MethodGet,
		"/api/credits?timestamp=1700000000&signature="+sig, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", resp.Code)
	}
}
