package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

type stubShopRepo struct {
	shops       map[string]*domain.Shop
	deactivated []string
}

func (s *stubShopRepo) GetByDomain(_ context.Context, d string) (*domain.Shop, error) {
	if shop, ok := s.shops[d]; ok {
		return shop, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubShopRepo) Upsert(context.Context, *domain.Shop) error { return nil }

func (s *stubShopRepo) Deactivate(_ context.Context, d string) error {
	s.deactivated = append(s.deactivated, d)
	return nil
}

func (s *stubShopRepo) GrantCredits(context.Context, string, int) (*domain.CreditSnapshot, error) {
	return nil, nil
}

func signWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookApp(shops *stubShopRepo) *App {
	return &App{
		Config: &infra.Config{ShopifyAPISecret: "hush"},
		Logger: zerolog.Nop(),
		Shops:  shops,
	}
}

func TestShopifyWebhookRejectsBadHMAC(t *testing.T) {
	shops := &stubShopRepo{}
	app := webhookApp(shops)

	body := []byte(`{"id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Topic", "app/uninstalled")
	req.Header.Set("X-Shopify-Shop-Domain", "demo.myshopify.com")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhook("wrong secret", body))
	rec := httptest.NewRecorder()

	app.ShopifyWebhook(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(shops.deactivated) != 0 {
		t.Errorf("deactivated %v despite invalid signature", shops.deactivated)
	}
}

func TestShopifyWebhookUninstallDeactivates(t *testing.T) {
	shops := &stubShopRepo{}
	app := webhookApp(shops)

	body := []byte(`{"id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Topic", "app/uninstalled")
	req.Header.Set("X-Shopify-Shop-Domain", "demo.myshopify.com")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhook("hush", body))
	rec := httptest.NewRecorder()

	app.ShopifyWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(shops.deactivated) != 1 || shops.deactivated[0] != "demo.myshopify.com" {
		t.Fatalf("deactivated = %v", shops.deactivated)
	}
}

func TestShopifyWebhookAcksUnknownTopic(t *testing.T) {
	shops := &stubShopRepo{}
	app := webhookApp(shops)

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Topic", "orders/create")
	req.Header.Set("X-Shopify-Hmac-Sha256", signWebhook("hush", body))
	rec := httptest.NewRecorder()

	app.ShopifyWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
