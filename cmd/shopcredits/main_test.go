package main

import (
	"context"
	"strings"
	"testing"

	"server/internal/domain"
)

type stubShopRepo struct {
	shops    map[string]*domain.Shop
	upserted []*domain.Shop
}

func (s *stubShopRepo) GetByDomain(_ context.Context, d string) (*domain.Shop, error) {
	if shop, ok := s.shops[d]; ok {
		return shop, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubShopRepo) Upsert(_ context.Context, shop *domain.Shop) error {
	s.upserted = append(s.upserted, shop)
	return nil
}

func (s *stubShopRepo) Deactivate(context.Context, string) error { return nil }

func (s *stubShopRepo) GrantCredits(context.Context, string, int) (*domain.CreditSnapshot, error) {
	return &domain.CreditSnapshot{}, nil
}

func TestEnsureShopExisting(t *testing.T) {
	repo := &stubShopRepo{shops: map[string]*domain.Shop{
		"demo.myshopify.com": {Domain: "demo.myshopify.com", Plan: domain.ShopPlanPro},
	}}

	existed, err := ensureShop(context.Background(), repo, "demo.myshopify.com", "", false)
	if err != nil {
		t.Fatalf("ensureShop: %v", err)
	}
	if !existed {
		t.Error("existed = false for a known shop")
	}
	if len(repo.upserted) != 0 {
		t.Errorf("upserted %d shops, want 0", len(repo.upserted))
	}
}

func TestEnsureShopMissingWithoutInstall(t *testing.T) {
	repo := &stubShopRepo{}

	_, err := ensureShop(context.Background(), repo, "new.myshopify.com", "", false)
	if err == nil {
		t.Fatal("expected error for unknown shop without -install")
	}
	if !strings.Contains(err.Error(), "-install") {
		t.Errorf("error = %q, want hint about -install", err)
	}
	if len(repo.upserted) != 0 {
		t.Errorf("upserted %d shops, want 0", len(repo.upserted))
	}
}

func TestEnsureShopInstallCreates(t *testing.T) {
	repo := &stubShopRepo{}

	existed, err := ensureShop(context.Background(), repo, "new.myshopify.com", "starter", true)
	if err != nil {
		t.Fatalf("ensureShop: %v", err)
	}
	if existed {
		t.Error("existed = true for a fresh install")
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upserted %d shops, want 1", len(repo.upserted))
	}
	shop := repo.upserted[0]
	if shop.Domain != "new.myshopify.com" || shop.Plan != domain.ShopPlanStarter {
		t.Errorf("upserted shop = %+v", shop)
	}
}

func TestEnsureShopInstallDefaultsToFree(t *testing.T) {
	repo := &stubShopRepo{}

	if _, err := ensureShop(context.Background(), repo, "new.myshopify.com", "", true); err != nil {
		t.Fatalf("ensureShop: %v", err)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].Plan != domain.ShopPlanFree {
		t.Fatalf("upserted = %+v, want free plan", repo.upserted)
	}
}
