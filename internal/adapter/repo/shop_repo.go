package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ShopRepositoryPG implements domain.ShopRepository on PostgreSQL.
type ShopRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewShopRepository(sql infra.SQLExecutor) *ShopRepositoryPG {
	return &ShopRepositoryPG{sql: sql}
}

func (r *ShopRepositoryPG) GetByDomain(ctx context.Context, domainName string) (*domain.Shop, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectShopByDomain, domainName)
	var shop domain.Shop
	if err := row.Scan(
		&shop.Domain,
		&shop.AccessToken,
		&shop.Plan,
		&shop.CreditBalance,
		&shop.Active,
		&shop.InstalledAt,
		&shop.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &shop, nil
}

func (r *ShopRepositoryPG) Upsert(ctx context.Context, shop *domain.Shop) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertShop,
		shop.Domain,
		shop.AccessToken,
		shop.Plan,
		shop.CreditBalance,
	)
	return err
}

func (r *ShopRepositoryPG) Deactivate(ctx context.Context, domainName string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QDeactivateShop, domainName)
	return err
}

func (r *ShopRepositoryPG) GrantCredits(ctx context.Context, domainName string, amount int) (*domain.CreditSnapshot, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QGrantShopCredits, domainName, amount)
	var snapshot domain.CreditSnapshot
	if err := row.Scan(&snapshot.Balance, &snapshot.Plan); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

var _ domain.ShopRepository = (*ShopRepositoryPG)(nil)
