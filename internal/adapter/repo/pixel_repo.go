package repo

import (
	"context"
	"encoding/json"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// PixelRepositoryPG implements domain.PixelRepository on PostgreSQL.
type PixelRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewPixelRepository(sql infra.SQLExecutor) *PixelRepositoryPG {
	return &PixelRepositoryPG{sql: sql}
}

func (r *PixelRepositoryPG) Insert(ctx context.Context, event *domain.PixelEvent) error {
	props := event.Properties
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertPixelEvent,
		event.ShopDomain,
		event.SessionID,
		event.Kind,
		event.ProductID,
		event.Country,
		event.Locale,
		raw,
	)
	return err
}

func (r *PixelRepositoryPG) Summary24h(ctx context.Context, shopDomain string) (*domain.PixelSummary, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QPixelSummary24h, shopDomain)
	var summary domain.PixelSummary
	if err := row.Scan(
		&summary.WidgetOpens,
		&summary.TryOnStarts,
		&summary.TryOnCompletes,
		&summary.AddToCarts,
		&summary.Sessions,
	); err != nil {
		return nil, err
	}
	return &summary, nil
}

var _ domain.PixelRepository = (*PixelRepositoryPG)(nil)
