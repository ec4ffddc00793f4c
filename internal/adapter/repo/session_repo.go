package repo

import (
	"context"
	"encoding/json"

	"server/internal/infra"
	"server/internal/session"
	"server/internal/sqlinline"
)

// SessionStorePG implements session.Store on PostgreSQL.
type SessionStorePG struct {
	sql infra.SQLExecutor
}

func NewSessionStore(sql infra.SQLExecutor) *SessionStorePG {
	return &SessionStorePG{sql: sql}
}

func (s *SessionStorePG) Get(ctx context.Context, id string) (*session.Record, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectPixelSession, id)
	rec := session.Record{ID: id}
	var raw []byte
	if err := row.Scan(&rec.ShopDomain, &raw); err != nil {
		if infra.IsNoRows(err) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Properties); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (s *SessionStorePG) Put(ctx context.Context, rec *session.Record) error {
	props := rec.Properties
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertPixelSession, rec.ID, rec.ShopDomain, raw)
	return err
}

func (s *SessionStorePG) Delete(ctx context.Context, id string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeletePixelSession, id)
	return err
}

var _ session.Store = (*SessionStorePG)(nil)
