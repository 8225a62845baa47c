package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"farmanet/internal/errors"
	"farmanet/model"
)

type activeUserRow struct {
	bun.BaseModel `bun:"table:active_users"`
	UserID        string    `bun:"user_id,pk"`
	Name          string    `bun:"name,notnull"`
	Role          string    `bun:"role,notnull"`
	LoginAt       time.Time `bun:"login_at,notnull"`
	SourceIP      string    `bun:"source_ip"`
}

// RegisterLogin upserts the signed-in ledger row for a user. A second
// login from another connection refreshes the timestamp and address.
func (s *Store) RegisterLogin(ctx context.Context, au model.ActiveUser) error {
	row := &activeUserRow{
		UserID:   au.UserID,
		Name:     au.Name,
		Role:     string(au.Role),
		LoginAt:  au.LoginAt,
		SourceIP: au.SourceIP,
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("login_at = EXCLUDED.login_at").
		Set("source_ip = EXCLUDED.source_ip").
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("insert", "active_user", err)
	}
	return nil
}

// RegisterLogout deletes the ledger row. Logging out a user who is not
// in the ledger is a no-op; session teardown may race a prior explicit
// logout.
func (s *Store) RegisterLogout(ctx context.Context, userID string) error {
	_, err := s.db.NewDelete().Model((*activeUserRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("delete", "active_user", err)
	}
	return nil
}

// ListActiveUsers returns the signed-in ledger ordered by name.
func (s *Store) ListActiveUsers(ctx context.Context) ([]model.ActiveUser, error) {
	var rows []activeUserRow
	if err := s.db.NewSelect().Model(&rows).Order("name").Scan(ctx); err != nil {
		return nil, errors.WrapStore("select", "active_user", err)
	}
	out := make([]model.ActiveUser, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ActiveUser{
			UserID:   r.UserID,
			Name:     r.Name,
			Role:     model.Role(r.Role),
			LoginAt:  r.LoginAt,
			SourceIP: r.SourceIP,
		})
	}
	return out, nil
}
