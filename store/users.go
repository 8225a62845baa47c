package store

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"farmanet/internal/errors"
	"farmanet/model"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`
	ID            string         `bun:"id,pk"`
	PasswordHash  string         `bun:"password_hash,notnull"`
	Name          string         `bun:"name,notnull"`
	Role          string         `bun:"role,notnull"`
	Specialty     sql.NullString `bun:"specialty"`
}

func (r userRow) toModel() model.User {
	u := model.User{ID: r.ID, Name: r.Name, Role: model.Role(r.Role)}
	if r.Specialty.Valid {
		u.Specialty = r.Specialty.String
	}
	return u
}

// AddUser creates an account with a bcrypt-hashed password. The
// specialty is persisted only for doctors.
func (s *Store) AddUser(ctx context.Context, u model.User, password string) error {
	exists, err := s.db.NewSelect().Model((*userRow)(nil)).Where("id = ?", u.ID).Exists(ctx)
	if err != nil {
		return errors.WrapStore("select", "user", err)
	}
	if exists {
		return errors.ErrDuplicate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.WrapStore("insert", "user", err)
	}

	row := &userRow{
		ID:           u.ID,
		PasswordHash: string(hash),
		Name:         u.Name,
		Role:         string(u.Role),
	}
	if u.Role == model.RoleDoctor {
		row.Specialty = sql.NullString{String: u.Specialty, Valid: true}
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.WrapStore("insert", "user", err)
	}
	return nil
}

// ValidateLogin checks the credentials and returns the matching user.
// A missing account and a wrong password are indistinguishable to the
// caller; both surface as ErrInvalidCredentials.
func (s *Store) ValidateLogin(ctx context.Context, id, password string) (model.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errors.ErrInvalidCredentials
		}
		return model.User{}, errors.WrapStore("select", "user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return model.User{}, errors.ErrInvalidCredentials
	}
	return row.toModel(), nil
}

// UpdatePassword rehashes and stores a new password for the user.
func (s *Store) UpdatePassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.WrapStore("update", "user", err)
	}
	res, err := s.db.NewUpdate().Model((*userRow)(nil)).
		Set("password_hash = ?", string(hash)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "user", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}

// ListUsers returns every account.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("id").Scan(ctx); err != nil {
		return nil, errors.WrapStore("select", "user", err)
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toModel())
	}
	return users, nil
}

// ListByRole returns the accounts holding one role.
func (s *Store) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var rows []userRow
	err := s.db.NewSelect().Model(&rows).
		Where("role = ?", string(role)).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, errors.WrapStore("select", "user", err)
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toModel())
	}
	return users, nil
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.WrapStore("delete", "user", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}

// noneAffected maps a zero-row result to the given sentinel.
func noneAffected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support; treat as success
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
