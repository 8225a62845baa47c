package store

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"farmanet/internal/errors"
	"farmanet/model"
)

type medicationRow struct {
	bun.BaseModel `bun:"table:medications"`
	Code          string `bun:"code,pk"`
	Name          string `bun:"name,notnull"`
	Presentation  string `bun:"presentation"`
	Active        bool   `bun:"active,notnull"`
}

func (r medicationRow) toModel() model.Medication {
	return model.Medication{Code: r.Code, Name: r.Name, Presentation: r.Presentation}
}

// AddMedication adds a catalog entry.
func (s *Store) AddMedication(ctx context.Context, m model.Medication) error {
	exists, err := s.db.NewSelect().Model((*medicationRow)(nil)).Where("code = ?", m.Code).Exists(ctx)
	if err != nil {
		return errors.WrapStore("select", "medication", err)
	}
	if exists {
		return errors.ErrDuplicate
	}
	row := &medicationRow{Code: m.Code, Name: m.Name, Presentation: m.Presentation, Active: true}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.WrapStore("insert", "medication", err)
	}
	return nil
}

// UpdateMedication rewrites name and presentation for a catalog entry.
func (s *Store) UpdateMedication(ctx context.Context, m model.Medication) error {
	res, err := s.db.NewUpdate().Model((*medicationRow)(nil)).
		Set("name = ?", m.Name).
		Set("presentation = ?", m.Presentation).
		Where("code = ?", m.Code).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "medication", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}

// FindMedication returns an active catalog entry by code.
func (s *Store) FindMedication(ctx context.Context, code string) (model.Medication, error) {
	var row medicationRow
	err := s.db.NewSelect().Model(&row).
		Where("code = ?", code).
		Where("active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Medication{}, errors.ErrNotFound
		}
		return model.Medication{}, errors.WrapStore("select", "medication", err)
	}
	return row.toModel(), nil
}

// findMedicationAny looks a catalog entry up regardless of its active
// flag, for resolving items of old prescriptions.
func (s *Store) findMedicationAny(ctx context.Context, code string) (model.Medication, error) {
	var row medicationRow
	err := s.db.NewSelect().Model(&row).Where("code = ?", code).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Medication{}, errors.ErrNotFound
		}
		return model.Medication{}, errors.WrapStore("select", "medication", err)
	}
	return row.toModel(), nil
}

// ListMedications returns all active catalog entries.
func (s *Store) ListMedications(ctx context.Context) ([]model.Medication, error) {
	var rows []medicationRow
	err := s.db.NewSelect().Model(&rows).Where("active = ?", true).Order("name").Scan(ctx)
	if err != nil {
		return nil, errors.WrapStore("select", "medication", err)
	}
	out := make([]model.Medication, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// RemoveMedication deactivates a catalog entry. Existing prescriptions
// keep referencing it, so this is a soft delete.
func (s *Store) RemoveMedication(ctx context.Context, code string) error {
	res, err := s.db.NewUpdate().Model((*medicationRow)(nil)).
		Set("active = ?", false).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "medication", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}
