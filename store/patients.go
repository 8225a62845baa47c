package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"farmanet/internal/errors"
	"farmanet/model"
)

type patientRow struct {
	bun.BaseModel `bun:"table:patients"`
	ID            string    `bun:"id,pk"`
	Name          string    `bun:"name,notnull"`
	BirthDate     time.Time `bun:"birth_date,notnull"`
	Phone         string    `bun:"phone"`
	Active        bool      `bun:"active,notnull"`
}

func (r patientRow) toModel() model.Patient {
	return model.Patient{ID: r.ID, Name: r.Name, BirthDate: r.BirthDate, Phone: r.Phone}
}

// AddPatient registers a patient.
func (s *Store) AddPatient(ctx context.Context, p model.Patient) error {
	exists, err := s.db.NewSelect().Model((*patientRow)(nil)).Where("id = ?", p.ID).Exists(ctx)
	if err != nil {
		return errors.WrapStore("select", "patient", err)
	}
	if exists {
		return errors.ErrDuplicate
	}
	row := &patientRow{ID: p.ID, Name: p.Name, BirthDate: p.BirthDate, Phone: p.Phone, Active: true}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.WrapStore("insert", "patient", err)
	}
	return nil
}

// UpdatePatient rewrites a patient's mutable fields.
func (s *Store) UpdatePatient(ctx context.Context, p model.Patient) error {
	res, err := s.db.NewUpdate().Model((*patientRow)(nil)).
		Set("name = ?", p.Name).
		Set("birth_date = ?", p.BirthDate).
		Set("phone = ?", p.Phone).
		Where("id = ?", p.ID).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "patient", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}

// FindPatient returns an active patient by id.
func (s *Store) FindPatient(ctx context.Context, id string) (model.Patient, error) {
	var row patientRow
	err := s.db.NewSelect().Model(&row).
		Where("id = ?", id).
		Where("active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Patient{}, errors.ErrNotFound
		}
		return model.Patient{}, errors.WrapStore("select", "patient", err)
	}
	return row.toModel(), nil
}

// findPatientAny looks a patient up regardless of its active flag, for
// resolving prescriptions that reference a since-deactivated patient.
func (s *Store) findPatientAny(ctx context.Context, id string) (model.Patient, error) {
	var row patientRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Patient{}, errors.ErrNotFound
		}
		return model.Patient{}, errors.WrapStore("select", "patient", err)
	}
	return row.toModel(), nil
}

// ListPatients returns all active patients.
func (s *Store) ListPatients(ctx context.Context) ([]model.Patient, error) {
	var rows []patientRow
	err := s.db.NewSelect().Model(&rows).Where("active = ?", true).Order("name").Scan(ctx)
	if err != nil {
		return nil, errors.WrapStore("select", "patient", err)
	}
	out := make([]model.Patient, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// RemovePatient deactivates a patient. Prescriptions keep referencing
// the row, so this is a soft delete.
func (s *Store) RemovePatient(ctx context.Context, id string) error {
	res, err := s.db.NewUpdate().Model((*patientRow)(nil)).
		Set("active = ?", false).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "patient", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}
