package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
)

type prescriptionRow struct {
	bun.BaseModel `bun:"table:prescriptions"`
	ID            string     `bun:"id,pk"`
	PatientID     string     `bun:"patient_id,notnull"`
	DoctorID      string     `bun:"doctor_id,notnull"`
	IssuedAt      time.Time  `bun:"issued_at,notnull"`
	PickupAt      time.Time  `bun:"pickup_at,notnull"`
	State         string     `bun:"state,notnull"`
	ProcessedAt   *time.Time `bun:"processed_at"`
	ReadyAt       *time.Time `bun:"ready_at"`
	DeliveredAt   *time.Time `bun:"delivered_at"`
}

type prescriptionItemRow struct {
	bun.BaseModel  `bun:"table:prescription_items"`
	ID             int64  `bun:"id,pk,autoincrement"`
	PrescriptionID string `bun:"prescription_id,notnull"`
	MedicationCode string `bun:"medication_code,notnull"`
	Quantity       int    `bun:"quantity,notnull"`
	Directions     string `bun:"directions"`
	DurationDays   int    `bun:"duration_days"`
}

// AddPrescription stores the header and all items in one transaction.
func (s *Store) AddPrescription(ctx context.Context, rx model.Prescription) error {
	exists, err := s.db.NewSelect().Model((*prescriptionRow)(nil)).Where("id = ?", rx.ID).Exists(ctx)
	if err != nil {
		return errors.WrapStore("select", "prescription", err)
	}
	if exists {
		return errors.ErrDuplicate
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		header := &prescriptionRow{
			ID:        rx.ID,
			PatientID: rx.Patient.ID,
			DoctorID:  rx.DoctorID,
			IssuedAt:  rx.IssuedAt,
			PickupAt:  rx.PickupAt,
			State:     rx.State,
		}
		if _, err := tx.NewInsert().Model(header).Exec(ctx); err != nil {
			return err
		}
		for _, item := range rx.Items {
			row := &prescriptionItemRow{
				PrescriptionID: rx.ID,
				MedicationCode: item.Medication.Code,
				Quantity:       item.Quantity,
				Directions:     item.Directions,
				DurationDays:   item.DurationDays,
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.WrapStore("insert", "prescription", err)
	}
	return nil
}

// FindPrescription loads one prescription with its patient and items.
func (s *Store) FindPrescription(ctx context.Context, id string) (model.Prescription, error) {
	var row prescriptionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Prescription{}, errors.ErrNotFound
		}
		return model.Prescription{}, errors.WrapStore("select", "prescription", err)
	}
	return s.assemblePrescription(ctx, row)
}

// ListPrescriptions returns every prescription, newest first.
func (s *Store) ListPrescriptions(ctx context.Context) ([]model.Prescription, error) {
	return s.listPrescriptions(ctx, "")
}

// ListPrescriptionsByState returns the prescriptions in one dispatch
// state, newest first.
func (s *Store) ListPrescriptionsByState(ctx context.Context, state string) ([]model.Prescription, error) {
	return s.listPrescriptions(ctx, state)
}

func (s *Store) listPrescriptions(ctx context.Context, state string) ([]model.Prescription, error) {
	var rows []prescriptionRow
	q := s.db.NewSelect().Model(&rows).Order("issued_at DESC")
	if state != "" {
		q = q.Where("state = ?", state)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.WrapStore("select", "prescription", err)
	}

	out := make([]model.Prescription, 0, len(rows))
	for _, row := range rows {
		rx, err := s.assemblePrescription(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rx)
	}
	return out, nil
}

// UpdatePrescriptionState moves a prescription to a new dispatch state
// and stamps the matching transition timestamp.
func (s *Store) UpdatePrescriptionState(ctx context.Context, id, state string) error {
	q := s.db.NewUpdate().Model((*prescriptionRow)(nil)).
		Set("state = ?", state).
		Where("id = ?", id)

	now := time.Now()
	switch state {
	case protocol.StateIssued:
		// No transition timestamp for the initial state.
	case protocol.StateInProcess:
		q = q.Set("processed_at = ?", now)
	case protocol.StateReady:
		q = q.Set("ready_at = ?", now)
	case protocol.StateDelivered:
		q = q.Set("delivered_at = ?", now)
	default:
		return errors.ErrInvalidState
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "prescription", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}

// assemblePrescription resolves the patient and item references of one
// header row. Soft-deleted patients and medications still resolve here;
// a prescription never loses its history.
func (s *Store) assemblePrescription(ctx context.Context, row prescriptionRow) (model.Prescription, error) {
	patient, err := s.findPatientAny(ctx, row.PatientID)
	if err != nil && !errors.IsNotFound(err) {
		return model.Prescription{}, err
	}

	var itemRows []prescriptionItemRow
	err = s.db.NewSelect().Model(&itemRows).
		Where("prescription_id = ?", row.ID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return model.Prescription{}, errors.WrapStore("select", "prescription_item", err)
	}

	items := make([]model.PrescriptionItem, 0, len(itemRows))
	for _, ir := range itemRows {
		med, err := s.findMedicationAny(ctx, ir.MedicationCode)
		if err != nil && !errors.IsNotFound(err) {
			return model.Prescription{}, err
		}
		items = append(items, model.PrescriptionItem{
			Medication:   med,
			Quantity:     ir.Quantity,
			Directions:   ir.Directions,
			DurationDays: ir.DurationDays,
		})
	}

	return model.Prescription{
		ID:          row.ID,
		IssuedAt:    row.IssuedAt,
		PickupAt:    row.PickupAt,
		State:       row.State,
		DoctorID:    row.DoctorID,
		Patient:     patient,
		Items:       items,
		ProcessedAt: row.ProcessedAt,
		ReadyAt:     row.ReadyAt,
		DeliveredAt: row.DeliveredAt,
	}, nil
}
