package service

import (
	"context"
	"time"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
)

// createPrescription builds a prescription from the request payload,
// resolving the patient and every medication against the catalog before
// anything is written.
func (s *Service) createPrescription(ctx context.Context, data protocol.Data) protocol.Envelope {
	rxID, err := requireString(data, protocol.FieldRxID)
	if err != nil {
		return fail("Error al crear receta", err)
	}
	patientID, err := requireString(data, protocol.FieldPatientID)
	if err != nil {
		return fail("Error al crear receta", err)
	}
	doctorID, err := requireString(data, protocol.FieldDoctorID)
	if err != nil {
		return fail("Error al crear receta", err)
	}
	pickupAt, err := parseWireTime(data.String(protocol.FieldPickupAt))
	if err != nil {
		return protocol.ErrorResponse("Error al crear receta: fecha de retiro inválida")
	}

	patient, err := s.store.FindPatient(ctx, patientID)
	if err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Paciente no encontrado: " + patientID)
		}
		return fail("Error al crear receta", err)
	}

	items, errResp := s.parseItems(ctx, data)
	if errResp != nil {
		return *errResp
	}
	if len(items) == 0 {
		return protocol.ErrorResponse("Error al crear receta: la receta no tiene detalles")
	}

	rx := model.Prescription{
		ID:       rxID,
		IssuedAt: time.Now(),
		PickupAt: pickupAt,
		State:    protocol.StateIssued,
		DoctorID: doctorID,
		Patient:  patient,
		Items:    items,
	}
	if err := s.store.AddPrescription(ctx, rx); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			return protocol.ErrorResponse("Ya existe una receta con el código: " + rxID)
		}
		return fail("Error al crear receta", err)
	}
	return protocol.SuccessResponse("Receta creada exitosamente", protocol.Data{
		protocol.FieldRxID: rxID,
	})
}

// parseItems decodes the detalles array of a create request. Each entry
// must name a catalog medication by code.
func (s *Service) parseItems(ctx context.Context, data protocol.Data) ([]model.PrescriptionItem, *protocol.Envelope) {
	raw, ok := data[protocol.FieldItems].([]any)
	if !ok {
		resp := protocol.ErrorResponse("Error al crear receta: falta el campo " + protocol.FieldItems)
		return nil, &resp
	}

	items := make([]model.PrescriptionItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			resp := protocol.ErrorResponse("Error al crear receta: detalle mal formado")
			return nil, &resp
		}
		item := protocol.Data(m)

		code := item.String(protocol.FieldMedCode)
		if code == "" {
			resp := protocol.ErrorResponse("Error al crear receta: detalle sin código de medicamento")
			return nil, &resp
		}
		med, err := s.store.FindMedication(ctx, code)
		if err != nil {
			if errors.IsNotFound(err) {
				resp := protocol.ErrorResponse("Medicamento no encontrado: " + code)
				return nil, &resp
			}
			resp := fail("Error al crear receta", err)
			return nil, &resp
		}

		items = append(items, model.PrescriptionItem{
			Medication:   med,
			Quantity:     item.Int(protocol.FieldQuantity),
			Directions:   item.String(protocol.FieldDirections),
			DurationDays: item.Int(protocol.FieldDurationDays),
		})
	}
	return items, nil
}

func (s *Service) findPrescription(ctx context.Context, data protocol.Data) protocol.Envelope {
	rxID, err := requireString(data, protocol.FieldRxID)
	if err != nil {
		return fail("Error al buscar receta", err)
	}
	rx, err := s.store.FindPrescription(ctx, rxID)
	if err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Receta no encontrada: " + rxID)
		}
		return fail("Error al buscar receta", err)
	}
	return protocol.SuccessResponse("Receta encontrada", prescriptionData(rx))
}

func (s *Service) listPrescriptions(ctx context.Context) protocol.Envelope {
	rxs, err := s.store.ListPrescriptions(ctx)
	if err != nil {
		return fail("Error al listar recetas", err)
	}
	return protocol.SuccessResponse("Recetas obtenidas", prescriptionListData(rxs))
}

func (s *Service) listPrescriptionsByState(ctx context.Context, data protocol.Data) protocol.Envelope {
	state, err := requireString(data, protocol.FieldState)
	if err != nil {
		return fail("Error al listar recetas", err)
	}
	rxs, err := s.store.ListPrescriptionsByState(ctx, state)
	if err != nil {
		return fail("Error al listar recetas", err)
	}
	return protocol.SuccessResponse("Recetas obtenidas", prescriptionListData(rxs))
}

func prescriptionListData(rxs []model.Prescription) protocol.Data {
	list := make([]protocol.Data, 0, len(rxs))
	for _, rx := range rxs {
		list = append(list, prescriptionData(rx))
	}
	return protocol.Data{"recetas": list}
}

// updateDispatchState backs the three dispatch transitions. Each caller
// fixes the target state; the request only names the prescription.
func (s *Service) updateDispatchState(ctx context.Context, data protocol.Data, state, okMessage string) protocol.Envelope {
	rxID, err := requireString(data, protocol.FieldRxID)
	if err != nil {
		return fail("Error al actualizar receta", err)
	}
	if err := s.store.UpdatePrescriptionState(ctx, rxID, state); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Receta no encontrada: " + rxID)
		}
		return fail("Error al actualizar receta", err)
	}
	return protocol.SuccessResponse(okMessage, protocol.Data{
		protocol.FieldRxID:  rxID,
		protocol.FieldState: state,
	})
}

// parseWireTime accepts the full wire timestamp or a bare date.
func parseWireTime(s string) (time.Time, error) {
	if t, err := time.Parse(protocol.TimeFormat, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
