package service

import (
	"context"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
)

func (s *Service) addMedication(ctx context.Context, data protocol.Data) protocol.Envelope {
	code, err := requireString(data, protocol.FieldMedCode)
	if err != nil {
		return fail("Error al agregar medicamento", err)
	}
	name, err := requireString(data, protocol.FieldName)
	if err != nil {
		return fail("Error al agregar medicamento", err)
	}

	m := model.Medication{
		Code:         code,
		Name:         name,
		Presentation: data.String(protocol.FieldPresentation),
	}
	if err := s.store.AddMedication(ctx, m); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			return protocol.ErrorResponse("Ya existe un medicamento con el código: " + code)
		}
		return fail("Error al agregar medicamento", err)
	}
	return protocol.SuccessResponse("Medicamento agregado exitosamente", medicationData(m))
}

func (s *Service) updateMedication(ctx context.Context, data protocol.Data) protocol.Envelope {
	code, err := requireString(data, protocol.FieldMedCode)
	if err != nil {
		return fail("Error al actualizar medicamento", err)
	}
	name, err := requireString(data, protocol.FieldName)
	if err != nil {
		return fail("Error al actualizar medicamento", err)
	}

	m := model.Medication{
		Code:         code,
		Name:         name,
		Presentation: data.String(protocol.FieldPresentation),
	}
	if err := s.store.UpdateMedication(ctx, m); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Medicamento no encontrado: " + code)
		}
		return fail("Error al actualizar medicamento", err)
	}
	return protocol.SuccessResponse("Medicamento actualizado exitosamente", medicationData(m))
}

func (s *Service) removeMedication(ctx context.Context, data protocol.Data) protocol.Envelope {
	code, err := requireString(data, protocol.FieldMedCode)
	if err != nil {
		return fail("Error al eliminar medicamento", err)
	}
	if err := s.store.RemoveMedication(ctx, code); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Medicamento no encontrado: " + code)
		}
		return fail("Error al eliminar medicamento", err)
	}
	return protocol.SuccessResponse("Medicamento eliminado exitosamente", nil)
}

func (s *Service) findMedication(ctx context.Context, data protocol.Data) protocol.Envelope {
	code, err := requireString(data, protocol.FieldMedCode)
	if err != nil {
		return fail("Error al buscar medicamento", err)
	}
	m, err := s.store.FindMedication(ctx, code)
	if err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Medicamento no encontrado: " + code)
		}
		return fail("Error al buscar medicamento", err)
	}
	return protocol.SuccessResponse("Medicamento encontrado", medicationData(m))
}

func (s *Service) listMedications(ctx context.Context) protocol.Envelope {
	meds, err := s.store.ListMedications(ctx)
	if err != nil {
		return fail("Error al listar medicamentos", err)
	}
	list := make([]protocol.Data, 0, len(meds))
	for _, m := range meds {
		list = append(list, medicationData(m))
	}
	return protocol.SuccessResponse("Medicamentos obtenidos", protocol.Data{"medicamentos": list})
}
