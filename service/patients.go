package service

import (
	"context"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
)

func (s *Service) addPatient(ctx context.Context, data protocol.Data) protocol.Envelope {
	p, resp := patientFromData(data, "Error al agregar paciente")
	if resp != nil {
		return *resp
	}
	if err := s.store.AddPatient(ctx, p); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			return protocol.ErrorResponse("Ya existe un paciente con el ID: " + p.ID)
		}
		return fail("Error al agregar paciente", err)
	}
	return protocol.SuccessResponse("Paciente agregado exitosamente", patientData(p))
}

func (s *Service) updatePatient(ctx context.Context, data protocol.Data) protocol.Envelope {
	p, resp := patientFromData(data, "Error al actualizar paciente")
	if resp != nil {
		return *resp
	}
	if err := s.store.UpdatePatient(ctx, p); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Paciente no encontrado: " + p.ID)
		}
		return fail("Error al actualizar paciente", err)
	}
	return protocol.SuccessResponse("Paciente actualizado exitosamente", patientData(p))
}

func (s *Service) findPatient(ctx context.Context, data protocol.Data) protocol.Envelope {
	id, err := requireString(data, protocol.FieldPatientID)
	if err != nil {
		return fail("Error al buscar paciente", err)
	}
	p, err := s.store.FindPatient(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Paciente no encontrado: " + id)
		}
		return fail("Error al buscar paciente", err)
	}
	return protocol.SuccessResponse("Paciente encontrado", patientData(p))
}

func (s *Service) removePatient(ctx context.Context, data protocol.Data) protocol.Envelope {
	id, err := requireString(data, protocol.FieldPatientID)
	if err != nil {
		return fail("Error al eliminar paciente", err)
	}
	if err := s.store.RemovePatient(ctx, id); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Paciente no encontrado: " + id)
		}
		return fail("Error al eliminar paciente", err)
	}
	return protocol.SuccessResponse("Paciente eliminado exitosamente", nil)
}

func (s *Service) listPatients(ctx context.Context) protocol.Envelope {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return fail("Error al listar pacientes", err)
	}
	list := make([]protocol.Data, 0, len(patients))
	for _, p := range patients {
		list = append(list, patientData(p))
	}
	return protocol.SuccessResponse("Pacientes obtenidos", protocol.Data{"pacientes": list})
}

// patientFromData decodes the shared add/update payload shape.
func patientFromData(data protocol.Data, errPrefix string) (model.Patient, *protocol.Envelope) {
	id, err := requireString(data, protocol.FieldPatientID)
	if err != nil {
		resp := fail(errPrefix, err)
		return model.Patient{}, &resp
	}
	name, err := requireString(data, protocol.FieldName)
	if err != nil {
		resp := fail(errPrefix, err)
		return model.Patient{}, &resp
	}

	p := model.Patient{
		ID:    id,
		Name:  name,
		Phone: data.String(protocol.FieldPhone),
	}
	if raw := data.String(protocol.FieldBirthDate); raw != "" {
		t, err := parseWireTime(raw)
		if err != nil {
			resp := protocol.ErrorResponse(errPrefix + ": fecha de nacimiento inválida")
			return model.Patient{}, &resp
		}
		p.BirthDate = t
	}
	return p, nil
}
