package service

import (
	"farmanet/model"
	"farmanet/protocol"
)

// Wire encoders for the domain entities. Timestamps travel as formatted
// strings, never as raw JSON numbers.

func userData(u model.User) protocol.Data {
	d := protocol.Data{
		protocol.FieldUserID: u.ID,
		protocol.FieldName:   u.Name,
		protocol.FieldRole:   string(u.Role),
	}
	if u.Role == model.RoleDoctor {
		d[protocol.FieldSpecialty] = u.Specialty
	}
	return d
}

func patientData(p model.Patient) protocol.Data {
	return protocol.Data{
		protocol.FieldPatientID: p.ID,
		protocol.FieldName:      p.Name,
		protocol.FieldBirthDate: p.BirthDate.Format(protocol.TimeFormat),
		protocol.FieldPhone:     p.Phone,
	}
}

func medicationData(m model.Medication) protocol.Data {
	return protocol.Data{
		protocol.FieldMedCode:      m.Code,
		protocol.FieldName:         m.Name,
		protocol.FieldPresentation: m.Presentation,
	}
}

func prescriptionData(rx model.Prescription) protocol.Data {
	items := make([]protocol.Data, 0, len(rx.Items))
	for _, it := range rx.Items {
		items = append(items, protocol.Data{
			protocol.FieldMedCode:      it.Medication.Code,
			protocol.FieldName:         it.Medication.Name,
			protocol.FieldPresentation: it.Medication.Presentation,
			protocol.FieldQuantity:     it.Quantity,
			protocol.FieldDirections:   it.Directions,
			protocol.FieldDurationDays: it.DurationDays,
		})
	}
	return protocol.Data{
		protocol.FieldRxID:      rx.ID,
		protocol.FieldIssuedAt:  rx.IssuedAt.Format(protocol.TimeFormat),
		protocol.FieldPickupAt:  rx.PickupAt.Format(protocol.TimeFormat),
		protocol.FieldState:     rx.State,
		protocol.FieldDoctorID:  rx.DoctorID,
		protocol.FieldPatientID: rx.Patient.ID,
		"pacienteNombre":        rx.Patient.Name,
		protocol.FieldItems:     items,
	}
}

func messageData(m model.Message) protocol.Data {
	return protocol.Data{
		protocol.FieldMessageID:  m.ID,
		protocol.FieldSenderID:   m.SenderID,
		protocol.FieldSenderName: m.SenderName,
		protocol.FieldText:       m.Text,
		"fechaEnvio":             m.SentAt.Format(protocol.TimeFormat),
	}
}

func activeUserData(au model.ActiveUser) protocol.Data {
	return protocol.Data{
		protocol.FieldUserID: au.UserID,
		protocol.FieldName:   au.Name,
		protocol.FieldRole:   string(au.Role),
		"fechaLogin":         au.LoginAt.Format(protocol.TimeFormat),
		"direccionIp":        au.SourceIP,
	}
}
