// Package protocol defines the wire format shared with the desktop
// clients: one JSON envelope per newline-terminated UTF-8 line,
// discriminated by its type field.
//
// There is no length prefix and no request-id correlation. Requests and
// responses alternate per connection in the common case, but a
// NOTIFICATION pushed by another session's activity may arrive on a
// connection at any time, so clients must dispatch incoming lines by
// type rather than assuming strict request/response ordering.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope kinds.
const (
	TypeRequest      = "REQUEST"
	TypeResponse     = "RESPONSE"
	TypeNotification = "NOTIFICATION"
)

// Response statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// TimeFormat is how timestamps travel inside data payloads.
const TimeFormat = "2006-01-02 15:04:05"

// Request actions.
const (
	// Authentication
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionChangePassword = "CAMBIAR_CLAVE"

	// Prescriptions
	ActionCreatePrescription       = "CREAR_RECETA"
	ActionFindPrescription         = "BUSCAR_RECETA"
	ActionListPrescriptions        = "LISTAR_RECETAS"
	ActionListPrescriptionsByState = "LISTAR_RECETAS_ESTADO"

	// Dispatch workflow
	ActionStartDispatch       = "INICIAR_DESPACHO"
	ActionMarkReady           = "MARCAR_LISTA"
	ActionDeliverPrescription = "ENTREGAR_RECETA"

	// Directory listings
	ActionListDoctors     = "LISTAR_MEDICOS"
	ActionListPharmacists = "LISTAR_FARMACEUTAS"
	ActionListPatients    = "LISTAR_PACIENTES"
	ActionListMedications = "LISTAR_MEDICAMENTOS"

	// Medication catalog
	ActionAddMedication    = "AGREGAR_MEDICAMENTO"
	ActionUpdateMedication = "ACTUALIZAR_MEDICAMENTO"
	ActionRemoveMedication = "ELIMINAR_MEDICAMENTO"
	ActionFindMedication   = "BUSCAR_MEDICAMENTO"

	// Patients
	ActionAddPatient    = "AGREGAR_PACIENTE"
	ActionUpdatePatient = "ACTUALIZAR_PACIENTE"
	ActionFindPatient   = "BUSCAR_PACIENTE"
	ActionRemovePatient = "ELIMINAR_PACIENTE"

	// Users
	ActionListUsers       = "LISTAR_USUARIOS"
	ActionAddUser         = "AGREGAR_USUARIO"
	ActionRemoveUser      = "ELIMINAR_USUARIO"
	ActionListActiveUsers = "LISTAR_USUARIOS_ACTIVOS"

	// Messaging
	ActionSendMessage        = "ENVIAR_MENSAJE"
	ActionFetchMessages      = "RECIBIR_MENSAJES"
	ActionMarkMessageRead    = "MARCAR_MENSAJE_LEIDO"
	ActionCountUnreadMessage = "CONTAR_MENSAJES_NO_LEIDOS"
)

// Notification actions.
const (
	NotifyUserLogin  = "USER_LOGIN"
	NotifyUserLogout = "USER_LOGOUT"
	NotifyNewMessage = "NEW_MESSAGE"
)

// Data payload field names. The vocabulary predates this server and is
// shared with the deployed clients, so the Spanish names stay.
const (
	FieldUserID        = "usuarioId"
	FieldPassword      = "clave"
	FieldName          = "nombre"
	FieldRole          = "rol"
	FieldSpecialty     = "especialidad"
	FieldPatientID     = "pacienteId"
	FieldPhone         = "telefono"
	FieldBirthDate     = "fechaNacimiento"
	FieldMedCode       = "codigo"
	FieldPresentation  = "presentacion"
	FieldRxID          = "recetaId"
	FieldIssuedAt      = "fechaConfeccion"
	FieldPickupAt      = "fechaRetiro"
	FieldState         = "estado"
	FieldDoctorID      = "medicoId"
	FieldItems         = "detalles"
	FieldQuantity      = "cantidad"
	FieldDirections    = "indicaciones"
	FieldDurationDays  = "duracionDias"
	FieldSenderID      = "remitenteId"
	FieldSenderName    = "remitenteNombre"
	FieldRecipientID   = "destinatarioId"
	FieldRecipientName = "destinatarioNombre"
	FieldText          = "texto"
	FieldMessageID     = "mensajeId"
)

// Prescription states, lowercase on the wire.
const (
	StateIssued    = "confeccionada"
	StateInProcess = "proceso"
	StateReady     = "lista"
	StateDelivered = "entregada"
)

// Data is the nested key→value payload of an envelope. It may be empty
// but is always present on the wire.
type Data map[string]any

// String returns the string value under key, or "" when absent or not
// a string.
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int returns the integer value under key. JSON numbers decode as
// float64, so both forms are accepted.
func (d Data) Int(key string) int {
	switch v := d[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Has reports whether key is present in the payload.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Envelope is one self-describing wire unit.
type Envelope struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Data    Data   `json:"data"`
}

// Decode parses one wire line into an Envelope.
func Decode(line []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(line, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	if e.Data == nil {
		e.Data = Data{}
	}
	return e, nil
}

// Encode renders the envelope as a single wire line, without the
// trailing newline. The data object is always emitted, even when empty.
func (e Envelope) Encode() string {
	if e.Data == nil {
		e.Data = Data{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		// Only unmarshalable payload values can get here; surface it as
		// an error response rather than dropping the line silently.
		return ErrorResponse("error interno al codificar respuesta").Encode()
	}
	return string(b)
}

// NewRequest builds a request envelope.
func NewRequest(action string, data Data) Envelope {
	if data == nil {
		data = Data{}
	}
	return Envelope{Type: TypeRequest, Action: action, Data: data}
}

// SuccessResponse builds a SUCCESS response with an optional payload.
func SuccessResponse(message string, data Data) Envelope {
	if data == nil {
		data = Data{}
	}
	return Envelope{Type: TypeResponse, Status: StatusSuccess, Message: message, Data: data}
}

// ErrorResponse builds an ERROR response. The connection stays open;
// an error response never terminates a session.
func ErrorResponse(message string) Envelope {
	return Envelope{Type: TypeResponse, Status: StatusError, Message: message, Data: Data{}}
}
