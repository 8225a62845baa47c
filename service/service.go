// Package service implements the request processor: the business layer
// that maps one decoded request envelope to a response envelope, using
// the store for persistence and the owning server for notification
// routing. It is the only caller of the store and never writes to a
// connection directly.
package service

import (
	"context"
	"fmt"

	"farmanet/internal/errors"
	"farmanet/protocol"
	"farmanet/server"
	"farmanet/store"
	"farmanet/util"
)

// Service holds the business handlers behind the wire protocol.
type Service struct {
	store *store.Store
	log   *util.Logger
}

// New returns a Service backed by the given store.
func New(st *store.Store, logger *util.Logger) *Service {
	return &Service{store: st, log: logger}
}

// Process implements server.Processor. It never returns an empty
// string: every request, valid or not, gets exactly one response line.
func (s *Service) Process(env protocol.Envelope, sess server.SessionContext) string {
	if env.Type != protocol.TypeRequest {
		return protocol.ErrorResponse("tipo de mensaje inválido").Encode()
	}
	return s.handle(context.Background(), env.Action, env.Data, sess).Encode()
}

func (s *Service) handle(ctx context.Context, action string, data protocol.Data, sess server.SessionContext) protocol.Envelope {
	switch action {
	// ── authentication ───────────────────────────────────────────
	case protocol.ActionLogin:
		return s.login(ctx, data, sess)
	case protocol.ActionLogout:
		return s.logout(ctx, data, sess)
	case protocol.ActionChangePassword:
		return s.changePassword(ctx, data)

	// ── prescriptions ────────────────────────────────────────────
	case protocol.ActionCreatePrescription:
		return s.createPrescription(ctx, data)
	case protocol.ActionFindPrescription:
		return s.findPrescription(ctx, data)
	case protocol.ActionListPrescriptions:
		return s.listPrescriptions(ctx)
	case protocol.ActionListPrescriptionsByState:
		return s.listPrescriptionsByState(ctx, data)

	// ── dispatch workflow ────────────────────────────────────────
	case protocol.ActionStartDispatch:
		return s.updateDispatchState(ctx, data, protocol.StateInProcess, "Despacho iniciado")
	case protocol.ActionMarkReady:
		return s.updateDispatchState(ctx, data, protocol.StateReady, "Receta marcada como lista")
	case protocol.ActionDeliverPrescription:
		return s.updateDispatchState(ctx, data, protocol.StateDelivered, "Receta entregada")

	// ── directory listings ───────────────────────────────────────
	case protocol.ActionListDoctors:
		return s.listDoctors(ctx)
	case protocol.ActionListPharmacists:
		return s.listPharmacists(ctx)
	case protocol.ActionListPatients:
		return s.listPatients(ctx)
	case protocol.ActionListMedications:
		return s.listMedications(ctx)

	// ── medication catalog ───────────────────────────────────────
	case protocol.ActionAddMedication:
		return s.addMedication(ctx, data)
	case protocol.ActionUpdateMedication:
		return s.updateMedication(ctx, data)
	case protocol.ActionRemoveMedication:
		return s.removeMedication(ctx, data)
	case protocol.ActionFindMedication:
		return s.findMedication(ctx, data)

	// ── patients ─────────────────────────────────────────────────
	case protocol.ActionAddPatient:
		return s.addPatient(ctx, data)
	case protocol.ActionUpdatePatient:
		return s.updatePatient(ctx, data)
	case protocol.ActionFindPatient:
		return s.findPatient(ctx, data)
	case protocol.ActionRemovePatient:
		return s.removePatient(ctx, data)

	// ── users ────────────────────────────────────────────────────
	case protocol.ActionListUsers:
		return s.listUsers(ctx)
	case protocol.ActionAddUser:
		return s.addUser(ctx, data)
	case protocol.ActionRemoveUser:
		return s.removeUser(ctx, data)
	case protocol.ActionListActiveUsers:
		return s.listActiveUsers(ctx)

	// ── messaging ────────────────────────────────────────────────
	case protocol.ActionSendMessage:
		return s.sendMessage(ctx, data, sess)
	case protocol.ActionFetchMessages:
		return s.fetchMessages(ctx, data)
	case protocol.ActionMarkMessageRead:
		return s.markMessageRead(ctx, data)
	case protocol.ActionCountUnreadMessage:
		return s.countUnread(ctx, data)
	}

	err := fmt.Errorf("%w: %s", errors.ErrUnknownAction, action)
	s.log.Verbose("request rejected: %v", err)
	return protocol.ErrorResponse("acción no reconocida: " + action)
}

// ── shared helpers ───────────────────────────────────────────────────

// requireString extracts a mandatory string field.
func requireString(data protocol.Data, field string) (string, error) {
	v := data.String(field)
	if v == "" {
		return "", errors.MissingField(field)
	}
	return v, nil
}

// fail builds an error response with the failing context prefixed, the
// same shape the business layer has always produced.
func fail(prefix string, err error) protocol.Envelope {
	return protocol.ErrorResponse(prefix + ": " + err.Error())
}
