package service

import (
	"context"
	"time"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
	"farmanet/server"
)

// login validates credentials, binds the user to the session, records
// the signed-in ledger row and announces the login to everyone else.
func (s *Service) login(ctx context.Context, data protocol.Data, sess server.SessionContext) protocol.Envelope {
	userID, err := requireString(data, protocol.FieldUserID)
	if err != nil {
		return fail("Error en login", err)
	}
	password, err := requireString(data, protocol.FieldPassword)
	if err != nil {
		return fail("Error en login", err)
	}

	user, err := s.store.ValidateLogin(ctx, userID, password)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidCredentials) {
			return protocol.ErrorResponse("Usuario o contraseña incorrectos")
		}
		return fail("Error en login", err)
	}

	if err := s.store.RegisterLogin(ctx, model.ActiveUser{
		UserID:   user.ID,
		Name:     user.Name,
		Role:     user.Role,
		LoginAt:  time.Now(),
		SourceIP: sess.RemoteHost(),
	}); err != nil {
		// The session still works without the ledger row; don't fail the
		// login over it.
		s.log.Warn("register login for %s: %v", user.ID, err)
	}

	sess.BindUser(user.ID)
	sess.Server().BroadcastExcept(protocol.LoginNotification(user.ID, user.Name, string(user.Role)), sess)

	return protocol.SuccessResponse("Login exitoso", userData(user))
}

// logout clears the ledger row and announces the logout. The connection
// stays open; the client may log in again on the same socket.
func (s *Service) logout(ctx context.Context, data protocol.Data, sess server.SessionContext) protocol.Envelope {
	userID := data.String(protocol.FieldUserID)
	if userID == "" {
		userID = sess.UserID()
	}
	if userID == "" {
		return protocol.ErrorResponse("Error en logout: falta el campo " + protocol.FieldUserID)
	}

	if err := s.store.RegisterLogout(ctx, userID); err != nil {
		s.log.Warn("register logout for %s: %v", userID, err)
	}
	sess.Server().BroadcastExcept(protocol.LogoutNotification(userID), sess)

	return protocol.SuccessResponse("Logout exitoso", nil)
}

// changePassword rehashes the credential for an existing account.
func (s *Service) changePassword(ctx context.Context, data protocol.Data) protocol.Envelope {
	userID, err := requireString(data, protocol.FieldUserID)
	if err != nil {
		return fail("Error al cambiar contraseña", err)
	}
	password, err := requireString(data, protocol.FieldPassword)
	if err != nil {
		return fail("Error al cambiar contraseña", err)
	}

	if err := s.store.UpdatePassword(ctx, userID, password); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Usuario no encontrado: " + userID)
		}
		return fail("Error al cambiar contraseña", err)
	}
	return protocol.SuccessResponse("Contraseña actualizada exitosamente", nil)
}
