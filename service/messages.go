package service

import (
	"context"
	"fmt"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
	"farmanet/server"
)

// sendMessage stores a direct message and, when the recipient has a
// live session, pushes a NEW_MESSAGE notification to it. Delivery of
// the push is best-effort; the message is durable either way.
func (s *Service) sendMessage(ctx context.Context, data protocol.Data, sess server.SessionContext) protocol.Envelope {
	senderID, err := requireString(data, protocol.FieldSenderID)
	if err != nil {
		return fail("Error al enviar mensaje", err)
	}
	recipientID, err := requireString(data, protocol.FieldRecipientID)
	if err != nil {
		return fail("Error al enviar mensaje", err)
	}
	text, err := requireString(data, protocol.FieldText)
	if err != nil {
		return fail("Error al enviar mensaje", err)
	}

	m := model.Message{
		SenderID:      senderID,
		SenderName:    data.String(protocol.FieldSenderName),
		RecipientID:   recipientID,
		RecipientName: data.String(protocol.FieldRecipientName),
		Text:          text,
	}
	if err := s.store.AddMessage(ctx, &m); err != nil {
		return fail("Error al enviar mensaje", err)
	}

	delivered := sess.Server().SendToUser(recipientID,
		protocol.MessageNotification(m.SenderID, m.SenderName, m.RecipientID, m.Text))
	if !delivered {
		s.log.Debug("recipient %s offline, message %d queued", recipientID, m.ID)
	}

	return protocol.SuccessResponse("Mensaje enviado", protocol.Data{
		protocol.FieldMessageID: m.ID,
	})
}

// fetchMessages returns the unread inbox for a user.
func (s *Service) fetchMessages(ctx context.Context, data protocol.Data) protocol.Envelope {
	userID, err := requireString(data, protocol.FieldUserID)
	if err != nil {
		return fail("Error al recibir mensajes", err)
	}
	msgs, err := s.store.UnreadMessages(ctx, userID)
	if err != nil {
		return fail("Error al recibir mensajes", err)
	}
	list := make([]protocol.Data, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, messageData(m))
	}
	return protocol.SuccessResponse("Mensajes obtenidos", protocol.Data{"mensajes": list})
}

func (s *Service) markMessageRead(ctx context.Context, data protocol.Data) protocol.Envelope {
	if !data.Has(protocol.FieldMessageID) {
		return fail("Error al marcar mensaje", errors.MissingField(protocol.FieldMessageID))
	}
	id := int64(data.Int(protocol.FieldMessageID))
	if err := s.store.MarkMessageRead(ctx, id); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse(fmt.Sprintf("Mensaje no encontrado: %d", id))
		}
		return fail("Error al marcar mensaje", err)
	}
	return protocol.SuccessResponse("Mensaje marcado como leído", nil)
}

func (s *Service) countUnread(ctx context.Context, data protocol.Data) protocol.Envelope {
	userID, err := requireString(data, protocol.FieldUserID)
	if err != nil {
		return fail("Error al contar mensajes", err)
	}
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return fail("Error al contar mensajes", err)
	}
	return protocol.SuccessResponse("Mensajes contados", protocol.Data{"cantidad": n})
}
