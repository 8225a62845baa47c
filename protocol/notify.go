package protocol

// Notification builders. These are pure constructors with no I/O and no
// shared state; they are safe to call from any goroutine.

// LoginNotification announces that a user signed in.
func LoginNotification(userID, name, role string) Envelope {
	return Notification(NotifyUserLogin, Data{
		FieldUserID: userID,
		FieldName:   name,
		FieldRole:   role,
	})
}

// LogoutNotification announces that a user signed out.
func LogoutNotification(userID string) Envelope {
	return Notification(NotifyUserLogout, Data{
		FieldUserID: userID,
	})
}

// MessageNotification announces a new direct message to its recipient.
func MessageNotification(senderID, senderName, recipientID, text string) Envelope {
	return Notification(NotifyNewMessage, Data{
		FieldSenderID:    senderID,
		FieldSenderName:  senderName,
		FieldRecipientID: recipientID,
		FieldText:        text,
	})
}

// Notification builds a notification envelope for any action.
func Notification(action string, data Data) Envelope {
	if data == nil {
		data = Data{}
	}
	return Envelope{Type: TypeNotification, Action: action, Data: data}
}
