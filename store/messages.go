package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"farmanet/internal/errors"
	"farmanet/model"
)

type messageRow struct {
	bun.BaseModel `bun:"table:messages"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SenderID      string    `bun:"sender_id,notnull"`
	SenderName    string    `bun:"sender_name"`
	RecipientID   string    `bun:"recipient_id,notnull"`
	RecipientName string    `bun:"recipient_name"`
	Text          string    `bun:"text,notnull"`
	SentAt        time.Time `bun:"sent_at,notnull"`
	Read          bool      `bun:"read,notnull"`
}

func (r messageRow) toModel() model.Message {
	return model.Message{
		ID:            r.ID,
		SenderID:      r.SenderID,
		SenderName:    r.SenderName,
		RecipientID:   r.RecipientID,
		RecipientName: r.RecipientName,
		Text:          r.Text,
		SentAt:        r.SentAt,
		Read:          r.Read,
	}
}

// AddMessage stores a direct message and fills in the generated id and
// send time on the passed model.
func (s *Store) AddMessage(ctx context.Context, m *model.Message) error {
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	row := &messageRow{
		SenderID:      m.SenderID,
		SenderName:    m.SenderName,
		RecipientID:   m.RecipientID,
		RecipientName: m.RecipientName,
		Text:          m.Text,
		SentAt:        m.SentAt,
	}
	// bun inserts autoincrement PKs with RETURNING and scans the
	// generated id into the model; the driver does not support
	// LastInsertId.
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.WrapStore("insert", "message", err)
	}
	m.ID = row.ID
	return nil
}

// UnreadMessages returns a user's unread inbox, newest first.
func (s *Store) UnreadMessages(ctx context.Context, recipientID string) ([]model.Message, error) {
	var rows []messageRow
	err := s.db.NewSelect().Model(&rows).
		Where("recipient_id = ?", recipientID).
		Where("read = ?", false).
		Order("sent_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WrapStore("select", "message", err)
	}
	out := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// MarkMessageRead flags one message as read.
func (s *Store) MarkMessageRead(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().Model((*messageRow)(nil)).
		Set("read = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WrapStore("update", "message", err)
	}
	return noneAffected(res, errors.ErrNotFound)
}

// CountUnread returns how many unread messages a user has.
func (s *Store) CountUnread(ctx context.Context, recipientID string) (int, error) {
	n, err := s.db.NewSelect().Model((*messageRow)(nil)).
		Where("recipient_id = ?", recipientID).
		Where("read = ?", false).
		Count(ctx)
	if err != nil {
		return 0, errors.WrapStore("select", "message", err)
	}
	return n, nil
}
