package storage

import (
	"context"
	"database/sql"
)

// UIRepo guarda dónde está publicado el mensaje del roster de cada evento.
type UIRepo struct{ db *sql.DB }

func NewUIRepo(db *sql.DB) *UIRepo { return &UIRepo{db: db} }

func (r *UIRepo) Get(ctx context.Context, eventID string) (EventUI, error) {
	var u EventUI
	err := r.db.QueryRowContext(ctx, `
SELECT event_id, channel_id, message_id, created_at, updated_at
  FROM event_ui
 WHERE event_id = $1
`, eventID).Scan(&u.EventID, &u.ChannelID, &u.MessageID, &u.CreatedAt, &u.UpdatedAt)
	if missing(err) {
		return EventUI{}, ErrNotFound
	}
	return u, err
}

func (r *UIRepo) Upsert(ctx context.Context, eventID, channelID, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO event_ui (event_id, channel_id, message_id)
VALUES ($1,$2,$3)
ON CONFLICT (event_id) DO UPDATE SET
  channel_id = EXCLUDED.channel_id,
  message_id = EXCLUDED.message_id,
  updated_at = now()
`, eventID, channelID, messageID)
	return err
}

func (r *UIRepo) Delete(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM event_ui WHERE event_id = $1`, eventID)
	return err
}
