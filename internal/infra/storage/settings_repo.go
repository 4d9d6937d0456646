package storage

import (
	"context"
	"database/sql"
	"errors"
)

type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get crea la fila con defaults si el guild todavía no tiene configuración.
func (r *SettingsRepo) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	var s GuildSettings
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, event_channel_id, timezone, default_window_minutes, created_at, updated_at
  FROM guild_settings
 WHERE guild_id = $1
`, guildID).Scan(
		&s.GuildID, &s.EventChannelID, &s.Timezone, &s.DefaultWindowMinutes, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// crea default
		_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings (guild_id) VALUES ($1)
ON CONFLICT (guild_id) DO NOTHING
`, guildID)
		if err != nil {
			return GuildSettings{}, err
		}
		return r.Get(ctx, guildID)
	}
	return s, err
}

func (r *SettingsRepo) Upsert(ctx context.Context, s GuildSettings) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings
  (guild_id, event_channel_id, timezone, default_window_minutes, created_at, updated_at)
VALUES
  ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (guild_id) DO UPDATE SET
  event_channel_id       = EXCLUDED.event_channel_id,
  timezone               = EXCLUDED.timezone,
  default_window_minutes = EXCLUDED.default_window_minutes,
  updated_at             = NOW()
`, s.GuildID, s.EventChannelID, s.Timezone, s.DefaultWindowMinutes)
	return err
}
