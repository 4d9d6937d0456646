package storage

import (
	"context"
	"database/sql"
	"errors"
)

type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Upsert por discord_user_id; el último registro pisa al anterior.
func (r *ProfileRepo) Upsert(ctx context.Context, p PlayerProfile) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO player_profiles (discord_user_id, external_id, display_name, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (discord_user_id) DO UPDATE SET
  external_id  = EXCLUDED.external_id,
  display_name = EXCLUDED.display_name,
  updated_at   = NOW()
`, p.DiscordUserID, p.ExternalID, p.DisplayName)
	return err
}

func (r *ProfileRepo) Get(ctx context.Context, discordID string) (PlayerProfile, error) {
	var p PlayerProfile
	err := r.db.QueryRowContext(ctx, `
SELECT discord_user_id, external_id, display_name, updated_at
  FROM player_profiles
 WHERE discord_user_id = $1
`, discordID).Scan(&p.DiscordUserID, &p.ExternalID, &p.DisplayName, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PlayerProfile{}, ErrNotFound
	}
	return p, err
}
