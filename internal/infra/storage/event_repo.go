package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jose-valero/roster-bot/internal/domain"
)

// rosterDoc es lo que va en la columna roster (JSONB).
type rosterDoc struct {
	Teams       []domain.Team   `json:"teams"`
	Substitutes []domain.Member `json:"substitutes"`
}

func encodeRoster(ev domain.Event) ([]byte, error) {
	doc := rosterDoc{Teams: ev.Teams, Substitutes: ev.Substitutes}
	if doc.Teams == nil {
		doc.Teams = []domain.Team{}
	}
	if doc.Substitutes == nil {
		doc.Substitutes = []domain.Member{}
	}
	return json.Marshal(doc)
}

func decodeRoster(raw []byte, ev *domain.Event) error {
	var doc rosterDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode roster: %w", err)
	}
	ev.Teams = doc.Teams
	ev.Substitutes = doc.Substitutes
	for i := range ev.Teams {
		if ev.Teams[i].Members == nil {
			ev.Teams[i].Members = []domain.Member{}
		}
	}
	if ev.Substitutes == nil {
		ev.Substitutes = []domain.Member{}
	}
	return nil
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventCols = `event_id, guild_id, channel_id, title, description, image_url, kind, status,
       max_players_per_team, roster, created_by, version, created_at, updated_at`

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		ev     domain.Event
		kind   string
		status string
		limit  sql.NullInt64
		raw    []byte
	)
	err := row.Scan(&ev.EventID, &ev.GuildID, &ev.ChannelID, &ev.Title, &ev.Description, &ev.ImageURL,
		&kind, &status, &limit, &raw, &ev.CreatedBy, &ev.Version, &ev.CreatedAt, &ev.UpdatedAt)
	if missing(err) {
		return domain.Event{}, ErrNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	ev.Kind = domain.EventKind(kind)
	ev.Status = domain.EventStatus(status)
	if limit.Valid {
		v := int(limit.Int64)
		ev.MaxPlayersPerTeam = &v
	}
	if err := decodeRoster(raw, &ev); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (r *EventRepo) Create(ctx context.Context, ev domain.Event) error {
	raw, err := encodeRoster(ev)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO events
  (event_id, guild_id, channel_id, title, description, image_url, kind, status,
   max_players_per_team, roster, created_by, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1,$12,$12)
`, ev.EventID, ev.GuildID, ev.ChannelID, ev.Title, ev.Description, ev.ImageURL,
		string(ev.Kind), string(ev.Status), ev.MaxPlayersPerTeam, raw, ev.CreatedBy, ev.CreatedAt)
	return err
}

func (r *EventRepo) Get(ctx context.Context, eventID string) (domain.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM events WHERE event_id = $1`, eventID))
}

// LatestActive: el evento activo más nuevo del guild.
func (r *EventRepo) LatestActive(ctx context.Context, guildID string) (domain.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `
SELECT `+eventCols+`
  FROM events
 WHERE guild_id = $1 AND status = 'active'
 ORDER BY created_at DESC
 LIMIT 1
`, guildID))
}

// Save escribe el snapshot solo si la versión guardada es expectedVersion.
// Devuelve la versión nueva.
func (r *EventRepo) Save(ctx context.Context, ev domain.Event, expectedVersion int64) (int64, error) {
	raw, err := encodeRoster(ev)
	if err != nil {
		return 0, err
	}
	var v int64
	err = r.db.QueryRowContext(ctx, `
UPDATE events
   SET title = $3,
       description = $4,
       image_url = $5,
       status = $6,
       max_players_per_team = $7,
       roster = $8,
       version = version + 1,
       updated_at = now()
 WHERE event_id = $1 AND version = $2
RETURNING version
`, ev.EventID, expectedVersion, ev.Title, ev.Description, ev.ImageURL, string(ev.Status),
		ev.MaxPlayersPerTeam, raw).Scan(&v)
	if missing(err) {
		return 0, casMiss(ctx, r.db, "events", "event_id", ev.EventID)
	}
	return v, err
}

func (r *EventRepo) Delete(ctx context.Context, eventID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, eventID)
	if isPgCode(err, pgInvalidText) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
