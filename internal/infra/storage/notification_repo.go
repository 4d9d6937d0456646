package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/jose-valero/roster-bot/internal/domain"
)

type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationCols = `notification_id, event_id, user_id, team_name, send_time, end_time, status,
       message_ref, resolved_at, settled_at, version, created_at`

func scanNotification(row rowScanner) (domain.Notification, error) {
	var (
		n      domain.Notification
		status string
	)
	err := row.Scan(&n.NotificationID, &n.EventID, &n.UserID, &n.TeamName, &n.SendTime, &n.EndTime, &status,
		&n.MessageRef, &n.ResolvedAt, &n.SettledAt, &n.Version, &n.CreatedAt)
	if missing(err) {
		return domain.Notification{}, ErrNotFound
	}
	n.Status = domain.NotificationStatus(status)
	n.SendTime = n.SendTime.UTC()
	n.EndTime = n.EndTime.UTC()
	return n, err
}

func (r *NotificationRepo) list(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) Create(ctx context.Context, n domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications
  (notification_id, event_id, user_id, team_name, send_time, end_time, status, message_ref, version, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1,$9)
`, n.NotificationID, n.EventID, n.UserID, n.TeamName, n.SendTime, n.EndTime, string(n.Status), n.MessageRef, n.CreatedAt)
	if isPgCode(err, pgUniqueViolation) {
		// ya hay una pendiente para (evento, usuario, equipo)
		return ErrDuplicate
	}
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, id string) (domain.Notification, error) {
	return scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE notification_id = $1`, id))
}

// Save es CAS sobre version, igual que EventRepo.Save.
func (r *NotificationRepo) Save(ctx context.Context, n domain.Notification, expectedVersion int64) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `
UPDATE notifications
   SET status = $3,
       message_ref = $4,
       resolved_at = $5,
       settled_at = $6,
       version = version + 1
 WHERE notification_id = $1 AND version = $2
RETURNING version
`, n.NotificationID, expectedVersion, string(n.Status), n.MessageRef, n.ResolvedAt, n.SettledAt).Scan(&v)
	if missing(err) {
		return 0, casMiss(ctx, r.db, "notifications", "notification_id", n.NotificationID)
	}
	return v, err
}

func (r *NotificationRepo) ListPending(ctx context.Context, before *time.Time) ([]domain.Notification, error) {
	if before == nil {
		return r.list(ctx, `
SELECT `+notificationCols+`
  FROM notifications
 WHERE status = 'pending'
 ORDER BY end_time ASC
`)
	}
	return r.list(ctx, `
SELECT `+notificationCols+`
  FROM notifications
 WHERE status = 'pending' AND end_time <= $1
 ORDER BY end_time ASC
`, *before)
}

func (r *NotificationRepo) ListPendingByEvent(ctx context.Context, eventID string) ([]domain.Notification, error) {
	return r.list(ctx, `
SELECT `+notificationCols+`
  FROM notifications
 WHERE event_id = $1 AND status = 'pending'
 ORDER BY created_at ASC
`, eventID)
}

// ListUnsettled: terminales cuyos efectos sobre el roster no se terminaron de aplicar.
func (r *NotificationRepo) ListUnsettled(ctx context.Context) ([]domain.Notification, error) {
	return r.list(ctx, `
SELECT `+notificationCols+`
  FROM notifications
 WHERE status = ANY($1) AND settled_at IS NULL
 ORDER BY resolved_at ASC
`, pq.Array(terminalStatuses()))
}

func terminalStatuses() []string {
	return []string{
		string(domain.NotificationConfirmed),
		string(domain.NotificationExpired),
		string(domain.NotificationCancelled),
	}
}
