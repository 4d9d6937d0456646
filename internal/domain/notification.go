package domain

import "time"

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationConfirmed NotificationStatus = "confirmed"
	NotificationExpired   NotificationStatus = "expired"
	NotificationCancelled NotificationStatus = "cancelled"
)

// Notification es un desafío de confirmación con deadline duro.
// Todos los instantes se guardan en UTC.
type Notification struct {
	NotificationID string
	UserID         string
	TeamName       string
	EventID        string
	SendTime       time.Time
	EndTime        time.Time
	Status         NotificationStatus
	MessageRef     string // handle opaco del mensaje enviado (DM)
	ResolvedAt     *time.Time
	SettledAt      *time.Time
	CreatedAt      time.Time
	Version        int64
}

func (n Notification) Pending() bool { return n.Status == NotificationPending }

// Elapsed: el deadline ya pasó en now.
func (n Notification) Elapsed(now time.Time) bool { return !now.Before(n.EndTime) }

// Settled: el efecto sobre el roster y la limpieza del mensaje ya corrieron.
func (n Notification) Settled() bool { return n.SettledAt != nil }

// ChallengeSent: el DM ya se envió.
func (n Notification) ChallengeSent() bool { return n.MessageRef != "" }
