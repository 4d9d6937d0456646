package service

import (
	"context"
	"time"

	"github.com/jose-valero/roster-bot/internal/domain"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.EventRepo
type EventRepo interface {
	Create(ctx context.Context, ev domain.Event) error
	Get(ctx context.Context, eventID string) (domain.Event, error)
	// Save es CAS: falla con storage.ErrConflict si la versión guardada != expectedVersion.
	Save(ctx context.Context, ev domain.Event, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, eventID string) error
	LatestActive(ctx context.Context, guildID string) (domain.Event, error)
}

// Lo implementa internal/infra/storage.NotificationRepo
type NotificationRepo interface {
	Create(ctx context.Context, n domain.Notification) error
	Get(ctx context.Context, id string) (domain.Notification, error)
	Save(ctx context.Context, n domain.Notification, expectedVersion int64) (int64, error)
	// ListPending: pendientes con end_time <= before (nil = todas).
	ListPending(ctx context.Context, before *time.Time) ([]domain.Notification, error)
	ListPendingByEvent(ctx context.Context, eventID string) ([]domain.Notification, error)
	ListUnsettled(ctx context.Context) ([]domain.Notification, error)
}

// Lo implementa internal/infra/storage.SettingsRepo
type SettingsRepo interface {
	Get(ctx context.Context, guildID string) (storage.GuildSettings, error)
	Upsert(ctx context.Context, s storage.GuildSettings) error
}

// Lo implementa internal/infra/storage.ProfileRepo
type ProfileRepo interface {
	Get(ctx context.Context, discordUserID string) (storage.PlayerProfile, error)
	Upsert(ctx context.Context, p storage.PlayerProfile) error
}

// Lo implementa internal/infra/timer.Registry. Un timer por key; fire-once.
type Timers interface {
	ArmAt(key string, at time.Time, fn func())
	Cancel(key string)
}

// Lo implementa internal/adapters/discord.Presenter. Todo best-effort.
type Messenger interface {
	PresentChallenge(ctx context.Context, n domain.Notification) (ref string, err error)
	RetractChallenge(ctx context.Context, ref string) error
	NotifyUser(ctx context.Context, userID, text string) error
}

// Lo implementa internal/adapters/discord.Presenter. Único lugar que sabe
// dibujar el roster (clan / solo / sin límite).
type RosterRenderer interface {
	RenderRoster(ctx context.Context, ev domain.Event)
	RemoveRoster(ctx context.Context, eventID string)
}

// Identity es el resultado de resolver un id externo crudo.
type Identity struct {
	CanonicalID string
	DisplayName string
}

// Lo implementa internal/adapters/steam.Client.
// domain.ErrInvalidIdentity = input inválido; cualquier otro error = fallo del colaborador.
type IdentityResolver interface {
	Resolve(ctx context.Context, raw string) (Identity, error)
}
