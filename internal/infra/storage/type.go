package storage

import "time"

type GuildSettings struct {
	GuildID              string
	EventChannelID       string
	Timezone             string // IANA, ej. Europe/Moscow
	DefaultWindowMinutes int
	CreatedAt, UpdatedAt time.Time
}

// PlayerProfile guarda el último id externo usado por un usuario para
// precargar el modal de registro.
type PlayerProfile struct {
	DiscordUserID string
	ExternalID    string
	DisplayName   string
	UpdatedAt     time.Time
}

type EventUI struct {
	EventID   string
	ChannelID string
	MessageID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
