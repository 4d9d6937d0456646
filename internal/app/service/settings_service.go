package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/domain"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
)

type SettingsService struct {
	repo     SettingsRepo
	fallback *time.Location
	log      *zap.Logger
}

func NewSettingsService(r SettingsRepo, fallback *time.Location, log *zap.Logger) *SettingsService {
	if fallback == nil {
		fallback = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsService{repo: r, fallback: fallback, log: log.Named("settings")}
}

type SettingsPatch struct {
	EventChannelID       *string
	Timezone             *string
	DefaultWindowMinutes *int
}

func (s *SettingsService) Get(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	return s.repo.Get(ctx, guildID)
}

// Location devuelve la zona horaria del guild; si no se puede cargar, la de fallback.
func (s *SettingsService) Location(ctx context.Context, guildID string) *time.Location {
	gs, err := s.repo.Get(ctx, guildID)
	if err != nil || gs.Timezone == "" {
		return s.fallback
	}
	loc, err := time.LoadLocation(gs.Timezone)
	if err != nil {
		s.log.Warn("bad stored timezone", zap.String("guild_id", guildID), zap.String("tz", gs.Timezone))
		return s.fallback
	}
	return loc
}

// DefaultWindow es la ventana de confirmación por defecto del guild.
func (s *SettingsService) DefaultWindow(ctx context.Context, guildID string) time.Duration {
	gs, err := s.repo.Get(ctx, guildID)
	if err != nil || gs.DefaultWindowMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(gs.DefaultWindowMinutes) * time.Minute
}

func (s *SettingsService) Show(ctx context.Context, guildID string) (string, error) {
	gs, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	channel := "sin definir"
	if gs.EventChannelID != "" {
		channel = "<#" + gs.EventChannelID + ">"
	}
	return fmt.Sprintf(
		"**Configuración de %s**\n• canal de eventos: %s\n• zona horaria: **%s**\n• ventana de confirmación: **%d min**",
		guildID, channel, gs.Timezone, gs.DefaultWindowMinutes,
	), nil
}

func (s *SettingsService) Update(ctx context.Context, guildID string, patch SettingsPatch) (string, error) {
	cur, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return "", err
	}

	if patch.EventChannelID != nil {
		cur.EventChannelID = strings.TrimSpace(*patch.EventChannelID)
	}
	if patch.Timezone != nil {
		tz := strings.TrimSpace(*patch.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return "", fmt.Errorf("%w: unknown timezone %q", domain.ErrValidation, tz)
		}
		cur.Timezone = tz
	}
	if patch.DefaultWindowMinutes != nil {
		if *patch.DefaultWindowMinutes < 1 || *patch.DefaultWindowMinutes > 7*24*60 {
			return "", fmt.Errorf("%w: window must be between 1 and %d minutes", domain.ErrValidation, 7*24*60)
		}
		cur.DefaultWindowMinutes = *patch.DefaultWindowMinutes
	}

	if err := s.repo.Upsert(ctx, cur); err != nil {
		return "", err
	}
	s.log.Info("settings updated", zap.String("guild_id", guildID))
	return s.Show(ctx, guildID)
}
