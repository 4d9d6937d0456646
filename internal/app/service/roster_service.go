package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/app/roster"
	"github.com/jose-valero/roster-bot/internal/domain"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
)

// UnknownPlayer se usa cuando el lookup de identidad falla.
const UnknownPlayer = "Jugador desconocido"

const defaultMaxAttempts = 5

type RosterService struct {
	events      EventRepo
	identity    IdentityResolver
	profiles    ProfileRepo
	render      RosterRenderer
	log         *zap.Logger
	maxAttempts int
	now         func() time.Time
}

type RosterOption func(*RosterService)

func WithRosterMaxAttempts(n int) RosterOption {
	return func(s *RosterService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithRosterClock(now func() time.Time) RosterOption {
	return func(s *RosterService) { s.now = now }
}

func NewRosterService(events EventRepo, identity IdentityResolver, profiles ProfileRepo, render RosterRenderer, log *zap.Logger, opts ...RosterOption) *RosterService {
	if render == nil {
		render = nopRenderer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &RosterService{
		events:      events,
		identity:    identity,
		profiles:    profiles,
		render:      render,
		log:         log.Named("roster"),
		maxAttempts: defaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type nopRenderer struct{}

func (nopRenderer) RenderRoster(context.Context, domain.Event) {}
func (nopRenderer) RemoveRoster(context.Context, string)       {}

type CreateEventRequest struct {
	GuildID     string   `validate:"required"`
	ChannelID   string   `validate:"required"`
	CreatedBy   string   `validate:"required"`
	Title       string   `validate:"required,max=256"`
	Description string   `validate:"max=2000"`
	ImageURL    string   `validate:"omitempty,url"`
	Kind        string   `validate:"oneof=solo clan"`
	Teams       []string `validate:"min=1,max=25,unique,dive,required,max=50"`
	MaxPlayers  int      `validate:"min=0,max=50"` // 0 = ilimitado
}

func (s *RosterService) CreateEvent(ctx context.Context, req CreateEventRequest) (domain.Event, error) {
	for i := range req.Teams {
		req.Teams[i] = strings.TrimSpace(req.Teams[i])
	}
	if err := validateStruct(req); err != nil {
		return domain.Event{}, err
	}

	now := s.now()
	ev := domain.Event{
		EventID:     uuid.NewString(),
		GuildID:     req.GuildID,
		ChannelID:   req.ChannelID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Kind:        domain.EventKind(req.Kind),
		Status:      domain.EventActive,
		Teams:       make([]domain.Team, 0, len(req.Teams)),
		Substitutes: []domain.Member{},
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if req.MaxPlayers > 0 {
		limit := req.MaxPlayers
		ev.MaxPlayersPerTeam = &limit
	}
	for _, name := range req.Teams {
		ev.Teams = append(ev.Teams, domain.Team{Name: name, Members: []domain.Member{}})
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created", zap.String("event_id", ev.EventID), zap.Int("teams", len(ev.Teams)))
	s.render.RenderRoster(ctx, ev)
	return ev, nil
}

func (s *RosterService) Get(ctx context.Context, eventID string) (domain.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return domain.Event{}, domain.ErrEventNotFound
	}
	ev, err := s.events.Get(ctx, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, err
}

// Resolve devuelve eventID, o el evento activo más reciente del guild si viene vacío.
func (s *RosterService) Resolve(ctx context.Context, guildID, eventID string) (domain.Event, error) {
	if strings.TrimSpace(eventID) != "" {
		return s.Get(ctx, strings.TrimSpace(eventID))
	}
	ev, err := s.events.LatestActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, err
}

type RegisterRequest struct {
	EventID     string `validate:"required"`
	UserID      string `validate:"required"`
	Team        string `validate:"max=50"`
	ExternalRaw string `validate:"required,max=128"`
	SlotWeight  int    `validate:"min=1,max=50"`
	Attributes  map[string]string
}

type RegisterResult struct {
	Event  domain.Event
	Member domain.Member
	Change roster.Change
}

func (s *RosterService) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if err := validateStruct(req); err != nil {
		return RegisterResult{}, err
	}

	id, err := s.identity.Resolve(ctx, req.ExternalRaw)
	switch {
	case errors.Is(err, domain.ErrInvalidIdentity):
		return RegisterResult{}, err
	case err != nil:
		// el colaborador falló: se registra igual con placeholder
		s.log.Warn("identity lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		id = Identity{CanonicalID: strings.TrimSpace(req.ExternalRaw), DisplayName: UnknownPlayer}
	}
	if id.DisplayName == "" {
		id.DisplayName = UnknownPlayer
	}

	m := domain.Member{
		UserID:      req.UserID,
		DisplayName: id.DisplayName,
		ExternalID:  id.CanonicalID,
		SlotWeight:  req.SlotWeight,
		Attributes:  req.Attributes,
	}
	ev, ch, err := s.mutate(ctx, req.EventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		if other, where, ok := cur.FindByExternalID(m.ExternalID); ok && other.UserID != m.UserID {
			return cur, roster.Change{}, &domain.AlreadyRegisteredError{Where: where}
		}
		return roster.Register(cur, m, req.Team)
	})
	if err != nil {
		return RegisterResult{}, err
	}

	if s.profiles != nil {
		if err := s.profiles.Upsert(ctx, storage.PlayerProfile{
			DiscordUserID: m.UserID,
			ExternalID:    m.ExternalID,
			DisplayName:   m.DisplayName,
		}); err != nil {
			s.log.Warn("profile upsert", zap.String("user_id", m.UserID), zap.Error(err))
		}
	}
	return RegisterResult{Event: ev, Member: m, Change: ch}, nil
}

// Cancel: baja voluntaria. removed=false si no estaba.
func (s *RosterService) Cancel(ctx context.Context, eventID, userID string) (bool, error) {
	_, ch, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		return roster.Cancel(cur, userID)
	})
	return ch.Removed(), err
}

func (s *RosterService) Swap(ctx context.Context, eventID, benchUserID, targetUserID string) (roster.Change, error) {
	_, ch, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		return roster.Swap(cur, benchUserID, targetUserID)
	})
	return ch, err
}

// SwapByExternalID resuelve ambos ids externos contra el snapshot fresco de cada intento.
func (s *RosterService) SwapByExternalID(ctx context.Context, eventID, benchExternalID, targetExternalID string) (roster.Change, error) {
	_, ch, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		sub, where, ok := cur.FindByExternalID(strings.TrimSpace(benchExternalID))
		if !ok || !where.Bench {
			return cur, roster.Change{}, domain.ErrSubstituteNotFound
		}
		target, where, ok := cur.FindByExternalID(strings.TrimSpace(targetExternalID))
		if !ok || where.Team == "" {
			return cur, roster.Change{}, domain.ErrTargetNotFound
		}
		return roster.Swap(cur, sub.UserID, target.UserID)
	})
	return ch, err
}

// JoinTeam es el swap join/overflow hacia un equipo nombrado.
func (s *RosterService) JoinTeam(ctx context.Context, eventID, benchExternalID, teamName string) (roster.Change, error) {
	_, ch, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		sub, where, ok := cur.FindByExternalID(strings.TrimSpace(benchExternalID))
		if !ok || !where.Bench {
			return cur, roster.Change{}, domain.ErrSubstituteNotFound
		}
		return roster.JoinTeam(cur, sub.UserID, strings.TrimSpace(teamName))
	})
	return ch, err
}

// RemoveFromTeam lo usa el camino de expiración/cancelación de notificaciones.
func (s *RosterService) RemoveFromTeam(ctx context.Context, eventID, userID, teamName string) (bool, error) {
	_, ch, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		return roster.RemoveFromTeam(cur, userID, teamName)
	})
	return ch.Removed(), err
}

// EvictByExternalID es la baja administrativa (/deluser).
func (s *RosterService) EvictByExternalID(ctx context.Context, eventID, externalID string) (domain.Member, roster.Change, error) {
	var evicted domain.Member
	_, ch, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		m, _, ok := cur.FindByExternalID(strings.TrimSpace(externalID))
		if !ok {
			return cur, roster.Change{}, domain.ErrMemberNotFound
		}
		evicted = m
		return roster.Evict(cur, m.UserID)
	})
	return evicted, ch, err
}

func (s *RosterService) Stop(ctx context.Context, eventID string) (domain.Event, error) {
	ev, _, err := s.mutate(ctx, eventID, func(cur domain.Event) (domain.Event, roster.Change, error) {
		return roster.Stop(cur)
	})
	if err == nil {
		s.log.Info("event stopped", zap.String("event_id", eventID))
	}
	return ev, err
}

// remove borra el documento. Usar DeleteEvent, que antes cancela las notificaciones pendientes.
func (s *RosterService) remove(ctx context.Context, eventID string) error {
	if err := s.events.Delete(ctx, eventID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.render.RemoveRoster(ctx, eventID)
	s.log.Info("event deleted", zap.String("event_id", eventID))
	return nil
}

// mutate corre fn sobre un snapshot fresco y persiste con CAS. Si otro
// escritor ganó, se relee y se vuelve a aplicar fn; nunca se reaplica a ciegas.
func (s *RosterService) mutate(ctx context.Context, eventID string, fn func(domain.Event) (domain.Event, roster.Change, error)) (domain.Event, roster.Change, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cur, err := s.Get(ctx, eventID)
		if err != nil {
			return domain.Event{}, roster.Change{}, err
		}
		next, ch, err := fn(cur)
		if err != nil {
			return cur, ch, err
		}
		if !ch.Mutated() {
			return cur, ch, nil
		}
		if err := roster.CheckInvariants(next); err != nil {
			return cur, ch, fmt.Errorf("roster invariant: %w", err)
		}
		next.UpdatedAt = s.now()

		v, err := s.events.Save(ctx, next, cur.Version)
		switch {
		case errors.Is(err, storage.ErrConflict):
			s.log.Debug("event cas conflict", zap.String("event_id", eventID), zap.Int("attempt", attempt))
			continue
		case errors.Is(err, storage.ErrNotFound):
			return domain.Event{}, roster.Change{}, domain.ErrEventNotFound
		case err != nil:
			return cur, ch, fmt.Errorf("save event: %w", err)
		}
		next.Version = v
		s.render.RenderRoster(ctx, next)
		return next, ch, nil
	}
	s.log.Warn("event cas retries exhausted", zap.String("event_id", eventID))
	return domain.Event{}, roster.Change{}, domain.ErrTooManyConflicts
}
