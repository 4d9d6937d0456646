package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jose-valero/roster-bot/internal/domain"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
)

// Texto del DM cuando alguien es removido por no confirmar.
const evictionNotice = "Fuiste removido del equipo **%s** porque no confirmaste tu participación a tiempo."

// RosterEditor es lo que el scheduler necesita del roster. Lo implementa *RosterService.
type RosterEditor interface {
	Get(ctx context.Context, eventID string) (domain.Event, error)
	RemoveFromTeam(ctx context.Context, eventID, userID, teamName string) (bool, error)
}

type ConfirmationService struct {
	notes       NotificationRepo
	roster      RosterEditor
	msgr        Messenger
	timers      Timers
	log         *zap.Logger
	now         func() time.Time
	maxAttempts int
	fireTimeout time.Duration
	retryBase   time.Duration
	retryMax    time.Duration

	retryMu sync.Mutex
	retries map[string]int // reintentos de deadline en curso por notificación
}

type ConfirmationOption func(*ConfirmationService)

func WithConfirmationClock(now func() time.Time) ConfirmationOption {
	return func(s *ConfirmationService) { s.now = now }
}

// WithConfirmationRetry fija el backoff con el que se reintenta un deadline
// cuyos efectos fallaron: base, 2*base, 4*base... hasta max.
func WithConfirmationRetry(base, max time.Duration) ConfirmationOption {
	return func(s *ConfirmationService) {
		if base > 0 && max >= base {
			s.retryBase, s.retryMax = base, max
		}
	}
}

func WithConfirmationMaxAttempts(n int) ConfirmationOption {
	return func(s *ConfirmationService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewConfirmationService(notes NotificationRepo, editor RosterEditor, msgr Messenger, timers Timers, log *zap.Logger, opts ...ConfirmationOption) *ConfirmationService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ConfirmationService{
		notes:       notes,
		roster:      editor,
		msgr:        msgr,
		timers:      timers,
		log:         log.Named("confirm"),
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: defaultMaxAttempts,
		fireTimeout: 15 * time.Second,
		retryBase:   15 * time.Second,
		retryMax:    5 * time.Minute,
		retries:     map[string]int{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func sendKey(id string) string     { return "send:" + id }
func deadlineKey(id string) string { return "deadline:" + id }

type ScheduleRequest struct {
	EventID  string        `validate:"required"`
	UserID   string        `validate:"required"`
	TeamName string        `validate:"required"`
	SendTime time.Time     `validate:"-"`
	Window   time.Duration `validate:"gt=0"`
}

// Schedule persiste la notificación como pending y recién después arma los timers.
// Si ya hay una pendiente para (evento, usuario, equipo) se devuelve esa.
func (s *ConfirmationService) Schedule(ctx context.Context, req ScheduleRequest) (domain.Notification, error) {
	n, _, err := s.schedule(ctx, req)
	return n, err
}

func (s *ConfirmationService) schedule(ctx context.Context, req ScheduleRequest) (domain.Notification, bool, error) {
	if err := validateStruct(req); err != nil {
		return domain.Notification{}, false, err
	}
	if req.SendTime.IsZero() {
		return domain.Notification{}, false, fmt.Errorf("%w: send time is required", domain.ErrValidation)
	}

	ev, err := s.roster.Get(ctx, req.EventID)
	if err != nil {
		return domain.Notification{}, false, err
	}
	if ev.Locate(req.UserID).Team != req.TeamName {
		return domain.Notification{}, false, domain.ErrMemberNotFound
	}

	if p, ok, err := s.pendingFor(ctx, req); err != nil || ok {
		return p, false, err
	}

	send := req.SendTime.UTC()
	n := domain.Notification{
		NotificationID: uuid.NewString(),
		UserID:         req.UserID,
		TeamName:       req.TeamName,
		EventID:        req.EventID,
		SendTime:       send,
		EndTime:        send.Add(req.Window),
		Status:         domain.NotificationPending,
		CreatedAt:      s.now(),
		Version:        1,
	}
	err = s.notes.Create(ctx, n)
	if errors.Is(err, storage.ErrDuplicate) {
		// otro /notification la creó entre la lectura y el insert
		p, ok, lerr := s.pendingFor(ctx, req)
		if lerr != nil {
			return domain.Notification{}, false, lerr
		}
		if ok {
			return p, false, nil
		}
	}
	if err != nil {
		return domain.Notification{}, false, fmt.Errorf("create notification: %w", err)
	}
	s.arm(n)
	s.log.Info("notification scheduled",
		zap.String("notification_id", n.NotificationID),
		zap.String("event_id", n.EventID),
		zap.String("user_id", n.UserID),
		zap.Time("send_time", n.SendTime),
		zap.Time("end_time", n.EndTime))
	return n, true, nil
}

// pendingFor busca la pendiente de (evento, usuario, equipo), si la hay.
func (s *ConfirmationService) pendingFor(ctx context.Context, req ScheduleRequest) (domain.Notification, bool, error) {
	pending, err := s.notes.ListPendingByEvent(ctx, req.EventID)
	if err != nil {
		return domain.Notification{}, false, fmt.Errorf("list pending: %w", err)
	}
	for _, p := range pending {
		if p.UserID == req.UserID && p.TeamName == req.TeamName {
			return p, true, nil
		}
	}
	return domain.Notification{}, false, nil
}

type ScheduleTeamsResult struct {
	Scheduled []domain.Notification
	Skipped   int
}

// ScheduleTeams agenda un desafío para cada miembro de los equipos nombrados.
func (s *ConfirmationService) ScheduleTeams(ctx context.Context, eventID string, teams []string, sendTime time.Time, window time.Duration) (ScheduleTeamsResult, error) {
	ev, err := s.roster.Get(ctx, eventID)
	if err != nil {
		return ScheduleTeamsResult{}, err
	}

	var reqs []ScheduleRequest
	for _, name := range teams {
		i := ev.TeamIndex(name)
		if i < 0 {
			return ScheduleTeamsResult{}, fmt.Errorf("%w: %s", domain.ErrTeamNotFound, name)
		}
		for _, m := range ev.Teams[i].Members {
			reqs = append(reqs, ScheduleRequest{
				EventID:  eventID,
				UserID:   m.UserID,
				TeamName: ev.Teams[i].Name,
				SendTime: sendTime,
				Window:   window,
			})
		}
	}

	var (
		mu  sync.Mutex
		out ScheduleTeamsResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, r := range reqs {
		g.Go(func() error {
			n, created, err := s.schedule(gctx, r)
			if errors.Is(err, domain.ErrMemberNotFound) {
				// se fue del equipo entre el Get y ahora
				mu.Lock()
				out.Skipped++
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if created {
				out.Scheduled = append(out.Scheduled, n)
			} else {
				out.Skipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *ConfirmationService) Get(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.notes.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Notification{}, domain.ErrNotificationNotFound
	}
	return n, err
}

// Confirm: pending -> confirmed. Solo suprime la expulsión. El deadline es
// duro: si ya pasó y el timer todavía no corrió, se expira acá mismo.
func (s *ConfirmationService) Confirm(ctx context.Context, id string) (domain.Notification, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.Notification{}, err
	}
	if cur.Pending() && cur.Elapsed(s.now()) {
		if _, err := s.OnDeadline(ctx, id); err != nil {
			return cur, err
		}
		late, err := s.Get(ctx, id)
		if err != nil {
			return cur, err
		}
		return late, domain.ErrAlreadyResolved
	}

	n, err := s.transition(ctx, id, domain.NotificationConfirmed, true)
	if err != nil {
		return n, err
	}
	s.disarm(id)
	s.log.Info("notification confirmed", zap.String("notification_id", id), zap.String("user_id", n.UserID))
	return n, nil
}

// CancelByUser: el usuario declina. pending -> cancelled y sale del equipo, sin DM.
func (s *ConfirmationService) CancelByUser(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.transition(ctx, id, domain.NotificationCancelled, false)
	if err != nil {
		return n, err
	}
	s.disarm(id)
	s.log.Info("notification declined", zap.String("notification_id", id), zap.String("user_id", n.UserID))
	if err := s.settle(ctx, n); err != nil {
		s.retryLater(id, err)
		return n, err
	}
	return n, nil
}

// OnDeadline expira la notificación si sigue pendiente. fired=false si ya estaba
// resuelta. Un terminal sin asentar se asienta acá. Si algo falla el deadline
// se vuelve a armar con backoff: la expulsión se demora pero no se pierde.
func (s *ConfirmationService) OnDeadline(ctx context.Context, id string) (bool, error) {
	n, err := s.transition(ctx, id, domain.NotificationExpired, false)
	switch {
	case errors.Is(err, domain.ErrAlreadyResolved):
		if n.Settled() {
			s.log.Debug("deadline on resolved notification", zap.String("notification_id", id))
			s.forgetRetry(id)
			return false, nil
		}
		if err := s.settle(ctx, n); err != nil {
			s.retryLater(id, err)
			return false, err
		}
		s.disarm(id)
		s.log.Info("notification settled late", zap.String("notification_id", id), zap.String("status", string(n.Status)))
		return false, nil
	case errors.Is(err, domain.ErrNotificationNotFound):
		s.forgetRetry(id)
		return false, err
	case err != nil:
		s.retryLater(id, err)
		return false, err
	}

	s.disarm(id)
	s.log.Info("notification expired", zap.String("notification_id", id), zap.String("user_id", n.UserID))
	if err := s.settle(ctx, n); err != nil {
		s.retryLater(id, err)
		return true, err
	}
	return true, nil
}

// Deliver presenta el desafío al usuario y guarda la referencia del mensaje.
func (s *ConfirmationService) Deliver(ctx context.Context, id string) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !n.Pending() || n.ChallengeSent() {
		return nil
	}
	ref, err := s.msgr.PresentChallenge(ctx, n)
	if err != nil {
		s.log.Warn("present challenge", zap.String("notification_id", id), zap.Error(err))
		return nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Pending() {
			// se resolvió mientras mandábamos el DM
			s.retract(ctx, ref)
			return nil
		}
		cur.MessageRef = ref
		_, err = s.notes.Save(ctx, cur, cur.Version)
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("save message ref: %w", err)
		}
		return nil
	}
	return domain.ErrTooManyConflicts
}

// WithdrawForUser cancela las pendientes de userID en el evento sin tocar el roster.
func (s *ConfirmationService) WithdrawForUser(ctx context.Context, eventID, userID string) (int, error) {
	return s.withdrawWhere(ctx, eventID, func(n domain.Notification) bool { return n.UserID == userID })
}

// CancelForEvent cancela todas las pendientes del evento. Se llama antes de borrarlo.
func (s *ConfirmationService) CancelForEvent(ctx context.Context, eventID string) (int, error) {
	return s.withdrawWhere(ctx, eventID, func(domain.Notification) bool { return true })
}

func (s *ConfirmationService) withdrawWhere(ctx context.Context, eventID string, match func(domain.Notification) bool) (int, error) {
	pending, err := s.notes.ListPendingByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	count := 0
	for _, p := range pending {
		if !match(p) {
			continue
		}
		n, err := s.transition(ctx, p.NotificationID, domain.NotificationCancelled, true)
		if errors.Is(err, domain.ErrAlreadyResolved) {
			continue
		}
		if err != nil {
			return count, err
		}
		s.disarm(n.NotificationID)
		s.retract(ctx, n.MessageRef)
		count++
	}
	return count, nil
}

// transition hace el flip terminal con CAS. Si la versión cambió se relee y se
// vuelve a chequear que siga pending. settled=true cuando el estado no tiene
// efectos sobre el roster que aplicar después.
func (s *ConfirmationService) transition(ctx context.Context, id string, to domain.NotificationStatus, settled bool) (domain.Notification, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		n, err := s.Get(ctx, id)
		if err != nil {
			return domain.Notification{}, err
		}
		if !n.Pending() {
			return n, domain.ErrAlreadyResolved
		}
		now := s.now()
		next := n
		next.Status = to
		next.ResolvedAt = &now
		if settled {
			next.SettledAt = &now
		}
		v, err := s.notes.Save(ctx, next, n.Version)
		if errors.Is(err, storage.ErrConflict) {
			s.log.Debug("notification cas conflict", zap.String("notification_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return n, fmt.Errorf("save notification: %w", err)
		}
		next.Version = v
		return next, nil
	}
	return domain.Notification{}, domain.ErrTooManyConflicts
}

// settle aplica los efectos de un estado terminal y lo marca como asentado.
// Si algo falla queda sin settled_at; el deadline re-armado (o Recover) lo reintenta.
func (s *ConfirmationService) settle(ctx context.Context, n domain.Notification) error {
	if n.Settled() {
		return nil
	}
	switch n.Status {
	case domain.NotificationExpired, domain.NotificationCancelled:
		removed, err := s.roster.RemoveFromTeam(ctx, n.EventID, n.UserID, n.TeamName)
		if errors.Is(err, domain.ErrEventNotFound) {
			removed, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("remove from team: %w", err)
		}
		s.retract(ctx, n.MessageRef)
		if n.Status == domain.NotificationExpired && removed {
			if err := s.msgr.NotifyUser(ctx, n.UserID, fmt.Sprintf(evictionNotice, n.TeamName)); err != nil {
				s.log.Warn("eviction notice", zap.String("user_id", n.UserID), zap.Error(err))
			}
		}
	}
	return s.markSettled(ctx, n.NotificationID)
}

func (s *ConfirmationService) markSettled(ctx context.Context, id string) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		n, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if n.Settled() {
			return nil
		}
		now := s.now()
		n.SettledAt = &now
		_, err = s.notes.Save(ctx, n, n.Version)
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("mark settled: %w", err)
		}
		return nil
	}
	return domain.ErrTooManyConflicts
}

func (s *ConfirmationService) retract(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.msgr.RetractChallenge(ctx, ref); err != nil {
		s.log.Warn("retract challenge", zap.String("ref", ref), zap.Error(err))
	}
}

// arm registra el deadline y, si el desafío no salió, el envío.
func (s *ConfirmationService) arm(n domain.Notification) {
	id := n.NotificationID
	s.armDeadline(id, n.EndTime)
	if !n.ChallengeSent() {
		s.timers.ArmAt(sendKey(id), n.SendTime, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.fireTimeout)
			defer cancel()
			if err := s.Deliver(ctx, id); err != nil {
				s.log.Error("deliver", zap.String("notification_id", id), zap.Error(err))
			}
		})
	}
}

func (s *ConfirmationService) armDeadline(id string, at time.Time) {
	s.timers.ArmAt(deadlineKey(id), at, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.fireTimeout)
		defer cancel()
		if _, err := s.OnDeadline(ctx, id); err != nil {
			s.log.Error("deadline", zap.String("notification_id", id), zap.Error(err))
		}
	})
}

// retryLater vuelve a armar el deadline de id con backoff exponencial.
func (s *ConfirmationService) retryLater(id string, cause error) {
	s.retryMu.Lock()
	n := s.retries[id]
	s.retries[id] = n + 1
	s.retryMu.Unlock()

	delay := s.retryBase
	for i := 0; i < n && delay < s.retryMax; i++ {
		delay *= 2
	}
	delay = min(delay, s.retryMax)

	at := s.now().Add(delay)
	s.log.Warn("deadline retry scheduled",
		zap.String("notification_id", id),
		zap.Int("attempt", n+1),
		zap.Time("at", at),
		zap.Error(cause))
	s.armDeadline(id, at)
}

func (s *ConfirmationService) forgetRetry(id string) {
	s.retryMu.Lock()
	delete(s.retries, id)
	s.retryMu.Unlock()
}

func (s *ConfirmationService) disarm(id string) {
	s.timers.Cancel(deadlineKey(id))
	s.timers.Cancel(sendKey(id))
	s.forgetRetry(id)
}

// DeleteEvent cancela las notificaciones pendientes del evento y después lo borra.
func DeleteEvent(ctx context.Context, rs *RosterService, cs *ConfirmationService, eventID string) error {
	if _, err := rs.Get(ctx, eventID); err != nil {
		return err
	}
	n, err := cs.CancelForEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}
	if n > 0 {
		cs.log.Info("notifications cancelled before delete", zap.String("event_id", eventID), zap.Int("count", n))
	}
	return rs.remove(ctx, eventID)
}
