package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jose-valero/roster-bot/internal/domain"
)

type RecoveryReport struct {
	Settled int
	Expired int
	Rearmed int
	Resend  int

	// Retrying: fallaron ahora y quedaron con un deadline de reintento armado.
	Retrying int
}

// Recover reconstruye los timers después de un reinicio. Primero asienta los
// terminales que quedaron a medias, después vence las pendientes cuyo plazo ya
// pasó y re-arma las que siguen en el futuro. Lo que falla queda con un
// deadline de reintento. Se llama antes de aceptar interacciones.
func (s *ConfirmationService) Recover(ctx context.Context) (RecoveryReport, error) {
	var rep RecoveryReport

	unsettled, err := s.notes.ListUnsettled(ctx)
	if err != nil {
		return rep, fmt.Errorf("list unsettled: %w", err)
	}
	for _, n := range unsettled {
		if err := s.settle(ctx, n); err != nil {
			s.retryLater(n.NotificationID, err)
			rep.Retrying++
			continue
		}
		rep.Settled++
	}

	pending, err := s.notes.ListPending(ctx, nil)
	if err != nil {
		return rep, fmt.Errorf("list pending: %w", err)
	}

	now := s.now()
	var elapsed []domain.Notification
	for _, n := range pending {
		if n.Elapsed(now) {
			elapsed = append(elapsed, n)
			continue
		}
		if !n.ChallengeSent() {
			rep.Resend++
		}
		s.arm(n)
		rep.Rearmed++
	}

	var expired, retrying atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, n := range elapsed {
		g.Go(func() error {
			// OnDeadline ya re-arma el deadline si falla
			fired, err := s.OnDeadline(gctx, n.NotificationID)
			if err != nil {
				s.log.Warn("recover deadline", zap.String("notification_id", n.NotificationID), zap.Error(err))
				retrying.Add(1)
				return nil
			}
			if fired {
				expired.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	rep.Expired = int(expired.Load())
	rep.Retrying += int(retrying.Load())

	s.log.Info("recovery done",
		zap.Int("settled", rep.Settled),
		zap.Int("expired", rep.Expired),
		zap.Int("rearmed", rep.Rearmed),
		zap.Int("resend", rep.Resend),
		zap.Int("retrying", rep.Retrying))
	return rep, nil
}
