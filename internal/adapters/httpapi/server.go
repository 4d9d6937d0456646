// Package httpapi expone el estado de los eventos en solo lectura y el health check.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/domain"
)

type EventReader interface {
	Get(ctx context.Context, eventID string) (domain.Event, error)
}

// Pinger lo cumplen *sql.DB y cualquier dependencia con health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	events EventReader
	db     Pinger
	log    *zap.Logger
	router chi.Router
}

func New(events EventReader, db Pinger, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{events: events, db: db, log: log.Named("http")}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/events/{eventID}", s.handleEvent)
	s.router = r
}

func (s *Server) Handler() http.Handler { return s.router }

type teamView struct {
	Name      string          `json:"name"`
	Occupancy int             `json:"occupancy"`
	FreeSlots *int            `json:"freeSlots,omitempty"`
	Members   []domain.Member `json:"members"`
}

type eventView struct {
	domain.Event
	Teams []teamView `json:"teams"`
}

func toView(ev domain.Event) eventView {
	v := eventView{Event: ev, Teams: make([]teamView, 0, len(ev.Teams))}
	for _, t := range ev.Teams {
		tv := teamView{Name: t.Name, Occupancy: t.Occupancy(), Members: t.Members}
		if free, limited := ev.FreeSlots(t); limited {
			tv.FreeSlots = &free
		}
		v.Teams = append(v.Teams, tv)
	}
	return v
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	ev, err := s.events.Get(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	case err != nil:
		s.log.Error("get event", zap.String("event_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toView(ev))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start bloquea hasta que ctx se cancela y después hace shutdown ordenado.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
