package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jose-valero/roster-bot/internal/domain"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
)

type memEvents struct {
	mu        sync.Mutex
	data      map[string]domain.Event
	saves     int
	conflicts int
	// interfere simula otro escritor: si devuelve true se bumpea la versión guardada.
	interfere func(cur *domain.Event) bool
}

func newMemEvents() *memEvents { return &memEvents{data: map[string]domain.Event{}} }

func (m *memEvents) Create(_ context.Context, ev domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[ev.EventID]; ok {
		return errors.New("duplicate event")
	}
	ev = ev.Clone()
	ev.Version = 1
	m.data[ev.EventID] = ev
	return nil
}

func (m *memEvents) Get(_ context.Context, id string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.data[id]
	if !ok {
		return domain.Event{}, storage.ErrNotFound
	}
	return ev.Clone(), nil
}

func (m *memEvents) Save(_ context.Context, ev domain.Event, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[ev.EventID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if m.interfere != nil && m.interfere(&cur) {
		cur.Version++
		m.data[cur.EventID] = cur
	}
	if cur.Version != expected {
		m.conflicts++
		return 0, storage.ErrConflict
	}
	ev = ev.Clone()
	ev.Version = expected + 1
	m.data[ev.EventID] = ev
	m.saves++
	return ev.Version, nil
}

func (m *memEvents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *memEvents) LatestActive(_ context.Context, guildID string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  domain.Event
		found bool
	)
	for _, ev := range m.data {
		if ev.GuildID != guildID || !ev.Active() {
			continue
		}
		if !found || ev.CreatedAt.After(best.CreatedAt) {
			best, found = ev, true
		}
	}
	if !found {
		return domain.Event{}, storage.ErrNotFound
	}
	return best.Clone(), nil
}

type memNotes struct {
	mu        sync.Mutex
	data      map[string]domain.Notification
	conflicts int
	// interfere simula otro escritor sobre la fila; puede cambiarla. Si
	// devuelve true se bumpea la versión guardada antes de comparar.
	interfere func(cur *domain.Notification) bool
	// beforeCreate corre sin el lock, justo antes del insert.
	beforeCreate func(n domain.Notification)
}

func newMemNotes() *memNotes { return &memNotes{data: map[string]domain.Notification{}} }

// Create respeta el índice único de pendientes por (evento, usuario, equipo).
func (m *memNotes) Create(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	hook := m.beforeCreate
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if n.Pending() {
		for _, cur := range m.data {
			if cur.Pending() && cur.EventID == n.EventID && cur.UserID == n.UserID && cur.TeamName == n.TeamName {
				return storage.ErrDuplicate
			}
		}
	}
	n.Version = 1
	m.data[n.NotificationID] = n
	return nil
}

func (m *memNotes) Get(_ context.Context, id string) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.data[id]
	if !ok {
		return domain.Notification{}, storage.ErrNotFound
	}
	return n, nil
}

func (m *memNotes) Save(_ context.Context, n domain.Notification, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[n.NotificationID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if m.interfere != nil && m.interfere(&cur) {
		cur.Version++
		m.data[cur.NotificationID] = cur
	}
	if cur.Version != expected {
		m.conflicts++
		return 0, storage.ErrConflict
	}
	n.Version = expected + 1
	m.data[n.NotificationID] = n
	return n.Version, nil
}

func (m *memNotes) filter(keep func(domain.Notification) bool) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.data {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotificationID < out[j].NotificationID })
	return out
}

func (m *memNotes) ListPending(_ context.Context, before *time.Time) ([]domain.Notification, error) {
	return m.filter(func(n domain.Notification) bool {
		return n.Pending() && (before == nil || !n.EndTime.After(*before))
	}), nil
}

func (m *memNotes) ListPendingByEvent(_ context.Context, eventID string) ([]domain.Notification, error) {
	return m.filter(func(n domain.Notification) bool { return n.Pending() && n.EventID == eventID }), nil
}

func (m *memNotes) ListUnsettled(context.Context) ([]domain.Notification, error) {
	return m.filter(func(n domain.Notification) bool { return !n.Pending() && !n.Settled() }), nil
}

type armed struct {
	at time.Time
	fn func()
}

type fakeTimers struct {
	mu     sync.Mutex
	timers map[string]armed
}

func newFakeTimers() *fakeTimers { return &fakeTimers{timers: map[string]armed{}} }

func (f *fakeTimers) ArmAt(key string, at time.Time, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timers[key] = armed{at: at, fn: fn}
}

func (f *fakeTimers) Cancel(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.timers, key)
}

func (f *fakeTimers) Armed(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.timers[key]
	return ok
}

// at devuelve para cuándo está armado key (cero si no lo está).
func (f *fakeTimers) at(key string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[key].at
}

// Fire dispara key como lo haría el reloj. false si no estaba armado.
func (f *fakeTimers) Fire(key string) bool {
	f.mu.Lock()
	t, ok := f.timers[key]
	delete(f.timers, key)
	f.mu.Unlock()
	if ok {
		t.fn()
	}
	return ok
}

type fakeMessenger struct {
	mu         sync.Mutex
	presented  []string
	retracted  []string
	notices    map[string][]string
	presentErr error
	// afterPresent corre sin el lock, con el DM ya "enviado".
	afterPresent func(n domain.Notification)
}

func newFakeMessenger() *fakeMessenger { return &fakeMessenger{notices: map[string][]string{}} }

func (f *fakeMessenger) PresentChallenge(_ context.Context, n domain.Notification) (string, error) {
	f.mu.Lock()
	if f.presentErr != nil {
		f.mu.Unlock()
		return "", f.presentErr
	}
	f.presented = append(f.presented, n.NotificationID)
	hook := f.afterPresent
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return "dm:" + n.NotificationID, nil
}

func (f *fakeMessenger) wasRetracted(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.retracted {
		if r == ref {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) RetractChallenge(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retracted = append(f.retracted, ref)
	return nil
}

func (f *fakeMessenger) NotifyUser(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices[userID] = append(f.notices[userID], text)
	return nil
}

func (f *fakeMessenger) noticeCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices[userID])
}

type fakeRenderer struct {
	mu      sync.Mutex
	renders int
	removed []string
}

func (f *fakeRenderer) RenderRoster(context.Context, domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
}

func (f *fakeRenderer) RemoveRoster(_ context.Context, eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, eventID)
}

// fakeResolver: "bad-*" es input inválido, "down-*" simula la API caída.
type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, raw string) (Identity, error) {
	switch {
	case len(raw) >= 4 && raw[:4] == "bad-":
		return Identity{}, fmt.Errorf("%w: %s", domain.ErrInvalidIdentity, raw)
	case len(raw) >= 5 && raw[:5] == "down-":
		return Identity{}, errors.New("steam unavailable")
	}
	return Identity{CanonicalID: raw, DisplayName: "nick-" + raw}, nil
}

type memProfiles struct {
	mu   sync.Mutex
	data map[string]storage.PlayerProfile
}

func (m *memProfiles) Get(_ context.Context, id string) (storage.PlayerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[id]
	if !ok {
		return storage.PlayerProfile{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p storage.PlayerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p.DiscordUserID] = p
	return nil
}

type memSettings struct {
	data map[string]storage.GuildSettings
}

func (m *memSettings) Get(_ context.Context, guildID string) (storage.GuildSettings, error) {
	s, ok := m.data[guildID]
	if !ok {
		s = storage.GuildSettings{GuildID: guildID, Timezone: "UTC", DefaultWindowMinutes: 60}
		m.data[guildID] = s
	}
	return s, nil
}

func (m *memSettings) Upsert(_ context.Context, s storage.GuildSettings) error {
	m.data[s.GuildID] = s
	return nil
}
