// Package roster aplica las reglas de capacidad, banco de suplentes y swaps
// sobre un snapshot de domain.Event. No hace I/O: cada operación devuelve un
// snapshot nuevo + el Change, y el caller persiste con CAS.
package roster

import (
	"fmt"

	"github.com/jose-valero/roster-bot/internal/domain"
)

type OutcomeKind string

const (
	Joined    OutcomeKind = "joined"
	Benched   OutcomeKind = "benched"
	Removed   OutcomeKind = "removed"
	Swapped   OutcomeKind = "swapped"
	Promoted  OutcomeKind = "promoted"
	Stopped   OutcomeKind = "stopped"
	Unchanged OutcomeKind = "unchanged"
)

// Move describe un cambio de lugar; From/To zero = fuera del roster.
type Move struct {
	UserID string
	From   domain.Placement
	To     domain.Placement
}

// Change es lo que cambió; lo consumen el embed y los avisos.
type Change struct {
	Kind  OutcomeKind
	Team  string
	Moves []Move
}

func (c Change) Mutated() bool { return c.Kind != Unchanged }

func (c Change) Removed() bool { return c.Kind == Removed }

func unchanged(ev domain.Event) (domain.Event, Change, error) {
	return ev, Change{Kind: Unchanged}, nil
}

// Register admite a m en team (o en el banco). team vacío = primer equipo con lugar.
func Register(ev domain.Event, m domain.Member, team string) (domain.Event, Change, error) {
	if !ev.Active() {
		return ev, Change{}, domain.ErrEventClosed
	}
	if m.UserID == "" {
		return ev, Change{}, fmt.Errorf("%w: empty user id", domain.ErrValidation)
	}
	if m.SlotWeight < 1 {
		m.SlotWeight = 1
	}
	if where := ev.Locate(m.UserID); where.Registered() {
		return ev, Change{}, &domain.AlreadyRegisteredError{Where: where}
	}

	out := ev.Clone()
	w := m.Weight()

	if team != "" {
		i := out.TeamIndex(team)
		if i < 0 {
			return ev, Change{}, domain.ErrTeamNotFound
		}
		free, limited := out.FreeSlots(out.Teams[i])
		switch {
		case !limited || w <= free:
			out.Teams[i].Members = append(out.Teams[i].Members, m)
			return out, joined(m.UserID, team), nil
		case free == 0:
			return bench(out, m)
		default:
			// entra algo pero no el bloque entero: se informa cuánto queda
			return ev, Change{}, &domain.TeamFullError{Team: team, FreeSlots: free}
		}
	}

	for i, t := range out.Teams {
		if out.Fits(t, w) {
			out.Teams[i].Members = append(out.Teams[i].Members, m)
			return out, joined(m.UserID, t.Name), nil
		}
	}
	return bench(out, m)
}

func joined(userID, team string) Change {
	return Change{
		Kind:  Joined,
		Team:  team,
		Moves: []Move{{UserID: userID, To: domain.Placement{Team: team}}},
	}
}

func bench(out domain.Event, m domain.Member) (domain.Event, Change, error) {
	out.Substitutes = append(out.Substitutes, m)
	return out, Change{
		Kind:  Benched,
		Moves: []Move{{UserID: m.UserID, To: domain.Placement{Bench: true}}},
	}, nil
}

// Cancel saca a userID de donde esté. Idempotente: Unchanged si no estaba.
func Cancel(ev domain.Event, userID string) (domain.Event, Change, error) {
	if !ev.Active() {
		return ev, Change{}, domain.ErrEventClosed
	}
	return remove(ev, userID)
}

// Evict es la baja administrativa: ignora el estado del evento.
func Evict(ev domain.Event, userID string) (domain.Event, Change, error) {
	return remove(ev, userID)
}

func remove(ev domain.Event, userID string) (domain.Event, Change, error) {
	where := ev.Locate(userID)
	if !where.Registered() {
		return unchanged(ev)
	}
	out := ev.Clone()
	if where.Bench {
		i := out.SubstituteIndex(userID)
		out.Substitutes = append(out.Substitutes[:i], out.Substitutes[i+1:]...)
	} else {
		ti := out.TeamIndex(where.Team)
		out.Teams[ti].Members = dropMember(out.Teams[ti].Members, userID)
	}
	return out, Change{
		Kind:  Removed,
		Team:  where.Team,
		Moves: []Move{{UserID: userID, From: where}},
	}, nil
}

// RemoveFromTeam es la baja del camino de expiración: sólo toca el equipo
// indicado, nunca el banco. Corre aunque el evento esté detenido.
func RemoveFromTeam(ev domain.Event, userID, teamName string) (domain.Event, Change, error) {
	ti := ev.TeamIndex(teamName)
	if ti < 0 {
		return unchanged(ev)
	}
	found := false
	for _, m := range ev.Teams[ti].Members {
		if m.UserID == userID {
			found = true
			break
		}
	}
	if !found {
		return unchanged(ev)
	}
	out := ev.Clone()
	out.Teams[ti].Members = dropMember(out.Teams[ti].Members, userID)
	return out, Change{
		Kind:  Removed,
		Team:  teamName,
		Moves: []Move{{UserID: userID, From: domain.Placement{Team: teamName}}},
	}, nil
}

func dropMember(in []domain.Member, userID string) []domain.Member {
	out := in[:0]
	for _, m := range in {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}
