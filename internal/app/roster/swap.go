package roster

import (
	"github.com/jose-valero/roster-bot/internal/domain"
)

// Swap intercambia un suplente con un titular: el suplente ocupa el lugar del
// target (misma posición) y el target pasa al final del banco.
func Swap(ev domain.Event, benchUserID, targetUserID string) (domain.Event, Change, error) {
	if !ev.Active() {
		return ev, Change{}, domain.ErrEventClosed
	}
	si := ev.SubstituteIndex(benchUserID)
	if si < 0 {
		return ev, Change{}, domain.ErrSubstituteNotFound
	}
	where := ev.Locate(targetUserID)
	if where.Team == "" {
		return ev, Change{}, domain.ErrTargetNotFound
	}

	out := ev.Clone()
	ti := out.TeamIndex(where.Team)
	team := &out.Teams[ti]
	sub := out.Substitutes[si]

	pos := -1
	for i, m := range team.Members {
		if m.UserID == targetUserID {
			pos = i
			break
		}
	}
	target := team.Members[pos]

	if limit, ok := out.Capacity(); ok {
		after := team.Occupancy() - target.Weight() + sub.Weight()
		if after > limit {
			return ev, Change{}, &domain.TeamFullError{Team: team.Name, FreeSlots: limit - team.Occupancy() + target.Weight()}
		}
	}

	team.Members[pos] = sub
	out.Substitutes = append(out.Substitutes[:si], out.Substitutes[si+1:]...)
	out.Substitutes = append(out.Substitutes, target)

	return out, Change{
		Kind: Swapped,
		Team: team.Name,
		Moves: []Move{
			{UserID: sub.UserID, From: domain.Placement{Bench: true}, To: domain.Placement{Team: team.Name}},
			{UserID: target.UserID, From: domain.Placement{Team: team.Name}, To: domain.Placement{Bench: true}},
		},
	}, nil
}

// JoinTeam es el modo join/overflow: el suplente pide un equipo, no un jugador.
// Si no entra, se bajan al banco los miembros más antiguos hasta que entre.
func JoinTeam(ev domain.Event, benchUserID, teamName string) (domain.Event, Change, error) {
	if !ev.Active() {
		return ev, Change{}, domain.ErrEventClosed
	}
	si := ev.SubstituteIndex(benchUserID)
	if si < 0 {
		return ev, Change{}, domain.ErrSubstituteNotFound
	}
	ti := ev.TeamIndex(teamName)
	if ti < 0 {
		return ev, Change{}, domain.ErrTeamNotFound
	}

	out := ev.Clone()
	sub := out.Substitutes[si]
	out.Substitutes = append(out.Substitutes[:si], out.Substitutes[si+1:]...)
	team := &out.Teams[ti]

	if limit, ok := out.Capacity(); ok && sub.Weight() > limit {
		return ev, Change{}, &domain.TeamFullError{Team: teamName, FreeSlots: limit}
	}

	moves := []Move{{UserID: sub.UserID, From: domain.Placement{Bench: true}, To: domain.Placement{Team: teamName}}}
	kind := Promoted
	for !out.Fits(*team, sub.Weight()) {
		oldest := team.Members[0]
		team.Members = team.Members[1:]
		out.Substitutes = append(out.Substitutes, oldest)
		moves = append(moves, Move{UserID: oldest.UserID, From: domain.Placement{Team: teamName}, To: domain.Placement{Bench: true}})
		kind = Swapped
	}
	team.Members = append(team.Members, sub)

	return out, Change{Kind: kind, Team: teamName, Moves: moves}, nil
}
