package roster

import (
	"fmt"

	"github.com/jose-valero/roster-bot/internal/domain"
)

// Stop pasa el evento a stopped. No hay vuelta atrás.
func Stop(ev domain.Event) (domain.Event, Change, error) {
	if !ev.Active() {
		return ev, Change{}, domain.ErrAlreadyStopped
	}
	out := ev.Clone()
	out.Status = domain.EventStopped
	return out, Change{Kind: Stopped}, nil
}

// CheckInvariants verifica que ningún usuario aparezca dos veces y que los
// equipos no excedan la capacidad.
func CheckInvariants(ev domain.Event) error {
	seen := map[string]string{}
	mark := func(userID, where string) error {
		if prev, ok := seen[userID]; ok {
			return fmt.Errorf("user %s appears in %s and %s", userID, prev, where)
		}
		seen[userID] = where
		return nil
	}
	names := map[string]struct{}{}
	for _, t := range ev.Teams {
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("duplicated team name %q", t.Name)
		}
		names[t.Name] = struct{}{}
		for _, m := range t.Members {
			if err := mark(m.UserID, "team "+t.Name); err != nil {
				return err
			}
		}
		if limit, ok := ev.Capacity(); ok && t.Occupancy() > limit {
			return fmt.Errorf("team %s over capacity: %d/%d", t.Name, t.Occupancy(), limit)
		}
	}
	for _, m := range ev.Substitutes {
		if err := mark(m.UserID, "bench"); err != nil {
			return err
		}
	}
	return nil
}
