package roster

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/roster-bot/internal/domain"
)

func newEvent(capacity int, teams ...string) domain.Event {
	ev := domain.Event{EventID: "ev-1", Status: domain.EventActive, Kind: domain.KindSolo}
	if capacity > 0 {
		ev.MaxPlayersPerTeam = &capacity
	}
	for _, t := range teams {
		ev.Teams = append(ev.Teams, domain.Team{Name: t})
	}
	return ev
}

func member(id string, weight int) domain.Member {
	return domain.Member{UserID: id, DisplayName: "nick-" + id, ExternalID: "7656" + id, SlotWeight: weight}
}

func TestRegister_AlphaScenario(t *testing.T) {
	ev := newEvent(2, "Alpha")

	ev, ch, err := Register(ev, member("u1", 1), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, Joined, ch.Kind)
	assert.Equal(t, 1, ev.Teams[0].Occupancy())

	_, _, err = Register(ev, member("u2", 2), "Alpha")
	var full *domain.TeamFullError
	require.True(t, errors.As(err, &full))
	assert.Equal(t, 1, full.FreeSlots)
	assert.ErrorIs(t, err, domain.ErrTeamFull)

	ev, ch, err = Register(ev, member("u2", 1), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, Joined, ch.Kind)
	assert.Equal(t, 2, ev.Teams[0].Occupancy())

	ev, ch, err = Register(ev, member("u3", 1), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, Benched, ch.Kind)
	assert.True(t, ev.Locate("u3").Bench)

	ev, ch, err = Swap(ev, "u3", "u1")
	require.NoError(t, err)
	assert.Equal(t, Swapped, ch.Kind)
	assert.True(t, ev.Locate("u1").Bench)
	assert.Equal(t, "Alpha", ev.Locate("u3").Team)
	assert.Equal(t, 2, ev.Teams[0].Occupancy())
	assert.Equal(t, "u3", ev.Teams[0].Members[0].UserID, "swap keeps the slot position")
	require.NoError(t, CheckInvariants(ev))
}

func TestRegister_Rejections(t *testing.T) {
	ev := newEvent(2, "Alpha", "Bravo")
	ev, _, err := Register(ev, member("u1", 1), "Alpha")
	require.NoError(t, err)

	tests := []struct {
		name string
		ev   domain.Event
		m    domain.Member
		team string
		want error
	}{
		{name: "duplicate in team", ev: ev, m: member("u1", 1), team: "Bravo", want: domain.ErrAlreadyRegistered},
		{name: "unknown team", ev: ev, m: member("u9", 1), team: "Zulu", want: domain.ErrTeamNotFound},
		{name: "stopped event", ev: func() domain.Event { e := ev.Clone(); e.Status = domain.EventStopped; return e }(), m: member("u9", 1), team: "Alpha", want: domain.ErrEventClosed},
		{name: "empty user", ev: ev, m: domain.Member{}, team: "Alpha", want: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Register(tt.ev, tt.m, tt.team)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_AlreadyOnBenchReportsPlacement(t *testing.T) {
	ev := newEvent(1, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha")

	_, _, err := Register(ev, member("u2", 1), "")
	var already *domain.AlreadyRegisteredError
	require.True(t, errors.As(err, &already))
	assert.True(t, already.Where.Bench)
}

func TestRegister_NoTeamPicksFirstWithRoom(t *testing.T) {
	ev := newEvent(2, "Alpha", "Bravo")
	ev, _, _ = Register(ev, member("u1", 2), "Alpha")

	ev, ch, err := Register(ev, member("u2", 2), "")
	require.NoError(t, err)
	assert.Equal(t, "Bravo", ch.Team)

	ev, ch, err = Register(ev, member("u3", 1), "")
	require.NoError(t, err)
	assert.Equal(t, Benched, ch.Kind)
	assert.Len(t, ev.Substitutes, 1)
}

func TestRegister_UnlimitedCapacity(t *testing.T) {
	ev := newEvent(0, "Alpha")
	for _, id := range []string{"a", "b", "c", "d"} {
		var err error
		ev, _, err = Register(ev, member(id, 5), "Alpha")
		require.NoError(t, err)
	}
	assert.Equal(t, 20, ev.Teams[0].Occupancy())
}

func TestRegister_DoesNotMutateInput(t *testing.T) {
	ev := newEvent(3, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")

	before := ev.Clone()
	_, _, err := Register(ev, member("u2", 1), "Alpha")
	require.NoError(t, err)
	assert.Equal(t, before, ev)
}

func TestRegisterThenCancel_OccupancyEquivalent(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha")
	ev, _, _ = Register(ev, member("u3", 1), "Alpha")

	for _, id := range []string{"u4", "u2"} {
		t.Run(id, func(t *testing.T) {
			base := ev
			if base.Locate(id).Registered() {
				var err error
				base, _, err = Cancel(base, id)
				require.NoError(t, err)
			}
			after, _, err := Register(base, member(id, 1), "")
			require.NoError(t, err)
			after, ch, err := Cancel(after, id)
			require.NoError(t, err)
			assert.True(t, ch.Removed())
			assert.Equal(t, userIDs(base), userIDs(after))
			assert.Equal(t, base.Teams[0].Occupancy(), after.Teams[0].Occupancy())
		})
	}
}

func userIDs(ev domain.Event) []string {
	var out []string
	for _, t := range ev.Teams {
		for _, m := range t.Members {
			out = append(out, m.UserID)
		}
	}
	for _, m := range ev.Substitutes {
		out = append(out, m.UserID)
	}
	sort.Strings(out)
	return out
}

func TestCancel_Idempotent(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")

	ev, ch, err := Cancel(ev, "u1")
	require.NoError(t, err)
	assert.True(t, ch.Removed())
	assert.Equal(t, "Alpha", ch.Team)

	_, ch, err = Cancel(ev, "u1")
	require.NoError(t, err)
	assert.False(t, ch.Removed())
	assert.False(t, ch.Mutated())
}

func TestCancel_StoppedEventIsClosed(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, err := Stop(ev)
	require.NoError(t, err)

	_, _, err = Cancel(ev, "u1")
	assert.ErrorIs(t, err, domain.ErrEventClosed)

	out, ch, err := Evict(ev, "u1")
	require.NoError(t, err)
	assert.True(t, ch.Removed())
	assert.False(t, out.Locate("u1").Registered())
}

func TestRemoveFromTeam_NeverTouchesBench(t *testing.T) {
	ev := newEvent(1, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha") // banco

	out, ch, err := RemoveFromTeam(ev, "u2", "Alpha")
	require.NoError(t, err)
	assert.False(t, ch.Removed())
	assert.True(t, out.Locate("u2").Bench)

	out, ch, err = RemoveFromTeam(ev, "u1", "Alpha")
	require.NoError(t, err)
	assert.True(t, ch.Removed())
	assert.Empty(t, out.Teams[0].Members)

	again, ch, err := RemoveFromTeam(out, "u1", "Alpha")
	require.NoError(t, err)
	assert.False(t, ch.Removed())
	assert.Equal(t, out, again)
}

func TestRemoveFromTeam_RunsOnStoppedEvent(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Stop(ev)

	out, ch, err := RemoveFromTeam(ev, "u1", "Alpha")
	require.NoError(t, err)
	assert.True(t, ch.Removed())
	assert.Empty(t, out.Teams[0].Members)
}

func TestSwap_Errors(t *testing.T) {
	ev := newEvent(1, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha")

	_, _, err := Swap(ev, "nobody", "u1")
	assert.ErrorIs(t, err, domain.ErrSubstituteNotFound)

	_, _, err = Swap(ev, "u2", "nobody")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)

	_, _, err = Swap(ev, "u1", "u2")
	assert.ErrorIs(t, err, domain.ErrSubstituteNotFound)
}

func TestSwap_HeavierSubstituteMustFit(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha")
	ev.Substitutes = append(ev.Substitutes, member("clan", 2))

	_, _, err := Swap(ev, "clan", "u1")
	var full *domain.TeamFullError
	require.True(t, errors.As(err, &full))
	assert.Equal(t, 1, full.FreeSlots)
}

func TestJoinTeam_Overflow(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha")
	ev, _, _ = Register(ev, member("u3", 1), "Alpha")

	out, ch, err := JoinTeam(ev, "u3", "Alpha")
	require.NoError(t, err)
	assert.Equal(t, Swapped, ch.Kind)
	assert.True(t, out.Locate("u1").Bench, "oldest member goes to the bench")
	assert.Equal(t, "Alpha", out.Locate("u3").Team)
	assert.Equal(t, 2, out.Teams[0].Occupancy())
	require.NoError(t, CheckInvariants(out))
}

func TestJoinTeam_WithRoomPromotes(t *testing.T) {
	ev := newEvent(2, "Alpha", "Bravo")
	ev, _, _ = Register(ev, member("u1", 2), "Alpha")
	ev.Substitutes = append(ev.Substitutes, member("u2", 1))

	out, ch, err := JoinTeam(ev, "u2", "Bravo")
	require.NoError(t, err)
	assert.Equal(t, Promoted, ch.Kind)
	assert.Len(t, ch.Moves, 1)
	assert.Empty(t, out.Substitutes)
}

func TestJoinTeam_HeavyClanEvictsSeveral(t *testing.T) {
	ev := newEvent(3, "Alpha")
	ev, _, _ = Register(ev, member("u1", 1), "Alpha")
	ev, _, _ = Register(ev, member("u2", 1), "Alpha")
	ev, _, _ = Register(ev, member("u3", 1), "Alpha")
	ev.Substitutes = append(ev.Substitutes, member("clan", 2))

	out, ch, err := JoinTeam(ev, "clan", "Alpha")
	require.NoError(t, err)
	assert.Len(t, ch.Moves, 3)
	assert.True(t, out.Locate("u1").Bench)
	assert.True(t, out.Locate("u2").Bench)
	assert.Equal(t, "Alpha", out.Locate("u3").Team)
	assert.Equal(t, 3, out.Teams[0].Occupancy())

	_, _, err = JoinTeam(ev, "u9", "Alpha")
	assert.ErrorIs(t, err, domain.ErrSubstituteNotFound)
	_, _, err = JoinTeam(ev, "clan", "Zulu")
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
}

func TestJoinTeam_BlockLargerThanCapacity(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev.Substitutes = append(ev.Substitutes, member("clan", 3))

	_, _, err := JoinTeam(ev, "clan", "Alpha")
	assert.ErrorIs(t, err, domain.ErrTeamFull)
}

func TestStop_OneWay(t *testing.T) {
	ev := newEvent(2, "Alpha")
	ev, ch, err := Stop(ev)
	require.NoError(t, err)
	assert.Equal(t, Stopped, ch.Kind)
	assert.Equal(t, domain.EventStopped, ev.Status)

	_, _, err = Stop(ev)
	assert.ErrorIs(t, err, domain.ErrAlreadyStopped)

	_, _, err = Register(ev, member("u1", 1), "Alpha")
	assert.ErrorIs(t, err, domain.ErrEventClosed)
	_, _, err = Swap(ev, "a", "b")
	assert.ErrorIs(t, err, domain.ErrEventClosed)
}

func TestCheckInvariants(t *testing.T) {
	ev := newEvent(2, "Alpha", "Bravo")
	ev.Teams[0].Members = []domain.Member{member("u1", 1)}
	ev.Teams[1].Members = []domain.Member{member("u1", 1)}
	assert.Error(t, CheckInvariants(ev))

	ev = newEvent(2, "Alpha")
	ev.Teams[0].Members = []domain.Member{member("u1", 1)}
	ev.Substitutes = []domain.Member{member("u1", 1)}
	assert.Error(t, CheckInvariants(ev))

	ev = newEvent(1, "Alpha")
	ev.Teams[0].Members = []domain.Member{member("u1", 2)}
	assert.Error(t, CheckInvariants(ev))
}

// Secuencia mixta: la invariante de unicidad se mantiene después de cada paso.
func TestInvariantsHoldAcrossSequence(t *testing.T) {
	ev := newEvent(2, "Alpha", "Bravo")
	steps := []func(domain.Event) (domain.Event, Change, error){
		func(e domain.Event) (domain.Event, Change, error) { return Register(e, member("u1", 1), "Alpha") },
		func(e domain.Event) (domain.Event, Change, error) { return Register(e, member("u2", 1), "Alpha") },
		func(e domain.Event) (domain.Event, Change, error) { return Register(e, member("u3", 2), "Bravo") },
		func(e domain.Event) (domain.Event, Change, error) { return Register(e, member("u4", 1), "") },
		func(e domain.Event) (domain.Event, Change, error) { return Swap(e, "u4", "u2") },
		func(e domain.Event) (domain.Event, Change, error) { return JoinTeam(e, "u2", "Bravo") },
		func(e domain.Event) (domain.Event, Change, error) { return RemoveFromTeam(e, "u1", "Alpha") },
		func(e domain.Event) (domain.Event, Change, error) { return Cancel(e, "u3") },
		func(e domain.Event) (domain.Event, Change, error) { return Register(e, member("u1", 1), "Alpha") },
	}
	for i, step := range steps {
		next, _, err := step(ev)
		require.NoError(t, err, "step %d", i)
		require.NoError(t, CheckInvariants(next), "step %d", i)
		ev = next
	}
}
