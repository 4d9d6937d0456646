package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/roster-bot/internal/domain"
)

func TestRosterDoc_RoundTripKeepsOrderAndAttributes(t *testing.T) {
	ev := domain.Event{
		Teams: []domain.Team{
			{Name: "Alpha", Members: []domain.Member{
				{UserID: "u1", DisplayName: "one", ExternalID: "765", SlotWeight: 5, Attributes: map[string]string{"squad_leader": "yes"}},
				{UserID: "u2", DisplayName: "two", ExternalID: "766", SlotWeight: 1},
			}},
			{Name: "Bravo"},
		},
		Substitutes: []domain.Member{{UserID: "u3", SlotWeight: 1}},
	}

	raw, err := encodeRoster(ev)
	require.NoError(t, err)

	var got domain.Event
	require.NoError(t, decodeRoster(raw, &got))

	require.Len(t, got.Teams, 2)
	assert.Equal(t, []string{"u1", "u2"}, []string{got.Teams[0].Members[0].UserID, got.Teams[0].Members[1].UserID})
	assert.Equal(t, "yes", got.Teams[0].Members[0].Attributes["squad_leader"])
	assert.Equal(t, 5, got.Teams[0].Members[0].SlotWeight)
	assert.NotNil(t, got.Teams[1].Members, "empty team decodes to an empty slice")
	require.Len(t, got.Substitutes, 1)
	assert.Equal(t, "u3", got.Substitutes[0].UserID)
}

func TestRosterDoc_NilSlicesEncodeAsEmptyArrays(t *testing.T) {
	raw, err := encodeRoster(domain.Event{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"teams":[],"substitutes":[]}`, string(raw))
}

func TestRosterDoc_DecodeGarbage(t *testing.T) {
	var ev domain.Event
	assert.Error(t, decodeRoster([]byte("{"), &ev))
}

func TestTerminalStatuses(t *testing.T) {
	assert.ElementsMatch(t, []string{"confirmed", "expired", "cancelled"}, terminalStatuses())
}
