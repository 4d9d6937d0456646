package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/roster-bot/internal/domain"
)

func rosterEvent(kind domain.EventKind, capacity int, teams ...string) domain.Event {
	ev := domain.Event{
		EventID:     "ev-1",
		Title:       "Domingo de Squad",
		Kind:        kind,
		Status:      domain.EventActive,
		Substitutes: []domain.Member{},
	}
	if capacity > 0 {
		ev.MaxPlayersPerTeam = &capacity
	}
	for _, t := range teams {
		ev.Teams = append(ev.Teams, domain.Team{Name: t})
	}
	return ev
}

func buttons(t *testing.T, comps []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	require.Len(t, comps, 1)
	row, ok := comps[0].(discordgo.ActionsRow)
	require.True(t, ok)
	out := make([]discordgo.Button, 0, len(row.Components))
	for _, c := range row.Components {
		b, ok := c.(discordgo.Button)
		require.True(t, ok)
		out = append(out, b)
	}
	return out
}

func TestBuildRosterEmbed_Solo(t *testing.T) {
	ev := rosterEvent(domain.KindSolo, 3, "Alpha", "Bravo")
	ev.Teams[0].Members = []domain.Member{
		{UserID: "u1", DisplayName: "Ana", ExternalID: "76561190000000001", SlotWeight: 1},
		{UserID: "u2", DisplayName: "Beto", ExternalID: "76561190000000002", SlotWeight: 1},
	}

	embed, comps := BuildRosterEmbed(ev)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Alpha (2/3)", embed.Fields[0].Name)
	assert.Equal(t, "Ana (76561190000000001)\nBeto (76561190000000002)", embed.Fields[0].Value)
	assert.Equal(t, "Bravo (0/3)", embed.Fields[1].Name)
	assert.Equal(t, "-", embed.Fields[1].Value)
	assert.Equal(t, colorActive, embed.Color)

	bs := buttons(t, comps)
	require.Len(t, bs, 2)
	assert.Equal(t, "register:ev-1", bs[0].CustomID)
	assert.Equal(t, "cancel:ev-1", bs[1].CustomID)
}

func TestBuildRosterEmbed_ClanShowsTagAndBlock(t *testing.T) {
	ev := rosterEvent(domain.KindClan, 10, "Alpha")
	ev.Teams[0].Members = []domain.Member{
		{UserID: "u1", DisplayName: "Ana", ExternalID: "s1", SlotWeight: 4, Attributes: map[string]string{attrClanTag: "RUS"}},
	}

	embed, _ := BuildRosterEmbed(ev)
	assert.Equal(t, "Alpha (4/10)", embed.Fields[0].Name)
	assert.Equal(t, "[RUS] Ana (s1) ×4", embed.Fields[0].Value)
}

func TestBuildRosterEmbed_UnlimitedAndSubstitutes(t *testing.T) {
	ev := rosterEvent(domain.KindSolo, 0, "Alpha")
	ev.Substitutes = []domain.Member{{UserID: "u9", DisplayName: "Zoe", ExternalID: "s9"}}

	embed, _ := BuildRosterEmbed(ev)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Alpha (0/∞)", embed.Fields[0].Name)
	assert.Equal(t, "Suplentes (1)", embed.Fields[1].Name)
	assert.False(t, embed.Fields[1].Inline)
}

func TestBuildRosterEmbed_SubstitutesMoveToDescriptionWhenFieldsRunOut(t *testing.T) {
	teams := make([]string, maxEmbedFields)
	for i := range teams {
		teams[i] = string(rune('A'+i%26)) + strings.Repeat("x", i)
	}
	ev := rosterEvent(domain.KindSolo, 2, teams...)
	ev.Substitutes = []domain.Member{{UserID: "u9", DisplayName: "Zoe", ExternalID: "s9"}}

	embed, _ := BuildRosterEmbed(ev)
	assert.Len(t, embed.Fields, maxEmbedFields)
	assert.Contains(t, embed.Description, "Suplentes (1)")
	assert.Contains(t, embed.Description, "Zoe (s9)")
}

func TestBuildRosterEmbed_StoppedHasNoButtons(t *testing.T) {
	ev := rosterEvent(domain.KindSolo, 2, "Alpha")
	ev.Status = domain.EventStopped

	embed, comps := BuildRosterEmbed(ev)
	assert.Empty(t, comps)
	assert.NotNil(t, comps, "edit needs an empty slice to clear the buttons")
	assert.Equal(t, colorStopped, embed.Color)
	assert.Contains(t, embed.Footer.Text, "cerrada")
}

func TestTeamOptions_SkipsFullTeams(t *testing.T) {
	ev := rosterEvent(domain.KindSolo, 1, "Alpha", "Bravo")
	ev.Teams[0].Members = []domain.Member{{UserID: "u1", SlotWeight: 1}}

	opts := teamOptions(ev)
	require.Len(t, opts, 1)
	assert.Equal(t, "Bravo", opts[0].Value)
	assert.Equal(t, "1 lugares libres", opts[0].Description)

	ev.Teams[1].Members = []domain.Member{{UserID: "u2", SlotWeight: 1}}
	assert.Empty(t, teamOptions(ev))
}

func TestMemberLines_Truncates(t *testing.T) {
	var ms []domain.Member
	for i := 0; i < 100; i++ {
		ms = append(ms, domain.Member{UserID: "u", DisplayName: strings.Repeat("n", 20), ExternalID: "76561190000000000"})
	}
	out := memberLines(domain.KindSolo, ms)
	assert.LessOrEqual(t, len([]rune(out)), maxFieldValue)
	assert.True(t, strings.HasSuffix(out, "…"))
}
