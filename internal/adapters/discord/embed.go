package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/roster-bot/internal/domain"
)

const (
	colorActive  = 0x3498DB
	colorStopped = 0x95A5A6

	// límites de Discord
	maxEmbedFields = 25
	maxFieldValue  = 1024
)

// BuildRosterEmbed dibuja el roster: clan muestra tag y bloque, solo muestra
// jugador y SteamID, sin límite muestra ∞. Cerrado = sin botones.
func BuildRosterEmbed(ev domain.Event) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	limit := "∞"
	if n, ok := ev.Capacity(); ok {
		limit = strconv.Itoa(n)
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(ev.Teams)+1)
	for _, t := range ev.Teams {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s (%d/%s)", t.Name, t.Occupancy(), limit),
			Value:  memberLines(ev.Kind, t.Members),
			Inline: true,
		})
	}

	desc := ev.Description
	if len(ev.Substitutes) > 0 {
		name := fmt.Sprintf("Suplentes (%d)", len(ev.Substitutes))
		lines := memberLines(ev.Kind, ev.Substitutes)
		if len(fields) < maxEmbedFields {
			fields = append(fields, &discordgo.MessageEmbedField{Name: name, Value: lines})
		} else {
			desc = strings.TrimSpace(desc + "\n\n**" + name + "**\n" + lines)
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate(ev.Title, 256),
		Description: desc,
		Color:       colorActive,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + ev.EventID},
	}
	if !ev.UpdatedAt.IsZero() {
		embed.Timestamp = ev.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if ev.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: ev.ImageURL}
	}

	if !ev.Active() {
		embed.Color = colorStopped
		embed.Footer.Text = "🔒 Inscripción cerrada · ID: " + ev.EventID
		return embed, []discordgo.MessageComponent{}
	}

	comps := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style:    discordgo.PrimaryButton,
					Label:    "Registrarme",
					CustomID: customID(idRegister, ev.EventID),
					Emoji:    &discordgo.ComponentEmoji{Name: "📝"},
				},
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					Label:    "Cancelar",
					CustomID: customID(idCancel, ev.EventID),
					Emoji:    &discordgo.ComponentEmoji{Name: "👋"},
				},
			},
		},
	}
	return embed, comps
}

func memberLines(kind domain.EventKind, members []domain.Member) string {
	if len(members) == 0 {
		return "-"
	}
	var b strings.Builder
	for _, m := range members {
		if kind == domain.KindClan {
			if tag := m.Attributes[attrClanTag]; tag != "" {
				fmt.Fprintf(&b, "[%s] ", tag)
			}
			fmt.Fprintf(&b, "%s (%s) ×%d\n", m.DisplayName, m.ExternalID, m.Weight())
			continue
		}
		fmt.Fprintf(&b, "%s (%s)\n", m.DisplayName, m.ExternalID)
	}
	return truncate(strings.TrimRight(b.String(), "\n"), maxFieldValue)
}

// teamOptions arma el select con los equipos que todavía tienen lugar.
func teamOptions(ev domain.Event) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, 0, len(ev.Teams))
	for _, t := range ev.Teams {
		free, limited := ev.FreeSlots(t)
		if limited && free == 0 {
			continue
		}
		desc := "sin límite"
		if limited {
			desc = fmt.Sprintf("%d lugares libres", free)
		}
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       truncate(t.Name, 100),
			Value:       t.Name,
			Description: desc,
		})
	}
	return opts
}
