package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/roster-bot/internal/domain"
)

// prefijos de custom_id; el eventID viaja en el id, no hay "evento actual" en memoria
const (
	idRegister = "register"
	idCancel   = "cancel"
	idTeam     = "team"
	idRegModal = "regmodal"
	idConfirm  = "confirm"
	idDecline  = "decline"
)

// ids de los campos del modal de registro
const (
	fieldExternalID  = "external_id"
	fieldSquadLeader = "squad_leader"
	fieldHours       = "hours"
	fieldClanTag     = "clan_tag"
	fieldPlayers     = "players"
)

// claves de Member.Attributes
const (
	attrSquadLeader = "squadLeader"
	attrHours       = "hours"
	attrClanTag     = "clanTag"
)

const sendTimeLayout = "2006-01-02 15:04"

func customID(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// parseCustomID separa "prefix:arg1:arg2". El último argumento se queda con el
// resto, así un nombre de equipo con ':' no rompe el modal.
func parseCustomID(raw string, nargs int) (prefix string, args []string, ok bool) {
	parts := strings.SplitN(raw, ":", nargs+1)
	if len(parts) != nargs+1 {
		return "", nil, false
	}
	for _, p := range parts[:nargs] {
		if p == "" {
			return "", nil, false
		}
	}
	return parts[0], parts[1:], true
}

// parseSendTime interpreta "YYYY-MM-DD HH:MM" en la zona del guild y devuelve UTC.
func parseSendTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(sendTimeLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: send_time debe ser YYYY-MM-DD HH:MM", domain.ErrValidation)
	}
	return t.UTC(), nil
}

// splitTeams parte una lista separada por comas, sin vacíos.
func splitTeams(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// interactionUser sirve tanto en guild (Member) como en DM (User).
func interactionUser(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}

func findOption(ic *discordgo.InteractionCreate, name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name {
			return o, true
		}
		// subcommand
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name {
					return so, true
				}
			}
		}
	}
	return nil, false
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOption(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return strings.TrimSpace(o.StringValue()), true
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	o, ok := findOption(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(o.IntValue()), true
}

func optChannel(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOption(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionChannel {
		return "", false
	}
	id, ok := o.Value.(string)
	return id, ok
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// modalValues aplana los TextInput de un modal por custom_id.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	out := map[string]string{}
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if ti, ok := inner.(*discordgo.TextInput); ok {
				out[ti.CustomID] = strings.TrimSpace(ti.Value)
			}
		}
	}
	return out
}

func placementLabel(p domain.Placement) string {
	if p.Bench {
		return "suplentes"
	}
	if p.Team != "" {
		return "**" + p.Team + "**"
	}
	return "-"
}

// errMsg traduce los errores de dominio a la respuesta efímera.
func errMsg(err error) string {
	var full *domain.TeamFullError
	var already *domain.AlreadyRegisteredError
	switch {
	case errors.As(err, &full):
		if full.FreeSlots > 0 {
			return fmt.Sprintf("🚫 No entran en **%s**: quedan %d lugares. Probá con menos jugadores.", full.Team, full.FreeSlots)
		}
		return fmt.Sprintf("🚫 El equipo **%s** está lleno.", full.Team)
	case errors.As(err, &already):
		return "ℹ️ Ya estás registrado en " + placementLabel(already.Where) + "."
	case errors.Is(err, domain.ErrEventClosed):
		return "🔒 La inscripción de este evento está cerrada."
	case errors.Is(err, domain.ErrAlreadyStopped):
		return "ℹ️ El evento ya estaba cerrado."
	case errors.Is(err, domain.ErrEventNotFound):
		return "⚠️ No encontré el evento."
	case errors.Is(err, domain.ErrTeamNotFound):
		return "⚠️ Ese equipo no existe en el evento."
	case errors.Is(err, domain.ErrSubstituteNotFound):
		return "⚠️ Ese jugador no está en suplentes."
	case errors.Is(err, domain.ErrTargetNotFound):
		return "⚠️ El jugador a reemplazar no está en ningún equipo."
	case errors.Is(err, domain.ErrMemberNotFound):
		return "⚠️ Ese jugador no está registrado en el evento."
	case errors.Is(err, domain.ErrInvalidIdentity):
		return "⚠️ No reconozco ese Steam ID. Usá el SteamID64 o el link de tu perfil."
	case errors.Is(err, domain.ErrNotificationNotFound):
		return "⚠️ Esa confirmación ya no existe."
	case errors.Is(err, domain.ErrAlreadyResolved):
		return "⌛ Esta confirmación ya estaba resuelta."
	case errors.Is(err, domain.ErrTooManyConflicts):
		return "⏳ Hay mucha actividad en el evento, probá de nuevo en un momento."
	case errors.Is(err, domain.ErrValidation):
		return "⚠️ Datos inválidos: " + err.Error()
	}
	return "❌ Ocurrió un error inesperado. Contacta con un administrador."
}
