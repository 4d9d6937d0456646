// esta es la logica de InteractionApplicationCommand de discordgo
// aqui solo vamos a manejar logica de la interaccion del usuario y despachar a los servicios correspondientes
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/app/service"
	"github.com/jose-valero/roster-bot/internal/domain"
)

func (r *Router) handleSlashCommand(ic *discordgo.InteractionCreate) {
	cmd := ic.ApplicationCommandData()
	r.log.Info("cmd", zap.String("name", cmd.Name), zap.String("user_id", interactionUser(ic)), zap.String("guild_id", ic.GuildID))

	defer r.recoverInteraction(ic, "/"+cmd.Name)
	defer step(r.log, "cmd."+cmd.Name)()

	_ = r.deferEphemeral(ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	switch cmd.Name {

	//--> caso de test
	case "ping":
		r.replyEphemeral(ic, "🏓 Pong!")

	//--> solo admins
	case "startreg":
		if !r.requireAdminOrRoles(ic) {
			return
		}
		r.cmdStartReg(ctx, ic)

	case "stopreg":
		if !r.requireAdminOrRoles(ic) {
			return
		}
		ev, ok := r.resolveEvent(ctx, ic)
		if !ok {
			return
		}
		if _, err := r.roster.Stop(ctx, ev.EventID); err != nil {
			r.replyEphemeral(ic, errMsg(err))
			return
		}
		r.replyEphemeral(ic, fmt.Sprintf("🔒 Inscripción cerrada para **%s**.", ev.Title))

	case "delevent":
		if !r.requireAdminOrRoles(ic) {
			return
		}
		id, _ := optStr(ic, "event_id")
		if err := service.DeleteEvent(ctx, r.roster, r.confirm, id); err != nil {
			r.replyEphemeral(ic, errMsg(err))
			return
		}
		r.replyEphemeral(ic, "🗑️ Evento borrado.")

	case "notification":
		if !r.requireAdminOrRoles(ic) {
			return
		}
		r.cmdNotification(ctx, ic)

	case "deluser":
		if !r.requireAdminOrRoles(ic) {
			return
		}
		r.cmdDelUser(ctx, ic)

	case "settings":
		if !r.requireAdminOrRoles(ic) {
			return
		}
		r.cmdSettings(ctx, ic)

	//--> para todos
	case "substitutes":
		ev, ok := r.resolveEvent(ctx, ic)
		if !ok {
			return
		}
		r.replyEphemeral(ic, substitutesText(ev))

	case "swap":
		ev, ok := r.resolveEvent(ctx, ic)
		if !ok {
			return
		}
		sub, _ := optStr(ic, "substitute")
		target, _ := optStr(ic, "target")
		if _, err := r.roster.SwapByExternalID(ctx, ev.EventID, sub, target); err != nil {
			r.replyEphemeral(ic, errMsg(err))
			return
		}
		r.replyEphemeral(ic, "🔁 Cambio hecho.")

	case "jointeam":
		ev, ok := r.resolveEvent(ctx, ic)
		if !ok {
			return
		}
		sub, _ := optStr(ic, "substitute")
		team, _ := optStr(ic, "team")
		ch, err := r.roster.JoinTeam(ctx, ev.EventID, sub, team)
		if err != nil {
			r.replyEphemeral(ic, errMsg(err))
			return
		}
		msg := fmt.Sprintf("✅ Entró a **%s**.", team)
		if bumped := len(ch.Moves) - 1; bumped > 0 {
			msg += fmt.Sprintf(" %d pasaron a suplentes.", bumped)
		}
		r.replyEphemeral(ic, msg)

	default:
		r.replyEphemeral(ic, "Comando desconocido.")
	}
}

// resolveEvent usa event_id si vino, si no el último evento activo del guild.
func (r *Router) resolveEvent(ctx context.Context, ic *discordgo.InteractionCreate) (domain.Event, bool) {
	id, _ := optStr(ic, "event_id")
	ev, err := r.roster.Resolve(ctx, ic.GuildID, id)
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return domain.Event{}, false
	}
	return ev, true
}

func (r *Router) cmdStartReg(ctx context.Context, ic *discordgo.InteractionCreate) {
	title, _ := optStr(ic, "title")
	teams, _ := optStr(ic, "teams")
	kind, ok := optStr(ic, "kind")
	if !ok || kind == "" {
		kind = string(domain.KindSolo)
	}
	maxPlayers, _ := optInt(ic, "max_players")
	desc, _ := optStr(ic, "description")
	image, _ := optStr(ic, "image_url")

	channelID := ic.ChannelID
	if gs, err := r.settings.Get(ctx, ic.GuildID); err == nil && gs.EventChannelID != "" {
		channelID = gs.EventChannelID
	}

	ev, err := r.roster.CreateEvent(ctx, service.CreateEventRequest{
		GuildID:     ic.GuildID,
		ChannelID:   channelID,
		CreatedBy:   interactionUser(ic),
		Title:       title,
		Description: desc,
		ImageURL:    image,
		Kind:        kind,
		Teams:       splitTeams(teams),
		MaxPlayers:  maxPlayers,
	})
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	r.replyEphemeral(ic, fmt.Sprintf("✅ Evento **%s** publicado en <#%s>.\nID: `%s`", ev.Title, channelID, ev.EventID))
}

func (r *Router) cmdNotification(ctx context.Context, ic *discordgo.InteractionCreate) {
	ev, ok := r.resolveEvent(ctx, ic)
	if !ok {
		return
	}
	rawTeams, _ := optStr(ic, "teams")
	teams := splitTeams(rawTeams)
	if len(teams) == 0 {
		r.replyEphemeral(ic, "⚠️ Indicá al menos un equipo.")
		return
	}
	rawSend, _ := optStr(ic, "send_time")
	loc := r.settings.Location(ctx, ic.GuildID)
	sendAt, err := parseSendTime(rawSend, loc)
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	window := r.settings.DefaultWindow(ctx, ic.GuildID)
	if mins, ok := optInt(ic, "response_minutes"); ok && mins > 0 {
		window = time.Duration(mins) * time.Minute
	}

	res, err := r.confirm.ScheduleTeams(ctx, ev.EventID, teams, sendAt, window)
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	r.replyEphemeral(ic, fmt.Sprintf("📬 %d confirmaciones agendadas para <t:%d:f> (%s para responder). %d omitidas por tener una pendiente.",
		len(res.Scheduled), sendAt.Unix(), window, res.Skipped))
}

func (r *Router) cmdDelUser(ctx context.Context, ic *discordgo.InteractionCreate) {
	ev, ok := r.resolveEvent(ctx, ic)
	if !ok {
		return
	}
	steamID, _ := optStr(ic, "steam_id")
	m, _, err := r.roster.EvictByExternalID(ctx, ev.EventID, steamID)
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	if _, err := r.confirm.WithdrawForUser(ctx, ev.EventID, m.UserID); err != nil {
		r.log.Warn("withdraw after deluser", zap.String("event_id", ev.EventID), zap.String("user_id", m.UserID), zap.Error(err))
	}
	r.replyEphemeral(ic, fmt.Sprintf("👢 %s (%s) fue removido del evento.", m.DisplayName, m.ExternalID))
}

func (r *Router) cmdSettings(ctx context.Context, ic *discordgo.InteractionCreate) {
	sub, _ := subcmdName(ic)
	switch sub {
	case "show":
		msg, err := r.settings.Show(ctx, ic.GuildID)
		if err != nil {
			msg = errMsg(err)
		}
		r.replyEphemeral(ic, msg)

	case "set":
		var patch service.SettingsPatch
		if ch, ok := optChannel(ic, "event_channel"); ok {
			patch.EventChannelID = &ch
		}
		if tz, ok := optStr(ic, "timezone"); ok {
			patch.Timezone = &tz
		}
		if w, ok := optInt(ic, "default_window_minutes"); ok {
			patch.DefaultWindowMinutes = &w
		}
		msg, err := r.settings.Update(ctx, ic.GuildID, patch)
		if err != nil {
			msg = errMsg(err)
		}
		r.replyEphemeral(ic, msg)

	default:
		r.replyEphemeral(ic, "Usa `/settings show` o `/settings set`.")
	}
}

func substitutesText(ev domain.Event) string {
	if len(ev.Substitutes) == 0 {
		return fmt.Sprintf("🪑 **%s**: no hay suplentes.", ev.Title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🪑 Suplentes de **%s**:\n", ev.Title)
	for i, m := range ev.Substitutes {
		fmt.Fprintf(&b, "%d) %s (%s) <@%s>", i+1, m.DisplayName, m.ExternalID, m.UserID)
		if m.Weight() > 1 {
			fmt.Fprintf(&b, " ×%d", m.Weight())
		}
		b.WriteByte('\n')
	}
	return truncate(b.String(), 2000)
}
