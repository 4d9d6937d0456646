package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/app/roster"
	"github.com/jose-valero/roster-bot/internal/app/service"
	"github.com/jose-valero/roster-bot/internal/domain"
)

func (r *Router) handleMessageComponent(ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()
	defer r.recoverInteraction(ic, "component:"+data.CustomID)

	uid := interactionUser(ic)
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	prefix, args, ok := parseCustomID(data.CustomID, 1)
	if !ok {
		r.log.Warn("unknown component", zap.String("custom_id", data.CustomID))
		return
	}

	switch prefix {

	// register y team pueden responder con un modal, así que no se difieren antes
	case idRegister:
		defer step(r.log, "component.register.total")()
		if !r.clickLimiter.Allow(ctx, uid) {
			_ = r.deferEphemeral(ic)
			r.replyEphemeral(ic, "⏳ Esperá un segundo…")
			return
		}
		r.onRegisterClick(ctx, ic, args[0], uid)

	case idTeam:
		if len(data.Values) == 0 {
			_ = r.deferEphemeral(ic)
			r.replyEphemeral(ic, "⚠️ Selección inválida.")
			return
		}
		ev, err := r.roster.Get(ctx, args[0])
		if err != nil {
			_ = r.deferEphemeral(ic)
			r.replyEphemeral(ic, errMsg(err))
			return
		}
		r.openRegisterModal(ctx, ic, ev, data.Values[0], uid)

	case idCancel:
		_ = r.deferEphemeral(ic)
		if !r.clickLimiter.Allow(ctx, uid) {
			r.replyEphemeral(ic, "⏳ Esperá un segundo…")
			return
		}
		removed, err := r.roster.Cancel(ctx, args[0], uid)
		if err != nil {
			r.replyEphemeral(ic, errMsg(err))
			return
		}
		if !removed {
			r.replyEphemeral(ic, "ℹ️ No estabas registrado.")
			return
		}
		if _, err := r.confirm.WithdrawForUser(ctx, args[0], uid); err != nil {
			r.log.Warn("withdraw after cancel", zap.String("event_id", args[0]), zap.String("user_id", uid), zap.Error(err))
		}
		r.replyEphemeral(ic, "👋 Tu registro fue cancelado.")

	case idConfirm, idDecline:
		_ = r.deferEphemeral(ic)
		r.onChallengeAnswer(ctx, ic, prefix, args[0], uid)

	default:
		r.log.Warn("unknown component", zap.String("custom_id", data.CustomID))
	}
}

// onRegisterClick: cerrado o ya registrado se contesta directo; si hay equipos
// con lugar se ofrece el select, si no el modal va directo al banco.
func (r *Router) onRegisterClick(ctx context.Context, ic *discordgo.InteractionCreate, eventID, uid string) {
	ev, err := r.roster.Get(ctx, eventID)
	if err == nil && !ev.Active() {
		err = domain.ErrEventClosed
	}
	if err == nil {
		if where := ev.Locate(uid); where.Registered() {
			err = &domain.AlreadyRegisteredError{Where: where}
		}
	}
	if err != nil {
		_ = r.deferEphemeral(ic)
		r.replyEphemeral(ic, errMsg(err))
		return
	}

	opts := teamOptions(ev)
	if len(opts) == 0 {
		r.openRegisterModal(ctx, ic, ev, "", uid)
		return
	}

	_ = r.deferEphemeral(ic)
	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    customID(idTeam, ev.EventID),
				Placeholder: "Elegí tu equipo",
				Options:     opts,
			},
		},
	}
	if err := r.followupComponents(ic, "¿En qué equipo querés jugar?", []discordgo.MessageComponent{row}); err != nil {
		r.replyEphemeral(ic, "⚠️ No pude mostrar los equipos: "+err.Error())
	}
}

func (r *Router) openRegisterModal(ctx context.Context, ic *discordgo.InteractionCreate, ev domain.Event, team, uid string) {
	prefill := ""
	if r.profiles != nil {
		if p, err := r.profiles.Get(ctx, uid); err == nil {
			prefill = p.ExternalID
		}
	}

	title := "Registro"
	if team != "" {
		title = truncate("Registro: "+team, 45)
	}
	_ = r.showModal(ic, customID(idRegModal, ev.EventID, team), title, registerModalRows(ev.Kind, prefill))
}

func textRow(in discordgo.TextInput) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{in}}
}

func registerModalRows(kind domain.EventKind, prefill string) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{
		textRow(discordgo.TextInput{
			CustomID:    fieldExternalID,
			Label:       "Steam ID o link de tu perfil",
			Style:       discordgo.TextInputShort,
			Placeholder: "7656119XXXXXXXXXX",
			Value:       prefill,
			Required:    true,
			MaxLength:   128,
		}),
	}
	if kind == domain.KindClan {
		return append(rows,
			textRow(discordgo.TextInput{
				CustomID:  fieldClanTag,
				Label:     "Tag del clan",
				Style:     discordgo.TextInputShort,
				Required:  true,
				MaxLength: 16,
			}),
			textRow(discordgo.TextInput{
				CustomID:    fieldPlayers,
				Label:       "¿Cuántos jugadores traen?",
				Style:       discordgo.TextInputShort,
				Placeholder: "1-50",
				Required:    true,
				MaxLength:   2,
			}),
		)
	}
	return append(rows,
		textRow(discordgo.TextInput{
			CustomID:    fieldSquadLeader,
			Label:       "¿Querés ser líder de escuadra?",
			Style:       discordgo.TextInputShort,
			Placeholder: "Sí/No",
			Required:    true,
			MaxLength:   3,
		}),
		textRow(discordgo.TextInput{
			CustomID:    fieldHours,
			Label:       "¿Cuántas horas jugadas tenés?",
			Style:       discordgo.TextInputShort,
			Placeholder: "Cantidad de horas",
			Required:    true,
			MaxLength:   6,
		}),
	)
}

// registerInput arma el request a partir del modal; el peso sólo aplica a clanes.
func registerInput(kind domain.EventKind, values map[string]string) (raw string, weight int, attrs map[string]string, err error) {
	raw = values[fieldExternalID]
	weight = 1
	if kind == domain.KindClan {
		weight, err = strconv.Atoi(values[fieldPlayers])
		if err != nil || weight < 1 {
			return "", 0, nil, fmt.Errorf("%w: cantidad de jugadores inválida", domain.ErrValidation)
		}
		return raw, weight, map[string]string{attrClanTag: values[fieldClanTag]}, nil
	}
	return raw, weight, map[string]string{
		attrSquadLeader: values[fieldSquadLeader],
		attrHours:       values[fieldHours],
	}, nil
}

func (r *Router) handleModalSubmit(ic *discordgo.InteractionCreate) {
	data := ic.ModalSubmitData()
	defer r.recoverInteraction(ic, "modal:"+data.CustomID)
	defer step(r.log, "modal.register.total")()

	_ = r.deferEphemeral(ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	prefix, args, ok := parseCustomID(data.CustomID, 2)
	if !ok || prefix != idRegModal {
		r.log.Warn("unknown modal", zap.String("custom_id", data.CustomID))
		return
	}
	eventID, team := args[0], args[1]
	uid := interactionUser(ic)

	ev, err := r.roster.Get(ctx, eventID)
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	raw, weight, attrs, err := registerInput(ev.Kind, modalValues(data))
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}

	res, err := r.roster.Register(ctx, service.RegisterRequest{
		EventID:     eventID,
		UserID:      uid,
		Team:        team,
		ExternalRaw: raw,
		SlotWeight:  weight,
		Attributes:  attrs,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrTeamFull) &&
			!errors.Is(err, domain.ErrAlreadyRegistered) && !errors.Is(err, domain.ErrInvalidIdentity) {
			r.log.Warn("register", zap.String("event_id", eventID), zap.String("user_id", uid), zap.Error(err))
		}
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	r.replyEphemeral(ic, registeredText(res))
}

func registeredText(res service.RegisterResult) string {
	name := res.Member.DisplayName
	if res.Member.DisplayName == service.UnknownPlayer {
		name = res.Member.ExternalID
	}
	if res.Change.Kind == roster.Benched {
		return fmt.Sprintf("🪑 No quedan lugares: %s quedó en **suplentes**.", name)
	}
	return fmt.Sprintf("✅ %s quedó registrado en **%s**.", name, res.Change.Team)
}

func (r *Router) onChallengeAnswer(ctx context.Context, ic *discordgo.InteractionCreate, action, notificationID, uid string) {
	n, err := r.confirm.Get(ctx, notificationID)
	if err != nil {
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	if n.UserID != uid {
		r.replyEphemeral(ic, "🔒 Esta confirmación no es tuya.")
		return
	}

	if action == idConfirm {
		_, err = r.confirm.Confirm(ctx, notificationID)
		switch {
		case err == nil:
			r.clearComponents(ic, fmt.Sprintf("✅ Confirmaste tu lugar en **%s**.", n.TeamName))
			r.replyEphemeral(ic, "✅ ¡Gracias! Tu lugar está confirmado.")
		case errors.Is(err, domain.ErrAlreadyResolved):
			r.clearComponents(ic, "⌛ Esta confirmación ya no está activa.")
			r.replyEphemeral(ic, errMsg(err))
		default:
			r.replyEphemeral(ic, errMsg(err))
		}
		return
	}

	if _, err := r.confirm.CancelByUser(ctx, notificationID); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			r.clearComponents(ic, "⌛ Esta confirmación ya no está activa.")
		}
		r.replyEphemeral(ic, errMsg(err))
		return
	}
	r.replyEphemeral(ic, fmt.Sprintf("👋 Liberaste tu lugar en **%s**.", n.TeamName))
}
