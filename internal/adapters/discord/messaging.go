package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// códigos REST de Discord que nos importan
const (
	codeUnknownMessage = 10008
	codeUnknownWebhook = 10015
)

func isRESTCode(err error, code int) bool {
	var re *discordgo.RESTError
	return errors.As(err, &re) && re.Message != nil && re.Message.Code == code
}

// Defer efímero (para trabajos >3s)
func (r *Router) deferEphemeral(ic *discordgo.InteractionCreate) error {
	err := r.s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		r.log.Warn("defer ephemeral", zap.Error(err))
	}
	return err
}

func (r *Router) replyEphemeral(ic *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	_, err := r.s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Embeds:  embeds,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err == nil {
		return
	}
	// Fallback sólo si todavía no hay respuesta (webhook desconocido)
	if isRESTCode(err, codeUnknownWebhook) {
		_ = r.s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
				Embeds:  embeds,
			},
		})
		return
	}
	r.log.Warn("reply ephemeral", zap.Error(err))
}

// followupComponents manda un efímero con componentes (select de equipos).
func (r *Router) followupComponents(ic *discordgo.InteractionCreate, content string, comps []discordgo.MessageComponent) error {
	_, err := r.s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content:    content,
		Components: comps,
		Flags:      discordgo.MessageFlagsEphemeral,
	})
	return err
}

func (r *Router) showModal(ic *discordgo.InteractionCreate, customID, title string, rows []discordgo.MessageComponent) error {
	err := r.s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	})
	if err != nil {
		r.log.Warn("show modal", zap.String("custom_id", customID), zap.Error(err))
	}
	return err
}

// clearComponents saca los botones del mensaje donde se hizo click (DM de confirmación).
func (r *Router) clearComponents(ic *discordgo.InteractionCreate, content string) {
	if ic.Message == nil {
		return
	}
	empty := []discordgo.MessageComponent{}
	_, err := r.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ic.ChannelID,
		ID:         ic.Message.ID,
		Content:    &content,
		Components: &empty,
	})
	if err != nil && !isRESTCode(err, codeUnknownMessage) {
		r.log.Warn("clear components", zap.String("message_id", ic.Message.ID), zap.Error(err))
	}
}
