package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/app/service"
)

// Limiter es el debounce de clicks por usuario. Lo implementa infra/cache.
type Limiter interface {
	Allow(ctx context.Context, userID string) bool
}

type Router struct {
	s            *discordgo.Session
	guildID      string
	adminRoleIDs []string

	roster       *service.RosterService
	confirm      *service.ConfirmationService
	settings     *service.SettingsService
	profiles     service.ProfileRepo
	clickLimiter Limiter
	log          *zap.Logger
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	adminRoleIDs []string,
	roster *service.RosterService,
	confirm *service.ConfirmationService,
	settings *service.SettingsService,
	profiles service.ProfileRepo,
	limiter Limiter,
	log *zap.Logger,
) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		s:            s,
		guildID:      guildID,
		adminRoleIDs: adminRoleIDs,
		roster:       roster,
		confirm:      confirm,
		settings:     settings,
		profiles:     profiles,
		clickLimiter: limiter,
		log:          log,
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(ic)
		case discordgo.InteractionModalSubmit:
			r.handleModalSubmit(ic)
		}
	})
}

// recoverInteraction evita que un panic en un handler tire el bot.
func (r *Router) recoverInteraction(ic *discordgo.InteractionCreate, what string) {
	if rec := recover(); rec != nil {
		r.log.Error("panic in interaction", zap.String("handler", what), zap.Any("panic", rec), zap.Stack("stack"))
		r.replyEphemeral(ic, "❌ Ocurrió un error inesperado procesando el comando. Contacta con un administrador.")
	}
}
