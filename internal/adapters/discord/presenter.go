package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/domain"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
)

// atajos de tunning (para los timers y ajustar aqui)
const (
	uiDebounce   = 80 * time.Millisecond
	ctxRenderMax = 5 * time.Second
)

// UIStore guarda dónde quedó publicado cada roster. Lo implementa storage.UIRepo.
type UIStore interface {
	Get(ctx context.Context, eventID string) (storage.EventUI, error)
	Upsert(ctx context.Context, eventID, channelID, messageID string) error
	Delete(ctx context.Context, eventID string) error
}

type pendingRender struct {
	ev domain.Event
	t  *time.Timer
}

// Presenter dibuja los rosters en los canales y manda los DMs de confirmación.
// Implementa service.RosterRenderer y service.Messenger. Todo es best-effort:
// los errores se loguean y nunca vuelven al servicio.
type Presenter struct {
	s   *discordgo.Session
	ui  UIStore
	log *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingRender
	shown   map[string]int64 // última versión dibujada por evento

	// serializa publish/edit para no publicar dos veces el mismo roster
	flushMu sync.Mutex
}

func NewPresenter(s *discordgo.Session, ui UIStore, log *zap.Logger) *Presenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Presenter{
		s:       s,
		ui:      ui,
		log:     log,
		pending: map[string]*pendingRender{},
		shown:   map[string]int64{},
	}
}

// RenderRoster agenda un repintado con debounce; ráfagas de clicks se pintan una vez.
func (p *Presenter) RenderRoster(_ context.Context, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pr, ok := p.pending[ev.EventID]; ok {
		pr.t.Stop()
		if ev.Version >= pr.ev.Version {
			pr.ev = ev
		}
		pr.t = time.AfterFunc(uiDebounce, func() { p.flush(ev.EventID) })
		return
	}
	p.pending[ev.EventID] = &pendingRender{
		ev: ev,
		t:  time.AfterFunc(uiDebounce, func() { p.flush(ev.EventID) }),
	}
}

func (p *Presenter) flush(eventID string) {
	p.mu.Lock()
	pr, ok := p.pending[eventID]
	delete(p.pending, eventID)
	p.mu.Unlock()
	if !ok {
		return
	}

	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	ev := pr.ev
	p.mu.Lock()
	stale := ev.Version < p.shown[eventID]
	p.mu.Unlock()
	if stale {
		return
	}

	defer step(p.log, "ui.refresh")()
	ctx, cancel := context.WithTimeout(context.Background(), ctxRenderMax)
	defer cancel()

	if err := p.paint(ctx, ev); err != nil {
		p.log.Warn("render roster", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	p.remember(ev)
}

// remember anota la versión dibujada. Los eventos cerrados no quedan en shown.
func (p *Presenter) remember(ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !ev.Active() {
		delete(p.shown, ev.EventID)
		return
	}
	p.shown[ev.EventID] = ev.Version
}

// paint edita el mensaje publicado; si no hay (o lo borraron a mano) publica uno nuevo.
func (p *Presenter) paint(ctx context.Context, ev domain.Event) error {
	embed, comps := BuildRosterEmbed(ev)

	ui, err := p.ui.Get(ctx, ev.EventID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return p.publish(ctx, ev, embed, comps)
	case err != nil:
		return fmt.Errorf("get ui: %w", err)
	}

	em := []*discordgo.MessageEmbed{embed}
	_, err = p.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ui.ChannelID,
		ID:         ui.MessageID,
		Embeds:     &em,
		Components: &comps,
	}, discordgo.WithContext(ctx))
	if isRESTCode(err, codeUnknownMessage) {
		p.log.Info("roster message gone, republishing", zap.String("event_id", ev.EventID))
		return p.publish(ctx, ev, embed, comps)
	}
	if err != nil {
		p.logRESTError(err)
		return fmt.Errorf("edit roster: %w", err)
	}
	return nil
}

func (p *Presenter) publish(ctx context.Context, ev domain.Event, embed *discordgo.MessageEmbed, comps []discordgo.MessageComponent) error {
	msg, err := p.s.ChannelMessageSendComplex(ev.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: comps,
	}, discordgo.WithContext(ctx))
	if err != nil {
		p.logRESTError(err)
		return fmt.Errorf("publish roster: %w", err)
	}
	return p.ui.Upsert(ctx, ev.EventID, ev.ChannelID, msg.ID)
}

func (p *Presenter) logRESTError(err error) {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		p.log.Warn("discord rest",
			zap.Int("status", re.Response.StatusCode),
			zap.String("retry_after", re.Response.Header.Get("Retry-After")),
			zap.String("bucket", re.Response.Header.Get("X-RateLimit-Bucket")),
			zap.ByteString("body", re.ResponseBody),
		)
	}
}

// RemoveRoster borra el mensaje del roster y su puntero en event_ui.
func (p *Presenter) RemoveRoster(ctx context.Context, eventID string) {
	p.mu.Lock()
	if pr, ok := p.pending[eventID]; ok {
		pr.t.Stop()
		delete(p.pending, eventID)
	}
	delete(p.shown, eventID)
	p.mu.Unlock()

	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	ui, err := p.ui.Get(ctx, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		p.log.Warn("remove roster: get ui", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	err = p.s.ChannelMessageDelete(ui.ChannelID, ui.MessageID, discordgo.WithContext(ctx))
	if err != nil && !isRESTCode(err, codeUnknownMessage) {
		p.log.Warn("remove roster: delete message", zap.String("event_id", eventID), zap.Error(err))
	}
	if err := p.ui.Delete(ctx, eventID); err != nil {
		p.log.Warn("remove roster: delete ui", zap.String("event_id", eventID), zap.Error(err))
	}
}

// PresentChallenge manda el DM con Confirmar/Declinar. ref = "channelID:messageID".
func (p *Presenter) PresentChallenge(ctx context.Context, n domain.Notification) (string, error) {
	ch, err := p.s.UserChannelCreate(n.UserID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open dm: %w", err)
	}
	msg, err := p.s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content:    challengeText(n),
		Components: challengeButtons(n.NotificationID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send dm: %w", err)
	}
	return ch.ID + ":" + msg.ID, nil
}

func challengeText(n domain.Notification) string {
	end := n.EndTime.Unix()
	return fmt.Sprintf("📣 Confirmá tu lugar en el equipo **%s**.\nTenés hasta <t:%d:f> (<t:%d:R>). Si no confirmás, se libera tu lugar.",
		n.TeamName, end, end)
}

func challengeButtons(notificationID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style:    discordgo.SuccessButton,
					Label:    "Confirmo",
					CustomID: customID(idConfirm, notificationID),
					Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
				},
				discordgo.Button{
					Style:    discordgo.DangerButton,
					Label:    "No puedo",
					CustomID: customID(idDecline, notificationID),
					Emoji:    &discordgo.ComponentEmoji{Name: "✖️"},
				},
			},
		},
	}
}

func splitRef(ref string) (channelID, messageID string, ok bool) {
	channelID, messageID, ok = strings.Cut(ref, ":")
	return channelID, messageID, ok && channelID != "" && messageID != ""
}

// RetractChallenge borra el DM; si ya no existe no es error.
func (p *Presenter) RetractChallenge(ctx context.Context, ref string) error {
	channelID, messageID, ok := splitRef(ref)
	if !ok {
		return fmt.Errorf("bad message ref %q", ref)
	}
	err := p.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil && !isRESTCode(err, codeUnknownMessage) {
		return err
	}
	return nil
}

func (p *Presenter) NotifyUser(ctx context.Context, userID, text string) error {
	ch, err := p.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	_, err = p.s.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return err
}
