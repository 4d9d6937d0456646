package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	discordrouter "github.com/jose-valero/roster-bot/internal/adapters/discord"
	"github.com/jose-valero/roster-bot/internal/adapters/httpapi"
	"github.com/jose-valero/roster-bot/internal/adapters/steam"
	"github.com/jose-valero/roster-bot/internal/app/service"
	"github.com/jose-valero/roster-bot/internal/infra/cache"
	"github.com/jose-valero/roster-bot/internal/infra/config"
	"github.com/jose-valero/roster-bot/internal/infra/logger"
	"github.com/jose-valero/roster-bot/internal/infra/storage"
	"github.com/jose-valero/roster-bot/internal/infra/timer"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const clickWindow = time.Second

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// DB
	db, err := storage.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		lg.Fatal("db open", zap.Error(err))
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db, lg.Named("migrate")); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}
	lg.Info("✅ DB lista y migrada")

	// Repos
	eventsRepo := storage.NewEventRepo(db)
	notesRepo := storage.NewNotificationRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)
	profilesRepo := storage.NewProfileRepo(db)
	uiRepo := storage.NewUIRepo(db)

	// Steam (antes de los services que lo usan)
	sc := steam.New(cfg.SteamAPIKey)
	if cfg.SteamAPIKey == "" {
		lg.Warn("STEAM_API_KEY vacío: los registros usan placeholder")
	}

	// Click limiter: Redis si hay, si no en memoria
	var limiter discordrouter.Limiter = cache.NewMemoryLimiter(clickWindow)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			lg.Warn("redis no disponible, limiter en memoria", zap.Error(err))
		} else {
			defer rdb.Close()
			limiter = cache.NewRedisLimiter(rdb, clickWindow, lg)
		}
	}

	// Discord session (el presenter la necesita antes que los services)
	auth := strings.TrimSpace(cfg.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		lg.Fatal("discord session", zap.Error(err))
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages
	presenter := discordrouter.NewPresenter(s, uiRepo, lg.Named("presenter"))

	// Services
	timers := timer.NewRegistry()
	defer timers.Stop()
	rosterSvc := service.NewRosterService(eventsRepo, sc, profilesRepo, presenter, lg.Named("roster"),
		service.WithRosterMaxAttempts(cfg.ConfirmMaxAttempts))
	confirmSvc := service.NewConfirmationService(notesRepo, rosterSvc, presenter, timers, lg.Named("confirm"),
		service.WithConfirmationMaxAttempts(cfg.ConfirmMaxAttempts))
	settingsSvc := service.NewSettingsService(settingsRepo, cfg.Location(), lg.Named("settings"))

	if err := s.Open(); err != nil {
		lg.Fatal("discord open", zap.Error(err))
	}
	defer s.Close()
	lg.Info("✅ Conectado", zap.String("user", s.State.User.Username), zap.String("id", s.State.User.ID))

	// Timers: primero lo que quedó pendiente de la corrida anterior. Sin esto no
	// se aceptan interacciones.
	rep, err := confirmSvc.Recover(ctx)
	if err != nil {
		lg.Fatal("recover", zap.Error(err))
	}
	lg.Info("✅ recovery",
		zap.Int("settled", rep.Settled),
		zap.Int("expired", rep.Expired),
		zap.Int("rearmed", rep.Rearmed),
		zap.Int("retrying", rep.Retrying))

	// Router
	r := discordrouter.NewRouter(
		s,
		cfg.DiscordGuild,
		cfg.AdminRoleIDs,
		rosterSvc,
		confirmSvc,
		settingsSvc,
		profilesRepo,
		limiter,
		lg.Named("discord"),
	)
	r.Handlers()
	if err := r.Register(); err != nil {
		lg.Fatal("registrando comandos", zap.Error(err))
	}
	lg.Info("✅ comandos registrados", zap.String("guild_id", cfg.DiscordGuild))

	// HTTP de solo lectura
	web := httpapi.New(rosterSvc, db, lg)
	go func() {
		if err := web.Start(ctx, cfg.HTTPAddr); err != nil {
			lg.Error("http", zap.Error(err))
		}
	}()

	// Esperar señal
	<-ctx.Done()
	lg.Info("apagando")
}
