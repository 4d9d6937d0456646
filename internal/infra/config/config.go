package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordGuild string `env:"DISCORD_GUILD_ID,required,notEmpty"`
	SteamAPIKey  string `env:"STEAM_API_KEY"` // vacío = sin lookup, se registra con placeholder
	RedisURL     string `env:"REDIS_URL"`     // vacío = limiter en memoria
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// roles con permiso de admin además del owner y del bit Administrator
	AdminRoleIDs []string `env:"ADMIN_ROLE_IDS" envSeparator:","`

	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	ConfirmMaxAttempts int    `env:"CONFIRM_MAX_ATTEMPTS" envDefault:"5"`
	DefaultTimezone    string `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`
}

// Parse lee la configuración del entorno.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ConfirmMaxAttempts < 1 {
		return Config{}, fmt.Errorf("CONFIRM_MAX_ATTEMPTS must be >= 1, got %d", cfg.ConfirmMaxAttempts)
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return Config{}, fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Load carga .env si existe y corta el proceso si falta algo requerido.
func Load() Config {
	_ = godotenv.Load()
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Location es la zona horaria por defecto para interpretar send_time.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
