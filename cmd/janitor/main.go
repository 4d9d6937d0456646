package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jose-valero/roster-bot/internal/infra/logger"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type cleanup struct {
	name string
	sql  string
}

// el orden importa: event_ui antes que events
var cleanups = []cleanup{
	{"notifications", `
DELETE FROM notifications
WHERE status <> 'pending'
  AND settled_at IS NOT NULL
  AND settled_at < now() - INTERVAL '7 days';`},
	{"event_ui", `
DELETE FROM event_ui u
USING events e
WHERE u.event_id = e.event_id
  AND e.status = 'stopped'
  AND e.updated_at < now() - INTERVAL '30 days'
  AND NOT EXISTS (SELECT 1 FROM notifications n WHERE n.event_id = e.event_id AND n.status = 'pending');`},
	{"events", `
DELETE FROM events e
WHERE e.status = 'stopped'
  AND e.updated_at < now() - INTERVAL '30 days'
  AND NOT EXISTS (SELECT 1 FROM notifications n WHERE n.event_id = e.event_id AND n.status = 'pending');`},
}

// purge corre cada limpieza; un fallo no frena las siguientes.
func purge(ctx context.Context, db execer, log *zap.Logger) (map[string]int64, error) {
	out := make(map[string]int64, len(cleanups))
	var firstErr error
	for _, c := range cleanups {
		tag, err := db.Exec(ctx, c.sql)
		if err != nil {
			log.Error("cleanup", zap.String("table", c.name), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", c.name, err)
			}
			continue
		}
		out[c.name] = tag.RowsAffected()
		log.Info("cleanup", zap.String("table", c.name), zap.Int64("deleted", tag.RowsAffected()))
	}
	return out, firstErr
}

func handler(ctx context.Context) (string, error) {
	log := logger.New(os.Getenv("LOG_LEVEL"))
	defer func() { _ = log.Sync() }()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	res, err := purge(cctx, pool, log)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ok notifications=%d events=%d", res["notifications"], res["events"]), nil
}

func main() {
	_ = godotenv.Load()
	lambda.Start(handler)
}
