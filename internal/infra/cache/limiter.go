// Package cache tiene el limitador de clicks por usuario. Con Redis el límite
// se comparte entre réplicas del bot; sin Redis queda en memoria.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type MemoryLimiter struct {
	mu   sync.Mutex
	next map[string]time.Time
	win  time.Duration
	now  func() time.Time
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{next: map[string]time.Time{}, win: window, now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, userID string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.next[userID]; ok && now.Before(until) {
		return false
	}
	l.next[userID] = now.Add(l.win)
	// purga entradas vencidas
	if len(l.next) > 4096 {
		for k, until := range l.next {
			if now.After(until) {
				delete(l.next, k)
			}
		}
	}
	return true
}

type RedisLimiter struct {
	rdb      *redis.Client
	win      time.Duration
	prefix   string
	fallback *MemoryLimiter
	log      *zap.Logger
}

// NewRedisClient parsea la URL y verifica la conexión.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration, log *zap.Logger) *RedisLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLimiter{
		rdb:      rdb,
		win:      window,
		prefix:   "roster:click:",
		fallback: NewMemoryLimiter(window),
		log:      log.Named("limiter"),
	}
}

// Allow usa SET NX PX: el primer click de la ventana gana. Si Redis falla
// se decide con el limitador en memoria.
func (l *RedisLimiter) Allow(ctx context.Context, userID string) bool {
	ok, err := l.rdb.SetNX(ctx, l.prefix+userID, 1, l.win).Result()
	if err != nil {
		l.log.Warn("redis setnx", zap.Error(err))
		return l.fallback.Allow(ctx, userID)
	}
	return ok
}
