package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/config"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/service"
)

const ExpiryBatchSize = 100

// SessionExpirer finds and closes sessions past their time limit.
type SessionExpirer interface {
	Overdue(ctx context.Context, limit int) ([]uuid.UUID, error)
	Expire(ctx context.Context, sessionID uuid.UUID) (*model.FinalizedSession, error)
}

// releaseLock deletes the lock only while it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ExpiryWorker periodically finalizes abandoned sessions as TIMED_OUT.
// A Redis lock keeps replicas from sweeping at the same time.
type ExpiryWorker struct {
	sessions SessionExpirer
	rdb      *redis.Client
	interval time.Duration
	log      zerolog.Logger
}

func NewExpiryWorker(sessions SessionExpirer, rdb *redis.Client, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sessions: sessions,
		rdb:      rdb,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start sweeps every interval until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			n, err := w.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Sweep failed")
				continue
			}
			if n > 0 {
				w.log.Info().Int("expired", n).Msg("Expired overdue sessions")
			}
		}
	}
}

// Sweep runs one pass and returns how many sessions it closed. It does
// nothing when another replica holds the lock.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	key := config.CacheKey.ExpiryWorkerLockKey()
	token := uuid.NewString()

	acquired, err := w.rdb.SetNX(ctx, key, token, w.interval).Result()
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		w.log.Debug().Msg("Sweep lock held elsewhere")
		return 0, nil
	}
	defer func() {
		if err := releaseLock.Run(context.Background(), w.rdb, []string{key}, token).Err(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	ids, err := w.sessions.Overdue(ctx, ExpiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if _, err := w.sessions.Expire(ctx, id); err != nil {
			// Finalized by its owner between the listing and now.
			if errors.Is(err, service.ErrInvalidState) {
				continue
			}
			w.log.Error().Err(err).Str("session_id", id.String()).Msg("Expire failed")
			continue
		}
		expired++
	}
	return expired, nil
}
