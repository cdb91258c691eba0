package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KyleQD/Flow-sub006/internal/authz"
)

const (
	defaultWarmupWindow = time.Hour
	defaultWarmupLimit  = 200
)

// ContextWarmupJob pre-resolves permission and isolation contexts for users
// with recent activity, so the first request after a full cache flush does
// not pay the resolution cost.
type ContextWarmupJob struct {
	Authz  *authz.Service
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewContextWarmupJob wires dependencies for the warmup handler.
func NewContextWarmupJob(authzSvc *authz.Service, pool *pgxpool.Pool, logger *slog.Logger) *ContextWarmupJob {
	return &ContextWarmupJob{
		Authz:  authzSvc,
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes context warmup tasks.
func (j *ContextWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Authz == nil || j.Pool == nil {
		return errors.New("context warmup: handler not configured")
	}
	var payload ContextWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := payload.Window
	if window <= 0 {
		window = defaultWarmupWindow
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = defaultWarmupLimit
	}

	since := j.clock().Add(-window)
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT user_id FROM access_audit_logs
		WHERE occurred_at >= $1
		LIMIT $2`, since, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	warmed := 0
	for _, userID := range userIDs {
		if _, err := j.Authz.GetIsolationContext(ctx, userID); err != nil {
			if j.Logger != nil {
				j.Logger.Warn("context warmup skip user",
					slog.String("user_id", userID),
					slog.Any("error", err))
			}
			continue
		}
		warmed++
	}
	if j.Logger != nil {
		j.Logger.Info("context warmup complete",
			slog.Int("candidates", len(userIDs)),
			slog.Int("warmed", warmed))
	}
	return nil
}
