package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRetentionJob prunes access audit records older than the retention
// horizon. The engine itself never mutates audit rows; retention is an
// operational concern handled out of band.
type AuditRetentionJob struct {
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Retention time.Duration
	clock     func() time.Time
}

// NewAuditRetentionJob wires dependencies for the retention handler.
func NewAuditRetentionJob(pool *pgxpool.Pool, logger *slog.Logger, retention time.Duration) *AuditRetentionJob {
	return &AuditRetentionJob{
		Pool:      pool,
		Logger:    logger,
		Retention: retention,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes audit retention tasks.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.Retention
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}
	cutoff := j.clock().Add(-retention)
	tag, err := j.Pool.Exec(ctx, `DELETE FROM access_audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("audit retention sweep",
			slog.Time("cutoff", cutoff),
			slog.Int64("deleted", tag.RowsAffected()))
	}
	return nil
}
