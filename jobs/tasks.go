package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention prunes access audit records past the retention horizon.
	TaskAuditRetention = "audit:retention"
	// TaskContextWarmup pre-resolves permission contexts for recently active users.
	TaskContextWarmup = "authz:warmup"
)

// AuditRetentionPayload configures one retention sweep.
type AuditRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// ContextWarmupPayload configures one warmup run.
type ContextWarmupPayload struct {
	// Window selects users with audit activity within this duration.
	Window time.Duration `json:"window"`
	// Limit caps how many users are warmed per run.
	Limit int `json:"limit"`
}

// NewContextWarmupTask constructs an Asynq task.
func NewContextWarmupTask(payload ContextWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContextWarmup, data), nil
}
