package authz

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Auditor appends one record per access decision, success or failure. Audit
// writes must never abort the caller's primary operation: failures are
// logged and swallowed.
type Auditor struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditor constructs an Auditor.
func NewAuditor(store Store, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{store: store, logger: logger, now: time.Now}
}

// Record persists one access decision.
func (a *Auditor) Record(ctx context.Context, userID, resourceType, resourceID, action string, success bool, metadata map[string]any) {
	record := AuditRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Success:      success,
		Metadata:     metadata,
		OccurredAt:   a.now().UTC(),
	}
	if err := a.store.InsertAuditRecord(ctx, record); err != nil {
		a.logger.Error("audit write failed",
			slog.String("user_id", userID),
			slog.String("resource_type", resourceType),
			slog.String("action", action),
			slog.Any("error", err))
	}
}
