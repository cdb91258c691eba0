package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolvePermissions computes the union of permissions carried by every
// active role assignment matching the scope.
func (r *Repository) ResolvePermissions(ctx context.Context, userID string, tourID *string) ([]string, error) {
	const query = `
		SELECT DISTINCT p.name
		FROM role_assignments ra
		JOIN role_permissions rp ON rp.role_id = ra.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ra.user_id = $1
		  AND ra.is_active
		  AND (ra.tour_id IS NULL OR ra.tour_id = $2)`
	rows, err := r.pool.Query(ctx, query, userID, tourID)
	if err != nil {
		return nil, fmt.Errorf("authz: resolve permissions: %w", err)
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("authz: resolve permissions: %w", err)
		}
		perms = append(perms, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: resolve permissions: %w", err)
	}
	return perms, nil
}

// SelectRoleAssignments returns all assignments for a user with role identity.
func (r *Repository) SelectRoleAssignments(ctx context.Context, userID string) ([]RoleAssignment, error) {
	const query = `
		SELECT ra.id, ra.user_id, ra.role_id, ro.name, ro.display_name,
		       ra.tour_id, ra.is_active, ra.assigned_at, ra.assigned_by
		FROM role_assignments ra
		JOIN roles ro ON ro.id = ra.role_id
		WHERE ra.user_id = $1
		ORDER BY ra.assigned_at`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("authz: select assignments: %w", err)
	}
	defer rows.Close()
	var assignments []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.RoleID, &a.RoleName, &a.DisplayName, &a.TourID, &a.IsActive, &a.AssignedAt, &a.AssignedBy); err != nil {
			return nil, fmt.Errorf("authz: select assignments: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: select assignments: %w", err)
	}
	return assignments, nil
}

// InsertRoleAssignment persists a new active assignment.
func (r *Repository) InsertRoleAssignment(ctx context.Context, assignment RoleAssignment) (RoleAssignment, error) {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	assignment.IsActive = true
	const query = `
		INSERT INTO role_assignments (id, user_id, role_id, tour_id, is_active, assigned_at, assigned_by)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)`
	_, err := r.pool.Exec(ctx, query, assignment.ID, assignment.UserID, assignment.RoleID, assignment.TourID, assignment.AssignedAt, assignment.AssignedBy)
	if err != nil {
		return RoleAssignment{}, fmt.Errorf("authz: insert assignment: %w", err)
	}
	return assignment, nil
}

// DeactivateRoleAssignment soft-deletes matching assignments.
func (r *Repository) DeactivateRoleAssignment(ctx context.Context, userID, roleID string, tourID *string) (int64, error) {
	const query = `
		UPDATE role_assignments
		SET is_active = FALSE
		WHERE user_id = $1 AND role_id = $2 AND is_active
		  AND (($3::text IS NULL AND tour_id IS NULL) OR tour_id = $3)`
	tag, err := r.pool.Exec(ctx, query, userID, roleID, tourID)
	if err != nil {
		return 0, fmt.Errorf("authz: deactivate assignment: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertAuditRecord appends one access decision record.
func (r *Repository) InsertAuditRecord(ctx context.Context, record AuditRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("authz: marshal audit metadata: %w", err)
	}
	const query = `
		INSERT INTO access_audit_logs (id, user_id, resource_type, resource_id, action, success, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.pool.Exec(ctx, query, record.ID, record.UserID, record.ResourceType, record.ResourceID, record.Action, record.Success, metaJSON, record.OccurredAt); err != nil {
		return fmt.Errorf("authz: insert audit record: %w", err)
	}
	return nil
}

// ListTours returns tours filtered by id set; nil means all tours.
func (r *Repository) ListTours(ctx context.Context, tourIDs []string) ([]Tour, error) {
	query := `SELECT id, name, status FROM tours ORDER BY name`
	args := []any{}
	if tourIDs != nil {
		query = `SELECT id, name, status FROM tours WHERE id = ANY($1) ORDER BY name`
		args = append(args, tourIDs)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("authz: list tours: %w", err)
	}
	defer rows.Close()
	var tours []Tour
	for rows.Next() {
		var t Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.Status); err != nil {
			return nil, fmt.Errorf("authz: list tours: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: list tours: %w", err)
	}
	return tours, nil
}

// ListEvents returns events belonging to the tour id set; nil means all.
func (r *Repository) ListEvents(ctx context.Context, tourIDs []string) ([]Event, error) {
	query := `SELECT id, tour_id, name, event_date FROM events ORDER BY event_date`
	args := []any{}
	if tourIDs != nil {
		query = `SELECT id, tour_id, name, event_date FROM events WHERE tour_id = ANY($1) ORDER BY event_date`
		args = append(args, tourIDs)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("authz: list events: %w", err)
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TourID, &e.Name, &e.Date); err != nil {
			return nil, fmt.Errorf("authz: list events: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: list events: %w", err)
	}
	return events, nil
}

// EventTour resolves the owning tour for an event.
func (r *Repository) EventTour(ctx context.Context, eventID string) (string, error) {
	const query = `SELECT tour_id FROM events WHERE id = $1`
	var tourID string
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&tourID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("authz: event tour: %w", err)
	}
	return tourID, nil
}
