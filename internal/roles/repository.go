package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KyleQD/Flow-sub006/internal/platform/db"
	"github.com/KyleQD/Flow-sub006/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for roles and the
// permission catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	const query = `
		SELECT id, name, display_name, description, is_system_role, created_at, updated_at
		FROM roles ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("roles: list: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	return roles, nil
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id string) (Role, error) {
	const query = `
		SELECT id, name, display_name, description, is_system_role, created_at, updated_at
		FROM roles WHERE id = $1`
	var role Role
	err := r.pool.QueryRow(ctx, query, id).Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, fmt.Errorf("roles: get: %w", err)
	}
	return role, nil
}

// CreateRole inserts a new non-system role.
func (r *Repository) CreateRole(ctx context.Context, input RoleInput) (Role, error) {
	const query = `
		INSERT INTO roles (id, name, display_name, description, is_system_role)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, name, display_name, description, is_system_role, created_at, updated_at`
	var role Role
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), input.Name, input.DisplayName, input.Description).
		Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, shared.ErrDuplicateRole
		}
		return Role{}, fmt.Errorf("roles: create: %w", err)
	}
	return role, nil
}

// UpdateRole updates role fields.
func (r *Repository) UpdateRole(ctx context.Context, id string, input RoleInput) (Role, error) {
	const query = `
		UPDATE roles SET name = $2, display_name = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, display_name, description, is_system_role, created_at, updated_at`
	var role Role
	err := r.pool.QueryRow(ctx, query, id, input.Name, input.DisplayName, input.Description).
		Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, fmt.Errorf("roles: update: %w", err)
	}
	return role, nil
}

// DeleteRole removes a role and reports how many rows were deleted.
func (r *Repository) DeleteRole(ctx context.Context, id string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("roles: delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListPermissions returns the full permission catalog ordered by category.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	const query = `SELECT id, name, category, description FROM permissions ORDER BY category, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("roles: list permissions: %w", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description); err != nil {
			return nil, fmt.Errorf("roles: list permissions: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: list permissions: %w", err)
	}
	return perms, nil
}

// ListRolePermissions returns the catalog entries attached to a role.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	const query = `
		SELECT p.id, p.name, p.category, p.description
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.category, p.name`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("roles: list role permissions: %w", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description); err != nil {
			return nil, fmt.Errorf("roles: list role permissions: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: list role permissions: %w", err)
	}
	return perms, nil
}

// ReplaceRolePermissions swaps a role's permission set atomically: the old
// edges are deleted and the new ones inserted inside one transaction, so a
// concurrent resolver never observes a half-replaced set.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("roles: clear permissions: %w", err)
		}
		for _, permissionID := range permissionIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, permissionID); err != nil {
				return fmt.Errorf("roles: attach permission: %w", err)
			}
		}
		return nil
	})
}
