package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/KyleQD/Flow-sub006/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	CreateRole(ctx context.Context, input RoleInput) (Role, error)
	UpdateRole(ctx context.Context, id string, input RoleInput) (Role, error)
	DeleteRole(ctx context.Context, id string) (int64, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error)
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
}

// CacheInvalidator flushes resolved permission contexts after role
// mutations. Satisfied by the authz service.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Service handles role registry business logic.
type Service struct {
	repo  RepositoryPort
	cache CacheInvalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new custom role.
func (s *Service) CreateRole(ctx context.Context, input RoleInput) (Role, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.Name == "" {
		return Role{}, fmt.Errorf("roles: role name required")
	}
	if input.DisplayName == "" {
		input.DisplayName = input.Name
	}
	return s.repo.CreateRole(ctx, input)
}

// UpdateRole updates a role. System roles keep their identity: renaming one
// is rejected, while display name and description stay editable.
func (s *Service) UpdateRole(ctx context.Context, id string, input RoleInput) (Role, error) {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		input.Name = existing.Name
	}
	if existing.IsSystemRole && input.Name != existing.Name {
		return Role{}, shared.ErrSystemRole
	}
	return s.repo.UpdateRole(ctx, id, input)
}

// DeleteRole removes a non-system role.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return shared.ErrSystemRole
	}
	affected, err := s.repo.DeleteRole(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return shared.ErrNotFound
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

// ListPermissions returns the full catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// ListRolePermissions returns the permissions attached to a role.
func (s *Service) ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.ListRolePermissions(ctx, roleID)
}

// UpdateRolePermissions replaces the role's full permission set and flushes
// the entire context cache: a permission set change potentially affects
// every user holding the role, not just one. The flush completes before the
// caller sees success.
func (s *Service) UpdateRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.cache.InvalidateAll(ctx)
	return nil
}
