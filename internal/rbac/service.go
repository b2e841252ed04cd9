package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Invalidator is the cache-clearing surface mutations call after commit.
type Invalidator interface {
	ClearUserCache(userID int64)
	ClearAllCache()
}

// Service orchestrates role and assignment management. Every mutation runs as
// one short storage transaction followed by a cache invalidation, never the
// other way round, so a rolled-back mutation cannot flush valid entries.
type Service struct {
	repo  Repository
	cache Invalidator
}

// NewService constructs a Service.
func NewService(repo Repository, cache Invalidator) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// RolePermissions returns the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.RolePermissions(ctx, roleID)
}

// ListPermissions returns the permission catalog ordered by code.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreateRole inserts a new non-system role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames or redescribes a role. System roles reject all mutation.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if role.IsSystem {
		return Role{}, ErrSystemRole
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role with zero assignees, cascading its permission
// edges, then invalidates the whole cache.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	assignees, err := s.repo.CountRoleAssignees(ctx, id)
	if err != nil {
		return err
	}
	if assignees > 0 {
		return &RoleAssignedError{RoleID: id, Assignees: assignees}
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.cache.ClearAllCache()
	return nil
}

// AssignPermissions attaches permissions to a role. Re-assigning an
// already-held permission is a no-op. The role->user fan-out is unknown to
// the cache, so every entry is invalidated afterwards.
func (s *Service) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	for _, permissionID := range permissionIDs {
		if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
			return err
		}
		if err := s.repo.AttachPermission(ctx, roleID, permissionID); err != nil {
			return fmt.Errorf("rbac: attach permission %d: %w", permissionID, err)
		}
	}
	s.cache.ClearAllCache()
	return nil
}

// RevokePermissions detaches permissions from a role and invalidates every
// cached entry.
func (s *Service) RevokePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	for _, permissionID := range permissionIDs {
		if err := s.repo.DetachPermission(ctx, roleID, permissionID); err != nil {
			return fmt.Errorf("rbac: detach permission %d: %w", permissionID, err)
		}
	}
	s.cache.ClearAllCache()
	return nil
}

// AssignRoles grants roles to a user. Idempotent: an existing assignment only
// refreshes its timestamp. Only the target user's cache entry can change.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	for _, roleID := range roleIDs {
		if _, err := s.repo.GetRole(ctx, roleID); err != nil {
			return err
		}
		if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
			return fmt.Errorf("rbac: assign role %d: %w", roleID, err)
		}
	}
	s.cache.ClearUserCache(userID)
	return nil
}

// RevokeRoles removes roles from a user. Principals cannot revoke their own
// roles, which would allow accidental self-lockout.
func (s *Service) RevokeRoles(ctx context.Context, actorID, userID int64, roleIDs []int64) error {
	if actorID == userID {
		return ErrSelfRevoke
	}
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	for _, roleID := range roleIDs {
		if err := s.repo.RevokeRole(ctx, userID, roleID); err != nil {
			return fmt.Errorf("rbac: revoke role %d: %w", roleID, err)
		}
	}
	s.cache.ClearUserCache(userID)
	return nil
}

// UserRoles lists the roles a user currently holds.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return s.repo.UserRoles(ctx, userID)
}
