package users

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Profile is a user joined with its role assignments and the flattened
// permission codes those roles grant.
type Profile struct {
	User        User        `json:"user"`
	Roles       []rbac.Role `json:"roles"`
	Permissions []string    `json:"permissions"`
}

// Service coordinates user listing with the authorization engine.
type Service struct {
	repo   Repository
	rbac   *rbac.Service
	engine *rbac.Engine
}

// NewService builds Service instance.
func NewService(repo Repository, rbacService *rbac.Service, engine *rbac.Engine) *Service {
	return &Service{repo: repo, rbac: rbacService, engine: engine}
}

// List returns a page of users with pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Get returns a user with assigned roles and effective permission codes.
func (s *Service) Get(ctx context.Context, id int64) (Profile, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	roles, err := s.rbac.UserRoles(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	codes, err := s.engine.EffectivePermissions(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Roles: roles, Permissions: codes}, nil
}

// AssignRoles grants roles to the user and invalidates their cached grants.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return s.rbac.AssignRoles(ctx, userID, roleIDs)
}

// RevokeRoles removes roles from the user. Actors cannot revoke their own
// roles; that guard lives in the rbac service.
func (s *Service) RevokeRoles(ctx context.Context, actorID, userID int64, roleIDs []int64) error {
	return s.rbac.RevokeRoles(ctx, actorID, userID, roleIDs)
}

// SetActive enables or disables an account. Disabling clears the cached
// permission set; the next check reloads from the assignment graph, which
// resolves deactivated users to an empty set, so in-flight sessions lose
// access promptly.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		s.engine.ClearUserCache(id)
	}
	return nil
}
