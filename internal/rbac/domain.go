package rbac

import (
	"errors"
	"fmt"
	"time"
)

// Role represents a named bundle of permissions assignable to users. System
// roles are seeded and immutable through the management API.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability identified by its code. The code
// is the only field the resolver trusts; module/action/resource are display
// metadata kept consistent with it.
type Permission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Module      string `json:"module"`
	Action      string `json:"action"`
	Resource    string `json:"resource,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UserRole links a user to a role.
type UserRole struct {
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Seeded system role names.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleSales      = "SALES"
	RoleUser       = "USER"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrSystemRole indicates an attempted mutation of a protected system role.
	ErrSystemRole = errors.New("rbac: system role is protected")
	// ErrSelfRevoke indicates a principal attempting to revoke their own roles.
	ErrSelfRevoke = errors.New("rbac: cannot revoke own roles")
	// ErrDuplicateRole indicates a role name collision.
	ErrDuplicateRole = errors.New("rbac: role name already exists")
)

// RoleAssignedError blocks role deletion while users still hold the role.
type RoleAssignedError struct {
	RoleID    int64
	Assignees int
}

func (e *RoleAssignedError) Error() string {
	return fmt.Sprintf("rbac: role %d still assigned to %d user(s)", e.RoleID, e.Assignees)
}
