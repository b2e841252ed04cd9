package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edge struct {
	roleID       int64
	permissionID int64
}

type userEdge struct {
	userID int64
	roleID int64
}

type fakeRepo struct {
	roles       map[int64]Role
	permissions map[int64]Permission
	users       map[int64]bool
	rolePerms   map[edge]bool
	userRoles   map[userEdge]time.Time

	nextRoleID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		roles:       make(map[int64]Role),
		permissions: make(map[int64]Permission),
		users:       make(map[int64]bool),
		rolePerms:   make(map[edge]bool),
		userRoles:   make(map[userEdge]time.Time),
		nextRoleID:  1,
	}
}

func (f *fakeRepo) addRole(name string, isSystem bool) Role {
	role := Role{ID: f.nextRoleID, Name: name, IsSystem: isSystem}
	f.roles[role.ID] = role
	f.nextRoleID++
	return role
}

func (f *fakeRepo) addPermission(id int64, code string) Permission {
	parsed, _ := ParseCode(code)
	p := Permission{ID: id, Code: code, Module: parsed.Module, Action: parsed.Action}
	f.permissions[id] = p
	return p
}

func (f *fakeRepo) EffectivePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	var codes []string
	for ue := range f.userRoles {
		if ue.userID != userID {
			continue
		}
		for e := range f.rolePerms {
			if e.roleID != ue.roleID {
				continue
			}
			code := f.permissions[e.permissionID].Code
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (f *fakeRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms := make([]Permission, 0, len(f.permissions))
	for _, p := range f.permissions {
		perms = append(perms, p)
	}
	return perms, nil
}

func (f *fakeRepo) GetPermission(ctx context.Context, id int64) (Permission, error) {
	p, ok := f.permissions[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ListRoles(ctx context.Context) ([]Role, error) {
	roles := make([]Role, 0, len(f.roles))
	for _, r := range f.roles {
		roles = append(roles, r)
	}
	return roles, nil
}

func (f *fakeRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (f *fakeRepo) CreateRole(ctx context.Context, name, description string) (Role, error) {
	for _, r := range f.roles {
		if r.Name == name {
			return Role{}, ErrDuplicateRole
		}
	}
	role := Role{ID: f.nextRoleID, Name: name, Description: description}
	f.roles[role.ID] = role
	f.nextRoleID++
	return role, nil
}

func (f *fakeRepo) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Name = name
	role.Description = description
	f.roles[id] = role
	return role, nil
}

func (f *fakeRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := f.roles[id]; !ok {
		return ErrNotFound
	}
	delete(f.roles, id)
	for e := range f.rolePerms {
		if e.roleID == id {
			delete(f.rolePerms, e)
		}
	}
	return nil
}

func (f *fakeRepo) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	var perms []Permission
	for e := range f.rolePerms {
		if e.roleID == roleID {
			perms = append(perms, f.permissions[e.permissionID])
		}
	}
	return perms, nil
}

func (f *fakeRepo) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	f.rolePerms[edge{roleID: roleID, permissionID: permissionID}] = true
	return nil
}

func (f *fakeRepo) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	delete(f.rolePerms, edge{roleID: roleID, permissionID: permissionID})
	return nil
}

func (f *fakeRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	var roles []Role
	for ue := range f.userRoles {
		if ue.userID == userID {
			roles = append(roles, f.roles[ue.roleID])
		}
	}
	return roles, nil
}

func (f *fakeRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	f.userRoles[userEdge{userID: userID, roleID: roleID}] = time.Now()
	return nil
}

func (f *fakeRepo) RevokeRole(ctx context.Context, userID, roleID int64) error {
	delete(f.userRoles, userEdge{userID: userID, roleID: roleID})
	return nil
}

func (f *fakeRepo) CountRoleAssignees(ctx context.Context, roleID int64) (int, error) {
	count := 0
	for ue := range f.userRoles {
		if ue.roleID == roleID {
			count++
		}
	}
	return count, nil
}

type recordingInvalidator struct {
	userClears []int64
	allClears  int
}

func (r *recordingInvalidator) ClearUserCache(userID int64) {
	r.userClears = append(r.userClears, userID)
}

func (r *recordingInvalidator) ClearAllCache() {
	r.allClears++
}

func newServiceFixture() (*Service, *fakeRepo, *recordingInvalidator) {
	repo := newFakeRepo()
	inv := &recordingInvalidator{}
	return NewService(repo, inv), repo, inv
}

func TestAssignPermissionsSystemRoleRejected(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	system := repo.addRole(RoleSuperAdmin, true)
	repo.addPermission(10, "vehicles:read")

	err := svc.AssignPermissions(context.Background(), system.ID, []int64{10})
	require.ErrorIs(t, err, ErrSystemRole)
	assert.Zero(t, inv.allClears, "no invalidation when the mutation is rejected")
}

func TestAssignPermissionsInvalidatesAll(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	role := repo.addRole("appraisers", false)
	repo.addPermission(10, "vehicles:read")
	repo.addPermission(11, "vehicles:update")

	err := svc.AssignPermissions(context.Background(), role.ID, []int64{10, 11})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.allClears)

	perms, err := svc.RolePermissions(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 2)

	// Re-assigning is a no-op, not an error.
	err = svc.AssignPermissions(context.Background(), role.ID, []int64{10})
	require.NoError(t, err)
	perms, err = svc.RolePermissions(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestAssignPermissionsUnknownPermission(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	role := repo.addRole("appraisers", false)

	err := svc.AssignPermissions(context.Background(), role.ID, []int64{999})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, inv.allClears)
}

func TestRevokePermissionsInvalidatesAll(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	role := repo.addRole("appraisers", false)
	repo.addPermission(10, "vehicles:read")
	require.NoError(t, repo.AttachPermission(context.Background(), role.ID, 10))

	err := svc.RevokePermissions(context.Background(), role.ID, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.allClears)

	perms, err := svc.RolePermissions(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestAssignRolesInvalidatesOnlyTargetUser(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	role := repo.addRole("appraisers", false)
	repo.users[7] = true

	err := svc.AssignRoles(context.Background(), 7, []int64{role.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, inv.userClears)
	assert.Zero(t, inv.allClears)
}

func TestAssignRolesIdempotent(t *testing.T) {
	svc, repo, _ := newServiceFixture()
	role := repo.addRole("appraisers", false)
	repo.users[7] = true

	require.NoError(t, svc.AssignRoles(context.Background(), 7, []int64{role.ID}))
	first := repo.userRoles[userEdge{userID: 7, roleID: role.ID}]

	require.NoError(t, svc.AssignRoles(context.Background(), 7, []int64{role.ID}))
	second := repo.userRoles[userEdge{userID: 7, roleID: role.ID}]

	assert.Len(t, repo.userRoles, 1, "re-assignment must not create a duplicate edge")
	assert.False(t, second.Before(first), "re-assignment refreshes assigned_at")
}

func TestAssignRolesUnknownUser(t *testing.T) {
	svc, repo, _ := newServiceFixture()
	role := repo.addRole("appraisers", false)

	err := svc.AssignRoles(context.Background(), 99, []int64{role.ID})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeRolesSelfLockoutGuard(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	role := repo.addRole("appraisers", false)
	repo.users[7] = true
	require.NoError(t, repo.AssignRole(context.Background(), 7, role.ID))

	err := svc.RevokeRoles(context.Background(), 7, 7, []int64{role.ID})
	require.ErrorIs(t, err, ErrSelfRevoke)
	assert.Empty(t, inv.userClears)

	err = svc.RevokeRoles(context.Background(), 1, 7, []int64{role.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, inv.userClears)
}

func TestDeleteRoleBlockedWhileAssigned(t *testing.T) {
	svc, repo, inv := newServiceFixture()
	role := repo.addRole("appraisers", false)
	repo.users[7] = true
	require.NoError(t, repo.AssignRole(context.Background(), 7, role.ID))

	err := svc.DeleteRole(context.Background(), role.ID)
	var assigned *RoleAssignedError
	require.ErrorAs(t, err, &assigned)
	assert.Equal(t, 1, assigned.Assignees)
	assert.Zero(t, inv.allClears)

	require.NoError(t, repo.RevokeRole(context.Background(), 7, role.ID))
	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))
	assert.Equal(t, 1, inv.allClears)

	_, err = svc.GetRole(context.Background(), role.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSystemRoleRejected(t *testing.T) {
	svc, repo, _ := newServiceFixture()
	system := repo.addRole(RoleAdmin, true)

	err := svc.DeleteRole(context.Background(), system.ID)
	require.ErrorIs(t, err, ErrSystemRole)
}

func TestUpdateSystemRoleRejected(t *testing.T) {
	svc, repo, _ := newServiceFixture()
	system := repo.addRole(RoleManager, true)

	_, err := svc.UpdateRole(context.Background(), system.ID, "renamed", "")
	require.ErrorIs(t, err, ErrSystemRole)
}

func TestCreateRoleValidation(t *testing.T) {
	svc, _, _ := newServiceFixture()

	_, err := svc.CreateRole(context.Background(), "   ", "")
	require.Error(t, err)

	role, err := svc.CreateRole(context.Background(), " appraisers ", " trade-in valuation ")
	require.NoError(t, err)
	assert.Equal(t, "appraisers", role.Name)
	assert.Equal(t, "trade-in valuation", role.Description)

	_, err = svc.CreateRole(context.Background(), "appraisers", "")
	assert.ErrorIs(t, err, ErrDuplicateRole)
}
