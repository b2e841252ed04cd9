package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/shared"
	_ "github.com/dealerdesk/dealerdesk/testing"
)

type memRepo struct {
	users  map[int64]User
	active map[int64]bool
}

func (m *memRepo) List(ctx context.Context, page, perPage int) ([]User, int, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(m.users), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) SetActive(ctx context.Context, id int64, active bool) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	m.active[id] = active
	return nil
}

// rbacRepo satisfies rbac.Repository with just enough for profile reads.
// It honors the contract that deactivated users resolve to an empty set.
type rbacRepo struct {
	roles  map[int64][]rbac.Role
	codes  map[int64][]string
	active map[int64]bool
}

func (r *rbacRepo) EffectivePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	if !r.active[userID] {
		return nil, nil
	}
	return r.codes[userID], nil
}
func (r *rbacRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	return nil, nil
}
func (r *rbacRepo) GetPermission(ctx context.Context, id int64) (rbac.Permission, error) {
	return rbac.Permission{}, rbac.ErrNotFound
}
func (r *rbacRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) { return nil, nil }
func (r *rbacRepo) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	return rbac.Role{}, rbac.ErrNotFound
}
func (r *rbacRepo) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	return rbac.Role{}, nil
}
func (r *rbacRepo) UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error) {
	return rbac.Role{}, nil
}
func (r *rbacRepo) DeleteRole(ctx context.Context, id int64) error { return nil }
func (r *rbacRepo) RolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	return nil, nil
}
func (r *rbacRepo) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	return nil
}
func (r *rbacRepo) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	return nil
}
func (r *rbacRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	_, ok := r.roles[userID]
	return ok, nil
}
func (r *rbacRepo) UserRoles(ctx context.Context, userID int64) ([]rbac.Role, error) {
	return r.roles[userID], nil
}
func (r *rbacRepo) AssignRole(ctx context.Context, userID, roleID int64) error  { return nil }
func (r *rbacRepo) RevokeRole(ctx context.Context, userID, roleID int64) error { return nil }
func (r *rbacRepo) CountRoleAssignees(ctx context.Context, roleID int64) (int, error) {
	return 0, nil
}

func newService(t *testing.T) (*Service, *memRepo, *rbac.MemoryCache) {
	t.Helper()
	active := map[int64]bool{7: true}
	repo := &memRepo{
		users: map[int64]User{
			7: {ID: 7, Email: "sales@dealerdesk.local", Name: "Sales One", IsActive: true},
		},
		active: active,
	}
	authz := &rbacRepo{
		roles:  map[int64][]rbac.Role{7: {{ID: 4, Name: rbac.RoleSales}}},
		codes:  map[int64][]string{7: {"vehicles:read", "leads:*"}},
		active: active,
	}
	cache := rbac.NewMemoryCache(0)
	engine := rbac.NewEngine(nil, authz, cache, nil)
	return NewService(repo, rbac.NewService(authz, engine), engine), repo, cache
}

func TestGetProfile(t *testing.T) {
	svc, _, _ := newService(t)

	profile, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "sales@dealerdesk.local", profile.User.Email)
	require.Len(t, profile.Roles, 1)
	assert.Equal(t, rbac.RoleSales, profile.Roles[0].Name)
	assert.Equal(t, []string{"leads:*", "vehicles:read"}, profile.Permissions)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateClearsCache(t *testing.T) {
	svc, repo, cache := newService(t)

	// Warm the cache through the engine.
	_, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	require.NoError(t, svc.SetActive(context.Background(), 7, false))
	assert.False(t, repo.active[7])
	assert.Equal(t, 0, cache.Len())
}

func TestDeactivatedUserDeniedOnNextCheck(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	allowed, err := svc.engine.CheckPermission(ctx, 7, "vehicles:read")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, svc.SetActive(ctx, 7, false))

	// The cleared cache forces a reload, and the assignment graph
	// resolves deactivated users to an empty set.
	allowed, err = svc.engine.CheckPermission(ctx, 7, "vehicles:read")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = svc.engine.CheckPermission(ctx, 7, "leads:create")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestReactivateKeepsCacheCold(t *testing.T) {
	svc, repo, cache := newService(t)

	require.NoError(t, svc.SetActive(context.Background(), 7, true))
	assert.True(t, repo.active[7])
	assert.Equal(t, 0, cache.Len())
}
