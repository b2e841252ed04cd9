package roles_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/roles"
	"github.com/dealerdesk/dealerdesk/internal/shared"
	_ "github.com/dealerdesk/dealerdesk/testing"
)

// fakeRepo backs the service with in-memory state. Effective codes are
// short-circuited per user so guard checks stay declarative.
type fakeRepo struct {
	codes     map[int64][]string
	roles     map[int64]rbac.Role
	perms     map[int64]rbac.Permission
	rolePerms map[int64][]int64
	assignees map[int64]int
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		codes:     map[int64][]string{},
		roles:     map[int64]rbac.Role{},
		perms:     map[int64]rbac.Permission{},
		rolePerms: map[int64][]int64{},
		assignees: map[int64]int{},
		nextID:    1,
	}
}

func (f *fakeRepo) EffectivePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	return f.codes[userID], nil
}

func (f *fakeRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	out := make([]rbac.Permission, 0, len(f.perms))
	for _, p := range f.perms {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) GetPermission(ctx context.Context, id int64) (rbac.Permission, error) {
	p, ok := f.perms[id]
	if !ok {
		return rbac.Permission{}, rbac.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	out := make([]rbac.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	for _, r := range f.roles {
		if r.Name == name {
			return rbac.Role{}, rbac.ErrDuplicateRole
		}
	}
	role := rbac.Role{ID: f.nextID, Name: name, Description: description}
	f.nextID++
	f.roles[role.ID] = role
	return role, nil
}

func (f *fakeRepo) UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	r.Name, r.Description = name, description
	f.roles[id] = r
	return r, nil
}

func (f *fakeRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := f.roles[id]; !ok {
		return rbac.ErrNotFound
	}
	delete(f.roles, id)
	delete(f.rolePerms, id)
	return nil
}

func (f *fakeRepo) RolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for _, pid := range f.rolePerms[roleID] {
		out = append(out, f.perms[pid])
	}
	return out, nil
}

func (f *fakeRepo) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	f.rolePerms[roleID] = append(f.rolePerms[roleID], permissionID)
	return nil
}

func (f *fakeRepo) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	kept := f.rolePerms[roleID][:0]
	for _, pid := range f.rolePerms[roleID] {
		if pid != permissionID {
			kept = append(kept, pid)
		}
	}
	f.rolePerms[roleID] = kept
	return nil
}

func (f *fakeRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	_, ok := f.codes[userID]
	return ok, nil
}

func (f *fakeRepo) UserRoles(ctx context.Context, userID int64) ([]rbac.Role, error) {
	return nil, nil
}

func (f *fakeRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	return nil
}

func (f *fakeRepo) RevokeRole(ctx context.Context, userID, roleID int64) error {
	return nil
}

func (f *fakeRepo) CountRoleAssignees(ctx context.Context, roleID int64) (int, error) {
	return f.assignees[roleID], nil
}

func newRouter(t *testing.T, repo *fakeRepo, actorID string) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cache := rbac.NewMemoryCache(0)
	engine := rbac.NewEngine(logger, repo, cache, nil)
	guard := rbac.Middleware{Engine: engine, Logger: logger}
	service := rbac.NewService(repo, engine)
	handler := roles.NewHandler(logger, service, guard, shared.NewAuditLogger(nil))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			if actorID != "" {
				sess.SetUser(actorID)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/roles", handler.MountRoutes)
	return r
}

func TestCreateRole(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[1] = []string{"roles:manage"}
	router := newRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(`{"name":"APPRAISER","description":"values trade-ins"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), "APPRAISER")
}

func TestCreateRoleRequiresManage(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[1] = []string{"roles:read"}
	router := newRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(`{"name":"APPRAISER"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestDeleteSystemRoleForbidden(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[1] = []string{"roles:manage"}
	repo.roles[10] = rbac.Role{ID: 10, Name: rbac.RoleSuperAdmin, IsSystem: true}
	router := newRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodDelete, "/roles/10", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "system roles")
}

func TestDeleteAssignedRoleConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[1] = []string{"roles:manage"}
	repo.roles[11] = rbac.Role{ID: 11, Name: "APPRAISER"}
	repo.assignees[11] = 3
	router := newRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodDelete, "/roles/11", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "3 user(s)")
}

func TestAssignUnknownPermission(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[1] = []string{"roles:manage"}
	repo.roles[11] = rbac.Role{ID: 11, Name: "APPRAISER"}
	router := newRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodPut, "/roles/11/permissions", strings.NewReader(`{"permission_ids":[99]}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestGetRoleNotFound(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[1] = []string{"roles:read"}
	router := newRouter(t, repo, "1")

	req := httptest.NewRequest(http.MethodGet, "/roles/404", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
}
