package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	codes map[int64][]string
	err   error
	loads int
}

func (s *stubSource) EffectivePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.codes[userID], nil
}

func newTestEngine(source *stubSource) (*Engine, *MemoryCache) {
	cache := NewMemoryCache(0)
	return NewEngine(nil, source, cache, nil), cache
}

func TestCheckPermissionUnionAcrossRoles(t *testing.T) {
	// Role A grants leads:read, role B grants leads:create; the engine sees
	// the union and passes both checks.
	source := &stubSource{codes: map[int64][]string{1: {"leads:read", "leads:create"}}}
	engine, _ := newTestEngine(source)

	allowed, err := engine.CheckPermission(context.Background(), 1, "leads:read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = engine.CheckPermission(context.Background(), 1, "leads:create")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = engine.CheckPermission(context.Background(), 1, "leads:delete")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckPermissionUsesCache(t *testing.T) {
	source := &stubSource{codes: map[int64][]string{1: {"vehicles:read"}}}
	engine, _ := newTestEngine(source)

	for i := 0; i < 5; i++ {
		_, err := engine.CheckPermission(context.Background(), 1, "vehicles:read")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, source.loads, "repeat checks for the same user hit the cache")
}

func TestCheckPermissionRevocationAfterInvalidation(t *testing.T) {
	source := &stubSource{codes: map[int64][]string{1: {"vehicles:delete"}}}
	engine, _ := newTestEngine(source)

	allowed, err := engine.CheckPermission(context.Background(), 1, "vehicles:delete")
	require.NoError(t, err)
	require.True(t, allowed)

	// Revoke in storage, then invalidate. The next check must observe the
	// post-mutation state, never a stale allow.
	source.codes[1] = nil
	engine.ClearUserCache(1)

	allowed, err = engine.CheckPermission(context.Background(), 1, "vehicles:delete")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckPermissionFailsClosedOnStorageError(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	engine, _ := newTestEngine(source)

	allowed, err := engine.CheckPermission(context.Background(), 1, "vehicles:read")
	require.Error(t, err)
	assert.False(t, allowed)
}

func TestCheckPermissionZeroRolesDeniesEverything(t *testing.T) {
	source := &stubSource{codes: map[int64][]string{}}
	engine, _ := newTestEngine(source)

	allowed, err := engine.CheckPermission(context.Background(), 42, "vehicles:read")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckPermissionSeedScenario(t *testing.T) {
	// SALES holds vehicles:read, customers:create/read/update and leads:*.
	sales := []string{"vehicles:read", "customers:create", "customers:read", "customers:update", "leads:*"}
	source := &stubSource{codes: map[int64][]string{1: sales}}
	engine, _ := newTestEngine(source)

	allowed, err := engine.CheckPermission(context.Background(), 1, "leads:convert")
	require.NoError(t, err)
	assert.True(t, allowed, "leads:* covers leads:convert")

	allowed, err = engine.CheckPermission(context.Background(), 1, "vehicles:delete")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Grant SUPER_ADMIN (*:*) and invalidate; the denial flips.
	source.codes[1] = append(sales, "*:*")
	engine.ClearUserCache(1)

	allowed, err = engine.CheckPermission(context.Background(), 1, "vehicles:delete")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestEffectivePermissions(t *testing.T) {
	source := &stubSource{codes: map[int64][]string{1: {"vehicles:read", "leads:*", "vehicles:read"}}}
	engine, _ := newTestEngine(source)

	codes, err := engine.EffectivePermissions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"leads:*", "vehicles:read"}, codes)
}

func TestClearAllCacheForcesReload(t *testing.T) {
	source := &stubSource{codes: map[int64][]string{1: {"vehicles:read"}, 2: {"leads:read"}}}
	engine, _ := newTestEngine(source)

	_, err := engine.CheckPermission(context.Background(), 1, "vehicles:read")
	require.NoError(t, err)
	_, err = engine.CheckPermission(context.Background(), 2, "leads:read")
	require.NoError(t, err)
	require.Equal(t, 2, source.loads)

	engine.ClearAllCache()

	_, err = engine.CheckPermission(context.Background(), 1, "vehicles:read")
	require.NoError(t, err)
	_, err = engine.CheckPermission(context.Background(), 2, "leads:read")
	require.NoError(t, err)
	assert.Equal(t, 4, source.loads)
}
