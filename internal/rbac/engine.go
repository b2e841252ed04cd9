package rbac

import (
	"context"
	"fmt"
	"log/slog"
)

// PermissionSource loads a user's effective permission codes from storage.
type PermissionSource interface {
	EffectivePermissionCodes(ctx context.Context, userID int64) ([]string, error)
}

// Observer receives authorization engine events for instrumentation.
type Observer interface {
	CacheHit()
	CacheMiss()
	Decision(allowed bool)
}

type nopObserver struct{}

func (nopObserver) CacheHit()  {}
func (nopObserver) CacheMiss() {}

func (nopObserver) Decision(bool) {}

// Engine is the authorization facade every protected route calls. It composes
// cache lookup, assignment-graph traversal on miss, and wildcard resolution.
// It never mutates the assignment graph.
type Engine struct {
	logger   *slog.Logger
	source   PermissionSource
	cache    PermissionCache
	observer Observer
}

// NewEngine constructs an Engine. The cache is injected so tests can
// substitute their own instance; observer may be nil.
func NewEngine(logger *slog.Logger, source PermissionSource, cache PermissionCache, observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{logger: logger, source: source, cache: cache, observer: observer}
}

// CheckPermission decides whether the user holds the requested permission
// code. On storage failure it returns (false, err): the caller must deny and
// surface an infrastructure error, never treat it as a policy denial.
func (e *Engine) CheckPermission(ctx context.Context, userID int64, requested string) (bool, error) {
	set, err := e.effectiveSet(ctx, userID)
	if err != nil {
		return false, err
	}
	allowed := Resolve(set, requested)
	e.observer.Decision(allowed)
	return allowed, nil
}

// EffectivePermissions returns the user's effective permission codes, sorted.
func (e *Engine) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	set, err := e.effectiveSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return set.Codes(), nil
}

// ClearUserCache drops a single user's cached permission set. Called after
// mutations scoped to that user's role assignments.
func (e *Engine) ClearUserCache(userID int64) {
	e.cache.InvalidateUser(userID)
}

// ClearAllCache drops every cached permission set. Called after mutations to
// a role's permission set, whose user fan-out the cache cannot know.
func (e *Engine) ClearAllCache() {
	e.cache.InvalidateAll()
}

func (e *Engine) effectiveSet(ctx context.Context, userID int64) (EffectiveSet, error) {
	// Snapshot the generation before the storage read so an invalidation that
	// lands mid-fill fences out the stale Put.
	gen := e.cache.Generation()
	if set, ok := e.cache.Get(userID); ok {
		e.observer.CacheHit()
		return set, nil
	}
	e.observer.CacheMiss()

	codes, err := e.source.EffectivePermissionCodes(ctx, userID)
	if err != nil {
		if e.logger != nil {
			e.logger.Error("load effective permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("rbac: load effective permissions: %w", err)
	}
	set := NewEffectiveSet(codes)
	e.cache.Put(userID, set, gen)
	return set, nil
}
