package authz

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPermissionTTL bounds staleness of cached permission contexts.
	DefaultPermissionTTL = 5 * time.Minute
	// DefaultIsolationTTL bounds staleness of cached isolation contexts,
	// which aggregate multiple tours and are costlier to rebuild.
	DefaultIsolationTTL = 10 * time.Minute
	// DefaultCacheSize caps entries per cache before LRU eviction.
	DefaultCacheSize = 4096
)

// ContextCache fronts the Resolver with two independent TTL caches: one for
// per-scope permission contexts, one for per-user isolation contexts. Expiry
// is handled by the expirable LRU itself, so there is never a timer per
// entry. Concurrent fills for the same key are deduplicated; a lost race
// recomputes the same value from the store, so last-write-wins is correct.
type ContextCache struct {
	resolver *Resolver

	perms *expirable.LRU[string, *PermissionContext]
	iso   *expirable.LRU[string, *DataIsolationContext]

	permGroup singleflight.Group
	isoGroup  singleflight.Group
}

// CacheOptions tunes the cache; zero values fall back to defaults.
type CacheOptions struct {
	PermissionTTL time.Duration
	IsolationTTL  time.Duration
	Size          int
}

// NewContextCache constructs a cache over the given resolver.
func NewContextCache(resolver *Resolver, opts CacheOptions) *ContextCache {
	if opts.PermissionTTL <= 0 {
		opts.PermissionTTL = DefaultPermissionTTL
	}
	if opts.IsolationTTL <= 0 {
		opts.IsolationTTL = DefaultIsolationTTL
	}
	if opts.Size <= 0 {
		opts.Size = DefaultCacheSize
	}
	return &ContextCache{
		resolver: resolver,
		perms:    expirable.NewLRU[string, *PermissionContext](opts.Size, nil, opts.PermissionTTL),
		iso:      expirable.NewLRU[string, *DataIsolationContext](opts.Size, nil, opts.IsolationTTL),
	}
}

// PermissionContext returns the cached context for (user, scope), resolving
// and storing it on miss.
func (c *ContextCache) PermissionContext(ctx context.Context, userID string, tourID *string) (*PermissionContext, error) {
	key := cacheKey(userID, tourID)
	if cached, ok := c.perms.Get(key); ok {
		return cached, nil
	}
	value, err := singleflightDo(ctx, &c.permGroup, key, func(ctx context.Context) (*PermissionContext, error) {
		resolved, err := c.resolver.PermissionContext(ctx, userID, tourID)
		if err != nil {
			return nil, err
		}
		c.perms.Add(key, resolved)
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// IsolationContext returns the cached isolation context for the user,
// resolving and storing it on miss.
func (c *ContextCache) IsolationContext(ctx context.Context, userID string) (*DataIsolationContext, error) {
	if cached, ok := c.iso.Get(userID); ok {
		return cached, nil
	}
	value, err := singleflightDo(ctx, &c.isoGroup, userID, func(ctx context.Context) (*DataIsolationContext, error) {
		resolved, err := c.resolver.IsolationContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.iso.Add(userID, resolved)
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// InvalidateUser evicts every cached scope for the user, regardless of TTL.
// Called eagerly on any role assignment mutation.
func (c *ContextCache) InvalidateUser(userID string) {
	prefix := userID + "|"
	for _, key := range c.perms.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.perms.Remove(key)
		}
	}
	c.iso.Remove(userID)
}

// InvalidateAll flushes both caches. Used after role permission set changes,
// which can affect every user holding the role.
func (c *ContextCache) InvalidateAll() {
	c.perms.Purge()
	c.iso.Purge()
}

func cacheKey(userID string, tourID *string) string {
	scope := GlobalScope
	if tourID != nil {
		scope = *tourID
	}
	return userID + "|" + scope
}

// singleflightDo runs fn once per in-flight key, honoring ctx cancellation
// for the waiting caller.
func singleflightDo[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	resultChan := group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
