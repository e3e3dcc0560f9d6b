package layout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/econic-ai/graphs/pkg/cache"
	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/observability"
	"github.com/econic-ai/graphs/pkg/projection"
)

// CachedProvider wraps a Provider with a derived-result cache. Solved
// positions are keyed by the projection's content hash plus the layout
// options, so any change to the visible graph or the frame solves
// fresh while repeat solves come back without running the provider.
type CachedProvider struct {
	provider Provider
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
}

// Cached wraps p with the given cache. A nil c disables caching via a
// null cache; a zero ttl falls back to cache.TTLLayout.
func Cached(p Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	if c == nil {
		c = cache.NewNullCache()
	}
	if ttl == 0 {
		ttl = cache.TTLLayout
	}
	return &CachedProvider{
		provider: p,
		cache:    c,
		keyer:    cache.NewDefaultKeyer(),
		ttl:      ttl,
	}
}

// WithKeyer replaces the key generator, e.g. with a ScopedKeyer when
// the backend is shared across sessions. Returns the provider for
// chaining.
func (cp *CachedProvider) WithKeyer(k cache.Keyer) *CachedProvider {
	if k != nil {
		cp.keyer = k
	}
	return cp
}

// Name identifies the wrapped provider.
func (cp *CachedProvider) Name() string { return cp.provider.Name() }

// Positions returns cached positions when the projection and options
// match an earlier solve, and delegates to the wrapped provider
// otherwise. Cache failures degrade to a plain solve.
func (cp *CachedProvider) Positions(ctx context.Context, g *projection.VisibleGraph, opts Options) (map[string]metagraph.Vec3, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	key := cp.keyer.LayoutKey(g.Hash(), cache.LayoutKeyOpts{
		Provider: cp.provider.Name(),
		Width:    opts.Width,
		Height:   opts.Height,
		Spacing:  opts.Spacing,
	})

	if data, hit, err := cp.cache.Get(ctx, key); err == nil && hit {
		var positions map[string]metagraph.Vec3
		if err := json.Unmarshal(data, &positions); err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			return positions, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	positions, err := cp.provider.Positions(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(positions); err == nil {
		if err := cp.cache.Set(ctx, key, data, cp.ttl); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return positions, nil
}

// Ensure CachedProvider implements Provider.
var _ Provider = (*CachedProvider)(nil)
