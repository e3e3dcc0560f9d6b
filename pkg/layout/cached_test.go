package layout

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/econic-ai/graphs/pkg/cache"
	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/observability"
	"github.com/econic-ai/graphs/pkg/projection"
)

// fakeProvider returns a fixed result and counts solves.
type fakeProvider struct {
	calls  int
	result map[string]metagraph.Vec3
	err    error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Positions(ctx context.Context, g *projection.VisibleGraph, opts Options) (map[string]metagraph.Vec3, error) {
	p.calls++
	return p.result, p.err
}

func TestCachedSolvesOnceAndHits(t *testing.T) {
	ctx := context.Background()
	g := chainGraph(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer fc.Close()

	fake := &fakeProvider{result: map[string]metagraph.Vec3{"a": {X: 1, Y: 2}}}
	p := Cached(fake, fc, time.Hour)

	first, err := p.Positions(ctx, g, Options{})
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("first call should solve: calls = %d", fake.calls)
	}

	second, err := p.Positions(ctx, g, Options{})
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("second call should hit the cache: calls = %d", fake.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}

	// Changed options key separately.
	if _, err := p.Positions(ctx, g, Options{Width: 400}); err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if fake.calls != 2 {
		t.Errorf("changed options should solve fresh: calls = %d", fake.calls)
	}
}

func TestCachedKeysOnGraphContent(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer fc.Close()

	fake := &fakeProvider{result: map[string]metagraph.Vec3{"a": {}}}
	p := Cached(fake, fc, time.Hour)

	s := metagraph.New()
	if err := s.AddNode(metagraph.NodeDef{ID: "a", Kind: metagraph.KindLeaf}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := p.Positions(ctx, projection.Project(s, projection.NewExpansion()), Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}

	if err := s.AddNode(metagraph.NodeDef{ID: "b", Kind: metagraph.KindLeaf}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := p.Positions(ctx, projection.Project(s, projection.NewExpansion()), Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if fake.calls != 2 {
		t.Errorf("changed graph should solve fresh: calls = %d", fake.calls)
	}
}

func TestCachedNilCache(t *testing.T) {
	ctx := context.Background()
	g := chainGraph(t)
	fake := &fakeProvider{result: map[string]metagraph.Vec3{}}
	p := Cached(fake, nil, 0)

	for i := 0; i < 2; i++ {
		if _, err := p.Positions(ctx, g, Options{}); err != nil {
			t.Fatalf("Positions: %v", err)
		}
	}
	if fake.calls != 2 {
		t.Errorf("nil cache should never hit: calls = %d", fake.calls)
	}
	if p.Name() != "fake" {
		t.Errorf("Name = %q, want fake", p.Name())
	}
}

func TestCachedScopedKeyer(t *testing.T) {
	ctx := context.Background()
	g := chainGraph(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer fc.Close()

	// Same backend, same provider name: without scoping the second
	// provider reads the first one's entry.
	shared1 := &fakeProvider{result: map[string]metagraph.Vec3{"a": {X: 1}}}
	shared2 := &fakeProvider{result: map[string]metagraph.Vec3{"a": {X: 2}}}
	if _, err := Cached(shared1, fc, time.Hour).Positions(ctx, g, Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if _, err := Cached(shared2, fc, time.Hour).Positions(ctx, g, Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if shared2.calls != 0 {
		t.Fatalf("unscoped providers should share entries: calls = %d", shared2.calls)
	}

	// Scoped keyers isolate the namespaces.
	scopedA := Cached(&fakeProvider{result: map[string]metagraph.Vec3{"a": {X: 1}}}, fc, time.Hour).
		WithKeyer(cache.NewScopedKeyer(nil, "a:"))
	scopedFake := &fakeProvider{result: map[string]metagraph.Vec3{"a": {X: 2}}}
	scopedB := Cached(scopedFake, fc, time.Hour).
		WithKeyer(cache.NewScopedKeyer(nil, "b:"))

	if _, err := scopedA.Positions(ctx, g, Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}
	got, err := scopedB.Positions(ctx, g, Options{})
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if scopedFake.calls != 1 {
		t.Errorf("scoped provider should solve its own entry: calls = %d", scopedFake.calls)
	}
	if got["a"].X != 2 {
		t.Errorf("scoped provider got another scope's entry: %v", got)
	}
}

func TestCachedPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeProvider{err: boom}
	p := Cached(fake, nil, 0)

	if _, err := p.Positions(context.Background(), chainGraph(t), Options{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

// cacheRecorder counts hook invocations.
type cacheRecorder struct {
	hits, misses, sets int
	keyType            string
}

func (r *cacheRecorder) OnCacheHit(ctx context.Context, keyType string) {
	r.hits++
	r.keyType = keyType
}

func (r *cacheRecorder) OnCacheMiss(ctx context.Context, keyType string) { r.misses++ }

func (r *cacheRecorder) OnCacheSet(ctx context.Context, keyType string, size int) { r.sets++ }

func TestCachedFiresHooks(t *testing.T) {
	rec := &cacheRecorder{}
	observability.SetCacheHooks(rec)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	g := chainGraph(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer fc.Close()

	p := Cached(&fakeProvider{result: map[string]metagraph.Vec3{"a": {}}}, fc, time.Hour)
	if _, err := p.Positions(ctx, g, Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if _, err := p.Positions(ctx, g, Options{}); err != nil {
		t.Fatalf("Positions: %v", err)
	}

	if rec.misses != 1 || rec.sets != 1 || rec.hits != 1 {
		t.Errorf("hooks = %d miss / %d set / %d hit, want 1 / 1 / 1", rec.misses, rec.sets, rec.hits)
	}
	if rec.keyType != "layout" {
		t.Errorf("keyType = %q, want layout", rec.keyType)
	}
}
