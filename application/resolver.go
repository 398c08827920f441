package application

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/forgeutils/check-updates/domain"
)

const (
	// defaultConcurrency bounds parallel registry lookups per run.
	defaultConcurrency = 10

	// cacheSize bounds the per-process lookup cache. A run over a large
	// monorepo rarely touches more than a few hundred distinct packages.
	cacheSize = 512
)

// Resolver answers "what versions exist" for a set of declarations. Lookups
// run concurrently with a bounded fan-out, duplicate names collapse into one
// request, and results are cached so repeated runs inside one process (and
// the same package across files) hit the registry once.
type Resolver struct {
	registry    domain.Registry
	cache       *lru.Cache[string, *domain.PackageInfo]
	group       singleflight.Group
	concurrency int
}

// NewResolver creates a resolver over one package index. A non-positive
// concurrency falls back to the default.
func NewResolver(registry domain.Registry, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	// The only construction error is a non-positive size.
	cache, _ := lru.New[string, *domain.PackageInfo](cacheSize)
	return &Resolver{
		registry:    registry,
		cache:       cache,
		concurrency: concurrency,
	}
}

// Resolution is the lookup outcome for one package name.
type Resolution struct {
	Info *domain.PackageInfo
	Err  error
}

// Resolve fetches registry data for every distinct package name in the
// declarations. Lookup failures land in the per-name result; the batch
// itself never fails.
func (r *Resolver) Resolve(
	ctx context.Context,
	declarations []domain.Declaration,
) map[string]Resolution {
	names := distinctNames(declarations)
	results := make(map[string]Resolution, len(names))

	var mu sync.Mutex
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(r.concurrency)

	for _, name := range names {
		name := name
		grp.Go(func() error {
			info, err := r.lookup(grpCtx, name)
			mu.Lock()
			results[name] = Resolution{Info: info, Err: err}
			mu.Unlock()
			return nil
		})
	}

	// Workers never return an error; they record it per name instead.
	_ = grp.Wait()
	return results
}

func (r *Resolver) lookup(ctx context.Context, name string) (*domain.PackageInfo, error) {
	if info, ok := r.cache.Get(name); ok {
		logger.Debugf("[resolver] cache hit for %s", name)
		return info, nil
	}

	value, err, _ := r.group.Do(name, func() (any, error) {
		info, lookupErr := r.registry.Lookup(ctx, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		r.cache.Add(name, info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*domain.PackageInfo), nil
}

// distinctNames returns the unique declaration names in first-seen order.
func distinctNames(declarations []domain.Declaration) []string {
	seen := make(map[string]struct{}, len(declarations))
	var names []string
	for _, decl := range declarations {
		if _, ok := seen[decl.Name]; ok {
			continue
		}
		seen[decl.Name] = struct{}{}
		names = append(names, decl.Name)
	}
	return names
}
