package convert

import (
	"context"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aleksaelezovic/rdfstream/internal/metrics"
)

// Resolver converts values to one target type, caching the conversion path
// per source type.
type Resolver struct {
	registry *Registry
	target   reflect.Type

	mu         sync.RWMutex
	cache      map[reflect.Type]resolution
	generation uint64

	// collapses concurrent first resolutions of the same source type
	group    singleflight.Group
	searches atomic.Int64
}

// resolution is a cached search result; ok=false is the negative entry.
type resolution struct {
	path Path
	ok   bool
}

// NewResolver creates a resolver converting to target.
func NewResolver(registry *Registry, target reflect.Type) *Resolver {
	if registry == nil {
		registry = Default()
	}
	return &Resolver{
		registry:   registry,
		target:     target,
		cache:      make(map[reflect.Type]resolution),
		generation: registry.Generation(),
	}
}

// Target returns the type every converted value is assignable to.
func (r *Resolver) Target() reflect.Type {
	return r.target
}

// Searches returns how many graph searches this resolver has run.
func (r *Resolver) Searches() int64 {
	return r.searches.Load()
}

// Convert brings v to the target type. Values already assignable to the
// target are returned unchanged.
func (r *Resolver) Convert(ctx context.Context, v any) (any, error) {
	if v == nil {
		return nil, Inconvertible(v, r.target, nil)
	}
	from := reflect.TypeOf(v)
	if from.AssignableTo(r.target) {
		return v, nil
	}

	path, ok := r.Resolve(from)
	if !ok {
		return nil, Inconvertible(v, r.target, nil)
	}

	out, err := path.Apply(ctx, v)
	if err != nil {
		return nil, Inconvertible(v, r.target, err)
	}
	if out == nil || !reflect.TypeOf(out).AssignableTo(r.target) {
		return nil, Inconvertible(v, r.target, nil)
	}
	return out, nil
}

// Resolve returns the shortest converter chain from values of type from to
// the target. The result, positive or negative, is cached.
func (r *Resolver) Resolve(from reflect.Type) (Path, bool) {
	if from.AssignableTo(r.target) {
		return Path{}, true
	}

	r.invalidateIfStale()

	r.mu.RLock()
	res, hit := r.cache[from]
	r.mu.RUnlock()
	if hit {
		if res.ok {
			metrics.ResolverLookups.WithLabelValues("hit").Inc()
		} else {
			metrics.ResolverLookups.WithLabelValues("negative").Inc()
		}
		return res.path, res.ok
	}
	metrics.ResolverLookups.WithLabelValues("miss").Inc()

	v, _, _ := r.group.Do(typeKey(from), func() (any, error) {
		// Double-check cache inside singleflight
		r.mu.RLock()
		res, hit := r.cache[from]
		r.mu.RUnlock()
		if hit {
			return res, nil
		}

		generation := r.registry.Generation()
		path, ok := r.search(from)
		res = resolution{path: path, ok: ok}
		r.remember(from, res, generation)

		r.registry.logger.Debug("conversion path resolved",
			zap.Stringer("from", from),
			zap.Stringer("to", r.target),
			zap.Bool("reachable", ok),
			zap.Stringer("path", path))
		return res, nil
	})
	res = v.(resolution)
	return res.path, res.ok
}

// remember caches res unless the graph changed since generation was read.
func (r *Resolver) remember(from reflect.Type, res resolution, generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != generation || r.registry.Generation() != generation {
		return false
	}
	r.cache[from] = res
	return true
}

func (r *Resolver) invalidateIfStale() {
	generation := r.registry.Generation()

	r.mu.RLock()
	stale := generation != r.generation
	r.mu.RUnlock()
	if !stale {
		return
	}

	r.mu.Lock()
	if generation != r.generation {
		r.cache = make(map[reflect.Type]resolution)
		r.generation = generation
	}
	r.mu.Unlock()
}

type searchNode struct {
	t    reflect.Type
	prev *searchNode
	via  Converter
}

func (n *searchNode) path() Path {
	var steps int
	for x := n; x.prev != nil; x = x.prev {
		steps++
	}
	path := make(Path, steps)
	for x := n; x.prev != nil; x = x.prev {
		steps--
		path[steps] = x.via
	}
	return path
}

// search runs a breadth-first search from the leaf type. The first node
// assignable to the target ends it, which makes the chain a shortest one.
func (r *Resolver) search(from reflect.Type) (Path, bool) {
	r.searches.Add(1)
	metrics.ResolverSearches.Inc()

	visited := map[reflect.Type]struct{}{from: {}}
	queue := []*searchNode{{t: from}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for c := range r.registry.Edges(node.t) {
			out := c.OutputType()
			if _, seen := visited[out]; seen {
				continue
			}
			visited[out] = struct{}{}

			next := &searchNode{t: out, prev: node, via: c}
			if out.AssignableTo(r.target) {
				return next.path(), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

var (
	typeKeys   sync.Map // reflect.Type -> string
	typeKeySeq atomic.Uint64
)

// typeKey gives each type a process-unique singleflight key; String() alone
// is ambiguous across packages with the same name.
func typeKey(t reflect.Type) string {
	if k, ok := typeKeys.Load(t); ok {
		return k.(string)
	}
	k, _ := typeKeys.LoadOrStore(t, strconv.FormatUint(typeKeySeq.Add(1), 10))
	return k.(string)
}
