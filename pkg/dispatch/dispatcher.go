// Package dispatch maps concrete runtime types to the handlers (parsers or
// converters) registered for them.
//
// Lookup walks the exact type's bucket first, most recent registration
// first, then the buckets of its ancestors in breadth-first order of the
// supertype Hierarchy, and finally the buckets keyed by non-empty interfaces
// the type implements that the walk did not reach. Each handler is yielded
// at most once even when several ancestor paths lead to it. The acceptance
// predicate is only evaluated for candidates the caller actually pulls.
package dispatch

import (
	"iter"
	"reflect"
	"sync"
)

// Dispatcher is safe for concurrent registration and lookup. Handlers are
// compared by identity, so H's dynamic values must be comparable (pointers
// in practice).
type Dispatcher[H comparable] struct {
	hierarchy *Hierarchy

	mu      sync.RWMutex
	buckets map[reflect.Type][]H
	ifaces  []reflect.Type // interface-typed keys, in first-registration order
	version uint64

	linear sync.Map // reflect.Type -> *linearization
}

type linearization struct {
	version    uint64
	generation uint64
	types      []reflect.Type
}

// New creates a dispatcher over hierarchy. A nil hierarchy means no declared
// supertypes: only exact and implemented-interface buckets match.
func New[H comparable](hierarchy *Hierarchy) *Dispatcher[H] {
	if hierarchy == nil {
		hierarchy = NewHierarchy()
	}
	return &Dispatcher[H]{
		hierarchy: hierarchy,
		buckets:   make(map[reflect.Type][]H),
	}
}

// Hierarchy returns the supertype table the dispatcher walks.
func (d *Dispatcher[H]) Hierarchy() *Hierarchy {
	return d.hierarchy
}

// Register puts h at the front of the bucket for exactly t. Registering a
// handler already present in that bucket is a no-op.
func (d *Dispatcher[H]) Register(t reflect.Type, h H) {
	if t == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bucket, existed := d.buckets[t]
	for _, x := range bucket {
		if x == h {
			return
		}
	}

	// copy on write: lookups hold on to old slices without locking
	next := make([]H, 0, len(bucket)+1)
	next = append(next, h)
	next = append(next, bucket...)
	d.buckets[t] = next

	if !existed && t.Kind() == reflect.Interface {
		d.ifaces = append(d.ifaces, t)
	}
	d.version++
}

// Unregister removes h from every bucket.
func (d *Dispatcher[H]) Unregister(h H) {
	d.UnregisterIf(func(x H) bool { return x == h })
}

// UnregisterIf removes every handler for which pred returns true.
func (d *Dispatcher[H]) UnregisterIf(pred func(H) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	changed := false
	for t, bucket := range d.buckets {
		kept := make([]H, 0, len(bucket))
		for _, h := range bucket {
			if !pred(h) {
				kept = append(kept, h)
			}
		}
		if len(kept) == len(bucket) {
			continue
		}
		changed = true
		if len(kept) == 0 {
			delete(d.buckets, t)
			d.removeIface(t)
			continue
		}
		d.buckets[t] = kept
	}
	if changed {
		d.version++
	}
}

func (d *Dispatcher[H]) removeIface(t reflect.Type) {
	for i, x := range d.ifaces {
		if x == t {
			d.ifaces = append(d.ifaces[:i:i], d.ifaces[i+1:]...)
			return
		}
	}
}

// Lookup yields the handlers applicable to v's runtime type that accept
// returns true for. A nil accept accepts everything.
func (d *Dispatcher[H]) Lookup(v any, accept func(H) bool) iter.Seq[H] {
	if v == nil {
		return func(func(H) bool) {}
	}
	return d.LookupType(reflect.TypeOf(v), accept)
}

// LookupType is Lookup keyed by a type rather than an instance.
func (d *Dispatcher[H]) LookupType(t reflect.Type, accept func(H) bool) iter.Seq[H] {
	buckets := d.snapshot(t)

	return func(yield func(H) bool) {
		seen := make(map[H]struct{})
		for _, bucket := range buckets {
			for _, h := range bucket {
				if _, dup := seen[h]; dup {
					continue
				}
				seen[h] = struct{}{}
				if accept != nil && !accept(h) {
					continue
				}
				if !yield(h) {
					return
				}
			}
		}
	}
}

// First returns the first handler Lookup would yield.
func (d *Dispatcher[H]) First(v any, accept func(H) bool) (H, bool) {
	for h := range d.Lookup(v, accept) {
		return h, true
	}
	var zero H
	return zero, false
}

// Handlers returns every registered handler once, in no particular order.
func (d *Dispatcher[H]) Handlers() []H {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[H]struct{})
	var out []H
	for _, bucket := range d.buckets {
		for _, h := range bucket {
			if _, dup := seen[h]; !dup {
				seen[h] = struct{}{}
				out = append(out, h)
			}
		}
	}
	return out
}

// snapshot returns the non-empty buckets for t in lookup order.
func (d *Dispatcher[H]) snapshot(t reflect.Type) [][]H {
	d.mu.RLock()
	defer d.mu.RUnlock()

	types := d.linearize(t)
	buckets := make([][]H, 0, len(types))
	for _, x := range types {
		if bucket := d.buckets[x]; len(bucket) > 0 {
			buckets = append(buckets, bucket)
		}
	}
	return buckets
}

// linearize computes, or reuses, the visiting order for t. Callers hold at
// least the read lock.
func (d *Dispatcher[H]) linearize(t reflect.Type) []reflect.Type {
	generation := d.hierarchy.Generation()
	if cached, ok := d.linear.Load(t); ok {
		l := cached.(*linearization)
		if l.version == d.version && l.generation == generation {
			return l.types
		}
	}

	types := d.hierarchy.Ancestors(t)
	visited := make(map[reflect.Type]struct{}, len(types))
	for _, x := range types {
		visited[x] = struct{}{}
	}
	for _, iface := range d.ifaces {
		if _, ok := visited[iface]; ok || iface.NumMethod() == 0 {
			continue
		}
		if t.Implements(iface) {
			types = append(types, iface)
		}
	}

	d.linear.Store(t, &linearization{version: d.version, generation: generation, types: types})
	return types
}
