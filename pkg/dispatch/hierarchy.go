package dispatch

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Hierarchy is an explicit supertype table. Go has no class inheritance, so
// the "ancestors" of a type are whatever the table declares: usually the
// interfaces a representation satisfies, or a more general representation
// it can stand in for.
type Hierarchy struct {
	mu         sync.RWMutex
	supers     map[reflect.Type][]reflect.Type
	generation atomic.Uint64
}

// NewHierarchy returns an empty supertype table.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{supers: make(map[reflect.Type][]reflect.Type)}
}

// Declare records supers as direct supertypes of t, in order. Repeated
// declarations append; duplicates and self references are ignored.
func (h *Hierarchy) Declare(t reflect.Type, supers ...reflect.Type) {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing := h.supers[t]
	for _, s := range supers {
		if s == nil || s == t || containsType(existing, s) {
			continue
		}
		existing = append(existing, s)
	}
	h.supers[t] = existing
	h.generation.Add(1)
}

// Supertypes returns the declared direct supertypes of t. A pointer type
// with no declarations of its own inherits those of its element type.
func (h *Hierarchy) Supertypes(t reflect.Type) []reflect.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if supers, ok := h.supers[t]; ok {
		return supers
	}
	if t.Kind() == reflect.Pointer {
		return h.supers[t.Elem()]
	}
	return nil
}

// Generation changes whenever the table changes.
func (h *Hierarchy) Generation() uint64 {
	return h.generation.Load()
}

// Ancestors returns t followed by its declared supertypes in breadth-first
// order: t is dequeued first and each dequeued type enqueues its direct
// supertypes. Every type appears once.
func (h *Hierarchy) Ancestors(t reflect.Type) []reflect.Type {
	order := []reflect.Type{t}
	visited := map[reflect.Type]struct{}{t: {}}

	for i := 0; i < len(order); i++ {
		for _, s := range h.Supertypes(order[i]) {
			if _, seen := visited[s]; seen {
				continue
			}
			visited[s] = struct{}{}
			order = append(order, s)
		}
	}
	return order
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
