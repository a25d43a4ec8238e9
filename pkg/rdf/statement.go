package rdf

import (
	"fmt"
)

// Shape is the arity of a stream element.
type Shape int

const (
	// ShapeUnknown is declared by producers that cannot tell statically
	// whether an element will be read as a triple or a quad.
	ShapeUnknown Shape = iota
	ShapeTriple
	ShapeQuad
)

func (s Shape) String() string {
	switch s {
	case ShapeTriple:
		return "triple"
	case ShapeQuad:
		return "quad"
	default:
		return "unknown"
	}
}

// Opposite returns the other concrete shape. ShapeUnknown maps to itself.
func (s Shape) Opposite() Shape {
	switch s {
	case ShapeTriple:
		return ShapeQuad
	case ShapeQuad:
		return ShapeTriple
	default:
		return ShapeUnknown
	}
}

// TripleValue is implemented by any representation that can expose itself
// as a triple without loss.
type TripleValue interface {
	AsTriple() *Triple
}

// QuadValue is implemented by any representation that can expose itself as
// a quad without loss.
type QuadValue interface {
	AsQuad() *Quad
}

// Triple represents an RDF triple (subject, predicate, object)
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

func (t *Triple) AsTriple() *Triple {
	return t
}

// Equals compares the three positions term by term.
func (t *Triple) Equals(other *Triple) bool {
	if t == nil || other == nil {
		return t == other
	}
	return termEquals(t.Subject, other.Subject) &&
		termEquals(t.Predicate, other.Predicate) &&
		termEquals(t.Object, other.Object)
}

// InGraph lifts the triple into graph g. A nil graph means the default graph.
func (t *Triple) InGraph(g Term) *Quad {
	if g == nil {
		g = NewDefaultGraph()
	}
	return NewQuad(t.Subject, t.Predicate, t.Object, g)
}

// Quad represents an RDF quad (subject, predicate, object, graph)
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(subject, predicate, object, graph Term) *Quad {
	return &Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Graph:     graph,
	}
}

func (q *Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

func (q *Quad) AsQuad() *Quad {
	return q
}

// Equals compares all four positions; nil and DefaultGraph graphs are equal.
func (q *Quad) Equals(other *Quad) bool {
	if q == nil || other == nil {
		return q == other
	}
	if IsDefaultGraph(q.Graph) != IsDefaultGraph(other.Graph) {
		return false
	}
	if !IsDefaultGraph(q.Graph) && !q.Graph.Equals(other.Graph) {
		return false
	}
	return termEquals(q.Subject, other.Subject) &&
		termEquals(q.Predicate, other.Predicate) &&
		termEquals(q.Object, other.Object)
}

// Split separates the graph from the statement.
func (q *Quad) Split() (Term, *Triple) {
	return q.Graph, NewTriple(q.Subject, q.Predicate, q.Object)
}

// Statement is a triple or a quad: G is nil for triples. Producers that do
// not know the shape of their elements in advance emit statements.
type Statement struct {
	S, P, O Term
	G       Term
}

func (s *Statement) String() string {
	if s.G == nil {
		return fmt.Sprintf("%s %s %s .", s.S, s.P, s.O)
	}
	return fmt.Sprintf("%s %s %s %s .", s.S, s.P, s.O, s.G)
}

// IsQuad reports whether the statement carries a graph.
func (s *Statement) IsQuad() bool {
	return s.G != nil
}

// AsTriple drops the graph.
func (s *Statement) AsTriple() *Triple {
	return NewTriple(s.S, s.P, s.O)
}

// AsQuad returns the statement as a quad, in the default graph if G is nil.
func (s *Statement) AsQuad() *Quad {
	g := s.G
	if g == nil {
		g = NewDefaultGraph()
	}
	return NewQuad(s.S, s.P, s.O, g)
}
