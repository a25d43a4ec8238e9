// Package lexical holds a string-based triple and quad representation: each
// position keeps the term in its N-Triples lexical form. It is the shape
// produced by JSON-lines sources and is cheap to marshal.
package lexical

import "strings"

// Triple is a statement whose terms are kept in N-Triples syntax, for example
// "<http://example.org/s>", "_:b0" or "\"chat\"@fr".
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

func (t Triple) String() string {
	return strings.Join([]string{t.Subject, t.Predicate, t.Object, "."}, " ")
}

// Quad adds the graph position; an empty Graph denotes the default graph.
type Quad struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Graph     string `json:"graph,omitempty"`
}

func (q Quad) String() string {
	parts := []string{q.Subject, q.Predicate, q.Object}
	if q.Graph != "" {
		parts = append(parts, q.Graph)
	}
	return strings.Join(append(parts, "."), " ")
}

// Triple drops the graph.
func (q Quad) Triple() Triple {
	return Triple{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}
}

// InGraph lifts t into graph g.
func (t Triple) InGraph(g string) Quad {
	return Quad{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object, Graph: g}
}
