package rdf

import (
	"strconv"
	"strings"
	"time"
)

// TermType tags the kind of a Term.
type TermType byte

const (
	TermTypeNamedNode TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
	TermTypeDefaultGraph
)

var termTypeNames = [...]string{
	TermTypeNamedNode:    "iri",
	TermTypeBlankNode:    "bnode",
	TermTypeLiteral:      "literal",
	TermTypeDefaultGraph: "default",
}

func (t TermType) String() string {
	if t > 0 && int(t) < len(termTypeNames) {
		return termTypeNames[t]
	}
	return "unknown"
}

// Term is one position of a statement. String returns the N-Triples form,
// except for the default graph, which has none.
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
}

// NamedNode is an IRI.
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode {
	return &NamedNode{IRI: iri}
}

func (n *NamedNode) Type() TermType { return TermTypeNamedNode }
func (n *NamedNode) String() string { return "<" + n.IRI + ">" }

func (n *NamedNode) Equals(other Term) bool {
	o, ok := other.(*NamedNode)
	return ok && o.IRI == n.IRI
}

// BlankNode is identified by its label within one document.
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Type() TermType { return TermTypeBlankNode }
func (b *BlankNode) String() string { return "_:" + b.ID }

func (b *BlankNode) Equals(other Term) bool {
	o, ok := other.(*BlankNode)
	return ok && o.ID == b.ID
}

// Literal is a lexical value with either a language tag or a datatype. A
// nil Datatype without a language means xsd:string.
type Literal struct {
	Value    string
	Language string
	Datatype *NamedNode
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: language}
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType { return TermTypeLiteral }
func (l *Literal) String() string { return formatLiteral(l) }

// DatatypeIRI returns the effective datatype: rdf:langString for tagged
// literals, xsd:string when none is set.
func (l *Literal) DatatypeIRI() string {
	switch {
	case l.Language != "":
		return RDFLangString.IRI
	case l.Datatype == nil:
		return XSDString.IRI
	default:
		return l.Datatype.IRI
	}
}

// Equals compares literals the way their canonical forms compare: language
// tags case-insensitively and an absent datatype as xsd:string.
func (l *Literal) Equals(other Term) bool {
	o, ok := other.(*Literal)
	if !ok || o.Value != l.Value {
		return false
	}
	return strings.EqualFold(l.Language, o.Language) && l.DatatypeIRI() == o.DatatypeIRI()
}

// DefaultGraph is the graph position of statements outside any named graph.
type DefaultGraph struct{}

func NewDefaultGraph() *DefaultGraph {
	return &DefaultGraph{}
}

func (d *DefaultGraph) Type() TermType { return TermTypeDefaultGraph }
func (d *DefaultGraph) String() string { return "DEFAULT" }

func (d *DefaultGraph) Equals(other Term) bool {
	_, ok := other.(*DefaultGraph)
	return ok
}

// IsDefaultGraph reports whether g names the default graph. A nil graph is
// treated as the default graph.
func IsDefaultGraph(g Term) bool {
	return g == nil || g.Type() == TermTypeDefaultGraph
}

const xsd = "http://www.w3.org/2001/XMLSchema#"

var (
	XSDString     = NewNamedNode(xsd + "string")
	XSDInteger    = NewNamedNode(xsd + "integer")
	XSDDecimal    = NewNamedNode(xsd + "decimal")
	XSDDouble     = NewNamedNode(xsd + "double")
	XSDBoolean    = NewNamedNode(xsd + "boolean")
	XSDDateTime   = NewNamedNode(xsd + "dateTime")
	RDFLangString = NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString")
)

func NewIntegerLiteral(value int64) *Literal {
	return NewLiteralWithDatatype(strconv.FormatInt(value, 10), XSDInteger)
}

func NewDoubleLiteral(value float64) *Literal {
	return NewLiteralWithDatatype(strconv.FormatFloat(value, 'g', -1, 64), XSDDouble)
}

func NewBooleanLiteral(value bool) *Literal {
	return NewLiteralWithDatatype(strconv.FormatBool(value), XSDBoolean)
}

func NewDateTimeLiteral(value time.Time) *Literal {
	return NewLiteralWithDatatype(value.Format(time.RFC3339), XSDDateTime)
}

func termEquals(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}
