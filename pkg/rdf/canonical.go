package rdf

import (
	"fmt"
	"strings"
)

// FormatTriple renders a triple as one canonical N-Triples line, without the
// trailing newline.
func FormatTriple(t *Triple) string {
	var builder strings.Builder
	writeTerm(&builder, t.Subject)
	builder.WriteByte(' ')
	writeTerm(&builder, t.Predicate)
	builder.WriteByte(' ')
	writeTerm(&builder, t.Object)
	builder.WriteString(" .")
	return builder.String()
}

// FormatQuad renders a quad as one canonical N-Quads line. The default graph
// is omitted, so a default-graph quad formats exactly like its triple.
func FormatQuad(q *Quad) string {
	var builder strings.Builder
	writeTerm(&builder, q.Subject)
	builder.WriteByte(' ')
	writeTerm(&builder, q.Predicate)
	builder.WriteByte(' ')
	writeTerm(&builder, q.Object)
	if !IsDefaultGraph(q.Graph) {
		builder.WriteByte(' ')
		writeTerm(&builder, q.Graph)
	}
	builder.WriteString(" .")
	return builder.String()
}

// FormatTerm renders a single term in canonical N-Triples syntax.
func FormatTerm(term Term) string {
	var builder strings.Builder
	writeTerm(&builder, term)
	return builder.String()
}

func writeTerm(builder *strings.Builder, term Term) {
	switch t := term.(type) {
	case *NamedNode:
		builder.WriteByte('<')
		builder.WriteString(t.IRI)
		builder.WriteByte('>')
	case *BlankNode:
		builder.WriteString("_:")
		builder.WriteString(t.ID)
	case *Literal:
		builder.WriteString(formatLiteral(t))
	}
}

func formatLiteral(lit *Literal) string {
	escaped := escapeString(lit.Value)

	if lit.Language != "" {
		return fmt.Sprintf(`"%s"@%s`, escaped, strings.ToLower(lit.Language))
	}

	// xsd:string is implicit
	if lit.Datatype != nil && lit.Datatype.IRI != XSDString.IRI {
		return fmt.Sprintf(`"%s"^^<%s>`, escaped, lit.Datatype.IRI)
	}

	return fmt.Sprintf(`"%s"`, escaped)
}

// escapeString applies the N-Triples string escapes: the named escapes
// \t \b \n \r \f \" \\ and \uXXXX for other control characters.
func escapeString(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\t':
			builder.WriteString(`\t`)
		case '\b':
			builder.WriteString(`\b`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\f':
			builder.WriteString(`\f`)
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		default:
			if r < 0x20 || r == 0x7F || (r >= 0xFFFE && r <= 0xFFFF) {
				fmt.Fprintf(&builder, `\u%04X`, r)
			} else {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}
