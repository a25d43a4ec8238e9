package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxLineBytes bounds a single N-Quads line.
const DefaultMaxLineBytes = 1 << 20

// NQuadsReader reads N-Triples or N-Quads one line at a time.
// Format: <subject> <predicate> <object> [<graph>] .
// A line without a graph yields a Statement whose G is nil.
type NQuadsReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewNQuadsReader creates a streaming reader over r.
func NewNQuadsReader(r io.Reader) *NQuadsReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), DefaultMaxLineBytes)
	return &NQuadsReader{scanner: scanner}
}

// Line returns the number of the line most recently read.
func (r *NQuadsReader) Line() int {
	return r.line
}

// Next returns the next statement, or io.EOF when the input is exhausted.
func (r *NQuadsReader) Next() (*Statement, error) {
	for r.scanner.Scan() {
		r.line++
		p := &lineParser{input: r.scanner.Text()}
		p.length = len(p.input)
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return stmt, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return nil, io.EOF
}

// ParseNQuadsLine parses a single statement line.
func ParseNQuadsLine(line string) (*Statement, error) {
	p := &lineParser{input: line, length: len(line)}
	p.skipWhitespaceAndComments()
	return p.parseStatement()
}

// ParseTerm parses a single term written in N-Triples syntax.
func ParseTerm(s string) (Term, error) {
	p := &lineParser{input: strings.TrimSpace(s)}
	p.length = len(p.input)
	if p.length == 0 {
		return nil, fmt.Errorf("empty term")
	}
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipWhitespaceAndComments()
	if p.pos != p.length {
		return nil, fmt.Errorf("trailing characters after term at position %d", p.pos)
	}
	return term, nil
}

type lineParser struct {
	input  string
	pos    int
	length int
}

func (p *lineParser) eof() bool { return p.pos >= p.length }

// peek returns the current byte, or 0 at end of line.
func (p *lineParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

// accept consumes s if the input continues with it.
func (p *lineParser) accept(s string) bool {
	if strings.HasPrefix(p.input[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// span consumes bytes while keep holds and returns them.
func (p *lineParser) span(keep func(byte) bool) string {
	start := p.pos
	for !p.eof() && keep(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// skipWhitespaceAndComments also consumes a comment running to end of line.
func (p *lineParser) skipWhitespaceAndComments() {
	p.span(func(ch byte) bool { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' })
	if p.peek() == '#' {
		p.pos = p.length
	}
}

// parseStatement parses: subject predicate object [graph] .
func (p *lineParser) parseStatement() (*Statement, error) {
	var terms [4]Term
	positions := [...]string{"subject", "predicate", "object", "graph"}

	n := 0
	for ; n < len(terms); n++ {
		if n == 3 && p.peek() != '<' && p.peek() != '_' {
			break
		}
		term, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", positions[n], err)
		}
		if err := checkPosition(n, term); err != nil {
			return nil, err
		}
		terms[n] = term
		p.skipWhitespaceAndComments()
	}

	if !p.accept(".") {
		return nil, fmt.Errorf("expected '.' at end of statement")
	}
	p.skipWhitespaceAndComments()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected content after '.' at position %d", p.pos)
	}
	return &Statement{S: terms[0], P: terms[1], O: terms[2], G: terms[3]}, nil
}

func checkPosition(n int, term Term) error {
	switch {
	case n == 0 && term.Type() == TermTypeLiteral:
		return fmt.Errorf("literal cannot be a subject")
	case n == 1 && term.Type() != TermTypeNamedNode:
		return fmt.Errorf("predicate must be an IRI, got %s", term.Type())
	}
	return nil
}

func (p *lineParser) parseTerm() (Term, error) {
	switch ch := p.peek(); ch {
	case 0:
		return nil, fmt.Errorf("unexpected end of line")
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected character at position %d: %c", p.pos, ch)
	}
}

// iriExcluded lists the bytes an IRIREF may not contain besides controls.
const iriExcluded = " <\"{}|^`"

// parseIRI parses an absolute IRI enclosed in < >.
func (p *lineParser) parseIRI() (string, error) {
	if !p.accept("<") {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}

	var iri strings.Builder
	for {
		iri.WriteString(p.span(func(ch byte) bool {
			return ch > 0x1F && ch != '>' && ch != '\\' && strings.IndexByte(iriExcluded, ch) < 0
		}))
		switch ch := p.peek(); {
		case p.eof():
			return "", fmt.Errorf("unclosed IRI")
		case ch == '>':
			p.pos++
			if !strings.Contains(iri.String(), ":") {
				return "", fmt.Errorf("relative IRI not allowed: %s", iri.String())
			}
			return iri.String(), nil
		case ch == '\\':
			r, err := p.unicodeEscape()
			if err != nil {
				return "", fmt.Errorf("invalid escape sequence in IRI at position %d: %w", p.pos, err)
			}
			iri.WriteRune(r)
		default:
			return "", fmt.Errorf("invalid character in IRI: %q at position %d", ch, p.pos)
		}
	}
}

func (p *lineParser) parseBlankNode() (Term, error) {
	if !p.accept("_:") {
		return nil, fmt.Errorf("expected '_:' at start of blank node")
	}
	start := p.pos
	p.span(func(ch byte) bool { return ch != ' ' && ch != '\t' && ch != '<' && ch != '"' })
	// a trailing '.' terminates the statement, not the label
	for p.pos > start && p.input[p.pos-1] == '.' {
		p.pos--
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty blank node label")
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

// stringEscapes maps the character after a backslash to its value.
var stringEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'b': '\b', 'f': '\f',
	'"': '"', '\'': '\'', '\\': '\\',
}

func (p *lineParser) parseLiteral() (Term, error) {
	p.pos++ // opening '"'

	var value strings.Builder
	for {
		value.WriteString(p.span(func(ch byte) bool { return ch != '"' && ch != '\\' }))
		if p.eof() {
			return nil, fmt.Errorf("unclosed string literal")
		}
		if p.accept(`"`) {
			break
		}
		if p.pos+1 >= p.length {
			return nil, fmt.Errorf("unexpected end of input in escape sequence")
		}
		esc := p.input[p.pos+1]
		if b, ok := stringEscapes[esc]; ok {
			value.WriteByte(b)
			p.pos += 2
			continue
		}
		r, err := p.unicodeEscape()
		if err != nil {
			return nil, fmt.Errorf("invalid escape sequence \\%c at position %d", esc, p.pos)
		}
		value.WriteRune(r)
	}

	switch {
	case p.accept("@"):
		lang := p.span(func(ch byte) bool { return ch == '-' || isLetter(ch) || (ch >= '0' && ch <= '9') })
		if lang == "" || !isLetter(lang[0]) {
			return nil, fmt.Errorf("invalid language tag %q", lang)
		}
		return NewLiteralWithLanguage(value.String(), lang), nil
	case p.accept("^^"):
		datatype, err := p.parseIRI()
		if err != nil {
			return nil, fmt.Errorf("error parsing datatype: %w", err)
		}
		return NewLiteralWithDatatype(value.String(), NewNamedNode(datatype)), nil
	default:
		return NewLiteral(value.String()), nil
	}
}

// unicodeEscape consumes \uXXXX or \UXXXXXXXX at the current position.
func (p *lineParser) unicodeEscape() (rune, error) {
	var digits int
	switch {
	case p.accept(`\u`):
		digits = 4
	case p.accept(`\U`):
		digits = 8
	default:
		return 0, fmt.Errorf("not a unicode escape")
	}
	if p.pos+digits > p.length {
		return 0, fmt.Errorf("incomplete Unicode escape sequence")
	}
	hex := p.input[p.pos : p.pos+digits]
	p.pos += digits

	codePoint, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex digits in Unicode escape: %s", hex)
	}
	return rune(codePoint), nil
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
