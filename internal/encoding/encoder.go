// Package encoding builds the binary keys and values the quad store keeps
// in its key-value backend.
//
// A statement is stored under the 128-bit xxh3 hash of its canonical N-Quads
// form, which makes inserts idempotent. The value is the canonical form
// itself so a scan can rebuild the quad without a term dictionary.
package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// HashSize is the size of every hash-based key component.
const HashSize = 16

// Hash is a 128-bit xxh3 digest.
type Hash [HashSize]byte

// StatementEncoder encodes quads for storage
type StatementEncoder struct{}

func NewStatementEncoder() *StatementEncoder {
	return &StatementEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string
func (e *StatementEncoder) Hash128(s string) Hash {
	hash := xxh3.Hash128([]byte(s))
	var result Hash
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeQuad returns the statement key and the stored value for q.
func (e *StatementEncoder) EncodeQuad(q *rdf.Quad) (Hash, []byte) {
	line := rdf.FormatQuad(q)
	return e.Hash128(line), []byte(line)
}

// EncodeGraph returns the key of a graph and its stored name. The default
// graph is encoded as the hash of the empty string.
func (e *StatementEncoder) EncodeGraph(g rdf.Term) (Hash, []byte) {
	if rdf.IsDefaultGraph(g) {
		return e.Hash128(""), nil
	}
	name := rdf.FormatTerm(g)
	return e.Hash128(name), []byte(name)
}

// GraphStatementKey concatenates a graph key and a statement key, so a
// prefix scan over the graph key yields the statements of that graph.
func (e *StatementEncoder) GraphStatementKey(graph, statement Hash) []byte {
	key := make([]byte, 0, 2*HashSize)
	key = append(key, graph[:]...)
	return append(key, statement[:]...)
}

// DecodeQuad rebuilds a quad from a stored value.
func (e *StatementEncoder) DecodeQuad(value []byte) (*rdf.Quad, error) {
	st, err := rdf.ParseNQuadsLine(string(value))
	if err != nil {
		return nil, fmt.Errorf("corrupt statement %q: %w", value, err)
	}
	return st.AsQuad(), nil
}

// DecodeGraph rebuilds a graph term from its stored name; an empty name is
// the default graph.
func (e *StatementEncoder) DecodeGraph(name []byte) (rdf.Term, error) {
	if len(name) == 0 {
		return rdf.NewDefaultGraph(), nil
	}
	return rdf.ParseTerm(string(name))
}
