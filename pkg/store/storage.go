package store

import (
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
)

var (
	ErrNotFound      = errors.New(errors.ErrorTypeStorage, "key not found")
	ErrTransactionRO = errors.New(errors.ErrorTypeStorage, "write in a read-only transaction")
)

// Storage is the key-value backend of a QuadStore. Keys live in tables and
// every operation runs inside a transaction.
type Storage interface {
	Begin(writable bool) (Transaction, error)
	Sync() error
	Close() error
}

// Transaction is a snapshot of the backend. Writes are visible to later
// reads of the same transaction and to other transactions after Commit.
// Rollback after Commit is a no-op, so callers may always defer it.
type Transaction interface {
	// Get returns ErrNotFound for a missing key.
	Get(table Table, key []byte) ([]byte, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error

	// Scan visits the keys of table starting with prefix in key order. A
	// nil prefix visits the whole table. Keys are returned without the
	// table byte.
	Scan(table Table, prefix []byte) (Iterator, error)

	Commit() error
	Rollback() error
}

// Iterator walks the result of Transaction.Scan. Key and Value are only
// valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close() error
}

// Table namespaces keys inside one backend.
type Table byte

const (
	// TableQuads maps a statement hash to its canonical N-Quads line.
	TableQuads Table = iota
	// TableGraphQuads indexes graph hash || statement hash, with empty values.
	TableGraphQuads
	// TableGraphs maps a graph hash to its canonical term, empty for the
	// default graph.
	TableGraphs
)

var tableNames = [...]string{
	TableQuads:      "quads",
	TableGraphQuads: "graph_quads",
	TableGraphs:     "graphs",
}

func (t Table) String() string {
	if int(t) < len(tableNames) {
		return tableNames[t]
	}
	return "unknown"
}

// Key returns key namespaced under t.
func (t Table) Key(key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, byte(t))
	return append(out, key...)
}
