package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/encoding"
	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// QuadStore keeps a deduplicated set of quads in a Storage.
type QuadStore struct {
	storage Storage
	encoder *encoding.StatementEncoder
	name    string
	logger  *zap.Logger
}

// NewQuadStore creates a quad store over storage. name identifies the store
// in logs and as a source.
func NewQuadStore(storage Storage, name string) *QuadStore {
	return &QuadStore{
		storage: storage,
		encoder: encoding.NewStatementEncoder(),
		name:    name,
		logger:  logger.With(zap.String("component", "quad_store"), zap.String("store", name)),
	}
}

// Name returns the store name.
func (s *QuadStore) Name() string {
	return s.name
}

// Close closes the underlying storage
func (s *QuadStore) Close() error {
	return s.storage.Close()
}

// Insert stores quads in one transaction and returns how many were new.
func (s *QuadStore) Insert(ctx context.Context, quads ...*rdf.Quad) (int, error) {
	if len(quads) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	txn, err := s.storage.Begin(true)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "begin transaction")
	}
	defer txn.Rollback()

	inserted := 0
	for _, q := range quads {
		added, err := s.insertInTxn(txn, q)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeStorage, fmt.Sprintf("insert %s", rdf.FormatQuad(q)))
		}
		if added {
			inserted++
		}
	}

	if err := txn.Commit(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "commit")
	}
	s.logger.Debug("batch inserted", zap.Int("quads", len(quads)), zap.Int("new", inserted))
	return inserted, nil
}

func (s *QuadStore) insertInTxn(txn Transaction, q *rdf.Quad) (bool, error) {
	key, value := s.encoder.EncodeQuad(q)
	if _, err := txn.Get(TableQuads, key[:]); err == nil {
		return false, nil
	} else if err != ErrNotFound {
		return false, err
	}

	if err := txn.Set(TableQuads, key[:], value); err != nil {
		return false, err
	}

	graphKey, graphName := s.encoder.EncodeGraph(q.Graph)
	if err := txn.Set(TableGraphs, graphKey[:], graphName); err != nil {
		return false, err
	}
	if err := txn.Set(TableGraphQuads, s.encoder.GraphStatementKey(graphKey, key), []byte{}); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes quads in one transaction and returns how many were present.
// A graph left without quads is dropped from Graphs.
func (s *QuadStore) Delete(ctx context.Context, quads ...*rdf.Quad) (int, error) {
	if len(quads) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	txn, err := s.storage.Begin(true)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "begin transaction")
	}
	defer txn.Rollback()

	deleted := 0
	for _, q := range quads {
		removed, err := s.deleteInTxn(txn, q)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeStorage, fmt.Sprintf("delete %s", rdf.FormatQuad(q)))
		}
		if removed {
			deleted++
		}
	}

	if err := txn.Commit(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "commit")
	}
	s.logger.Debug("batch deleted", zap.Int("quads", len(quads)), zap.Int("removed", deleted))
	return deleted, nil
}

func (s *QuadStore) deleteInTxn(txn Transaction, q *rdf.Quad) (bool, error) {
	key, _ := s.encoder.EncodeQuad(q)
	if _, err := txn.Get(TableQuads, key[:]); err == ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}

	graphKey, _ := s.encoder.EncodeGraph(q.Graph)
	if err := txn.Delete(TableQuads, key[:]); err != nil {
		return false, err
	}
	if err := txn.Delete(TableGraphQuads, s.encoder.GraphStatementKey(graphKey, key)); err != nil {
		return false, err
	}

	it, err := txn.Scan(TableGraphQuads, graphKey[:])
	if err != nil {
		return false, err
	}
	empty := !it.Next()
	it.Close()
	if empty {
		if err := txn.Delete(TableGraphs, graphKey[:]); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Count returns the number of stored quads.
func (s *QuadStore) Count() (int, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "begin transaction")
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableQuads, nil)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "scan")
	}
	defer it.Close()

	count := 0
	for it.Next() {
		count++
	}
	return count, nil
}

// Graphs returns every graph holding at least one quad, the default graph
// included when it is non-empty.
func (s *QuadStore) Graphs() ([]rdf.Term, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "begin transaction")
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableGraphs, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "scan")
	}
	defer it.Close()

	var graphs []rdf.Term
	for it.Next() {
		name, err := it.Value()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, "read graph")
		}
		g, err := s.encoder.DecodeGraph(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, "decode graph")
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// Scan returns an iterator over the stored quads, restricted to graph when
// graph is non-nil. Use rdf.NewDefaultGraph() for the default graph only.
func (s *QuadStore) Scan(graph rdf.Term) (*QuadIterator, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "begin transaction")
	}

	var it Iterator
	if graph == nil {
		it, err = txn.Scan(TableQuads, nil)
	} else {
		graphKey, _ := s.encoder.EncodeGraph(graph)
		it, err = txn.Scan(TableGraphQuads, graphKey[:])
	}
	if err != nil {
		txn.Rollback()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "scan")
	}
	return &QuadIterator{store: s, txn: txn, it: it, byGraph: graph != nil}, nil
}

// QuadIterator iterates over stored quads inside a read transaction.
type QuadIterator struct {
	store   *QuadStore
	txn     Transaction
	it      Iterator
	byGraph bool

	quad   *rdf.Quad
	err    error
	closed bool
}

// Next advances to the next quad.
func (i *QuadIterator) Next() bool {
	if i.closed || i.err != nil || !i.it.Next() {
		return false
	}

	var value []byte
	if i.byGraph {
		key := i.it.Key()
		if len(key) != 2*encoding.HashSize {
			i.err = errors.Newf(errors.ErrorTypeStorage, "malformed graph index key of %d bytes", len(key))
			return false
		}
		value, i.err = i.txn.Get(TableQuads, key[encoding.HashSize:])
	} else {
		value, i.err = i.it.Value()
	}
	if i.err != nil {
		return false
	}

	i.quad, i.err = i.store.encoder.DecodeQuad(value)
	return i.err == nil
}

// Quad returns the current quad.
func (i *QuadIterator) Quad() *rdf.Quad {
	return i.quad
}

// Err returns the error that stopped iteration, if any.
func (i *QuadIterator) Err() error {
	return i.err
}

// Close releases the iterator and its transaction.
func (i *QuadIterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	err := i.it.Close()
	if rerr := i.txn.Rollback(); err == nil {
		err = rerr
	}
	return err
}
