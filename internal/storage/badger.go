// Package storage provides the key-value backends behind store.QuadStore.
package storage

import (
	stderrors "errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/pkg/store"
)

// Config selects where and how the badger database is opened.
type Config struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// BadgerStorage is a store.Storage over one badger database.
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens an on-disk database in dir.
func NewBadgerStorage(dir string) (*BadgerStorage, error) {
	return Open(Config{Path: dir})
}

// Open creates a BadgerDB-backed storage from cfg. Badger's own log output
// goes to the global zap logger at its matching levels.
func Open(cfg Config) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger.With(zap.String("component", "badger")).Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

// badgerLogger adapts zap to badger.Logger. Badger's info output is noisy
// and is logged at debug level.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

func (s *BadgerStorage) Begin(writable bool) (store.Transaction, error) {
	return &badgerTxn{txn: s.db.NewTransaction(writable), writable: writable}, nil
}

func (s *BadgerStorage) Sync() error  { return s.db.Sync() }
func (s *BadgerStorage) Close() error { return s.db.Close() }

type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Get(table store.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(table.Key(key))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Set(table.Key(key), value)
}

func (t *badgerTxn) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Delete(table.Key(key))
}

func (t *badgerTxn) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = table.Key(prefix)
	return &badgerIterator{it: t.txn.NewIterator(opts), prefix: opts.Prefix}, nil
}

func (t *badgerTxn) Commit() error {
	return t.txn.Commit()
}

// Rollback discards the transaction; after Commit it does nothing.
func (t *badgerTxn) Rollback() error {
	t.txn.Discard()
	return nil
}

type badgerIterator struct {
	it      *badger.Iterator
	prefix  []byte
	started bool
}

func (i *badgerIterator) Next() bool {
	if i.started {
		i.it.Next()
	} else {
		i.it.Seek(i.prefix)
		i.started = true
	}
	return i.it.ValidForPrefix(i.prefix)
}

// Key strips the table byte; the caller's prefix is kept.
func (i *badgerIterator) Key() []byte {
	if !i.it.Valid() {
		return nil
	}
	return i.it.Item().Key()[1:]
}

func (i *badgerIterator) Value() ([]byte, error) {
	if !i.it.Valid() {
		return nil, store.ErrNotFound
	}
	return i.it.Item().ValueCopy(nil)
}

func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
