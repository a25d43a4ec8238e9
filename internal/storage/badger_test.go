package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfstream/pkg/store"
)

func openTemp(t *testing.T) *BadgerStorage {
	t.Helper()
	s, err := NewBadgerStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func scanKeys(t *testing.T, s *BadgerStorage, table store.Table, prefix []byte) []string {
	t.Helper()
	txn, err := s.Begin(false)
	require.NoError(t, err)
	defer txn.Rollback()

	it, err := txn.Scan(table, prefix)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	return keys
}

func TestSetGetAcrossTables(t *testing.T) {
	s := openTemp(t)

	txn, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Set(store.TableQuads, []byte("k"), []byte("quad")))
	require.NoError(t, txn.Set(store.TableGraphs, []byte("k"), []byte("graph")))
	require.NoError(t, txn.Commit())

	txn, err = s.Begin(false)
	require.NoError(t, err)
	defer txn.Rollback()

	v, err := txn.Get(store.TableQuads, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "quad", string(v))

	v, err = txn.Get(store.TableGraphs, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "graph", string(v))

	_, err = txn.Get(store.TableGraphQuads, []byte("k"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReadOnlyTransactionRejectsWrites(t *testing.T) {
	s := openTemp(t)

	txn, err := s.Begin(false)
	require.NoError(t, err)
	defer txn.Rollback()

	assert.ErrorIs(t, txn.Set(store.TableQuads, []byte("k"), nil), store.ErrTransactionRO)
	assert.ErrorIs(t, txn.Delete(store.TableQuads, []byte("k")), store.ErrTransactionRO)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := openTemp(t)

	txn, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Set(store.TableQuads, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	assert.Empty(t, scanKeys(t, s, store.TableQuads, nil))
}

func TestScanPrefixes(t *testing.T) {
	s := openTemp(t)

	txn, err := s.Begin(true)
	require.NoError(t, err)
	for _, k := range []string{"a1", "a2", "b1", "b2", "c1"} {
		require.NoError(t, txn.Set(store.TableGraphQuads, []byte(k), []byte{}))
	}
	require.NoError(t, txn.Set(store.TableQuads, []byte("a3"), []byte{}))
	require.NoError(t, txn.Commit())

	assert.Equal(t, []string{"a1", "a2", "b1", "b2", "c1"}, scanKeys(t, s, store.TableGraphQuads, nil))
	assert.Equal(t, []string{"b1", "b2"}, scanKeys(t, s, store.TableGraphQuads, []byte("b")))
	assert.Empty(t, scanKeys(t, s, store.TableGraphQuads, []byte("d")))
	assert.Equal(t, []string{"a3"}, scanKeys(t, s, store.TableQuads, nil))
}

func TestDelete(t *testing.T) {
	s := openTemp(t)

	txn, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Set(store.TableQuads, []byte("x"), []byte("1")))
	require.NoError(t, txn.Set(store.TableQuads, []byte("y"), []byte("2")))
	require.NoError(t, txn.Commit())

	txn, err = s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Delete(store.TableQuads, []byte("x")))
	require.NoError(t, txn.Commit())

	assert.Equal(t, []string{"y"}, scanKeys(t, s, store.TableQuads, nil))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "graph_quads", store.TableGraphQuads.String())
	assert.Equal(t, "unknown", store.Table(9).String())
	assert.Equal(t, []byte{byte(store.TableGraphs), 'k'}, store.TableGraphs.Key([]byte("k")))
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	txn, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Set(store.TableGraphs, []byte("g"), []byte("<http://example.org/g>")))
	require.NoError(t, txn.Commit())

	assert.Equal(t, []string{"g"}, scanKeys(t, s, store.TableGraphs, nil))
}
