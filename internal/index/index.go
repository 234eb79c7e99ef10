// Package index maintains the triple set under three complementary sort
// orders (SPO, POS, OSP) so that a pattern with any subset of bound
// positions is answered by a single contiguous prefix scan. It also owns
// the store's running counters: total triple count and total byte size,
// persisted in the meta table and maintained incrementally so limit checks
// stay O(1).
package index

import (
	"encoding/binary"
	"fmt"

	"github.com/ternstore/tern/internal/encoding"
	"github.com/ternstore/tern/pkg/kv"
	"github.com/ternstore/tern/pkg/rdf"
)

var (
	countKey = []byte("triple_count")
	bytesKey = []byte("byte_size")
)

// Index is the triple index manager over an ordered KV substrate
type Index struct {
	storage kv.Storage
}

// New creates an index manager on top of storage
func New(storage kv.Storage) *Index {
	return &Index{storage: storage}
}

// Begin starts a transaction on the underlying storage. Batched mutations
// use a single transaction so all three orderings and both counters move
// atomically.
func (x *Index) Begin(writable bool) (kv.Transaction, error) {
	return x.storage.Begin(writable)
}

// tripleKeys returns the three permutation keys for a triple
func tripleKeys(t *rdf.Triple) (spo, pos, osp []byte, err error) {
	spo, err = encoding.AppendKey(nil, t.Subject, t.Predicate, t.Object)
	if err != nil {
		return nil, nil, nil, err
	}
	pos, err = encoding.AppendKey(nil, t.Predicate, t.Object, t.Subject)
	if err != nil {
		return nil, nil, nil, err
	}
	osp, err = encoding.AppendKey(nil, t.Object, t.Subject, t.Predicate)
	if err != nil {
		return nil, nil, nil, err
	}
	return spo, pos, osp, nil
}

// ContainsTxn reports whether the triple is present, observing writes
// already buffered in txn.
func (x *Index) ContainsTxn(txn kv.Transaction, t *rdf.Triple) (bool, error) {
	key, err := encoding.AppendKey(nil, t.Subject, t.Predicate, t.Object)
	if err != nil {
		return false, err
	}
	_, err = txn.Get(kv.TableSPO, key)
	if err == kv.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertTxn writes the triple under all three orderings and bumps the
// counters. It reports true if the triple was newly added; re-inserting a
// present triple is a no-op.
func (x *Index) InsertTxn(txn kv.Transaction, t *rdf.Triple) (bool, error) {
	spo, pos, osp, err := tripleKeys(t)
	if err != nil {
		return false, err
	}

	if _, err := txn.Get(kv.TableSPO, spo); err == nil {
		return false, nil
	} else if err != kv.ErrNotFound {
		return false, err
	}

	empty := []byte{}
	if err := txn.Set(kv.TableSPO, spo, empty); err != nil {
		return false, err
	}
	if err := txn.Set(kv.TablePOS, pos, empty); err != nil {
		return false, err
	}
	if err := txn.Set(kv.TableOSP, osp, empty); err != nil {
		return false, err
	}

	if err := x.bumpCounters(txn, 1, int64(t.ByteSize())); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteTxn removes the triple from all three orderings and decrements the
// counters. It reports true if the triple was present.
func (x *Index) DeleteTxn(txn kv.Transaction, t *rdf.Triple) (bool, error) {
	spo, pos, osp, err := tripleKeys(t)
	if err != nil {
		return false, err
	}

	if _, err := txn.Get(kv.TableSPO, spo); err == kv.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}

	if err := txn.Delete(kv.TableSPO, spo); err != nil {
		return false, err
	}
	if err := txn.Delete(kv.TablePOS, pos); err != nil {
		return false, err
	}
	if err := txn.Delete(kv.TableOSP, osp); err != nil {
		return false, err
	}

	if err := x.bumpCounters(txn, -1, -int64(t.ByteSize())); err != nil {
		return false, err
	}
	return true, nil
}

// Insert adds one triple in its own transaction
func (x *Index) Insert(t *rdf.Triple) (bool, error) {
	txn, err := x.storage.Begin(true)
	if err != nil {
		return false, err
	}
	defer txn.Rollback()

	added, err := x.InsertTxn(txn, t)
	if err != nil {
		return false, err
	}
	return added, txn.Commit()
}

// Delete removes one triple in its own transaction
func (x *Index) Delete(t *rdf.Triple) (bool, error) {
	txn, err := x.storage.Begin(true)
	if err != nil {
		return false, err
	}
	defer txn.Rollback()

	removed, err := x.DeleteTxn(txn, t)
	if err != nil {
		return false, err
	}
	return removed, txn.Commit()
}

// Count returns the number of stored triples, read from the maintained
// counter.
func (x *Index) Count() (uint64, error) {
	return x.readCounter(countKey)
}

// ByteSize returns the total stored byte size, read from the maintained
// counter.
func (x *Index) ByteSize() (uint64, error) {
	return x.readCounter(bytesKey)
}

// CountTxn reads the triple counter inside an existing transaction
func (x *Index) CountTxn(txn kv.Transaction) (uint64, error) {
	return readCounterTxn(txn, countKey)
}

// ByteSizeTxn reads the byte-size counter inside an existing transaction
func (x *Index) ByteSizeTxn(txn kv.Transaction) (uint64, error) {
	return readCounterTxn(txn, bytesKey)
}

func (x *Index) readCounter(key []byte) (uint64, error) {
	txn, err := x.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()
	return readCounterTxn(txn, key)
}

func readCounterTxn(txn kv.Transaction, key []byte) (uint64, error) {
	value, err := txn.Get(kv.TableMeta, key)
	if err == kv.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("corrupt counter %q: %d bytes", key, len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

func writeCounterTxn(txn kv.Transaction, key []byte, value uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return txn.Set(kv.TableMeta, key, buf)
}

func (x *Index) bumpCounters(txn kv.Transaction, deltaCount, deltaBytes int64) error {
	count, err := readCounterTxn(txn, countKey)
	if err != nil {
		return err
	}
	size, err := readCounterTxn(txn, bytesKey)
	if err != nil {
		return err
	}

	if err := writeCounterTxn(txn, countKey, uint64(int64(count)+deltaCount)); err != nil {
		return err
	}
	return writeCounterTxn(txn, bytesKey, uint64(int64(size)+deltaBytes))
}

// permutation maps key position -> triple position (0=S, 1=P, 2=O)
var permutations = map[kv.Table][3]int{
	kv.TableSPO: {0, 1, 2},
	kv.TablePOS: {1, 2, 0},
	kv.TableOSP: {2, 0, 1},
}

// selectIndex chooses the ordering whose leading positions cover the
// longest prefix of bound pattern positions. A nil term means unbound.
func selectIndex(s, p, o rdf.Term) (kv.Table, [3]int) {
	sBound, pBound, oBound := s != nil, p != nil, o != nil

	var table kv.Table
	switch {
	case sBound && pBound:
		table = kv.TableSPO
	case pBound && oBound:
		table = kv.TablePOS
	case oBound && sBound:
		table = kv.TableOSP
	case sBound:
		table = kv.TableSPO
	case pBound:
		table = kv.TablePOS
	case oBound:
		table = kv.TableOSP
	default:
		table = kv.TableSPO
	}
	return table, permutations[table]
}

// Scan returns a lazy iterator over all stored triples matching the
// pattern. Each call opens a fresh read transaction; the iterator is
// finite and must be closed.
func (x *Index) Scan(s, p, o rdf.Term) (*TripleIterator, error) {
	table, perm := selectIndex(s, p, o)

	positions := [3]rdf.Term{s, p, o}
	var prefix []byte
	var err error
	for _, idx := range perm {
		term := positions[idx]
		if term == nil {
			break
		}
		prefix, err = encoding.AppendTerm(prefix, term)
		if err != nil {
			return nil, err
		}
	}

	txn, err := x.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	it, err := txn.Scan(table, prefix)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}

	return &TripleIterator{txn: txn, it: it, perm: perm}, nil
}

// TripleIterator is a lazy, finite cursor over triples matching a pattern
type TripleIterator struct {
	txn    kv.Transaction
	it     kv.Iterator
	perm   [3]int
	closed bool
}

// Next advances to the next matching triple
func (ti *TripleIterator) Next() bool {
	if ti.closed {
		return false
	}
	return ti.it.Next()
}

// Triple decodes the triple at the current position
func (ti *TripleIterator) Triple() (*rdf.Triple, error) {
	if ti.closed {
		return nil, fmt.Errorf("iterator closed")
	}
	key := ti.it.Key()
	if key == nil {
		return nil, fmt.Errorf("no current key")
	}

	terms, err := encoding.DecodeKey(key, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to decode index key: %w", err)
	}

	var positions [3]rdf.Term
	for i, idx := range ti.perm {
		positions[idx] = terms[i]
	}
	return rdf.NewTriple(positions[0], positions[1], positions[2]), nil
}

// Close releases the iterator and its read transaction
func (ti *TripleIterator) Close() error {
	if ti.closed {
		return nil
	}
	ti.closed = true
	_ = ti.it.Close()
	return ti.txn.Rollback()
}
