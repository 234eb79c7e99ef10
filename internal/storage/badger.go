// Package storage provides concrete implementations of the kv capability:
// a durable BadgerDB backend and an in-memory backend for tests and
// ephemeral stores.
package storage

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/ternstore/tern/pkg/kv"
)

// BadgerStorage implements kv.Storage using BadgerDB
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens a BadgerDB-backed storage at path
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStorage{db: db}, nil
}

// Begin starts a new transaction
func (s *BadgerStorage) Begin(writable bool) (kv.Transaction, error) {
	return &badgerTransaction{
		txn:      s.db.NewTransaction(writable),
		writable: writable,
	}, nil
}

// Close closes the storage
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk
func (s *BadgerStorage) Sync() error {
	return s.db.Sync()
}

type badgerTransaction struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTransaction) Get(table kv.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(kv.PrefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}

	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (t *badgerTransaction) Set(table kv.Table, key, value []byte) error {
	if !t.writable {
		return kv.ErrTransactionRO
	}
	return t.txn.Set(kv.PrefixKey(table, key), value)
}

func (t *badgerTransaction) Delete(table kv.Table, key []byte) error {
	if !t.writable {
		return kv.ErrTransactionRO
	}
	return t.txn.Delete(kv.PrefixKey(table, key))
}

func (t *badgerTransaction) Scan(table kv.Table, prefix []byte) (kv.Iterator, error) {
	scanPrefix := kv.PrefixKey(table, prefix)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = scanPrefix

	return &badgerIterator{
		it:          t.txn.NewIterator(opts),
		tablePrefix: kv.TablePrefix(table),
		seekKey:     scanPrefix,
	}, nil
}

func (t *badgerTransaction) Commit() error {
	return t.txn.Commit()
}

func (t *badgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

type badgerIterator struct {
	it          *badger.Iterator
	tablePrefix []byte
	seekKey     []byte
	started     bool
	hasValue    bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	i.hasValue = i.it.Valid()
	return i.hasValue
}

// Key returns the current key without the table prefix
func (i *badgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) > len(i.tablePrefix) {
		return key[len(i.tablePrefix):]
	}
	return nil
}

func (i *badgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, kv.ErrNotFound
	}

	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
