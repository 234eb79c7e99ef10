package storage

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ternstore/tern/pkg/kv"
)

// OpCounts records how many storage operations ran. Tests use it to assert
// that rejected operations never reach the substrate.
type OpCounts struct {
	Gets    int64
	Sets    int64
	Deletes int64
	Scans   int64
}

// MemoryStorage implements kv.Storage with an in-process sorted map. Each
// transaction works on a full snapshot taken at Begin, giving the same
// snapshot isolation the durable backend provides.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte

	gets    atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	scans   atomic.Int64
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Counts returns a snapshot of the operation counters
func (s *MemoryStorage) Counts() OpCounts {
	return OpCounts{
		Gets:    s.gets.Load(),
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		Scans:   s.scans.Load(),
	}
}

// ResetCounts zeroes the operation counters
func (s *MemoryStorage) ResetCounts() {
	s.gets.Store(0)
	s.sets.Store(0)
	s.deletes.Store(0)
	s.scans.Store(0)
}

// Begin starts a new transaction over a snapshot of the current state
func (s *MemoryStorage) Begin(writable bool) (kv.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}

	return &memoryTransaction{
		parent:   s,
		snapshot: snapshot,
		writable: writable,
	}, nil
}

// Close closes the storage
func (s *MemoryStorage) Close() error {
	return nil
}

// Sync is a no-op for the in-memory backend
func (s *MemoryStorage) Sync() error {
	return nil
}

type memoryTransaction struct {
	parent   *MemoryStorage
	snapshot map[string][]byte
	writable bool
	done     bool
}

func (t *memoryTransaction) Get(table kv.Table, key []byte) ([]byte, error) {
	t.parent.gets.Add(1)

	value, ok := t.snapshot[string(kv.PrefixKey(table, key))]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte{}, value...), nil
}

func (t *memoryTransaction) Set(table kv.Table, key, value []byte) error {
	if !t.writable {
		return kv.ErrTransactionRO
	}
	t.parent.sets.Add(1)

	t.snapshot[string(kv.PrefixKey(table, key))] = append([]byte{}, value...)
	return nil
}

func (t *memoryTransaction) Delete(table kv.Table, key []byte) error {
	if !t.writable {
		return kv.ErrTransactionRO
	}
	t.parent.deletes.Add(1)

	delete(t.snapshot, string(kv.PrefixKey(table, key)))
	return nil
}

func (t *memoryTransaction) Scan(table kv.Table, prefix []byte) (kv.Iterator, error) {
	t.parent.scans.Add(1)

	scanPrefix := string(kv.PrefixKey(table, prefix))
	tablePrefixLen := len(kv.TablePrefix(table))

	var keys []string
	for k := range t.snapshot {
		if strings.HasPrefix(k, scanPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return &memoryIterator{
		txn:            t,
		keys:           keys,
		tablePrefixLen: tablePrefixLen,
		pos:            -1,
	}, nil
}

func (t *memoryTransaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	if !t.writable {
		return nil
	}

	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	t.parent.data = t.snapshot
	return nil
}

func (t *memoryTransaction) Rollback() error {
	t.done = true
	return nil
}

type memoryIterator struct {
	txn            *memoryTransaction
	keys           []string
	tablePrefixLen int
	pos            int
}

func (i *memoryIterator) Next() bool {
	i.pos++
	return i.pos < len(i.keys)
}

func (i *memoryIterator) Key() []byte {
	if i.pos < 0 || i.pos >= len(i.keys) {
		return nil
	}
	return []byte(i.keys[i.pos][i.tablePrefixLen:])
}

func (i *memoryIterator) Value() ([]byte, error) {
	if i.pos < 0 || i.pos >= len(i.keys) {
		return nil, kv.ErrNotFound
	}
	value := i.txn.snapshot[i.keys[i.pos]]
	return append([]byte{}, value...), nil
}

func (i *memoryIterator) Close() error {
	return nil
}
