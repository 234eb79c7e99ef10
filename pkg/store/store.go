// Package store is the public contract of the triple store: a bulk insert
// pipeline (admission checks, parse, atomic index write) and a bounded
// query pipeline (admission checks, plan, evaluate, truncate), both gated
// by the configured StoreLimits.
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/ternstore/tern/internal/engine"
	"github.com/ternstore/tern/internal/index"
	"github.com/ternstore/tern/pkg/kv"
	"github.com/ternstore/tern/pkg/query"
	"github.com/ternstore/tern/pkg/rdf"
)

// Store is a bounded triple store over an ordered key-value substrate.
// All mutation goes through InsertData/DeleteData; queries never mutate.
// Callers sharing a store across goroutines must serialize operations
// externally, matching the one-operation-at-a-time execution model.
type Store struct {
	storage kv.Storage
	limits  StoreLimits
	idx     *index.Index
	engine  *engine.Engine
}

// Open creates a store on top of the given storage with the given limits.
// The limits are fixed for the lifetime of the store.
func Open(storage kv.Storage, limits StoreLimits) *Store {
	idx := index.New(storage)
	return &Store{
		storage: storage,
		limits:  limits,
		idx:     idx,
		engine:  engine.New(idx),
	}
}

// Close closes the underlying storage
func (s *Store) Close() error {
	return s.storage.Close()
}

// Limits returns the configured ceilings
func (s *Store) Limits() StoreLimits {
	return s.limits
}

// Stats reports the store's running totals and its configured limits
type Stats struct {
	TripleCount uint64
	ByteSize    uint64
	Limits      StoreLimits
}

// Stats returns the current totals. Both counters are maintained
// incrementally, so this is O(1).
func (s *Store) Stats() (Stats, error) {
	count, err := s.idx.Count()
	if err != nil {
		return Stats{}, err
	}
	size, err := s.idx.ByteSize()
	if err != nil {
		return Stats{}, err
	}
	return Stats{TripleCount: count, ByteSize: size, Limits: s.limits}, nil
}

// InsertData parses an N-Triples payload and inserts its triples as one
// atomic unit. Every admission check runs before any index write; if any
// check fails, no triple is written and the counters are unchanged. The
// returned count excludes triples already present.
func (s *Store) InsertData(raw []byte) (int, error) {
	if err := s.limits.CheckInsertPayload(len(raw)); err != nil {
		return 0, err
	}

	triples, err := rdf.Parse(raw)
	if err != nil {
		return 0, err
	}

	if err := s.limits.CheckParsedCount(len(triples)); err != nil {
		return 0, err
	}

	txn, err := s.idx.Begin(true)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	currentCount, err := s.idx.CountTxn(txn)
	if err != nil {
		return 0, err
	}
	currentBytes, err := s.idx.ByteSizeTxn(txn)
	if err != nil {
		return 0, err
	}

	triples = s.remapBlankNodes(triples, raw, currentCount)

	// First pass: admission. Size-check every triple and project the
	// post-insert totals, counting each distinct new triple once.
	var incomingCount, incomingBytes uint64
	seen := make(map[string]bool, len(triples))
	isNew := make([]bool, len(triples))
	for i, t := range triples {
		if err := s.limits.CheckTripleSize(t); err != nil {
			return 0, err
		}

		key := t.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		present, err := s.idx.ContainsTxn(txn, t)
		if err != nil {
			return 0, err
		}
		if present {
			continue
		}

		isNew[i] = true
		incomingCount++
		incomingBytes += t.ByteSize()
	}

	if err := s.limits.CheckCapacity(currentCount, currentBytes, incomingCount, incomingBytes); err != nil {
		return 0, err
	}

	// Second pass: write. All three orderings and both counters move in
	// this single transaction.
	added := 0
	for i, t := range triples {
		if !isNew[i] {
			continue
		}
		if _, err := s.idx.InsertTxn(txn, t); err != nil {
			return 0, fmt.Errorf("index write failed: %w", err)
		}
		added++
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("commit failed: %w", err)
	}
	return added, nil
}

// DeleteData parses an N-Triples payload and removes its triples as one
// atomic unit, returning the number actually removed. Deleting absent
// triples is a no-op. Blank node labels in a delete payload only match
// triples whose stored blank identifiers carry the same label.
func (s *Store) DeleteData(raw []byte) (int, error) {
	if err := s.limits.CheckInsertPayload(len(raw)); err != nil {
		return 0, err
	}

	triples, err := rdf.Parse(raw)
	if err != nil {
		return 0, err
	}

	txn, err := s.idx.Begin(true)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	removed := 0
	for _, t := range triples {
		ok, err := s.idx.DeleteTxn(txn, t)
		if err != nil {
			return 0, fmt.Errorf("index delete failed: %w", err)
		}
		if ok {
			removed++
		}
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("commit failed: %w", err)
	}
	return removed, nil
}

// Select runs a pattern query. Structural validity is checked first, so a
// malformed query is never misreported as a limit violation; then the
// query shape is checked against the limits before any evaluation or index
// scan happens. A rejected query returns no rows and the violated ceiling.
func (s *Store) Select(q *query.Query) ([]query.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.limits.CheckQueryShape(q.Limit, distinctCount(q.Select)); err != nil {
		return nil, err
	}
	return s.engine.Select(q)
}

// distinctCount counts the distinct names in a projection
func distinctCount(names []string) int {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	return len(seen)
}

// TripleIterator is a lazy cursor over stored triples
type TripleIterator interface {
	Next() bool
	Triple() (*rdf.Triple, error)
	Close() error
}

// Match returns a lazy iterator over all stored triples matching a single
// pattern; nil positions are unbound. Each call yields a fresh iterator.
func (s *Store) Match(subject, predicate, object rdf.Term) (TripleIterator, error) {
	return s.idx.Scan(subject, predicate, object)
}

// remapBlankNodes replaces the parser's blank node labels with identifiers
// scoped to this insertion batch, so separate inserts never collide on a
// label. The mapping is built fresh per call and derived from the store
// state plus the payload, keeping replays deterministic.
func (s *Store) remapBlankNodes(triples []*rdf.Triple, raw []byte, currentCount uint64) []*rdf.Triple {
	seed := make([]byte, 8, 8+len(raw))
	binary.BigEndian.PutUint64(seed, currentCount)
	seed = append(seed, raw...)

	minted := make(map[string]*rdf.BlankNode)
	mint := func(term rdf.Term) rdf.Term {
		b, ok := term.(*rdf.BlankNode)
		if !ok {
			return term
		}
		if node, ok := minted[b.ID]; ok {
			return node
		}
		h := xxh3.Hash128(append(append([]byte{}, seed...), b.ID...))
		node := rdf.NewBlankNode(fmt.Sprintf("b%016x%016x", h.Hi, h.Lo))
		minted[b.ID] = node
		return node
	}

	remapped := make([]*rdf.Triple, len(triples))
	for i, t := range triples {
		remapped[i] = rdf.NewTriple(mint(t.Subject), t.Predicate, mint(t.Object))
	}
	return remapped
}
