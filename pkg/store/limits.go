package store

import (
	"errors"
	"fmt"

	"github.com/ternstore/tern/pkg/rdf"
)

// StoreLimits is the immutable set of optional ceilings bounding store
// size and query cost. A nil field means unbounded. Limits are fixed at
// store creation; changing them requires recreating the store.
type StoreLimits struct {
	// MaxByteSize caps the total stored byte size of all triples.
	MaxByteSize *uint64 `yaml:"max_byte_size"`

	// MaxTripleCount caps the total number of stored triples.
	MaxTripleCount *uint64 `yaml:"max_triple_count"`

	// MaxTripleByteSize caps the stored byte size of a single triple.
	MaxTripleByteSize *uint64 `yaml:"max_triple_byte_size"`

	// MaxInsertDataByteSize caps the raw byte size of one insert payload,
	// checked before parsing.
	MaxInsertDataByteSize *uint64 `yaml:"max_insert_data_byte_size"`

	// MaxInsertDataTripleCount caps the number of triples parsed from one
	// insert payload.
	MaxInsertDataTripleCount *uint64 `yaml:"max_insert_data_triple_count"`

	// MaxQueryLimit caps the result-row limit a query may request.
	MaxQueryLimit *uint64 `yaml:"max_query_limit"`

	// MaxQueryVariableCount caps the number of distinct variables a query
	// may project.
	MaxQueryVariableCount *uint64 `yaml:"max_query_variable_count"`
}

// Unbounded returns limits with every ceiling absent
func Unbounded() StoreLimits {
	return StoreLimits{}
}

// Limit is a convenience for building optional ceilings
func Limit(v uint64) *uint64 {
	return &v
}

// LimitKind identifies which ceiling a LimitError violated
type LimitKind string

const (
	LimitByteSize              LimitKind = "byte_size"
	LimitTripleCount           LimitKind = "triple_count"
	LimitTripleByteSize        LimitKind = "triple_byte_size"
	LimitInsertDataByteSize    LimitKind = "insert_data_byte_size"
	LimitInsertDataTripleCount LimitKind = "insert_data_triple_count"
	LimitQueryLimit            LimitKind = "query_limit"
	LimitQueryVariableCount    LimitKind = "query_variable_count"
)

// ErrLimitExceeded matches any limit violation via errors.Is
var ErrLimitExceeded = errors.New("store limit exceeded")

// LimitError reports which ceiling an operation would violate. It is
// returned before the corresponding expensive work begins.
type LimitError struct {
	Kind   LimitKind
	Actual uint64
	Max    uint64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("maximum %s exceeded: %d / %d", e.Kind, e.Actual, e.Max)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

func exceeded(kind LimitKind, actual uint64, max *uint64) error {
	if max != nil && actual > *max {
		return &LimitError{Kind: kind, Actual: actual, Max: *max}
	}
	return nil
}

// CheckInsertPayload rejects an insert whose raw payload exceeds the
// insert-data byte-size ceiling. Runs before parsing.
func (l StoreLimits) CheckInsertPayload(rawByteLen int) error {
	return exceeded(LimitInsertDataByteSize, uint64(rawByteLen), l.MaxInsertDataByteSize)
}

// CheckParsedCount rejects an insert whose payload parsed into more
// triples than the insert-data triple-count ceiling allows.
func (l StoreLimits) CheckParsedCount(parsedCount int) error {
	return exceeded(LimitInsertDataTripleCount, uint64(parsedCount), l.MaxInsertDataTripleCount)
}

// CheckTripleSize rejects a triple whose stored byte size exceeds the
// single-triple ceiling.
func (l StoreLimits) CheckTripleSize(t *rdf.Triple) error {
	return exceeded(LimitTripleByteSize, t.ByteSize(), l.MaxTripleByteSize)
}

// CheckCapacity rejects an insert whose projected post-insert totals would
// exceed the store-wide count or byte-size ceilings. The projected totals
// are checked, not the current ones, so the ceilings can never be
// overshot.
func (l StoreLimits) CheckCapacity(currentCount, currentBytes, incomingCount, incomingBytes uint64) error {
	if err := exceeded(LimitTripleCount, currentCount+incomingCount, l.MaxTripleCount); err != nil {
		return err
	}
	return exceeded(LimitByteSize, currentBytes+incomingBytes, l.MaxByteSize)
}

// CheckQueryShape rejects a query requesting more rows or projecting more
// variables than the query ceilings allow. Runs before any evaluation.
func (l StoreLimits) CheckQueryShape(requestedLimit, projectedVariableCount int) error {
	if err := exceeded(LimitQueryLimit, uint64(requestedLimit), l.MaxQueryLimit); err != nil {
		return err
	}
	return exceeded(LimitQueryVariableCount, uint64(projectedVariableCount), l.MaxQueryVariableCount)
}
