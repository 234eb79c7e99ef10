package index

import (
	"fmt"
	"testing"

	"github.com/ternstore/tern/internal/storage"
	"github.com/ternstore/tern/pkg/rdf"
)

func testTriple(s, p, o string) *rdf.Triple {
	return rdf.NewTriple(
		rdf.NewNamedNode("http://example.org/"+s),
		rdf.NewNamedNode("http://example.org/"+p),
		rdf.NewNamedNode("http://example.org/"+o),
	)
}

func collect(t *testing.T, it *TripleIterator) []*rdf.Triple {
	t.Helper()
	defer it.Close()

	var triples []*rdf.Triple
	for it.Next() {
		triple, err := it.Triple()
		if err != nil {
			t.Fatalf("failed to decode triple: %v", err)
		}
		triples = append(triples, triple)
	}
	return triples
}

func TestIndex_InsertContainsDelete(t *testing.T) {
	x := New(storage.NewMemoryStorage())
	triple := testTriple("alice", "knows", "bob")

	added, err := x.Insert(triple)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !added {
		t.Error("expected first insert to report added")
	}

	txn, err := x.Begin(false)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	present, err := x.ContainsTxn(txn, triple)
	txn.Rollback()
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !present {
		t.Error("expected triple to be present")
	}

	removed, err := x.Delete(triple)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !removed {
		t.Error("expected delete to report removed")
	}

	removed, err = x.Delete(triple)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed {
		t.Error("expected second delete to be a no-op")
	}
}

func TestIndex_InsertIsIdempotent(t *testing.T) {
	x := New(storage.NewMemoryStorage())
	triple := testTriple("alice", "knows", "bob")

	if _, err := x.Insert(triple); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	added, err := x.Insert(triple)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if added {
		t.Error("expected re-insert to report not added")
	}

	count, err := x.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
	size, err := x.ByteSize()
	if err != nil {
		t.Fatalf("byte size failed: %v", err)
	}
	if size != triple.ByteSize() {
		t.Errorf("expected byte size %d, got %d", triple.ByteSize(), size)
	}
}

func TestIndex_CountersTrackMutations(t *testing.T) {
	x := New(storage.NewMemoryStorage())

	t1 := testTriple("alice", "knows", "bob")
	t2 := rdf.NewTriple(
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://example.org/name"),
		rdf.NewLiteralWithLanguage("Alice", "en"),
	)

	for _, triple := range []*rdf.Triple{t1, t2} {
		if _, err := x.Insert(triple); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	count, _ := x.Count()
	size, _ := x.ByteSize()
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	if expected := t1.ByteSize() + t2.ByteSize(); size != expected {
		t.Errorf("expected byte size %d, got %d", expected, size)
	}

	if _, err := x.Delete(t1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	count, _ = x.Count()
	size, _ = x.ByteSize()
	if count != 1 {
		t.Errorf("expected count 1 after delete, got %d", count)
	}
	if size != t2.ByteSize() {
		t.Errorf("expected byte size %d after delete, got %d", t2.ByteSize(), size)
	}
}

func TestIndex_ScanAllBoundCombinations(t *testing.T) {
	x := New(storage.NewMemoryStorage())

	triples := []*rdf.Triple{
		testTriple("alice", "knows", "bob"),
		testTriple("alice", "knows", "carol"),
		testTriple("bob", "knows", "carol"),
		testTriple("alice", "likes", "carol"),
	}
	for _, triple := range triples {
		if _, err := x.Insert(triple); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	node := func(local string) rdf.Term {
		return rdf.NewNamedNode("http://example.org/" + local)
	}

	tests := []struct {
		name     string
		s, p, o  rdf.Term
		expected int
	}{
		{"all unbound", nil, nil, nil, 4},
		{"s bound", node("alice"), nil, nil, 3},
		{"p bound", nil, node("knows"), nil, 3},
		{"o bound", nil, nil, node("carol"), 3},
		{"sp bound", node("alice"), node("knows"), nil, 2},
		{"po bound", nil, node("knows"), node("carol"), 2},
		{"so bound", node("alice"), nil, node("carol"), 2},
		{"spo bound", node("alice"), node("knows"), node("bob"), 1},
		{"spo absent", node("bob"), node("likes"), node("alice"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := x.Scan(tt.s, tt.p, tt.o)
			if err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			got := collect(t, it)
			if len(got) != tt.expected {
				t.Fatalf("expected %d triples, got %d", tt.expected, len(got))
			}
			for _, triple := range got {
				if tt.s != nil && !triple.Subject.Equals(tt.s) {
					t.Errorf("subject mismatch: %s", triple)
				}
				if tt.p != nil && !triple.Predicate.Equals(tt.p) {
					t.Errorf("predicate mismatch: %s", triple)
				}
				if tt.o != nil && !triple.Object.Equals(tt.o) {
					t.Errorf("object mismatch: %s", triple)
				}
			}
		})
	}
}

// A partially bound subject must not match subjects it is merely a string
// prefix of.
func TestIndex_ScanPrefixIsTermExact(t *testing.T) {
	x := New(storage.NewMemoryStorage())

	if _, err := x.Insert(testTriple("al", "knows", "bob")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := x.Insert(testTriple("alice", "knows", "bob")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	it, err := x.Scan(rdf.NewNamedNode("http://example.org/al"), nil, nil)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	got := collect(t, it)
	if len(got) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(got))
	}
	if got[0].Subject.String() != "<http://example.org/al>" {
		t.Errorf("unexpected subject %s", got[0].Subject)
	}
}

// Terms may contain NUL bytes; a bound position must still only match
// triples whose term is byte-for-byte equal, not NUL-extended ones.
func TestIndex_ScanExactWithNulBytes(t *testing.T) {
	x := New(storage.NewMemoryStorage())

	nulSubject := rdf.NewNamedNode("a\x00x")
	triple := rdf.NewTriple(nulSubject, rdf.NewNamedNode("http://example.org/p"), rdf.NewLiteral("v"))
	if _, err := x.Insert(triple); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	it, err := x.Scan(rdf.NewNamedNode("a"), nil, nil)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := collect(t, it); len(got) != 0 {
		t.Fatalf("expected no matches for subject <a>, got %d: %s", len(got), got[0])
	}

	it, err = x.Scan(nulSubject, nil, nil)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	got := collect(t, it)
	if len(got) != 1 {
		t.Fatalf("expected 1 match for the exact subject, got %d", len(got))
	}
	if !got[0].Equals(triple) {
		t.Errorf("expected %s, got %s", triple, got[0])
	}

	// Objects with NUL-extended values must stay distinct as well
	if _, err := x.Insert(rdf.NewTriple(rdf.NewNamedNode("s"), rdf.NewNamedNode("p"), rdf.NewLiteral("v\x00w"))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	it, err = x.Scan(nil, nil, rdf.NewLiteral("v"))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := collect(t, it); len(got) != 1 {
		t.Fatalf("expected 1 match for object \"v\", got %d", len(got))
	}
}

func TestIndex_ScanDecodesAllTermKinds(t *testing.T) {
	x := New(storage.NewMemoryStorage())

	triple := rdf.NewTriple(
		rdf.NewBlankNode("b0"),
		rdf.NewNamedNode("http://example.org/name"),
		rdf.NewLiteralWithDatatype("42", rdf.XSDInteger),
	)
	if _, err := x.Insert(triple); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Every index table must reconstruct the identical triple
	for _, pattern := range [][3]rdf.Term{
		{triple.Subject, nil, nil},
		{nil, triple.Predicate, nil},
		{nil, nil, triple.Object},
	} {
		it, err := x.Scan(pattern[0], pattern[1], pattern[2])
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		got := collect(t, it)
		if len(got) != 1 {
			t.Fatalf("expected 1 triple, got %d", len(got))
		}
		if !got[0].Equals(triple) {
			t.Errorf("expected %s, got %s", triple, got[0])
		}
	}
}

func TestSelectIndex(t *testing.T) {
	s := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")
	o := rdf.NewNamedNode("http://example.org/o")

	tests := []struct {
		s, p, o  rdf.Term
		expected string
	}{
		{s, p, o, "spo"},
		{s, p, nil, "spo"},
		{nil, p, o, "pos"},
		{s, nil, o, "osp"},
		{s, nil, nil, "spo"},
		{nil, p, nil, "pos"},
		{nil, nil, o, "osp"},
		{nil, nil, nil, "spo"},
	}

	for _, tt := range tests {
		table, _ := selectIndex(tt.s, tt.p, tt.o)
		if table.String() != tt.expected {
			t.Errorf("selectIndex(%v, %v, %v): expected %s, got %s",
				tt.s != nil, tt.p != nil, tt.o != nil, tt.expected, table)
		}
	}
}

func TestIndex_ScanIsLazy(t *testing.T) {
	mem := storage.NewMemoryStorage()
	x := New(mem)

	for i := 0; i < 10; i++ {
		if _, err := x.Insert(testTriple(fmt.Sprintf("s%d", i), "p", "o")); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	it, err := x.Scan(nil, nil, nil)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !it.Next() {
		t.Fatal("expected at least one triple")
	}
	if _, err := it.Triple(); err != nil {
		t.Fatalf("triple failed: %v", err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if it.Next() {
		t.Error("expected closed iterator to stop")
	}
}
