package rdf

import (
	"testing"
)

func TestNamedNode_Equals(t *testing.T) {
	node1 := NewNamedNode("http://example.org/resource")
	node2 := NewNamedNode("http://example.org/resource")
	node3 := NewNamedNode("http://example.org/different")

	if !node1.Equals(node2) {
		t.Error("Expected equal NamedNodes to be equal")
	}
	if node1.Equals(node3) {
		t.Error("Expected different NamedNodes to not be equal")
	}
	if node1.Equals(NewLiteral("http://example.org/resource")) {
		t.Error("NamedNode should not equal Literal")
	}
}

func TestBlankNode_Equals(t *testing.T) {
	node1 := NewBlankNode("b1")
	node2 := NewBlankNode("b1")
	node3 := NewBlankNode("b2")

	if !node1.Equals(node2) {
		t.Error("Expected equal BlankNodes to be equal")
	}
	if node1.Equals(node3) {
		t.Error("Expected different BlankNodes to not be equal")
	}
	if node1.Equals(NewNamedNode("b1")) {
		t.Error("BlankNode should not equal NamedNode")
	}
}

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{
			name:     "plain literal",
			literal:  NewLiteral("hello"),
			expected: `"hello"`,
		},
		{
			name:     "literal with language",
			literal:  NewLiteralWithLanguage("hello", "en"),
			expected: `"hello"@en`,
		},
		{
			name:     "literal with datatype",
			literal:  NewLiteralWithDatatype("42", XSDInteger),
			expected: `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.literal.String(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	if !NewLiteral("a").Equals(NewLiteral("a")) {
		t.Error("Expected equal plain literals to be equal")
	}
	if NewLiteral("a").Equals(NewLiteralWithLanguage("a", "en")) {
		t.Error("Plain literal should not equal language-tagged literal")
	}
	if NewLiteralWithDatatype("1", XSDInteger).Equals(NewLiteralWithDatatype("1", XSDDouble)) {
		t.Error("Literals with different datatypes should not be equal")
	}
	if !NewLiteralWithDatatype("1", XSDInteger).Equals(NewIntegerLiteral(1)) {
		t.Error("Expected equal typed literals to be equal")
	}
}

func TestTerm_ByteSize(t *testing.T) {
	tests := []struct {
		name     string
		term     Term
		expected uint64
	}{
		{"iri", NewNamedNode("http://example.org/a"), 20},
		{"blank node", NewBlankNode("b0"), 2},
		{"plain literal", NewLiteral("hello"), 5},
		{"language-tagged literal", NewLiteralWithLanguage("hello", "en"), 7},
		{"typed literal", NewLiteralWithDatatype("42", XSDInteger), 2 + uint64(len(XSDInteger.IRI))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.term.ByteSize(); got != tt.expected {
				t.Errorf("Expected size %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestTriple_ByteSize(t *testing.T) {
	triple := NewTriple(
		NewNamedNode("http://example.org/a"), // 20
		NewNamedNode("http://example.org/p"), // 20
		NewLiteralWithLanguage("chat", "fr"), // 6
	)
	if got := triple.ByteSize(); got != 46 {
		t.Errorf("Expected triple size 46, got %d", got)
	}
}

func TestTriple_Validate(t *testing.T) {
	iri := NewNamedNode("http://example.org/a")

	valid := NewTriple(iri, iri, NewLiteral("x"))
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid triple, got %v", err)
	}

	blankSubject := NewTriple(NewBlankNode("b0"), iri, iri)
	if err := blankSubject.Validate(); err != nil {
		t.Errorf("Expected blank subject to be valid, got %v", err)
	}

	literalSubject := NewTriple(NewLiteral("x"), iri, iri)
	if err := literalSubject.Validate(); err != ErrSubjectLiteral {
		t.Errorf("Expected ErrSubjectLiteral, got %v", err)
	}

	blankPredicate := NewTriple(iri, NewBlankNode("b0"), iri)
	if err := blankPredicate.Validate(); err != ErrPredicateNotIRI {
		t.Errorf("Expected ErrPredicateNotIRI, got %v", err)
	}

	bothTags := NewTriple(iri, iri, &Literal{Value: "x", Language: "en", Datatype: XSDString})
	if err := bothTags.Validate(); err != ErrLiteralDatatypeLanguage {
		t.Errorf("Expected ErrLiteralDatatypeLanguage, got %v", err)
	}
}
