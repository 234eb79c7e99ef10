package rdf

import (
	"errors"
	"fmt"
)

// TermType represents the type of an RDF term
type TermType byte

const (
	TermTypeNamedNode TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
)

// Term represents an RDF term (IRI, blank node, or literal)
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool

	// ByteSize is the stored size of the term: the length of its lexical
	// value plus any datatype IRI or language tag bytes. All byte-size
	// limits are expressed in this unit.
	ByteSize() uint64
}

// NamedNode represents an IRI
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode {
	return &NamedNode{IRI: iri}
}

func (n *NamedNode) Type() TermType {
	return TermTypeNamedNode
}

func (n *NamedNode) String() string {
	return fmt.Sprintf("<%s>", n.IRI)
}

func (n *NamedNode) Equals(other Term) bool {
	if on, ok := other.(*NamedNode); ok {
		return n.IRI == on.IRI
	}
	return false
}

func (n *NamedNode) ByteSize() uint64 {
	return uint64(len(n.IRI))
}

// BlankNode represents a blank node. Its ID is scoped to the insertion
// batch that produced it.
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Type() TermType {
	return TermTypeBlankNode
}

func (b *BlankNode) String() string {
	return fmt.Sprintf("_:%s", b.ID)
}

func (b *BlankNode) Equals(other Term) bool {
	if ob, ok := other.(*BlankNode); ok {
		return b.ID == ob.ID
	}
	return false
}

func (b *BlankNode) ByteSize() uint64 {
	return uint64(len(b.ID))
}

// Literal represents an RDF literal. A literal carries either a datatype
// IRI or a language tag, never both.
type Literal struct {
	Value    string
	Language string     // for language-tagged strings
	Datatype *NamedNode // for typed literals
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: language}
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType {
	return TermTypeLiteral
}

func (l *Literal) String() string {
	result := fmt.Sprintf("%q", l.Value)
	if l.Language != "" {
		result += "@" + l.Language
	} else if l.Datatype != nil {
		result += "^^" + l.Datatype.String()
	}
	return result
}

func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok {
		return false
	}
	if l.Value != ol.Value || l.Language != ol.Language {
		return false
	}
	if l.Datatype == nil && ol.Datatype == nil {
		return true
	}
	if l.Datatype != nil && ol.Datatype != nil {
		return l.Datatype.Equals(ol.Datatype)
	}
	return false
}

func (l *Literal) ByteSize() uint64 {
	size := uint64(len(l.Value)) + uint64(len(l.Language))
	if l.Datatype != nil {
		size += uint64(len(l.Datatype.IRI))
	}
	return size
}

// Triple represents an RDF triple (subject, predicate, object)
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

func (t *Triple) Equals(other *Triple) bool {
	return t.Subject.Equals(other.Subject) &&
		t.Predicate.Equals(other.Predicate) &&
		t.Object.Equals(other.Object)
}

// ByteSize is the stored size of the triple: the sum of the stored sizes
// of subject, predicate and object.
func (t *Triple) ByteSize() uint64 {
	return t.Subject.ByteSize() + t.Predicate.ByteSize() + t.Object.ByteSize()
}

var (
	ErrPredicateNotIRI         = errors.New("predicate must be an IRI")
	ErrSubjectLiteral          = errors.New("subject must be an IRI or a blank node")
	ErrLiteralDatatypeLanguage = errors.New("literal cannot carry both a datatype and a language tag")
)

// Validate checks the structural invariants of a triple: the subject is an
// IRI or blank node, the predicate is an IRI, and a literal object never
// carries both a datatype and a language tag.
func (t *Triple) Validate() error {
	switch t.Subject.(type) {
	case *NamedNode, *BlankNode:
	default:
		return ErrSubjectLiteral
	}

	if _, ok := t.Predicate.(*NamedNode); !ok {
		return ErrPredicateNotIRI
	}

	if lit, ok := t.Object.(*Literal); ok {
		if lit.Language != "" && lit.Datatype != nil {
			return ErrLiteralDatatypeLanguage
		}
	}

	return nil
}

// Common XSD datatypes
var (
	XSDString  = NewNamedNode("http://www.w3.org/2001/XMLSchema#string")
	XSDInteger = NewNamedNode("http://www.w3.org/2001/XMLSchema#integer")
	XSDDecimal = NewNamedNode("http://www.w3.org/2001/XMLSchema#decimal")
	XSDDouble  = NewNamedNode("http://www.w3.org/2001/XMLSchema#double")
	XSDBoolean = NewNamedNode("http://www.w3.org/2001/XMLSchema#boolean")
)

func NewIntegerLiteral(value int64) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%d", value), XSDInteger)
}

func NewBooleanLiteral(value bool) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%t", value), XSDBoolean)
}
