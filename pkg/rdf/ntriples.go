package rdf

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax error in an N-Triples document together with
// the line on which it occurred.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}

// Parser is an N-Triples parser: <subject> <predicate> <object> .
// PREFIX/@prefix and BASE/@base directives are accepted as a convenience
// extension for hand-written documents.
type Parser struct {
	input    string
	pos      int
	length   int
	line     int
	prefixes map[string]string
	baseIRI  string
}

// NewParser creates a new N-Triples parser
func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		length:   len(input),
		line:     1,
		prefixes: make(map[string]string),
	}
}

// Parse decodes a document into a sequence of triples. The returned
// triples satisfy Triple.Validate.
func Parse(data []byte) ([]*Triple, error) {
	return NewParser(string(data)).Parse()
}

// Parse parses the document and returns its triples
func (p *Parser) Parse() ([]*Triple, error) {
	var triples []*Triple

	for p.pos < p.length {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		if p.matchKeyword("@prefix") || p.matchKeyword("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return nil, err
			}
			continue
		}

		if p.matchKeyword("@base") || p.matchKeyword("BASE") {
			if err := p.parseBase(); err != nil {
				return nil, err
			}
			continue
		}

		triple, err := p.parseTriple()
		if err != nil {
			return nil, err
		}
		if triple != nil {
			triples = append(triples, triple)
		}
	}

	return triples, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Message: fmt.Sprintf(format, args...)}
}

// skipWhitespaceAndComments skips whitespace and comments
func (p *Parser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == '\n' {
			p.line++
			p.pos++
			continue
		}
		if ch == ' ' || ch == '\t' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

// matchKeyword checks if the current position matches a keyword
func (p *Parser) matchKeyword(keyword string) bool {
	if p.pos+len(keyword) > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(keyword)], keyword) {
		return false
	}
	if p.pos+len(keyword) < p.length {
		nextCh := p.input[p.pos+len(keyword)]
		if nextCh != ' ' && nextCh != '\t' && nextCh != '\n' && nextCh != '\r' {
			return false
		}
	}
	return true
}

// parsePrefix parses a PREFIX directive
func (p *Parser) parsePrefix() error {
	for p.pos < p.length && p.input[p.pos] != ' ' && p.input[p.pos] != '\t' {
		p.pos++
	}
	p.skipWhitespaceAndComments()

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= p.length {
		return p.errorf("expected ':' after prefix name")
	}
	prefixName := strings.TrimSpace(p.input[start:p.pos])
	p.pos++ // skip ':'

	p.skipWhitespaceAndComments()

	iri, err := p.parseIRI()
	if err != nil {
		return err
	}
	p.prefixes[prefixName] = iri

	p.skipWhitespaceAndComments()
	if p.pos < p.length && p.input[p.pos] == '.' {
		p.pos++
	}
	return nil
}

// parseBase parses a BASE directive
func (p *Parser) parseBase() error {
	for p.pos < p.length && p.input[p.pos] != ' ' && p.input[p.pos] != '\t' {
		p.pos++
	}
	p.skipWhitespaceAndComments()

	iri, err := p.parseIRI()
	if err != nil {
		return err
	}
	p.baseIRI = iri

	p.skipWhitespaceAndComments()
	if p.pos < p.length && p.input[p.pos] == '.' {
		p.pos++
	}
	return nil
}

// parseTriple parses one statement: subject predicate object .
func (p *Parser) parseTriple() (*Triple, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, p.errorf("invalid subject: %v", err)
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return nil, p.errorf("invalid predicate: %v", err)
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return nil, p.errorf("invalid object: %v", err)
	}
	p.skipWhitespaceAndComments()

	if p.pos >= p.length || p.input[p.pos] != '.' {
		return nil, p.errorf("expected '.' at end of statement")
	}
	p.pos++ // skip '.'

	triple := NewTriple(subject, predicate, object)
	if err := triple.Validate(); err != nil {
		return nil, p.errorf("%v", err)
	}
	return triple, nil
}

// parseTerm parses an RDF term (IRI, blank node, or literal)
func (p *Parser) parseTerm() (Term, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of input")
	}
	ch := p.input[p.pos]

	switch ch {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	case '-', '+', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return p.parseNumber()
	default:
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			return p.parsePrefixedName()
		}
		return nil, fmt.Errorf("unexpected character %q", ch)
	}
}

// parseIRI parses an IRI enclosed in < >
func (p *Parser) parseIRI() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}
	p.pos++ // skip '<'

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unclosed IRI")
	}

	iri := p.input[start:p.pos]
	p.pos++ // skip '>'

	if p.baseIRI != "" && !strings.Contains(iri, ":") {
		iri = p.baseIRI + iri
	}
	return iri, nil
}

// parseBlankNode parses a blank node label
func (p *Parser) parseBlankNode() (Term, error) {
	if p.pos+1 >= p.length || p.input[p.pos] != '_' || p.input[p.pos+1] != ':' {
		return nil, fmt.Errorf("expected '_:' at start of blank node")
	}
	p.pos += 2

	start := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '<' {
			break
		}
		p.pos++
	}

	label := p.input[start:p.pos]
	if label == "" {
		return nil, fmt.Errorf("empty blank node label")
	}
	return NewBlankNode(label), nil
}

// parseLiteral parses a quoted literal with optional language tag or datatype
func (p *Parser) parseLiteral() (Term, error) {
	if p.pos >= p.length || p.input[p.pos] != '"' {
		return nil, fmt.Errorf("expected '\"' at start of literal")
	}
	p.pos++ // skip opening '"'

	var value strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == '"' {
			break
		}
		if ch == '\\' {
			p.pos++
			if p.pos >= p.length {
				return nil, fmt.Errorf("unexpected end of input in escape sequence")
			}
			switch p.input[p.pos] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			case '"':
				value.WriteByte('"')
			case '\\':
				value.WriteByte('\\')
			default:
				value.WriteByte(p.input[p.pos])
			}
			p.pos++
		} else {
			value.WriteByte(ch)
			p.pos++
		}
	}

	if p.pos >= p.length {
		return nil, fmt.Errorf("unclosed string literal")
	}
	p.pos++ // skip closing '"'

	if p.pos < p.length {
		if p.input[p.pos] == '@' {
			p.pos++ // skip '@'
			start := p.pos
			for p.pos < p.length {
				ch := p.input[p.pos]
				if !(ch == '-' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
					break
				}
				p.pos++
			}
			lang := p.input[start:p.pos]
			if lang == "" {
				return nil, fmt.Errorf("empty language tag")
			}
			return NewLiteralWithLanguage(value.String(), lang), nil
		}
		if p.input[p.pos] == '^' && p.pos+1 < p.length && p.input[p.pos+1] == '^' {
			p.pos += 2 // skip '^^'
			datatypeIRI, err := p.parseIRI()
			if err != nil {
				return nil, fmt.Errorf("invalid datatype: %w", err)
			}
			return NewLiteralWithDatatype(value.String(), NewNamedNode(datatypeIRI)), nil
		}
	}

	return NewLiteral(value.String()), nil
}

// parseNumber parses a bare numeric literal shorthand
func (p *Parser) parseNumber() (Term, error) {
	start := p.pos

	if p.pos < p.length && (p.input[p.pos] == '-' || p.input[p.pos] == '+') {
		p.pos++
	}

	hasDigits := false
	for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
		hasDigits = true
	}

	isDecimal := false
	if p.pos < p.length && p.input[p.pos] == '.' && p.pos+1 < p.length &&
		p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9' {
		isDecimal = true
		p.pos++
		for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}

	if p.pos < p.length && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		isDecimal = true
		p.pos++
		if p.pos < p.length && (p.input[p.pos] == '-' || p.input[p.pos] == '+') {
			p.pos++
		}
		for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}

	if !hasDigits {
		return nil, fmt.Errorf("invalid number")
	}

	numStr := p.input[start:p.pos]
	if isDecimal {
		return NewLiteralWithDatatype(numStr, XSDDouble), nil
	}
	return NewLiteralWithDatatype(numStr, XSDInteger), nil
}

// parsePrefixedName parses a prefixed name (e.g. ex:foo)
func (p *Parser) parsePrefixedName() (Term, error) {
	start := p.pos

	for p.pos < p.length && p.input[p.pos] != ':' {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' {
			return nil, fmt.Errorf("invalid character in prefixed name")
		}
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("expected ':' in prefixed name")
	}

	prefix := p.input[start:p.pos]
	p.pos++ // skip ':'

	localStart := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '<' || ch == '>' {
			break
		}
		p.pos++
	}
	localName := p.input[localStart:p.pos]

	baseIRI, ok := p.prefixes[prefix]
	if !ok {
		return nil, fmt.Errorf("undefined prefix: %s", prefix)
	}
	return NewNamedNode(baseIRI + localName), nil
}

// ParseTerm parses a single term from its textual form, e.g.
// "<http://example.org/a>", "_:b0" or "\"chat\"@en".
func ParseTerm(s string) (Term, error) {
	p := NewParser(s)
	p.skipWhitespaceAndComments()
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipWhitespaceAndComments()
	if p.pos < p.length {
		return nil, fmt.Errorf("trailing input after term: %q", p.input[p.pos:])
	}
	return term, nil
}

// Serialize writes triples in N-Triples form, one statement per line.
func Serialize(triples []*Triple) []byte {
	var b strings.Builder
	for _, t := range triples {
		writeTerm(&b, t.Subject)
		b.WriteByte(' ')
		writeTerm(&b, t.Predicate)
		b.WriteByte(' ')
		writeTerm(&b, t.Object)
		b.WriteString(" .\n")
	}
	return []byte(b.String())
}

func writeTerm(b *strings.Builder, term Term) {
	switch t := term.(type) {
	case *NamedNode:
		b.WriteByte('<')
		b.WriteString(t.IRI)
		b.WriteByte('>')
	case *BlankNode:
		b.WriteString("_:")
		b.WriteString(t.ID)
	case *Literal:
		b.WriteByte('"')
		escapeLiteral(b, t.Value)
		b.WriteByte('"')
		if t.Language != "" {
			b.WriteByte('@')
			b.WriteString(t.Language)
		} else if t.Datatype != nil {
			b.WriteString("^^<")
			b.WriteString(t.Datatype.IRI)
			b.WriteByte('>')
		}
	}
}

func escapeLiteral(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
}
