// Package encoding implements the sortable binary form of RDF terms used as
// index keys. The encoding is self-delimiting and round-trip exact: a key is
// the concatenation of encoded terms, and decoding recovers the original
// terms without any side lookup.
//
// Layout per term: a kind tag byte, the escaped value bytes, a 0x00
// terminator, and for literals a discriminator byte followed by the escaped
// datatype IRI or language tag. Escaping maps 0x00 to 0x01 0x01 and 0x01 to
// 0x01 0x02, so the terminator byte never occurs inside escaped content: no
// term encoding is a byte prefix of another term's encoding, and byte-wise
// comparison of whole keys matches the term order (kind first, then value,
// then discriminator).
package encoding

import (
	"bytes"
	"fmt"

	"github.com/ternstore/tern/pkg/rdf"
)

const (
	kindIRI     byte = 0x01
	kindBlank   byte = 0x02
	kindLiteral byte = 0x03

	litPlain    byte = 0x01
	litDatatype byte = 0x02
	litLanguage byte = 0x03

	terminator byte = 0x00
	escape     byte = 0x01
	escapedNul byte = 0x01
	escapedEsc byte = 0x02
)

// AppendTerm appends the encoded form of term to dst
func AppendTerm(dst []byte, term rdf.Term) ([]byte, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		dst = append(dst, kindIRI)
		dst = appendEscaped(dst, t.IRI)
		return append(dst, terminator), nil
	case *rdf.BlankNode:
		dst = append(dst, kindBlank)
		dst = appendEscaped(dst, t.ID)
		return append(dst, terminator), nil
	case *rdf.Literal:
		dst = append(dst, kindLiteral)
		dst = appendEscaped(dst, t.Value)
		dst = append(dst, terminator)
		switch {
		case t.Language != "":
			dst = append(dst, litLanguage)
			dst = appendEscaped(dst, t.Language)
		case t.Datatype != nil:
			dst = append(dst, litDatatype)
			dst = appendEscaped(dst, t.Datatype.IRI)
		default:
			dst = append(dst, litPlain)
		}
		return append(dst, terminator), nil
	default:
		return nil, fmt.Errorf("unknown term type: %T", term)
	}
}

// EncodeTerm encodes a single term
func EncodeTerm(term rdf.Term) ([]byte, error) {
	return AppendTerm(nil, term)
}

// DecodeTerm decodes one term from the front of buf and reports how many
// bytes it consumed.
func DecodeTerm(buf []byte) (rdf.Term, int, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("empty term encoding")
	}

	kind := buf[0]
	value, n, err := decodeEscaped(buf[1:])
	if err != nil {
		return nil, 0, err
	}
	consumed := 1 + n

	switch kind {
	case kindIRI:
		return rdf.NewNamedNode(value), consumed, nil
	case kindBlank:
		return rdf.NewBlankNode(value), consumed, nil
	case kindLiteral:
		if consumed >= len(buf) {
			return nil, 0, fmt.Errorf("truncated literal encoding")
		}
		disc := buf[consumed]
		consumed++
		switch disc {
		case litPlain:
			if consumed >= len(buf) || buf[consumed] != terminator {
				return nil, 0, fmt.Errorf("truncated literal encoding")
			}
			return rdf.NewLiteral(value), consumed + 1, nil
		case litDatatype:
			dt, m, err := decodeEscaped(buf[consumed:])
			if err != nil {
				return nil, 0, err
			}
			return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(dt)), consumed + m, nil
		case litLanguage:
			lang, m, err := decodeEscaped(buf[consumed:])
			if err != nil {
				return nil, 0, err
			}
			return rdf.NewLiteralWithLanguage(value, lang), consumed + m, nil
		default:
			return nil, 0, fmt.Errorf("unknown literal discriminator: %#x", disc)
		}
	default:
		return nil, 0, fmt.Errorf("unknown term kind: %#x", kind)
	}
}

// AppendKey appends the encoded forms of the given terms, producing an
// index key that sorts lexicographically by term order.
func AppendKey(dst []byte, terms ...rdf.Term) ([]byte, error) {
	var err error
	for _, term := range terms {
		dst, err = AppendTerm(dst, term)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// DecodeKey decodes exactly n consecutive terms from key
func DecodeKey(key []byte, n int) ([]rdf.Term, error) {
	terms := make([]rdf.Term, 0, n)
	offset := 0
	for i := 0; i < n; i++ {
		term, consumed, err := DecodeTerm(key[offset:])
		if err != nil {
			return nil, fmt.Errorf("term %d: %w", i, err)
		}
		offset += consumed
		terms = append(terms, term)
	}
	if offset != len(key) {
		return nil, fmt.Errorf("trailing bytes in key: %d", len(key)-offset)
	}
	return terms, nil
}

// Compare orders two terms by their encoded form: kind tag first, then
// value bytes, then datatype/language discriminator.
func Compare(a, b rdf.Term) int {
	ea, err := EncodeTerm(a)
	if err != nil {
		return 0
	}
	eb, err := EncodeTerm(b)
	if err != nil {
		return 0
	}
	return bytes.Compare(ea, eb)
}

// appendEscaped writes s with 0x00 and 0x01 bytes escaped behind the escape
// byte. Escaped content never contains a bare terminator, and the mapping
// preserves byte order.
func appendEscaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case terminator:
			dst = append(dst, escape, escapedNul)
		case escape:
			dst = append(dst, escape, escapedEsc)
		default:
			dst = append(dst, s[i])
		}
	}
	return dst
}

// decodeEscaped reads an escaped string up to and including its terminator,
// returning the string and the number of bytes consumed.
func decodeEscaped(buf []byte) (string, int, error) {
	var b bytes.Buffer
	i := 0
	for i < len(buf) {
		switch buf[i] {
		case terminator:
			return b.String(), i + 1, nil
		case escape:
			if i+1 >= len(buf) {
				return "", 0, fmt.Errorf("truncated escape sequence")
			}
			switch buf[i+1] {
			case escapedNul:
				b.WriteByte(terminator)
			case escapedEsc:
				b.WriteByte(escape)
			default:
				return "", 0, fmt.Errorf("invalid escape sequence: %#x", buf[i+1])
			}
			i += 2
		default:
			b.WriteByte(buf[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string encoding")
}
