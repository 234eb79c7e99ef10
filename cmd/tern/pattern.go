package main

import (
	"fmt"
	"strings"

	"github.com/ternstore/tern/pkg/query"
	"github.com/ternstore/tern/pkg/rdf"
)

// parsePattern parses a textual triple pattern of exactly three tokens,
// e.g. `?s <http://example.org/knows> "Alice"@en`. Tokens starting with
// '?' are variables; everything else is parsed as an N-Triples term.
func parsePattern(text string) (query.Pattern, error) {
	tokens, err := splitPatternTokens(text)
	if err != nil {
		return query.Pattern{}, err
	}
	if len(tokens) != 3 {
		return query.Pattern{}, fmt.Errorf("expected 3 positions, got %d", len(tokens))
	}

	positions := make([]any, 3)
	for i, token := range tokens {
		if strings.HasPrefix(token, "?") {
			name := token[1:]
			if name == "" {
				return query.Pattern{}, fmt.Errorf("empty variable name")
			}
			positions[i] = query.Var(name)
			continue
		}
		term, err := rdf.ParseTerm(token)
		if err != nil {
			return query.Pattern{}, err
		}
		positions[i] = term
	}

	return query.Pattern{
		Subject:   positions[0],
		Predicate: positions[1],
		Object:    positions[2],
	}, nil
}

// splitPatternTokens splits a pattern into whitespace-separated tokens,
// keeping quoted literals (with their language tag or datatype suffix) and
// angle-bracketed IRIs whole.
func splitPatternTokens(text string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(text) {
		for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
			i++
		}
		if i >= len(text) {
			break
		}

		start := i
		switch text[i] {
		case '<':
			for i < len(text) && text[i] != '>' {
				i++
			}
			if i >= len(text) {
				return nil, fmt.Errorf("unclosed IRI")
			}
			i++ // include '>'
		case '"':
			i++
			for i < len(text) && text[i] != '"' {
				if text[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(text) {
				return nil, fmt.Errorf("unclosed literal")
			}
			i++ // include closing '"'
			// language tag or datatype suffix
			if i < len(text) && text[i] == '@' {
				for i < len(text) && text[i] != ' ' && text[i] != '\t' {
					i++
				}
			} else if i+1 < len(text) && text[i] == '^' && text[i+1] == '^' {
				i += 2
				for i < len(text) && text[i] != '>' {
					i++
				}
				if i >= len(text) {
					return nil, fmt.Errorf("unclosed datatype IRI")
				}
				i++
			}
		default:
			for i < len(text) && text[i] != ' ' && text[i] != '\t' {
				i++
			}
		}
		tokens = append(tokens, text[start:i])
	}
	return tokens, nil
}

// parseOptionalTerm parses a term, treating the empty string as unbound
func parseOptionalTerm(s string) (rdf.Term, error) {
	if s == "" {
		return nil, nil
	}
	return rdf.ParseTerm(s)
}
