package main

import (
	"github.com/ternstore/tern/pkg/rdf"
	"github.com/ternstore/tern/pkg/store"
)

// exportAll serializes every stored triple as N-Triples
func exportAll(s *store.Store) ([]byte, error) {
	it, err := s.Match(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var triples []*rdf.Triple
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return rdf.Serialize(triples), nil
}
