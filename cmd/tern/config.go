package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ternstore/tern/pkg/store"
)

// limitsFile is the on-disk shape of a store limits configuration.
//
//	max_byte_size: 1048576
//	max_triple_count: 10000
//	max_query_limit: 100
//
// Absent keys mean unbounded.
type limitsFile struct {
	Limits store.StoreLimits `yaml:",inline"`
}

// loadLimits reads a YAML limits file. An empty path means no ceilings.
func loadLimits(path string) (store.StoreLimits, error) {
	if path == "" {
		return store.Unbounded(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return store.StoreLimits{}, fmt.Errorf("failed to read limits file: %w", err)
	}

	var f limitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return store.StoreLimits{}, fmt.Errorf("failed to parse limits file: %w", err)
	}
	return f.Limits, nil
}
