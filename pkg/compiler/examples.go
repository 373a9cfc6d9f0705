// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// rawExampleConfig is the on-disk JSON shape of a user-supplied example
// config file:
//
//	{"paths": {"/items/{id}": {"get": {"found": "examples/found.json"}}},
//	 "exactCopy": true}
//
// Each exampleName's value is either a JSON string naming a file to read
// (resolved later, outside compiler core, via ResolveFile) or an inline
// JSON value carried as-is.
type rawExampleConfig struct {
	Paths     map[string]map[string]map[string]json.RawMessage `json:"paths"`
	ExactCopy bool                                              `json:"exactCopy"`
}

// NamedExample is one user-selected example payload for a request: a
// reference to an external file (FilePath, resolved by the caller via
// ResolveFile) or an inline JSON value (Inline).
type NamedExample struct {
	Name     string
	FilePath string
	Inline   interface{}
}

// ExampleSet indexes NamedExample values by RequestId. Within one parsed
// file a request's examples are added in sorted exampleName order;
// examples from later files follow them.
type ExampleSet struct {
	byRequest map[string][]NamedExample
	ExactCopy bool
}

// ParseExamples decodes one example config file and merges its entries
// into set. Calling it repeatedly across multiple files accumulates
// entries; an exampleName already registered for the same request is
// replaced by the later file's value. Method keys are matched
// case-insensitively ("get" and "GET" name the same request).
// ExactCopy becomes true if any parsed file sets it.
func ParseExamples(data []byte, set *ExampleSet) error {
	if set.byRequest == nil {
		set.byRequest = map[string][]NamedExample{}
	}
	var raw rawExampleConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return newCompileError(ErrMalformedExample, "parse examples: %w", err)
	}
	if raw.ExactCopy {
		set.ExactCopy = true
	}

	for _, endpoint := range sortedPathKeys(raw.Paths) {
		methods := raw.Paths[endpoint]
		for _, method := range sortedMethodKeys(methods) {
			names := methods[method]
			id := RequestId{Endpoint: endpoint, Method: Method(strings.ToUpper(method))}
			key := id.Key()
			for _, name := range sortedRawKeys(names) {
				ex, err := decodeNamedExample(name, names[name])
				if err != nil {
					return err
				}
				replaced := false
				for i := range set.byRequest[key] {
					if set.byRequest[key][i].Name == name {
						set.byRequest[key][i] = ex
						replaced = true
						break
					}
				}
				if !replaced {
					set.byRequest[key] = append(set.byRequest[key], ex)
				}
			}
		}
	}
	return nil
}

func decodeNamedExample(name string, raw json.RawMessage) (NamedExample, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return NamedExample{Name: name, FilePath: asString}, nil
	}
	var inline interface{}
	if err := json.Unmarshal(raw, &inline); err != nil {
		return NamedExample{}, newCompileError(ErrMalformedExample, "parse example %q: %w", name, err)
	}
	return NamedExample{Name: name, Inline: inline}, nil
}

func sortedPathKeys(m map[string]map[string]map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMethodKeys(m map[string]map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRawKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the named examples registered for id, if any.
func (s *ExampleSet) Lookup(id RequestId) ([]NamedExample, bool) {
	if s == nil || s.byRequest == nil {
		return nil, false
	}
	exs, ok := s.byRequest[id.Key()]
	return exs, ok
}

// FilePaths returns, in deterministic order, every distinct FilePath
// referenced across the set's entries, for a caller to read and resolve
// via ResolveFile.
func (s *ExampleSet) FilePaths() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.byRequest))
	for k := range s.byRequest {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := map[string]bool{}
	var out []string
	for _, key := range keys {
		for _, ex := range s.byRequest[key] {
			if ex.FilePath == "" || seen[ex.FilePath] {
				continue
			}
			seen[ex.FilePath] = true
			out = append(out, ex.FilePath)
		}
	}
	return out
}

// ResolveFile fills in the Inline value of every NamedExample referencing
// path with the parsed contents of data. File I/O itself is left to the
// caller (the CLI entry point), mirroring how annotation file reads stay
// out of compiler core.
func (s *ExampleSet) ResolveFile(path string, data []byte) error {
	if s == nil {
		return nil
	}
	var inline interface{}
	if err := json.Unmarshal(data, &inline); err != nil {
		return newCompileError(ErrMalformedExample, "parse example file %s: %w", path, err)
	}
	for key, exs := range s.byRequest {
		for i, ex := range exs {
			if ex.FilePath == path {
				s.byRequest[key][i].Inline = inline
				s.byRequest[key][i].FilePath = ""
			}
		}
	}
	return nil
}

// marshalExampleLiteral serializes an inline example value back to a
// compact JSON string for embedding as a Constant body payload.
func marshalExampleLiteral(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
