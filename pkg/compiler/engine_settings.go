// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"bytes"
	"sort"

	json "github.com/goccy/go-json"
)

// EngineSettings is a loosely-typed view over engine_settings.json:
// the fuzzing engine owns most of this document's schema, so the
// compiler reads it and rewrites only the top-level dynamic_objects key,
// passing every other key through unchanged. per_resource_settings
// (custom dictionaries, request delays) is not added or changed.
type EngineSettings struct {
	raw map[string]interface{}
}

// ParseEngineSettings decodes an existing engine_settings.json document,
// or returns an empty EngineSettings if data is empty (no prior file).
func ParseEngineSettings(data []byte) (EngineSettings, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return EngineSettings{raw: map[string]interface{}{}}, nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return EngineSettings{}, newCompileError(ErrInvalidSpecFile, "parse engine settings: %w", err)
	}
	return EngineSettings{raw: raw}, nil
}

// WithDynamicObjects merges variableNames into the settings' top-level
// "dynamic_objects" array, deduplicated and sorted, leaving every other
// key untouched.
func (s EngineSettings) WithDynamicObjects(variableNames []string) EngineSettings {
	out := map[string]interface{}{}
	for k, v := range s.raw {
		out[k] = v
	}

	existing := map[string]bool{}
	if list, ok := out["dynamic_objects"].([]interface{}); ok {
		for _, v := range list {
			if name, ok := v.(string); ok {
				existing[name] = true
			}
		}
	}
	for _, name := range variableNames {
		existing[name] = true
	}

	var merged []string
	for name := range existing {
		merged = append(merged, name)
	}
	sort.Strings(merged)

	names := make([]interface{}, len(merged))
	for i, n := range merged {
		names[i] = n
	}
	out["dynamic_objects"] = names

	return EngineSettings{raw: out}
}

// Marshal serializes the settings document with goccy/go-json, indented
// for readability like the rest of this package's JSON output.
func (s EngineSettings) Marshal() ([]byte, error) {
	enc := &bytes.Buffer{}
	e := json.NewEncoder(enc)
	e.SetIndent("", "  ")
	if err := e.Encode(s.raw); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

