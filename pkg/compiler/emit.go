// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	kpgzip "github.com/klauspost/compress/gzip"
)

const (
	grammarFileName                = "grammar.json"
	dictionaryFileName             = "dict.json"
	dependenciesFileName           = "dependencies.json"
	dependenciesDebugFileName      = "dependencies_debug.json"
	unresolvedDependenciesFileName = "unresolved_dependencies.json"
	engineSettingsFileName         = "engine_settings.json"
	examplesFileName               = "examples.json"
)

// unresolvedConsumer is the JSON shape written to
// unresolved_dependencies.json for every Consumer the resolver could not
// bind.
type unresolvedConsumer struct {
	Endpoint string        `json:"endpoint"`
	Method   Method        `json:"method"`
	Kind     ParameterKind `json:"parameterKind"`
	Path     string        `json:"accessPath"`
	Name     string        `json:"name"`
}

// dependencyRecord is the JSON shape of one resolved Dependency written
// to the debug dump.
type dependencyRecord struct {
	Consumer unresolvedConsumer `json:"consumer"`
	Producer *Producer          `json:"producer,omitempty"`
}

// groupedDependencyEntry is one resolved consumer's record within
// dependencies.json's endpoint -> method -> parameterKind grouping.
type groupedDependencyEntry struct {
	Path     string    `json:"accessPath"`
	Name     string    `json:"name"`
	Producer *Producer `json:"producer"`
}

// EmitOptions configures WriteArtifacts' output behavior.
type EmitOptions struct {
	OutputDir      string
	GzipDebugDumps bool
}

// WriteArtifacts serializes every compiled output into OutputDir: the
// grammar, the (possibly extended) dictionary, the grouped dependency
// records, unresolved consumer report, a debug dump of every dependency
// (gzipped when requested), and the updated engine settings.
func WriteArtifacts(opts EmitOptions, grammar Grammar, dict Dictionary, deps []Dependency, settings EngineSettings) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeJSON(filepath.Join(opts.OutputDir, grammarFileName), grammar); err != nil {
		return err
	}

	dictBytes, err := dict.Marshal()
	if err != nil {
		return fmt.Errorf("marshal dictionary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutputDir, dictionaryFileName), dictBytes, 0o644); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}

	var resolvedRecords []dependencyRecord
	var unresolved []unresolvedConsumer
	for _, d := range deps {
		rec := unresolvedConsumer{
			Endpoint: d.Consumer.ResourceId.RequestId.Endpoint,
			Method:   d.Consumer.ResourceId.RequestId.Method,
			Kind:     d.Consumer.ParameterKind,
			Path:     d.Consumer.ResourceId.AccessPath().String(),
			Name:     d.Consumer.ResourceId.Name(),
		}
		if d.Unresolved() {
			unresolved = append(unresolved, rec)
			continue
		}
		resolvedRecords = append(resolvedRecords, dependencyRecord{Consumer: rec, Producer: d.Producer})
	}

	if err := writeJSON(filepath.Join(opts.OutputDir, dependenciesFileName), groupDependencies(resolvedRecords)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(opts.OutputDir, unresolvedDependenciesFileName), unresolved); err != nil {
		return err
	}

	if err := writeDebugDump(opts, resolvedRecords, unresolved); err != nil {
		return err
	}

	settingsBytes, err := settings.Marshal()
	if err != nil {
		return fmt.Errorf("marshal engine settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutputDir, engineSettingsFileName), settingsBytes, 0o644); err != nil {
		return fmt.Errorf("write engine settings: %w", err)
	}

	return nil
}

// groupDependencies reshapes a flat list of resolved dependency records
// into endpoint -> method -> parameterKind -> entries, the on-disk shape
// dependencies.json carries.
func groupDependencies(records []dependencyRecord) map[string]map[string]map[string][]groupedDependencyEntry {
	out := map[string]map[string]map[string][]groupedDependencyEntry{}
	for _, rec := range records {
		byMethod, ok := out[rec.Consumer.Endpoint]
		if !ok {
			byMethod = map[string]map[string][]groupedDependencyEntry{}
			out[rec.Consumer.Endpoint] = byMethod
		}
		byKind, ok := byMethod[string(rec.Consumer.Method)]
		if !ok {
			byKind = map[string][]groupedDependencyEntry{}
			byMethod[string(rec.Consumer.Method)] = byKind
		}
		kind := string(rec.Consumer.Kind)
		byKind[kind] = append(byKind[kind], groupedDependencyEntry{
			Path:     rec.Consumer.Path,
			Name:     rec.Consumer.Name,
			Producer: rec.Producer,
		})
	}
	return out
}

type debugDump struct {
	Resolved   []dependencyRecord   `json:"resolved"`
	Unresolved []unresolvedConsumer `json:"unresolved"`
}

// writeDebugDump writes dependencies_debug.json, optionally gzip-
// compressed with klauspost/compress at BestCompression. Unlike
// dependencies.json, the debug dump keeps the flat per-consumer record
// list: it exists to be diffed and grepped, not machine-consumed.
func writeDebugDump(opts EmitOptions, resolved []dependencyRecord, unresolved []unresolvedConsumer) error {
	dump := debugDump{Resolved: resolved, Unresolved: unresolved}
	body, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal debug dump: %w", err)
	}

	path := filepath.Join(opts.OutputDir, dependenciesDebugFileName)
	if !opts.GzipDebugDumps {
		return os.WriteFile(path, body, 0o644)
	}

	var buf bytes.Buffer
	gw, err := kpgzip.NewWriterLevel(&buf, kpgzip.BestCompression)
	if err != nil {
		return fmt.Errorf("init gzip writer: %w", err)
	}
	if _, err := gw.Write(body); err != nil {
		return fmt.Errorf("gzip debug dump: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return os.WriteFile(path+".gz", buf.Bytes(), 0o644)
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// WriteExampleArtifacts serializes the resolved example set back out to
// examples.json in the paths/method/exampleName shape, with method keys
// lowercased. An example whose file was resolved via ResolveFile is
// written inline; an unresolved FilePath reference is written as its path
// string. A nil or empty set writes nothing.
func WriteExampleArtifacts(opts EmitOptions, examples *ExampleSet) error {
	if examples == nil {
		return nil
	}
	out := rawExampleConfig{Paths: map[string]map[string]map[string]json.RawMessage{}, ExactCopy: examples.ExactCopy}
	wrote := false
	for key, exs := range examples.byRequest {
		endpoint, method, ok := splitRequestKey(key)
		if !ok {
			continue
		}
		byMethod, ok := out.Paths[endpoint]
		if !ok {
			byMethod = map[string]map[string]json.RawMessage{}
			out.Paths[endpoint] = byMethod
		}
		names := map[string]json.RawMessage{}
		for _, ex := range exs {
			var raw json.RawMessage
			var err error
			if ex.Inline != nil {
				raw, err = json.Marshal(ex.Inline)
			} else {
				raw, err = json.Marshal(ex.FilePath)
			}
			if err != nil {
				return fmt.Errorf("marshal example %s: %w", ex.Name, err)
			}
			names[ex.Name] = raw
			wrote = true
		}
		byMethod[strings.ToLower(method)] = names
	}
	if !wrote {
		return nil
	}
	return writeJSON(filepath.Join(opts.OutputDir, examplesFileName), out)
}

// splitRequestKey decodes a RequestId.Key() value of the "METHOD endpoint"
// form that ParseExamples always produces (it never sets XMsPath, so the
// third, space-separated xMsPath segment Key() can append never appears
// here).
func splitRequestKey(key string) (endpoint, method string, ok bool) {
	idx := strings.Index(key, " ")
	if idx < 0 {
		return "", "", false
	}
	return key[idx+1:], key[:idx], true
}

// WritePerResourceDictionary emits one per-spec dictionary file, named
// after specFilePath's base name, into opts.OutputDir.
func WritePerResourceDictionary(opts EmitOptions, specFilePath string, dict Dictionary) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(specFilePath), filepath.Ext(specFilePath))
	name := base + ".dict.json"
	dictBytes, err := dict.Marshal()
	if err != nil {
		return fmt.Errorf("marshal %s dictionary: %w", base, err)
	}
	return os.WriteFile(filepath.Join(opts.OutputDir, name), dictBytes, 0o644)
}
