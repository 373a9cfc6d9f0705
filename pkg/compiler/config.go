// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

// SwaggerSpecConfig pairs one input spec document with the dictionary and
// annotation file scoped to it, so a multi-spec compile can give each
// spec its own per-endpoint dictionary (consulted ahead of the global
// dictionary, per Resolver.perEndpointDict). AnnotationFilePath is
// carried here but nothing in the compiler or the CLI reads it, so no
// per-spec annotation file is loaded.
type SwaggerSpecConfig struct {
	SpecFilePath       string
	DictionaryFilePath string
	Dictionary         Dictionary
	AnnotationFilePath string
}

// Config bundles every compile-time option the CLI exposes as a single
// plain struct passed by value into Compile.
type Config struct {
	SpecFiles          []string
	AnnotationFiles    []string
	ExampleFiles       []string
	DictionaryFile     string
	EngineSettingsFile string

	// GrammarInputFilePath, when set, bypasses compilation entirely: the
	// named file is read as an already-assembled Grammar and fed
	// straight into artifact emission.
	GrammarInputFilePath string

	// SwaggerSpecConfig lists per-spec dictionary/annotation overrides,
	// keyed to a spec by SpecFilePath. An endpoint declared in more than
	// one entry here is only an ErrDuplicateEndpointAcrossSpecs failure
	// when the two entries' dictionaries actually differ.
	SwaggerSpecConfig []SwaggerSpecConfig

	OutputDir string

	Convention                         NamingConvention
	AllowGetProducers                  bool
	DataFuzzing                        bool
	ReadOnlyFuzz                       bool
	JSONPropertyMaxDepth               int
	GenerateFuzzablePayloadForExamples bool

	// IncludeOptionalParameters, when false (the default), drops
	// declared path/query/header parameters that are not marked
	// Required from consumer collection.
	IncludeOptionalParameters bool

	// ResolveQueryDependencies, ResolveHeaderDependencies, and
	// ResolveBodyDependencies gate the dependency resolver per parameter
	// category: a disabled category's consumers always resolve to an
	// unresolved (nil) producer, regardless of what the priority chain
	// would otherwise find.
	ResolveQueryDependencies  bool
	ResolveHeaderDependencies bool
	ResolveBodyDependencies   bool

	// TrackFuzzedParameterNames annotates fallback Fuzzable payloads
	// (those bound to no resolved producer, example, or dictionary
	// entry) with the originating parameter name.
	TrackFuzzedParameterNames bool

	// UseRefreshableToken selects Request.Token's default Refreshable
	// variant; when false, requests carry a Static empty token instead.
	UseRefreshableToken bool

	// UseExamplePayloads enables emitting user-selected example payloads
	// (from ExampleSet) as additional Examples-sourced parameter groups.
	// UseAllExamplePayloads additionally keeps every example rather than
	// only the first applicable one.
	UseExamplePayloads    bool
	UseAllExamplePayloads bool

	GzipDebugDumps bool
}

// DefaultConfig returns a Config with the conservative defaults: path
// consumers may not bind to GET producers unless explicitly allowed,
// read-only properties are excluded from fuzzing, no depth cap is
// applied, and every dependency category resolves normally.
func DefaultConfig() Config {
	return Config{
		Convention:                          CamelCase,
		AllowGetProducers:                   false,
		DataFuzzing:                         false,
		ReadOnlyFuzz:                        false,
		JSONPropertyMaxDepth:                0,
		GenerateFuzzablePayloadForExamples:  true,
		IncludeOptionalParameters:           false,
		ResolveQueryDependencies:            true,
		ResolveHeaderDependencies:           true,
		ResolveBodyDependencies:             true,
		TrackFuzzedParameterNames:           false,
		UseRefreshableToken:                 true,
		UseExamplePayloads:                  true,
		UseAllExamplePayloads:               false,
	}
}
