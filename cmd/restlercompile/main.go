// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command restlercompile compiles an OpenAPI or Swagger document, together
// with optional annotations, examples, and a fuzzing dictionary, into a
// RESTler request-fuzzing Grammar.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/restler-fuzzer/compiler/pkg/compiler"
)

const (
	exitSuccess = iota
	exitError
	exitUsage
)

// stringSliceFlag accumulates one value per -spec/-annotations/-examples
// occurrence, letting the same flag be repeated on the command line.
type stringSliceFlag []string

func (f *stringSliceFlag) String() string { return strings.Join(*f, ",") }

func (f *stringSliceFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

var (
	flagSpecs          stringSliceFlag
	flagAnnotations    stringSliceFlag
	flagExamples       stringSliceFlag
	flagDictionary     string
	flagEngineSettings string
	flagOut            string
	flagGrammarInput   string

	flagConvention        string
	flagAllowGetProducers bool
	flagDataFuzzing       bool
	flagReadOnlyFuzz      bool
	flagMaxDepth          int
	flagGzipDebug         bool

	flagIncludeOptionalParameters bool
	flagNoResolveQueryDeps        bool
	flagNoResolveHeaderDeps       bool
	flagNoResolveBodyDeps         bool
	flagTrackFuzzedParamNames     bool
	flagNoRefreshableToken        bool
	flagNoExamplePayloads         bool
	flagUseAllExamplePayloads     bool
	flagNoLinkAnnotations         bool
)

func init() {
	flag.Var(&flagSpecs, "spec", "Path to an OpenAPI or Swagger document. May be repeated.")
	flag.Var(&flagAnnotations, "annotations", "Path to an annotations file. May be repeated.")
	flag.Var(&flagExamples, "examples", "Path to an examples file. May be repeated, applied in order given.")
	flag.StringVar(&flagDictionary, "dictionary", "", "Path to a fuzzing dictionary file.")
	flag.StringVar(&flagEngineSettings, "engine-settings", "", "Path to an existing engine_settings.json to extend.")
	flag.StringVar(&flagOut, "out", ".", "Write compiled artifacts to this directory.")
	flag.StringVar(&flagGrammarInput, "grammar-input", "", "Bypass compilation: read this file as an already-assembled Grammar and emit its artifacts directly.")

	flag.StringVar(&flagConvention, "naming", "camel", "Naming convention for inferred type names. one of (camel, pascal, hyphen, underscore)")
	flag.BoolVar(&flagAllowGetProducers, "allow-get-producers", false, "Allow GET responses to act as dependency producers.")
	flag.BoolVar(&flagDataFuzzing, "data-fuzzing", false, "Fuzz primitive values instead of only their types.")
	flag.BoolVar(&flagReadOnlyFuzz, "readonly-fuzz", false, "Include read-only properties as fuzzable request body payloads.")
	flag.IntVar(&flagMaxDepth, "max-depth", 0, "Maximum JSON property nesting depth to collect. 0 means unlimited.")
	flag.BoolVar(&flagGzipDebug, "gzip-debug", false, "Gzip-compress the dependencies debug dump.")

	flag.BoolVar(&flagIncludeOptionalParameters, "include-optional-parameters", false, "Collect declared parameters that are not marked required.")
	flag.BoolVar(&flagNoResolveQueryDeps, "no-resolve-query-dependencies", false, "Never bind query parameters to resolved producers.")
	flag.BoolVar(&flagNoResolveHeaderDeps, "no-resolve-header-dependencies", false, "Never bind header parameters to resolved producers.")
	flag.BoolVar(&flagNoResolveBodyDeps, "no-resolve-body-dependencies", false, "Never bind body properties to resolved producers.")
	flag.BoolVar(&flagTrackFuzzedParamNames, "track-fuzzed-parameter-names", false, "Annotate fallback fuzzable payloads with their source parameter name.")
	flag.BoolVar(&flagNoRefreshableToken, "no-refreshable-token", false, "Emit a static empty token instead of the default refreshable token.")
	flag.BoolVar(&flagNoExamplePayloads, "no-example-payloads", false, "Never emit user-selected example payloads.")
	flag.BoolVar(&flagUseAllExamplePayloads, "use-all-example-payloads", false, "Emit every applicable example payload instead of only the first.")
	flag.BoolVar(&flagNoLinkAnnotations, "no-link-annotations", false, "Skip deriving annotations from OpenAPI links objects.")
}

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("restlercompile: ")

	if flagGrammarInput == "" && len(flagSpecs) == 0 {
		fmt.Fprintln(os.Stderr, "restlercompile: at least one -spec is required (or -grammar-input to bypass compilation)")
		flag.Usage()
		os.Exit(exitUsage)
	}

	cfg := compiler.DefaultConfig()
	cfg.SpecFiles = flagSpecs
	cfg.AnnotationFiles = flagAnnotations
	cfg.ExampleFiles = flagExamples
	cfg.DictionaryFile = flagDictionary
	cfg.EngineSettingsFile = flagEngineSettings
	cfg.OutputDir = flagOut
	cfg.GrammarInputFilePath = flagGrammarInput
	cfg.AllowGetProducers = flagAllowGetProducers
	cfg.DataFuzzing = flagDataFuzzing
	cfg.ReadOnlyFuzz = flagReadOnlyFuzz
	cfg.JSONPropertyMaxDepth = flagMaxDepth
	cfg.GzipDebugDumps = flagGzipDebug

	cfg.IncludeOptionalParameters = flagIncludeOptionalParameters
	cfg.ResolveQueryDependencies = !flagNoResolveQueryDeps
	cfg.ResolveHeaderDependencies = !flagNoResolveHeaderDeps
	cfg.ResolveBodyDependencies = !flagNoResolveBodyDeps
	cfg.TrackFuzzedParameterNames = flagTrackFuzzedParamNames
	cfg.UseRefreshableToken = !flagNoRefreshableToken
	cfg.UseExamplePayloads = !flagNoExamplePayloads
	cfg.UseAllExamplePayloads = flagUseAllExamplePayloads

	switch flagConvention {
	case "camel":
		cfg.Convention = compiler.CamelCase
	case "pascal":
		cfg.Convention = compiler.PascalCase
	case "hyphen":
		cfg.Convention = compiler.HyphenSeparator
	case "underscore":
		cfg.Convention = compiler.UnderscoreSeparator
	default:
		fmt.Fprintf(os.Stderr, "restlercompile: unknown -naming %q\n", flagConvention)
		os.Exit(exitUsage)
	}

	if cfg.GrammarInputFilePath != "" {
		if err := runGrammarBypass(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitError)
		}
		return
	}

	in, err := loadInputs(cfg, !flagNoLinkAnnotations)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}

	result, err := compiler.Compile(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}

	opts := compiler.EmitOptions{OutputDir: cfg.OutputDir, GzipDebugDumps: cfg.GzipDebugDumps}
	if err := compiler.WriteArtifacts(opts, result.Grammar, result.Dictionary, result.Dependencies, result.EngineSettings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
	if err := compiler.WriteExampleArtifacts(opts, in.Examples); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
	if err := writePerResourceDictionaries(opts, cfg.SwaggerSpecConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}

// runGrammarBypass implements the -grammar-input escape hatch: the named
// file is decoded directly as a Grammar and re-emitted, skipping document
// loading and compilation entirely.
func runGrammarBypass(cfg compiler.Config) error {
	data, err := os.ReadFile(cfg.GrammarInputFilePath)
	if err != nil {
		return fmt.Errorf("read grammar input %s: %w", cfg.GrammarInputFilePath, err)
	}
	var grammar compiler.Grammar
	if err := json.Unmarshal(data, &grammar); err != nil {
		return fmt.Errorf("parse grammar input %s: %w", cfg.GrammarInputFilePath, err)
	}

	var dict compiler.Dictionary
	if cfg.DictionaryFile != "" {
		data, err := os.ReadFile(cfg.DictionaryFile)
		if err != nil {
			return fmt.Errorf("read dictionary %s: %w", cfg.DictionaryFile, err)
		}
		dict, err = compiler.ParseDictionary(data)
		if err != nil {
			return err
		}
	}

	settings, err := compiler.ParseEngineSettings(nil)
	if err != nil {
		return err
	}

	opts := compiler.EmitOptions{OutputDir: cfg.OutputDir, GzipDebugDumps: cfg.GzipDebugDumps}
	return compiler.WriteArtifacts(opts, grammar, dict, nil, settings)
}

// loadInputs reads every file named on the command line and assembles a
// compiler.CompileInputs, failing fast on the first unreadable or
// malformed file.
func loadInputs(cfg compiler.Config, deriveLinkAnnotations bool) (compiler.CompileInputs, error) {
	in := compiler.CompileInputs{
		Config: cfg,
		Logger: log.New(os.Stderr, "restlercompile: ", 0),
	}

	for _, f := range cfg.SpecFiles {
		doc, err := compiler.LoadSpec(f)
		if err != nil {
			return in, err
		}
		in.Documents = append(in.Documents, doc)
		in.SpecFilePaths = append(in.SpecFilePaths, f)

		if deriveLinkAnnotations {
			in.Annotations = append(in.Annotations, compiler.ExtractLinkAnnotations(doc)...)
		}
	}

	// File-based annotations are global (document- or user-file-level),
	// ranking above links but below an operation's own local annotations.
	for _, f := range cfg.AnnotationFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return in, fmt.Errorf("read annotations %s: %w", f, err)
		}
		anns, err := compiler.ParseAnnotations(data, compiler.AnnotationGlobal, func(reason string) {
			in.Logger.Printf("malformed annotation in %s: %s", f, reason)
		})
		if err != nil {
			return in, err
		}
		in.Annotations = append(in.Annotations, anns...)
	}

	examples := &compiler.ExampleSet{}
	for _, f := range cfg.ExampleFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return in, fmt.Errorf("read examples %s: %w", f, err)
		}
		if err := compiler.ParseExamples(data, examples); err != nil {
			return in, err
		}
	}
	for _, ref := range examples.FilePaths() {
		path := ref
		if !filepath.IsAbs(path) && len(cfg.ExampleFiles) > 0 {
			path = filepath.Join(filepath.Dir(cfg.ExampleFiles[0]), ref)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("read example file %s: %w", path, err)
		}
		if err := examples.ResolveFile(ref, data); err != nil {
			return in, err
		}
	}
	in.Examples = examples

	if cfg.DictionaryFile != "" {
		data, err := os.ReadFile(cfg.DictionaryFile)
		if err != nil {
			return in, fmt.Errorf("read dictionary %s: %w", cfg.DictionaryFile, err)
		}
		dict, err := compiler.ParseDictionary(data)
		if err != nil {
			return in, err
		}
		in.Dictionary = dict
	}

	for i, spec := range cfg.SwaggerSpecConfig {
		if spec.DictionaryFilePath == "" {
			continue
		}
		data, err := os.ReadFile(spec.DictionaryFilePath)
		if err != nil {
			return in, fmt.Errorf("read spec dictionary %s: %w", spec.DictionaryFilePath, err)
		}
		dict, err := compiler.ParseDictionary(data)
		if err != nil {
			return in, err
		}
		cfg.SwaggerSpecConfig[i].Dictionary = dict
	}
	in.Config = cfg

	if cfg.EngineSettingsFile != "" {
		data, err := os.ReadFile(cfg.EngineSettingsFile)
		if err != nil {
			return in, fmt.Errorf("read engine settings %s: %w", cfg.EngineSettingsFile, err)
		}
		settings, err := compiler.ParseEngineSettings(data)
		if err != nil {
			return in, err
		}
		in.EngineSettings = settings
	} else {
		settings, err := compiler.ParseEngineSettings(nil)
		if err != nil {
			return in, err
		}
		in.EngineSettings = settings
	}

	return in, nil
}

// writePerResourceDictionaries emits each configured per-spec dictionary
// under its own "<spec-basename>.dict.json" file in the output directory,
// alongside the shared dict.json.
func writePerResourceDictionaries(opts compiler.EmitOptions, specs []compiler.SwaggerSpecConfig) error {
	for _, spec := range specs {
		if spec.SpecFilePath == "" {
			continue
		}
		if err := compiler.WritePerResourceDictionary(opts, spec.SpecFilePath, spec.Dictionary); err != nil {
			return err
		}
	}
	return nil
}
