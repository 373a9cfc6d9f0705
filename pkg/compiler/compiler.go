// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

// Compile's top-level entry point loads one or more OpenAPI documents,
// walks every operation, and produces a compiled Grammar plus its
// supporting artifacts.
package compiler

import (
	"log"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"
)

// Logger is the minimal logging surface Compile needs; *log.Logger
// satisfies it directly.
type Logger interface {
	Printf(format string, args ...interface{})
}

// LoadSpec reads one spec file, auto-detecting Swagger 2.0 vs OpenAPI 3
// with a raw scan for the discriminating top-level key, converting
// Swagger documents up to v3 with openapi2conv, and resolving every $ref
// via openapi3.Loader so later passes see a fully dereferenced document.
func LoadSpec(filename string) (*openapi3.T, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, newCompileError(ErrInvalidSpecFile, "read %s: %w", filename, err)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	if looksLikeSwagger(data) {
		var swagger openapi2.T
		if err := json.Unmarshal(data, &swagger); err != nil {
			return nil, newCompileError(ErrInvalidSpecFile, "decode swagger %s: %w", filename, err)
		}
		doc, err := openapi2conv.ToV3(&swagger)
		if err != nil {
			return nil, newCompileError(ErrInvalidSpecFile, "convert %s to OpenAPI 3: %w", filename, err)
		}
		if err := loader.ResolveRefsIn(doc, nil); err != nil {
			return nil, newCompileError(ErrInvalidSpecFile, "resolve refs in %s: %w", filename, err)
		}
		return doc, nil
	}

	doc, err := loader.LoadFromFile(filename)
	if err != nil {
		return nil, newCompileError(ErrInvalidSpecFile, "load %s: %w", filename, err)
	}
	return doc, nil
}

func looksLikeSwagger(data []byte) bool {
	head := string(data)
	if len(head) > 4096 {
		head = head[:4096]
	}
	return strings.Contains(head, `"swagger"`) && !strings.Contains(head, `"openapi"`)
}

// operationEntry is one (endpoint, method, operation) triple discovered
// while walking a loaded document's Paths.
type operationEntry struct {
	id RequestId
	op *openapi3.Operation
}

// perRequest holds one operation's collected consumers and body shape,
// filled in during the parameter-collection phase and consumed by
// dependency resolution and grammar assembly.
type perRequest struct {
	id          RequestId
	method      Method
	consumers   []Consumer
	bodyTree    PayloadTree
	hasBody     bool
	basePath    string
	operationId string
	tags        []string
	longRunning bool
}

// longRunningOperationExtension is the Azure OpenAPI extension marking a
// request's replies as needing to be polled rather than treated as
// terminal; it is surfaced on RequestMetadata alongside the x-ms-paths
// handling both conventions share.
const longRunningOperationExtension = "x-ms-long-running-operation"

func isLongRunningOperation(op *openapi3.Operation) bool {
	if op.Extensions == nil {
		return false
	}
	v, ok := op.Extensions[longRunningOperationExtension]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// documentBasePath returns the document's first declared server URL, used
// as the request's BasePath/Host source; "" when the document declares
// none.
func documentBasePath(doc *openapi3.T) string {
	if len(doc.Servers) == 0 {
		return ""
	}
	return doc.Servers[0].URL
}

// perSpecDictionaries indexes a Config's SwaggerSpecConfig entries by
// SpecFilePath for documentBasePath-style per-document lookup.
func perSpecDictionaries(specs []SwaggerSpecConfig) map[string]*Dictionary {
	out := map[string]*Dictionary{}
	for i := range specs {
		d := specs[i].Dictionary
		out[specs[i].SpecFilePath] = &d
	}
	return out
}

// dictionariesEqual reports whether two per-spec dictionaries are the
// same for the purposes of the duplicate-endpoint-across-specs check: two
// unconfigured (nil) dictionaries are never considered equal, preserving
// the always-fatal default when no SwaggerSpecConfig entries are set.
func dictionariesEqual(a, b *Dictionary) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(*a, *b)
}

func collectOperations(doc *openapi3.T) []operationEntry {
	var entries []operationEntry
	var endpoints []string
	for ep := range doc.Paths {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	for _, ep := range endpoints {
		item := doc.Paths[ep]
		xMsPath := ""
		if item.Extensions != nil {
			if v, ok := item.Extensions["x-ms-original-path"]; ok {
				if s, ok := v.(string); ok {
					xMsPath = s
				}
			}
		}
		for _, m := range []struct {
			method Method
			op     *openapi3.Operation
		}{
			{MethodGet, item.Get},
			{MethodPut, item.Put},
			{MethodPost, item.Post},
			{MethodDelete, item.Delete},
			{MethodPatch, item.Patch},
			{MethodHead, item.Head},
			{MethodOptions, item.Options},
			{MethodTrace, item.Trace},
		} {
			if m.op == nil {
				continue
			}
			entries = append(entries, operationEntry{id: RequestId{Endpoint: ep, Method: m.method, XMsPath: xMsPath}, op: m.op})
		}
	}
	return entries
}

// CompileInputs bundles every parsed input Compile needs.
type CompileInputs struct {
	Documents []*openapi3.T
	// SpecFilePaths, when non-nil, names the source file each entry of
	// Documents was loaded from (same index), used to scope
	// Config.SwaggerSpecConfig's per-spec dictionaries to the endpoints
	// that document declares.
	SpecFilePaths  []string
	Annotations    []Annotation
	Examples       *ExampleSet
	Dictionary     Dictionary
	EngineSettings EngineSettings
	Config         Config
	Logger         Logger
}

// CompileResult is everything Compile produced, ready for WriteArtifacts.
type CompileResult struct {
	Grammar        Grammar
	Dictionary     Dictionary
	Dependencies   []Dependency
	EngineSettings EngineSettings
}

// Compile runs the full pipeline: collect every
// operation across all loaded documents, fan out the Schema Visitor /
// Parameter Collector / Producer Collector phases concurrently (bounded
// by a WaitGroup per phase, guarded indices under a mutex, no work
// started across phase boundaries), resolve every consumer's dependency,
// post-process the result, and assemble the final Grammar.
func Compile(in CompileInputs) (CompileResult, error) {
	logger := in.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "restlercompile: ", 0)
	}

	perSpecDict := perSpecDictionaries(in.Config.SwaggerSpecConfig)

	var entries []operationEntry
	entryBasePath := map[string]string{}
	perEndpointDict := map[string]*Dictionary{}
	seenEndpointDict := map[string]*Dictionary{}
	for i, doc := range in.Documents {
		basePath := documentBasePath(doc)
		var specFile string
		if i < len(in.SpecFilePaths) {
			specFile = in.SpecFilePaths[i]
		}
		docDict := perSpecDict[specFile]

		for _, e := range collectOperations(doc) {
			key := e.id.Key()
			if existing, ok := seenEndpointDict[key]; ok {
				if !dictionariesEqual(existing, docDict) {
					return CompileResult{}, newCompileError(ErrDuplicateEndpointAcrossSpecs, "%s declared in more than one input spec", e.id)
				}
				continue
			}
			seenEndpointDict[key] = docDict
			entryBasePath[key] = basePath
			if docDict != nil {
				perEndpointDict[e.id.Endpoint] = docDict
			}
			entries = append(entries, e)
		}
	}

	cache := NewSchemaCache()
	producerIdx := NewProducerIndex()

	results := make([]perRequest, len(entries))

	// Phase 1: producer collection, run concurrently; ProducerIndex
	// serializes inserts under its own mutex.
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e operationEntry) {
			defer wg.Done()
			if err := CollectResponseProducers(e.id, e.op, cache, in.Config.Convention, producerIdx); err != nil {
				logger.Printf("producer collection for %s: %v", e.id, err)
			}
		}(i, e)
	}
	wg.Wait()

	// Phase 2: parameter collection, also concurrent; each goroutine only
	// writes to its own results[i] slot.
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e operationEntry) {
			defer wg.Done()
			consumers, bodyTree, err := CollectConsumers(e.id, e.op, cache, ParameterCollectorOptions{
				Convention:                in.Config.Convention,
				JSONPropertyMaxDepth:      in.Config.JSONPropertyMaxDepth,
				DataFuzzing:               in.Config.DataFuzzing,
				ReadOnlyFuzz:              in.Config.ReadOnlyFuzz,
				IncludeOptionalParameters: in.Config.IncludeOptionalParameters,
			})
			if err != nil {
				logger.Printf("parameter collection for %s: %v", e.id, err)
				consumers = nil
			}
			results[i] = perRequest{
				id:          e.id,
				method:      e.id.Method,
				consumers:   consumers,
				bodyTree:    bodyTree,
				hasBody:     e.op.RequestBody != nil,
				basePath:    entryBasePath[e.id.Key()],
				operationId: e.op.OperationID,
				tags:        e.op.Tags,
				longRunning: isLongRunningOperation(e.op),
			}
		}(i, e)
	}
	wg.Wait()

	knownRequests := map[string]RequestId{}
	for _, r := range results {
		knownRequests[endpointKey(r.method, r.id.Endpoint)] = r.id
	}
	bodyTrees := map[string]PayloadTree{}
	for _, r := range results {
		if r.hasBody {
			bodyTrees[r.id.Key()] = r.bodyTree
		}
	}

	resolver := NewResolver(ResolverInputs{
		Producers:                 producerIdx,
		Annotations:               in.Annotations,
		GlobalDict:                &in.Dictionary,
		PerEndpointDict:           perEndpointDict,
		Convention:                in.Config.Convention,
		AllowGetProducers:         in.Config.AllowGetProducers,
		BodyTrees:                 bodyTrees,
		KnownRequests:             knownRequests,
		WriterConsumers:           writerConsumersFromAnnotations(in.Annotations, results),
		DisableQueryDependencies:  !in.Config.ResolveQueryDependencies,
		DisableHeaderDependencies: !in.Config.ResolveHeaderDependencies,
		DisableBodyDependencies:   !in.Config.ResolveBodyDependencies,
	})

	depIdx := NewDependencyIndex()
	for _, r := range results {
		for _, c := range r.consumers {
			producer, _ := resolver.Resolve(c)
			if err := depIdx.Set(Dependency{Consumer: c, Producer: producer}); err != nil {
				return CompileResult{}, err
			}
		}
	}

	deps := depIdx.List()
	var unresolvedCount int
	post := PostProcess(deps, func(c Consumer) {
		unresolvedCount++
		logger.Printf("unresolved consumer: %s %s", c.ResourceId.RequestId, c.ResourceId.Name())
	})

	resolvedGlobalDict := resolver.Dictionary()

	var requests []Request
	for _, r := range results {
		var examples []NamedExample
		if in.Config.UseExamplePayloads {
			if exs, ok := in.Examples.Lookup(r.id); ok {
				examples = exs
			}
		}
		opts := AssembleOptions{
			GlobalDictionary:          resolvedGlobalDict,
			PerEndpointDictionary:     perEndpointDict[r.id.Endpoint],
			BasePath:                  r.basePath,
			UseRefreshableToken:       in.Config.UseRefreshableToken,
			TrackFuzzedParameterNames: in.Config.TrackFuzzedParameterNames,
			Orderings:                 post.Orderings,
			Examples:                  examples,
			DataFuzzing:               in.Config.DataFuzzing,
			UseAllExamplePayloads:     in.Config.UseAllExamplePayloads,
			OperationId:               r.operationId,
			Tags:                      r.tags,
			LongRunningOperation:      r.longRunning,
		}
		requests = append(requests, AssembleRequest(r.id, r.method, r.consumers, r.bodyTree, r.hasBody, post.Payloads, post.Writers, opts))
	}
	grammar := AssembleGrammar(requests, post.Orderings)

	var writerNames []string
	for _, w := range post.Writers {
		writerNames = append(writerNames, w.VariableName)
	}
	settings := in.EngineSettings.WithDynamicObjects(writerNames)

	return CompileResult{
		Grammar:        grammar,
		Dictionary:     resolver.Dictionary(),
		Dependencies:   deps,
		EngineSettings: settings,
	}, nil
}

// writerConsumersFromAnnotations identifies consumers that are themselves
// the producer side of an annotation binding: for every annotation, each
// consumer of the request named by producer_endpoint/producer_method whose
// name equals producer_resource_name becomes a writer instead of a reader.
// Response producers are not consulted, so this also happens when that
// request returns the named value in its response.
func writerConsumersFromAnnotations(annotations []Annotation, results []perRequest) map[string]Annotation {
	out := map[string]Annotation{}
	byRequest := map[string][]Consumer{}
	for _, r := range results {
		byRequest[r.id.Key()] = r.consumers
	}

	for _, a := range annotations {
		producerId := RequestId{Endpoint: a.ProducerEndpoint, Method: a.ProducerMethod}
		for _, c := range byRequest[producerId.Key()] {
			if c.ResourceId.Name() == a.ProducerResourceName {
				out[c.Key()] = a
			}
		}
	}
	return out
}
