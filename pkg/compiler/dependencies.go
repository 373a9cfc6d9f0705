// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Dependency pairs a Consumer with the Producer chosen for it, or a nil
// Producer when no producer could be found.
type Dependency struct {
	Consumer Consumer
	Producer *Producer
}

func (d Dependency) Unresolved() bool { return d.Producer == nil }

// DependencyIndex accumulates Dependency values during resolution. Inserts
// are serialized under a mutex. Duplicate producers for the same consumer
// at different call sites are coalesced; conflicting producers are a fatal
// internal error (ErrInconsistentProducer).
type DependencyIndex struct {
	mu      sync.Mutex
	byKey   map[string]Dependency
	order   []string
}

func NewDependencyIndex() *DependencyIndex {
	return &DependencyIndex{byKey: map[string]Dependency{}}
}

// Set records dep, returning a fatal error if a different Producer was
// already recorded for the same consumer key.
func (idx *DependencyIndex) Set(dep Dependency) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := dep.Consumer.Key()
	if existing, ok := idx.byKey[key]; ok {
		if producersEqual(existing.Producer, dep.Producer) {
			return nil
		}
		if existing.Producer == nil {
			idx.byKey[key] = dep
			return nil
		}
		if dep.Producer == nil {
			return nil // keep the existing resolved producer over a later "none"
		}
		return newCompileError(ErrInconsistentProducer, "consumer %s: conflicting producers %+v vs %+v", key, existing.Producer, dep.Producer)
	}

	idx.byKey[key] = dep
	idx.order = append(idx.order, key)
	return nil
}

func producersEqual(a, b *Producer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(*a, *b)
}

func (idx *DependencyIndex) Get(c Consumer) (Dependency, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	d, ok := idx.byKey[c.Key()]
	return d, ok
}

// List returns every Dependency sorted by (consumerRequestId,
// consumerAccessPath) for deterministic output.
func (idx *DependencyIndex) List() []Dependency {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	out := make([]Dependency, 0, len(idx.byKey))
	for _, d := range idx.byKey {
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Consumer.ResourceId.RequestId, out[j].Consumer.ResourceId.RequestId
		if ri.Key() != rj.Key() {
			return ri.Key() < rj.Key()
		}
		return out[i].Consumer.ResourceId.AccessPath().String() < out[j].Consumer.ResourceId.AccessPath().String()
	})
	return out
}

// --- Resolver ---

// ResolverInputs bundles everything the Dependency Resolver needs beyond
// a single Consumer.
type ResolverInputs struct {
	Producers         *ProducerIndex
	Annotations       []Annotation
	GlobalDict        *Dictionary
	PerEndpointDict   map[string]*Dictionary // keyed by endpoint
	Convention        NamingConvention
	AllowGetProducers bool

	// DisableQueryDependencies, DisableHeaderDependencies, and
	// DisableBodyDependencies gate resolution per parameter category: a
	// true value forces every consumer of that kind to resolve
	// unconditionally to no producer, skipping the priority chain
	// entirely. Path consumers are never gated. Zero value (false)
	// resolves normally, so existing callers that don't set these fields
	// are unaffected.
	DisableQueryDependencies  bool
	DisableHeaderDependencies bool
	DisableBodyDependencies   bool

	// BodyTrees holds each request's own body PayloadTree, used by the
	// same-body heuristic (step 9) to find sibling "name" leaves within
	// the same request.
	BodyTrees map[string]PayloadTree // keyed by RequestId.Key()

	// KnownRequests supports the create-or-update PUT heuristic's search
	// for a PUT at a prefix endpoint (step 6).
	KnownRequests map[string]RequestId // keyed by endpoint+method ("METHOD endpoint")

	// WriterConsumers marks consumers that are themselves the producer
	// side of an input-only annotation (step 2): the set of consumer
	// keys that should become writers rather than plain fuzzables.
	WriterConsumers map[string]Annotation // consumer key -> owning annotation
}

func endpointKey(method Method, endpoint string) string { return string(method) + " " + endpoint }

// Resolver runs the nine-step priority chain for one Consumer at
// a time. Resolve is not safe for concurrent use: lookups read the
// accumulated dictionary without holding mu, which only guards its
// replacement. Dictionary growth from uuid-suffix injection replaces the
// Resolver's own copy and is read back with Dictionary().
type Resolver struct {
	in   ResolverInputs
	dict Dictionary // current accumulated dictionary, grows via uuid-suffix injection
	mu   sync.Mutex
}

func NewResolver(in ResolverInputs) *Resolver {
	dict := Dictionary{}
	if in.GlobalDict != nil {
		dict = in.GlobalDict.Clone()
	}
	return &Resolver{in: in, dict: dict}
}

// Dictionary returns the dictionary as extended so far.
func (r *Resolver) Dictionary() Dictionary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dict
}

func (r *Resolver) extendUuidSuffix(name, prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dict = r.dict.WithUuidSuffix(name, prefix)
}

// perEndpointDict looks up the dictionary scoped to consumer's endpoint,
// falling back to nil when none is configured.
func (r *Resolver) perEndpointDict(endpoint string) *Dictionary {
	if r.in.PerEndpointDict == nil {
		return nil
	}
	return r.in.PerEndpointDict[endpoint]
}

// Resolve runs the priority chain for c and returns the chosen producer
// (nil if none). step reports which numbered step fired (0 if none), used in
// tests to assert that higher-priority steps win when more than one
// would match.
func (r *Resolver) Resolve(c Consumer) (producer *Producer, step int) {
	switch c.ParameterKind {
	case ParamQuery:
		if r.in.DisableQueryDependencies {
			return nil, 0
		}
	case ParamHeader:
		if r.in.DisableHeaderDependencies {
			return nil, 0
		}
	case ParamBody:
		if r.in.DisableBodyDependencies {
			return nil, 0
		}
	}

	// Step 1: annotation match.
	if p, ok := r.resolveAnnotation(c); ok {
		return p, 1
	}

	// Step 2: input-only producer, annotation-induced writer binding.
	if p, ok := r.resolveInputOnlyWriter(c); ok {
		return p, 2
	}

	// Step 3: dictionary payload.
	if p, ok := r.resolveDictionaryPayload(c); ok {
		return p, 3
	}

	// Step 4: dictionary uuid-suffix.
	if p, ok := r.resolveDictionaryUuidSuffix(c); ok {
		return p, 4
	}

	if c.ParameterKind == ParamPath {
		// Step 5: inferred exact match.
		if p, ok := r.resolveExactMatch(c); ok {
			return p, 5
		}

		// Step 6: create-or-update PUT heuristic.
		if p, ok := r.resolveCreateOrUpdatePut(c); ok {
			return p, 6
		}
	}

	if c.ParameterKind == ParamBody {
		// Step 7: nested-object (body) heuristic.
		if p, ok := r.resolveNestedObject(c); ok {
			return p, 7
		}
	}

	// Step 8: inferred approximate match.
	if p, ok := r.resolveApproximateMatch(c); ok {
		return p, 8
	}

	if c.ParameterKind == ParamBody {
		// Step 9: same-body payload.
		if p, ok := r.resolveSameBody(c); ok {
			return p, 9
		}
	}

	return nil, 0
}

// --- Step 1: annotations ---

func (r *Resolver) resolveAnnotation(c Consumer) (*Producer, bool) {
	var best *Annotation
	for i := range r.in.Annotations {
		a := r.in.Annotations[i]
		if !a.Matches(c) {
			continue
		}
		if best == nil || annotationPrecedence(a) < annotationPrecedence(*best) {
			best = &a
		}
	}
	if best == nil {
		return nil, false
	}

	producerId := RequestId{Endpoint: best.ProducerEndpoint, Method: best.ProducerMethod}
	rps := r.in.Producers.ByEndpointMethod(best.ProducerEndpoint, best.ProducerMethod)
	for _, rp := range rps {
		if rp.Name == best.ProducerResourceName {
			resource := ApiResource{RequestId: producerId, Reference: BodyResource(rp.Name, rp.AccessPath), PrimitiveType: rp.PrimitiveType}
			p := NewResponseObject(resource)
			return &p, true
		}
	}

	// Named producer not found among response producers: treat it as an
	// input-only producer so the consumer becomes a reader of a writer
	// variable instead.
	resource := ApiResource{RequestId: producerId, Reference: BodyResource(best.ProducerResourceName, AccessPath{best.ProducerResourceName})}
	p := NewInputParameter(resource, nil, false)
	return &p, true
}

// --- Step 2: input-only writer ---

func (r *Resolver) resolveInputOnlyWriter(c Consumer) (*Producer, bool) {
	if _, ok := r.in.WriterConsumers[c.Key()]; !ok {
		return nil, false
	}

	var dictPayload *Producer
	if c.ResourceId.PrimitiveType.Kind == PrimitiveString {
		if _, exists := lookupUuidSuffix(c.ResourceId.Name(), r.perEndpointDict(c.ResourceId.RequestId.Endpoint), &r.dict); !exists {
			prefix := UuidSuffixPrefix(c.ResourceId.Name())
			r.extendUuidSuffix(c.ResourceId.Name(), prefix)
			dp := NewDictionaryPayload(CustomUuidSuffix, PT(PrimitiveString), c.ResourceId.Name(), false)
			dictPayload = &dp
		}
	}

	p := NewInputParameter(c.ResourceId, dictPayload, true)
	return &p, true
}

// --- Step 3/4: dictionary ---

func (r *Resolver) resolveDictionaryPayload(c Consumer) (*Producer, bool) {
	pointerKey := c.ResourceId.AccessPath().String()
	name := c.ResourceId.Name()
	perEndpoint := r.perEndpointDict(c.ResourceId.RequestId.Endpoint)
	if p, ok := lookupCustomPayload(c.ParameterKind, pointerKey, name, perEndpoint, &r.dict); ok {
		return &p, true
	}
	return nil, false
}

func (r *Resolver) resolveDictionaryUuidSuffix(c Consumer) (*Producer, bool) {
	name := c.ResourceId.Name()
	perEndpoint := r.perEndpointDict(c.ResourceId.RequestId.Endpoint)
	if prefix, ok := lookupUuidSuffix(name, perEndpoint, &r.dict); ok {
		p := NewDictionaryPayload(CustomUuidSuffix, PT(PrimitiveString), prefix, false)
		return &p, true
	}
	return nil, false
}

// --- Step 5: inferred exact match (path consumers only) ---

// isValidProducer filters step 5 candidates: producer must be
// PUT/POST (or GET if allowGetProducers), producer endpoint must not
// extend beyond consumer endpoint, and if endpoints are equal the method
// pair must satisfy the transition matrix (POST feeds anything; PUT feeds
// anything except POST; PATCH feeds anything except PUT/POST; GET feeds
// anything except PUT/POST/PATCH).
func isValidProducer(producerMethod, consumerMethod Method, producerEndpoint, consumerEndpoint string, allowGet bool) bool {
	switch producerMethod {
	case MethodPost:
	case MethodPut:
	case MethodGet:
		if !allowGet {
			return false
		}
	default:
		return false
	}

	if len(producerEndpoint) > len(consumerEndpoint) || !strings.HasPrefix(consumerEndpoint, producerEndpoint) {
		return false
	}

	if producerEndpoint == consumerEndpoint {
		return methodTransitionAllowed(producerMethod, consumerMethod)
	}
	return true
}

func methodTransitionAllowed(producer, consumer Method) bool {
	switch producer {
	case MethodPost:
		return true
	case MethodPut:
		return consumer != MethodPost
	case MethodPatch:
		return consumer != MethodPost && consumer != MethodPut
	case MethodGet:
		return consumer != MethodPost && consumer != MethodPut && consumer != MethodPatch
	default:
		return false
	}
}

// producerEndpointPrefix computes "substring of the consumer endpoint up
// to the parameter-bearing segment" for a path parameter
// named paramName.
func producerEndpointPrefix(endpoint, paramName string) string {
	marker := "{" + paramName + "}"
	idx := strings.Index(endpoint, marker)
	if idx < 0 {
		return endpoint
	}
	prefix := strings.TrimRight(endpoint[:idx], "/")
	return prefix
}

func (r *Resolver) resolveExactMatch(c Consumer) (*Producer, bool) {
	paramName := c.ResourceId.Name()
	consumerEndpoint := c.ResourceId.RequestId.Endpoint
	producerEndpoint := producerEndpointPrefix(consumerEndpoint, paramName)

	var candidates []ResponseProducer
	for _, method := range []Method{MethodPut, MethodPost, MethodGet} {
		candidates = append(candidates, r.in.Producers.ByEndpointMethod(producerEndpoint, method)...)
	}

	best := pickBestNamedProducer(candidates, paramName, func(rp ResponseProducer) bool {
		return isValidProducer(rp.RequestId.Method, c.ResourceId.RequestId.Method, rp.RequestId.Endpoint, consumerEndpoint, r.in.AllowGetProducers)
	})
	if best == nil {
		return nil, false
	}
	resource := ApiResource{RequestId: best.RequestId, Reference: BodyResource(best.Name, best.AccessPath), PrimitiveType: best.PrimitiveType}
	if best.IsHeader {
		resource.Reference = HeaderResource(best.Name)
	}
	p := NewResponseObject(resource)
	return &p, true
}

// pickBestNamedProducer selects the producer named name from candidates
// passing filter, breaking ties by access-path length then method
// preference then insertion order.
func pickBestNamedProducer(candidates []ResponseProducer, name string, filter func(ResponseProducer) bool) *ResponseProducer {
	var matches []ResponseProducer
	for _, rp := range candidates {
		if rp.Name == name && filter(rp) {
			matches = append(matches, rp)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if len(matches[i].AccessPath) != len(matches[j].AccessPath) {
			return len(matches[i].AccessPath) < len(matches[j].AccessPath)
		}
		if methodPriority[matches[i].RequestId.Method] != methodPriority[matches[j].RequestId.Method] {
			return methodPriority[matches[i].RequestId.Method] < methodPriority[matches[j].RequestId.Method]
		}
		return matches[i].insertionIndex < matches[j].insertionIndex
	})
	return &matches[0]
}

// --- Step 6: create-or-update PUT heuristic ---

func (r *Resolver) resolveCreateOrUpdatePut(c Consumer) (*Producer, bool) {
	if c.ResourceId.RequestId.Method != MethodPut {
		return nil, false
	}
	endpoint := c.ResourceId.RequestId.Endpoint
	paramName := c.ResourceId.Name()
	if !strings.HasSuffix(endpoint, "{"+paramName+"}") {
		// When the bracketed consumer name occurs earlier in the path,
		// seek a PUT producer at the prefix endpoint instead.
		prefix := producerEndpointPrefix(endpoint, paramName)
		if _, ok := r.in.KnownRequests[endpointKey(MethodPut, prefix)]; ok {
			rps := r.in.Producers.ByEndpointMethod(prefix, MethodPut)
			for _, name := range []string{paramName, "id", "name"} {
				if best := pickBestNamedProducer(rps, name, func(ResponseProducer) bool { return true }); best != nil {
					resource := ApiResource{RequestId: best.RequestId, Reference: BodyResource(best.Name, best.AccessPath), PrimitiveType: best.PrimitiveType}
					p := NewResponseObject(resource)
					return &p, true
				}
			}
		}
		return nil, false
	}

	prefix := UuidSuffixPrefix(paramName)
	r.extendUuidSuffix(paramName, prefix)
	p := NewDictionaryPayload(CustomUuidSuffix, PT(PrimitiveString), paramName, false)
	return &p, true
}

// --- Step 7: nested-object (body) heuristic ---

func (r *Resolver) resolveNestedObject(c Consumer) (*Producer, bool) {
	container := c.ResourceId.DerivedContainerName
	if container == "" {
		return nil, false
	}
	convention := c.ResourceId.NamingConvention
	if convention == "" {
		convention = r.in.Convention
	}
	candidates := CandidateTypeNames(container, convention)
	if len(candidates) == 0 {
		return nil, false
	}

	if best := matchUniqueEndpoint(r.in.Producers, candidates[0], c.ResourceId.Name()); best != nil {
		return asBodyProducer(*best), true
	}
	for _, cand := range candidates[1:] {
		if best := matchUniqueEndpoint(r.in.Producers, cand, c.ResourceId.Name()); best != nil {
			return asBodyProducer(*best), true
		}
	}
	return nil, false
}

// matchUniqueEndpoint returns the sole ResponseProducer named resourceName
// under candidate typeName, if its producing endpoint is unique among
// matches; nil if zero or more than one endpoint matches.
func matchUniqueEndpoint(idx *ProducerIndex, typeName, resourceName string) *ResponseProducer {
	rps := idx.ByTypeName(typeName)
	endpoints := map[string][]ResponseProducer{}
	for _, rp := range rps {
		if rp.Name != resourceName {
			continue
		}
		endpoints[rp.RequestId.Endpoint] = append(endpoints[rp.RequestId.Endpoint], rp)
	}
	if len(endpoints) != 1 {
		return nil
	}
	for _, v := range endpoints {
		sort.SliceStable(v, func(i, j int) bool { return lessTuple(v[i].sortKeyTuple(), v[j].sortKeyTuple()) })
		return &v[0]
	}
	return nil
}

func asBodyProducer(rp ResponseProducer) *Producer {
	resource := ApiResource{RequestId: rp.RequestId, Reference: BodyResource(rp.Name, rp.AccessPath), PrimitiveType: rp.PrimitiveType}
	if rp.IsHeader {
		resource.Reference = HeaderResource(rp.Name)
	}
	p := NewResponseObject(resource)
	return &p
}

// --- Step 8: inferred approximate match ---

func (r *Resolver) resolveApproximateMatch(c Consumer) (*Producer, bool) {
	container := c.ResourceId.DerivedContainerName
	if container == "" {
		return nil, false
	}
	resourceName := c.ResourceId.Name()
	consumerEndpoint := c.ResourceId.RequestId.Endpoint
	inferredProducerEndpoint := producerEndpointPrefix(consumerEndpoint, resourceName)

	for _, rp := range r.in.Producers.Sorted() {
		if rp.Name != resourceName {
			continue
		}
		if !strings.HasPrefix(inferredProducerEndpoint, rp.RequestId.Endpoint) || rp.RequestId.Endpoint == inferredProducerEndpoint {
			continue
		}
		between := strings.TrimPrefix(inferredProducerEndpoint, rp.RequestId.Endpoint)
		if strings.ContainsAny(between, "{}") {
			continue
		}
		return asBodyProducer(rp), true
	}
	return nil, false
}

// --- Step 9: same-body payload ---

func (r *Resolver) resolveSameBody(c Consumer) (*Producer, bool) {
	if c.ResourceId.Name() != "id" {
		return nil, false
	}
	tree, ok := r.in.BodyTrees[c.ResourceId.RequestId.Key()]
	if !ok {
		return nil, false
	}

	consumerPath := c.ResourceId.AccessPath()
	container := c.ResourceId.DerivedBodyContainerName
	if container == "" {
		return nil, false
	}
	convention := c.ResourceId.NamingConvention
	if convention == "" {
		convention = r.in.Convention
	}
	candidates := CandidateTypeNames(container, convention)

	var best *AccessPath
	bestLen := -1
	tree.Walk(func(path AccessPath, node PayloadTree) {
		if !node.IsLeaf() || node.Name != "name" {
			return
		}
		parent, ok := path.Parent()
		if !ok {
			return
		}
		containerName := parent.Last()
		if containerName == "" {
			return
		}
		if isAccessPathPrefix(path, consumerPath) {
			return // not self-referencing
		}
		for _, cand := range candidates {
			for _, tn := range CandidateTypeNames(containerName, convention) {
				if tn == cand && len(path) > bestLen {
					p := append(AccessPath{}, path...)
					best = &p
					bestLen = len(path)
				}
			}
		}
	})
	if best == nil {
		return nil, false
	}

	resource := ApiResource{RequestId: c.ResourceId.RequestId, Reference: BodyResource("name", *best), PrimitiveType: PT(PrimitiveString)}
	p := NewSameBodyPayload(resource)

	prefix := UuidSuffixPrefix(strings.Join([]string{containerFromPath(*best), "name"}, ""))
	entryName := strings.Join([]string{containerFromPath(*best), "name"}, "_")
	r.extendUuidSuffix(entryName, prefix)

	return &p, true
}

func containerFromPath(path AccessPath) string {
	parent, ok := path.Parent()
	if !ok {
		return ""
	}
	for i := len(parent) - 1; i >= 0; i-- {
		if !isArraySeg(parent[i]) {
			return parent[i]
		}
	}
	return ""
}

func isAccessPathPrefix(prefix, path AccessPath) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return false
		}
	}
	return true
}
