// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"sort"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// ProducerKind discriminates the Producer tagged union.
type ProducerKind string

const (
	ProducerResponseObject            ProducerKind = "ResponseObject"
	ProducerInputParameter            ProducerKind = "InputParameter"
	ProducerDictionaryPayload         ProducerKind = "DictionaryPayload"
	ProducerSameBodyPayload           ProducerKind = "SameBodyPayload"
	ProducerOrderingConstraintParam   ProducerKind = "OrderingConstraintParameter"
)

// Producer is the tagged variant:
//
//	ResponseObject{apiResource}
//	InputParameter{apiResource, dictionaryPayload?, isWriter}
//	DictionaryPayload{customPayloadType, primitiveType, name, isObject}
//	SameBodyPayload{apiResource}
//	OrderingConstraintParameter{requestId}
//
// OrderingConstraintParameter is carried in the data model for
// completeness but is never realized as a payload element: PostProcess
// gives a Dependency carrying it a plain Fuzzable payload and derives no
// ordering constraint from it.
type Producer struct {
	Kind ProducerKind `json:"kind"`

	// ResponseObject, InputParameter, SameBodyPayload.
	Resource ApiResource `json:"resource,omitempty"`

	// InputParameter only.
	DictionaryPayload *Producer `json:"dictionaryPayload,omitempty"`
	IsWriter          bool      `json:"isWriter,omitempty"`

	// DictionaryPayload only.
	CustomPayloadType CustomPayloadType `json:"customPayloadType,omitempty"`
	PrimitiveType     PrimitiveType     `json:"primitiveType,omitempty"`
	Name              string            `json:"name,omitempty"`
	IsObject          bool              `json:"isObject,omitempty"`

	// OrderingConstraintParameter only.
	RequestId RequestId `json:"requestId,omitempty"`
}

func NewResponseObject(r ApiResource) Producer { return Producer{Kind: ProducerResponseObject, Resource: r} }

func NewInputParameter(r ApiResource, dict *Producer, isWriter bool) Producer {
	return Producer{Kind: ProducerInputParameter, Resource: r, DictionaryPayload: dict, IsWriter: isWriter}
}

func NewDictionaryPayload(typ CustomPayloadType, pt PrimitiveType, name string, isObject bool) Producer {
	return Producer{Kind: ProducerDictionaryPayload, CustomPayloadType: typ, PrimitiveType: pt, Name: name, IsObject: isObject}
}

func NewSameBodyPayload(r ApiResource) Producer { return Producer{Kind: ProducerSameBodyPayload, Resource: r} }

func NewOrderingConstraintParameter(id RequestId) Producer {
	return Producer{Kind: ProducerOrderingConstraintParam, RequestId: id}
}

// ResponseProducer is a candidate value source discovered by walking a
// request's response schema(s) and headers: a name, an access
// path, and a primitive type, scoped to the request that produces it.
type ResponseProducer struct {
	RequestId     RequestId
	Name          string
	AccessPath    AccessPath
	PrimitiveType PrimitiveType
	IsHeader      bool
	IsArray       bool // registered from an array-element producer, path has no trailing "[n]"

	insertionIndex int
}

func (rp ResponseProducer) sortKey() (methodPrio int, endsInBrace int, pathLen int, idx int) {
	methodPrio = methodPriority[rp.RequestId.Method]
	if len(rp.RequestId.Endpoint) > 0 && rp.RequestId.Endpoint[len(rp.RequestId.Endpoint)-1] == '}' {
		endsInBrace = 0
	} else {
		endsInBrace = 1
	}
	return methodPrio, endsInBrace, len(rp.AccessPath), rp.insertionIndex
}

// ProducerIndex is the single shared mutable structure built during the
// producer-collection phase. All inserts are serialized under
// a mutex; reads after the build phase (during dependency resolution) do
// not need further locking since the structure becomes read-only.
type ProducerIndex struct {
	mu sync.Mutex

	byRequest    map[string][]ResponseProducer // key: RequestId.Key()
	byEndpoint   map[string][]ResponseProducer // key: endpoint+method (no xMsPath)
	byTypeName   map[string][]ResponseProducer // key: lowercased candidate type name
	sameBody     map[string][]ResponseProducer // key: RequestId.Key(), name "name" bodies

	sorted       []ResponseProducer // full set, sorted by quality key
	sortedNonNested []ResponseProducer // subset whose access path has length 1 (top-level)

	nextIndex int
	dirty     bool
}

func NewProducerIndex() *ProducerIndex {
	return &ProducerIndex{
		byRequest:  map[string][]ResponseProducer{},
		byEndpoint: map[string][]ResponseProducer{},
		byTypeName: map[string][]ResponseProducer{},
		sameBody:   map[string][]ResponseProducer{},
	}
}

func endpointMethodKey(id RequestId) string { return string(id.Method) + " " + id.Endpoint }

// Add registers a ResponseProducer. Only methods in
// {POST, PUT, PATCH, GET} may produce: DELETE never produces.
// Callers are expected to have already filtered by method, but Add
// guards against misuse here too.
func (idx *ProducerIndex) Add(rp ResponseProducer, convention NamingConvention) {
	switch rp.RequestId.Method {
	case MethodPost, MethodPut, MethodPatch, MethodGet:
	default:
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	rp.insertionIndex = idx.nextIndex
	idx.nextIndex++

	idx.byRequest[rp.RequestId.Key()] = append(idx.byRequest[rp.RequestId.Key()], rp)
	idx.byEndpoint[endpointMethodKey(rp.RequestId)] = append(idx.byEndpoint[endpointMethodKey(rp.RequestId)], rp)

	for _, tn := range CandidateTypeNames(rp.Name, convention) {
		idx.byTypeName[tn] = append(idx.byTypeName[tn], rp)
	}
	if rp.Name == "name" {
		idx.sameBody[rp.RequestId.Key()] = append(idx.sameBody[rp.RequestId.Key()], rp)
	}

	idx.dirty = true
}

// finalize rebuilds the sorted views once producer collection has
// completed; called once before dependency resolution begins.
func (idx *ProducerIndex) finalize() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return
	}

	var all []ResponseProducer
	for _, v := range idx.byRequest {
		all = append(all, v...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		ki := all[i].sortKeyTuple()
		kj := all[j].sortKeyTuple()
		return lessTuple(ki, kj)
	})
	idx.sorted = all

	var nonNested []ResponseProducer
	for _, rp := range all {
		if len(rp.AccessPath) <= 1 {
			nonNested = append(nonNested, rp)
		}
	}
	idx.sortedNonNested = nonNested

	idx.dirty = false
}

type sortTuple [4]int

func (rp ResponseProducer) sortKeyTuple() sortTuple {
	a, b, c, d := rp.sortKey()
	return sortTuple{a, b, c, d}
}

func lessTuple(a, b sortTuple) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (idx *ProducerIndex) ByRequest(id RequestId) []ResponseProducer {
	idx.finalize()
	return idx.byRequest[id.Key()]
}

func (idx *ProducerIndex) ByEndpointMethod(endpoint string, method Method) []ResponseProducer {
	idx.finalize()
	return idx.byEndpoint[string(method)+" "+endpoint]
}

func (idx *ProducerIndex) ByTypeName(name string) []ResponseProducer {
	idx.finalize()
	return idx.byTypeName[name]
}

func (idx *ProducerIndex) Sorted() []ResponseProducer {
	idx.finalize()
	return idx.sorted
}

func (idx *ProducerIndex) SortedNonNested() []ResponseProducer {
	idx.finalize()
	return idx.sortedNonNested
}

func (idx *ProducerIndex) SameBody(id RequestId) []ResponseProducer {
	idx.finalize()
	return idx.sameBody[id.Key()]
}

// successStatusCodes are the response codes eligible for producer
// extraction.
var successStatusCodes = []string{"200", "201", "202", "203", "204", "205", "206"}

// CollectResponseProducers walks op's eligible response (preferring one
// that declares both a body schema and headers) and registers every named
// leaf, array-container, and response header as a ResponseProducer.
func CollectResponseProducers(id RequestId, op *openapi3.Operation, cache *SchemaCache, convention NamingConvention, idx *ProducerIndex) error {
	if id.Method == MethodDelete || op == nil || op.Responses == nil {
		return nil
	}
	switch id.Method {
	case MethodGet, MethodPost, MethodPut, MethodPatch:
	default:
		return nil
	}

	resp := selectProducerResponse(op)
	if resp == nil || resp.Value == nil {
		return nil
	}

	var headerNames []string
	for name := range resp.Value.Headers {
		headerNames = append(headerNames, name)
	}
	sort.Strings(headerNames)
	for _, name := range headerNames {
		idx.Add(ResponseProducer{RequestId: id, Name: name, AccessPath: AccessPath{name}, PrimitiveType: PT(PrimitiveString), IsHeader: true}, convention)
	}

	if schemaRef := selectRequestBodySchema(resp.Value.Content); schemaRef != nil {
		tree, err := VisitSchema("", schemaRef, nil, false, false, VisitorOptions{}, cache)
		if err != nil {
			return nil // non-fatal: a response we cannot visit simply yields no producers.
		}
		tree.Walk(func(path AccessPath, node PayloadTree) {
			if node.IsLeaf() && node.Name != "" {
				idx.Add(ResponseProducer{RequestId: id, Name: node.Name, AccessPath: path, PrimitiveType: node.Payload.PrimitiveType}, convention)

				if isArraySeg(path.Last()) {
					if parent, ok := path.Parent(); ok {
						idx.Add(ResponseProducer{RequestId: id, Name: node.Name, AccessPath: parent, PrimitiveType: node.Payload.PrimitiveType, IsArray: true}, convention)
					}
				}
			}
		})
	}
	return nil
}

func isArraySeg(seg string) bool {
	return len(seg) >= 2 && seg[0] == '[' && seg[len(seg)-1] == ']'
}

func selectProducerResponse(op *openapi3.Operation) *openapi3.ResponseRef {
	var best *openapi3.ResponseRef
	bestScore := -1
	for _, code := range successStatusCodes {
		resp, ok := op.Responses[code]
		if !ok || resp == nil || resp.Value == nil {
			continue
		}
		score := 0
		hasBody := false
		for _, c := range resp.Value.Content {
			if c.Schema != nil {
				hasBody = true
				break
			}
		}
		if hasBody {
			score++
		}
		if len(resp.Value.Headers) > 0 {
			score++
		}
		if best == nil || score > bestScore {
			best, bestScore = resp, score
			if score == 2 {
				return best
			}
		}
	}
	return best
}
