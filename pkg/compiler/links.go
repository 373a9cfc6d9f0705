// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ExtractLinkAnnotations derives the lowest-precedence Annotation tier
// (local > global > links) from a document's OpenAPI `links`
// objects: a response `links.<name>` entry naming another operation
// (by operationId or operationRef) whose parameter expressions reference
// this response's own body ("$response.body#/...") describes exactly the
// producer/consumer relationship an explicit annotation would. Expressions
// that instead reference the request are skipped, since they name no
// value this response produces.
func ExtractLinkAnnotations(doc *openapi3.T) []Annotation {
	if doc == nil {
		return nil
	}
	opByOperationID := map[string]RequestId{}
	opByEndpointMethod := map[string]RequestId{}
	for _, e := range collectOperations(doc) {
		if e.op.OperationID != "" {
			opByOperationID[e.op.OperationID] = e.id
		}
		opByEndpointMethod[endpointKey(e.id.Method, e.id.Endpoint)] = e.id
	}

	var out []Annotation
	for _, e := range collectOperations(doc) {
		if e.op.Responses == nil {
			continue
		}
		var codes []string
		for code := range e.op.Responses {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			respRef := e.op.Responses[code]
			if respRef == nil || respRef.Value == nil || len(respRef.Value.Links) == 0 {
				continue
			}
			var linkNames []string
			for name := range respRef.Value.Links {
				linkNames = append(linkNames, name)
			}
			sort.Strings(linkNames)

			for _, name := range linkNames {
				linkRef := respRef.Value.Links[name]
				if linkRef == nil || linkRef.Value == nil {
					continue
				}
				consumerId, ok := resolveLinkTarget(linkRef.Value, opByOperationID, opByEndpointMethod)
				if !ok {
					continue
				}
				out = append(out, linkParameterAnnotations(e.id, consumerId, linkRef.Value)...)
			}
		}
	}
	return out
}

func resolveLinkTarget(link *openapi3.Link, byOperationID, byEndpointMethod map[string]RequestId) (RequestId, bool) {
	if link.OperationID != "" {
		id, ok := byOperationID[link.OperationID]
		return id, ok
	}
	if link.OperationRef != "" {
		// operationRef commonly takes the JSON-pointer form
		// "#/paths/~1accounts~1{id}/get"; decode the path segment and the
		// trailing method.
		ref := strings.TrimPrefix(link.OperationRef, "#/paths/")
		idx := strings.LastIndex(ref, "/")
		if idx < 0 {
			return RequestId{}, false
		}
		endpoint := strings.ReplaceAll(ref[:idx], "~1", "/")
		method := Method(strings.ToUpper(ref[idx+1:]))
		id, ok := byEndpointMethod[endpointKey(method, endpoint)]
		return id, ok
	}
	return RequestId{}, false
}

func linkParameterAnnotations(producerId, consumerId RequestId, link *openapi3.Link) []Annotation {
	var names []string
	for name := range link.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Annotation
	for _, name := range names {
		resourceName, ok := responseBodyPointerTarget(link.Parameters[name])
		if !ok {
			continue
		}
		out = append(out, Annotation{
			ProducerEndpoint:     producerId.Endpoint,
			ProducerMethod:       producerId.Method,
			ProducerResourceName: resourceName,
			ConsumerParam:        stripParamLocationPrefix(name),
			ConsumerEndpoint:     consumerId.Endpoint,
			ConsumerMethod:       consumerId.Method,
			Source:               AnnotationLinks,
		})
	}
	return out
}

// responseBodyPointerTarget extracts the final JSON-pointer segment from a
// link parameter expression of the form "$response.body#/a/b/c", the only
// expression shape this response can itself satisfy.
func responseBodyPointerTarget(expr interface{}) (string, bool) {
	s, ok := expr.(string)
	if !ok {
		return "", false
	}
	const prefix = "$response.body#/"
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(s, prefix)
	segs := strings.Split(rest, "/")
	if len(segs) == 0 || segs[len(segs)-1] == "" {
		return "", false
	}
	return segs[len(segs)-1], true
}

// stripParamLocationPrefix drops a link parameter name's "path."/"query."/
// "header."/"cookie." location prefix, leaving the bare parameter name
// Annotation.ConsumerParam expects.
func stripParamLocationPrefix(name string) string {
	for _, prefix := range []string{"path.", "query.", "header.", "cookie."} {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}
