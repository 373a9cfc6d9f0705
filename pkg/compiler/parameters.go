// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ParameterCollectorOptions configures CollectConsumers.
type ParameterCollectorOptions struct {
	Convention           NamingConvention
	JSONPropertyMaxDepth int
	DataFuzzing          bool
	ReadOnlyFuzz         bool

	// IncludeOptionalParameters, when false (the default), drops
	// declared path/query/header parameters not marked Required.
	IncludeOptionalParameters bool
}

// CollectConsumers walks one operation's parameters and request body and
// produces the full set of Consumer values a later dependency resolution
// pass must bind. The body tree it visits along the way is
// returned too, since the Dependency Resolver's same-body heuristic (step
// 9) needs every request's own body shape.
func CollectConsumers(id RequestId, op *openapi3.Operation, cache *SchemaCache, opts ParameterCollectorOptions) ([]Consumer, PayloadTree, error) {
	var consumers []Consumer

	for _, pref := range op.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		param := pref.Value
		kind, ok := parameterKindFor(param.In)
		if !ok {
			continue
		}
		if !param.Required && !opts.IncludeOptionalParameters {
			continue
		}

		var ref ResourceReference
		switch kind {
		case ParamPath:
			ref = PathResource(param.Name, pathToParameter(id.Endpoint, param.Name), nil)
		case ParamQuery:
			ref = QueryResource(param.Name)
		case ParamHeader:
			ref = HeaderResource(param.Name)
		}

		pt := PT(PrimitiveString)
		if param.Schema != nil && param.Schema.Value != nil {
			pt = primitiveTypeFor(param.Schema.Value.Type, param.Schema.Value.Format)
			if len(param.Schema.Value.Enum) > 0 {
				pt = enumPrimitiveType(param.Schema.Value)
			}
		}

		resource := ApiResource{
			RequestId:        id,
			Reference:        ref,
			PrimitiveType:    pt,
			NamingConvention: opts.Convention,
		}
		consumers = append(consumers, Consumer{ResourceId: resource, ParameterKind: kind})
	}

	var bodyTree PayloadTree
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if schemaRef := selectRequestBodySchema(op.RequestBody.Value.Content); schemaRef != nil {
			tree, err := VisitSchema("", schemaRef, nil, true, true, VisitorOptions{
				JSONPropertyMaxDepth: opts.JSONPropertyMaxDepth,
				DataFuzzing:          opts.DataFuzzing,
				ReadOnlyFuzz:         opts.ReadOnlyFuzz,
			}, cache)
			if err != nil {
				return nil, PayloadTree{}, err
			}
			bodyTree = tree

			tree.Walk(func(path AccessPath, node PayloadTree) {
				if !node.IsLeaf() || node.Name == "" {
					return
				}
				if node.IsReadOnly && !opts.ReadOnlyFuzz {
					return
				}
				resource := ApiResource{
					RequestId:                id,
					Reference:                BodyResource(node.Name, path),
					PrimitiveType:            node.Payload.PrimitiveType,
					NamingConvention:         opts.Convention,
					DerivedContainerName:     derivedContainerName(id.Endpoint, path),
					DerivedBodyContainerName: derivedBodyContainerName(id.Endpoint),
				}
				resource.CandidateTypeNames = CandidateTypeNames(resource.DerivedContainerName, opts.Convention)
				consumers = append(consumers, Consumer{ResourceId: resource, ParameterKind: ParamBody})
			})
		}
	}

	return consumers, bodyTree, nil
}

// selectRequestBodySchema picks a single content-type's schema to collect
// consumers from, deterministically: application/json if present,
// otherwise the lexicographically first content type that declares a
// schema.
func selectRequestBodySchema(content openapi3.Content) *openapi3.SchemaRef {
	if mt, ok := content["application/json"]; ok && mt.Schema != nil {
		return mt.Schema
	}
	var names []string
	for name, mt := range content {
		if mt.Schema != nil {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return content[names[0]].Schema
}

func parameterKindFor(in string) (ParameterKind, bool) {
	switch in {
	case openapi3.ParameterInPath:
		return ParamPath, true
	case openapi3.ParameterInQuery:
		return ParamQuery, true
	case openapi3.ParameterInHeader:
		return ParamHeader, true
	default:
		return "", false
	}
}

// pathToParameter returns the access path (as a degenerate AccessPath of
// path-template segments) leading up to a {name} placeholder, used by
// PathResource for response-path stitching in the Grammar Assembler.
func pathToParameter(endpoint, name string) AccessPath {
	segs := strings.Split(strings.Trim(endpoint, "/"), "/")
	var out AccessPath
	for _, seg := range segs {
		if seg == "{"+name+"}" {
			break
		}
		out = append(out, seg)
	}
	return out
}

// derivedContainerName computes the consumer-side container name used by
// the nested-object heuristic: the name of the body
// property's immediate parent, or the endpoint's last path segment when
// the consumer sits at the body root.
func derivedContainerName(endpoint string, path AccessPath) string {
	parent, ok := path.Parent()
	if !ok {
		return lastPathSegment(endpoint)
	}
	for i := len(parent) - 1; i >= 0; i-- {
		if !isArraySeg(parent[i]) {
			return parent[i]
		}
	}
	return lastPathSegment(endpoint)
}

// derivedBodyContainerName computes the whole-request container name used
// by the same-body heuristic: the resource name implied by
// the request's own endpoint.
func derivedBodyContainerName(endpoint string) string {
	return lastPathSegment(endpoint)
}

func lastPathSegment(endpoint string) string {
	segs := strings.Split(strings.Trim(endpoint, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		seg := segs[i]
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		return seg
	}
	return ""
}

func enumPrimitiveType(schema *openapi3.Schema) PrimitiveType {
	underlying := primitiveTypeFor(schema.Type, schema.Format)
	var values []string
	for _, v := range schema.Enum {
		if formatted, ok := formatScalarExample(v); ok {
			values = append(values, formatted)
		}
	}
	var def *string
	if schema.Default != nil {
		if formatted, ok := formatScalarExample(schema.Default); ok {
			def = &formatted
		}
	}
	return PTEnum(underlying.Kind, values, def)
}
