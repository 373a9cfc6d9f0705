// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// VisitorError enumerates the Schema Visitor's failure kinds.
type VisitorError struct {
	Kind ErrorKind
	Msg  string
}

func (e *VisitorError) Error() string { return e.Msg }

func newUnsupportedType(msg string) error {
	return &VisitorError{Kind: ErrUnsupportedType, Msg: msg}
}

// VisitorOptions configures a single schema-visit pass.
type VisitorOptions struct {
	GenerateFuzzablePayloadForExamples bool
	JSONPropertyMaxDepth               int // 0 means unlimited
	DataFuzzing                        bool
	ReadOnlyFuzz                       bool
}

// SchemaCache memoizes PayloadTree production by resolved *openapi3.Schema
// identity, so a schema referenced from multiple operations is only
// visited once.
type SchemaCache struct {
	mu    sync.Mutex
	trees map[*openapi3.Schema]PayloadTree
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{trees: make(map[*openapi3.Schema]PayloadTree)}
}

func (c *SchemaCache) get(s *openapi3.Schema) (PayloadTree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trees[s]
	return t, ok
}

func (c *SchemaCache) put(s *openapi3.Schema, t PayloadTree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees[s] = t
}

// visitState carries the recursion guard (ancestor schemas) and cache
// through a single VisitSchema call tree.
type visitState struct {
	opts     VisitorOptions
	cache    *SchemaCache
	onStack  map[*openapi3.Schema]bool
	depth    int
}

// VisitSchema converts an OpenAPI schema, plus an optional example value,
// into a PayloadTree. example is a decoded JSON value (produced by
// goccy/go-json, i.e. map[string]interface{}, []interface{}, or a scalar)
// or nil when no example applies.
func VisitSchema(name string, ref *openapi3.SchemaRef, example interface{}, required, cacheable bool, opts VisitorOptions, cache *SchemaCache) (PayloadTree, error) {
	st := &visitState{opts: opts, cache: cache, onStack: map[*openapi3.Schema]bool{}}
	return st.visit(name, ref, example, required)
}

func (st *visitState) visit(name string, ref *openapi3.SchemaRef, example interface{}, required bool) (PayloadTree, error) {
	if ref == nil || ref.Value == nil {
		return NewLeaf(name, Constant(PT(PrimitiveString), ""), required, false), nil
	}
	schema := ref.Value

	if st.opts.JSONPropertyMaxDepth > 0 && st.depth > st.opts.JSONPropertyMaxDepth {
		return PayloadTree{}, errDepthTruncated
	}

	// allOf: inline by merging child property sets before dispatch.
	if len(schema.AllOf) > 0 {
		schema = mergeAllOf(schema)
	}

	readOnly := isReadOnly(schema)

	// Recursion guard: if this schema is already on the ancestor stack,
	// emit an empty String leaf rather than recursing further.
	if st.onStack[schema] {
		if example != nil {
			return PayloadTree{}, &VisitorError{Kind: ErrUnsupportedRecursiveExample, Msg: fmt.Sprintf("%s: recursive schema with active example", name)}
		}
		return NewLeaf(name, Constant(PT(PrimitiveString), ""), required, readOnly), nil
	}

	if st.cache != nil && example == nil {
		if cached, ok := st.cache.get(schema); ok {
			t := cached
			t.Name = name
			t.IsRequired = required
			return t, nil
		}
	}

	st.onStack[schema] = true
	st.depth++
	defer func() {
		delete(st.onStack, schema)
		st.depth--
	}()

	var (
		tree PayloadTree
		err  error
	)
	switch {
	case schema.Enum != nil:
		tree, err = st.visitEnum(name, schema, example, required, readOnly)
	case isObjectType(schema):
		tree, err = st.visitObject(name, schema, example, required, readOnly)
	case schema.Type == "array":
		tree, err = st.visitArray(name, schema, example, required, readOnly)
	case isPrimitiveBaseType(schema.Type):
		tree, err = st.visitPrimitive(name, schema, example, required, readOnly)
	default:
		return PayloadTree{}, newUnsupportedType(fmt.Sprintf("%s: unsupported schema type %q", name, schema.Type))
	}
	if err != nil {
		return PayloadTree{}, err
	}

	if st.cache != nil && example == nil {
		st.cache.put(schema, tree)
	}
	return tree, nil
}

var errDepthTruncated = fmt.Errorf("json property max depth exceeded")

func isObjectType(schema *openapi3.Schema) bool {
	if schema.Type == "object" {
		return true
	}
	return schema.Type == "" && len(schema.Properties) > 0
}

func isPrimitiveBaseType(t string) bool {
	switch t {
	case "string", "number", "integer", "boolean":
		return true
	case "", "file":
		return true
	default:
		return false
	}
}

// mergeAllOf inlines allOf subschemas by appending their declared
// properties (in document order) to the base schema's own properties.
// A property already present on the base schema, or on an earlier allOf
// member, wins over later members.
func mergeAllOf(schema *openapi3.Schema) *openapi3.Schema {
	merged := *schema
	merged.Properties = make(openapi3.Schemas, len(schema.Properties))
	for k, v := range schema.Properties {
		merged.Properties[k] = v
	}
	merged.Required = append([]string{}, schema.Required...)
	if merged.Type == "" {
		merged.Type = "object"
	}

	for _, sub := range schema.AllOf {
		if sub.Value == nil {
			continue
		}
		s := sub.Value
		if len(s.AllOf) > 0 {
			s = mergeAllOf(s)
		}
		for name, prop := range s.Properties {
			if _, exists := merged.Properties[name]; !exists {
				merged.Properties[name] = prop
			}
		}
		merged.Required = append(merged.Required, s.Required...)
	}
	return &merged
}

func isReadOnly(schema *openapi3.Schema) bool {
	if schema.ReadOnly {
		return true
	}
	if schema.Extensions != nil {
		if v, ok := schema.Extensions["readOnly"]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return false
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// primitiveTypeFor maps (baseType, format) to PrimitiveType:
//
//	string/uuid|guid -> Uuid
//	string/date-time -> DateTime
//	string/date -> Date
//	number/double -> Number
//	otherwise by base type; file -> String
func primitiveTypeFor(baseType, format string) PrimitiveType {
	switch baseType {
	case "string":
		switch format {
		case "uuid", "guid":
			return PT(PrimitiveUuid)
		case "date-time":
			return PT(PrimitiveDateTime)
		case "date":
			return PT(PrimitiveDate)
		default:
			return PT(PrimitiveString)
		}
	case "number":
		return PT(PrimitiveNumber)
	case "integer":
		return PT(PrimitiveInt)
	case "boolean":
		return PT(PrimitiveBool)
	case "file", "":
		return PT(PrimitiveString)
	default:
		return PT(PrimitiveString)
	}
}

func defaultLiteralFor(pt PrimitiveType) string {
	switch pt.Kind {
	case PrimitiveString:
		return "fuzzstring"
	case PrimitiveNumber:
		return "1.0"
	case PrimitiveInt:
		return "1"
	case PrimitiveBool:
		return "true"
	case PrimitiveUuid:
		return uuid.New().String()
	case PrimitiveDateTime:
		return "2024-01-01T00:00:00Z"
	case PrimitiveDate:
		return "2024-01-01"
	default:
		return ""
	}
}

func (st *visitState) visitPrimitive(name string, schema *openapi3.Schema, example interface{}, required, readOnly bool) (PayloadTree, error) {
	pt := primitiveTypeFor(schema.Type, schema.Format)

	if example != nil {
		formatted, ok := formatScalarExample(example)
		if ok {
			if st.opts.GenerateFuzzablePayloadForExamples {
				return NewLeaf(name, FuzzableWithExample(pt, defaultLiteralFor(pt), formatted), required, readOnly), nil
			}
			return NewLeaf(name, Constant(pt, formatted), required, readOnly), nil
		}
	}

	def := defaultLiteralFor(pt)
	if schema.Default != nil {
		if formatted, ok := formatScalarExample(schema.Default); ok {
			def = formatted
		}
	}
	return NewLeaf(name, Fuzzable(pt, def), required, readOnly), nil
}

func (st *visitState) visitEnum(name string, schema *openapi3.Schema, example interface{}, required, readOnly bool) (PayloadTree, error) {
	underlying := primitiveTypeFor(schema.Type, schema.Format)
	values := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		if formatted, ok := formatScalarExample(v); ok {
			values = append(values, formatted)
		}
	}
	if len(values) == 0 {
		return PayloadTree{}, newUnsupportedType(fmt.Sprintf("%s: enum with no usable values", name))
	}

	var def *string
	if schema.Default != nil {
		if formatted, ok := formatScalarExample(schema.Default); ok {
			def = &formatted
		}
	}
	if def == nil {
		def = &values[0]
	}

	pt := PTEnum(underlying.Kind, values, def)

	if example != nil {
		if formatted, ok := formatScalarExample(example); ok {
			if st.opts.GenerateFuzzablePayloadForExamples {
				return NewLeaf(name, FuzzableWithExample(pt, *def, formatted), required, readOnly), nil
			}
			return NewLeaf(name, Constant(pt, formatted), required, readOnly), nil
		}
	}

	return NewLeaf(name, Fuzzable(pt, *def), required, readOnly), nil
}

func (st *visitState) visitObject(name string, schema *openapi3.Schema, example interface{}, required, readOnly bool) (PayloadTree, error) {
	exampleObj, exampleIsObject := example.(map[string]interface{})

	names := make([]string, 0, len(schema.Properties))
	for n := range schema.Properties {
		names = append(names, n)
	}
	sort.Strings(names)

	var children []PayloadTree
	for _, propName := range names {
		if exampleIsObject {
			if _, present := exampleObj[propName]; !present {
				// Properties absent from the example are omitted.
				continue
			}
		}

		propRef := schema.Properties[propName]
		var childExample interface{}
		if exampleIsObject {
			childExample = exampleObj[propName]
		}

		child, err := st.visit(propName, propRef, childExample, contains(schema.Required, propName))
		if err != nil {
			if err == errDepthTruncated {
				continue // depth cap: drop the subtree.
			}
			return PayloadTree{}, err
		}
		children = append(children, child)
	}

	return NewInner(name, PropertyObject, required, readOnly, children), nil
}

const maxArrayExampleElements = 5

func (st *visitState) visitArray(name string, schema *openapi3.Schema, example interface{}, required, readOnly bool) (PayloadTree, error) {
	exampleArr, exampleIsArray := example.([]interface{})

	if !exampleIsArray || len(exampleArr) == 0 {
		child, err := st.visit("[0]", schema.Items, nil, true)
		if err != nil {
			return PayloadTree{}, err
		}
		return NewInner(name, PropertyArray, required, readOnly, []PayloadTree{child}), nil
	}

	n := len(exampleArr)
	if n > maxArrayExampleElements {
		n = maxArrayExampleElements
	}

	children := make([]PayloadTree, 0, n)
	fellBack := false
	for i := 0; i < n; i++ {
		child, err := st.visit(arrayIndexSegment(i), schema.Items, exampleArr[i], true)
		if err != nil {
			if err == errDepthTruncated {
				continue
			}
			fellBack = true
			break
		}
		children = append(children, child)
	}
	if fellBack || len(children) == 0 {
		// A single example element that can't be parsed as a subtree falls
		// back to the single-child form.
		child, err := st.visit("[0]", schema.Items, nil, true)
		if err != nil {
			return PayloadTree{}, err
		}
		return NewInner(name, PropertyArray, required, readOnly, []PayloadTree{child}), nil
	}

	return NewInner(name, PropertyArray, required, readOnly, children), nil
}

// formatScalarExample renders a decoded JSON scalar as its literal string
// form, as produced by goccy/go-json decoding into interface{}.
func formatScalarExample(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case float64:
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(b), true
	case nil:
		return "null", true
	default:
		return "", false
	}
}
