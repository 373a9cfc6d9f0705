// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

func TestVisitSchemaPrimitiveDefaultLiteral(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})
	tree, err := VisitSchema("name", ref, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.True(t, tree.IsLeaf())
	require.Equal(t, PayloadFuzzable, tree.Payload.Kind)
	require.Equal(t, "fuzzstring", tree.Payload.DefaultValue)
	require.True(t, tree.IsRequired)
}

func TestVisitSchemaPrimitiveUsesSchemaDefault(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "integer", Default: float64(7)})
	tree, err := VisitSchema("count", ref, nil, false, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, "7", tree.Payload.DefaultValue)
}

func TestVisitSchemaPrimitiveWithExampleConstant(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})
	tree, err := VisitSchema("name", ref, "alice", true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, PayloadConstant, tree.Payload.Kind)
	require.Equal(t, "alice", tree.Payload.Literal)
}

func TestVisitSchemaPrimitiveWithExampleFuzzable(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})
	opts := VisitorOptions{GenerateFuzzablePayloadForExamples: true}
	tree, err := VisitSchema("name", ref, "alice", true, false, opts, nil)
	require.NoError(t, err)
	require.Equal(t, PayloadFuzzable, tree.Payload.Kind)
	require.NotNil(t, tree.Payload.ExampleValue)
	require.Equal(t, "alice", *tree.Payload.ExampleValue)
}

func TestVisitSchemaUuidFormat(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string", Format: "uuid"})
	tree, err := VisitSchema("id", ref, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, PrimitiveUuid, tree.Payload.PrimitiveType.Kind)
}

func TestVisitSchemaEnum(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: "string",
		Enum: []interface{}{"red", "green", "blue"},
	})
	tree, err := VisitSchema("color", ref, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.True(t, tree.Payload.PrimitiveType.IsEnum())
	require.Equal(t, "red", tree.Payload.DefaultValue)
}

func TestVisitSchemaEnumWithDefault(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:    "string",
		Enum:    []interface{}{"red", "green", "blue"},
		Default: "green",
	})
	tree, err := VisitSchema("color", ref, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, "green", tree.Payload.DefaultValue)
}

func TestVisitSchemaEnumNoUsableValuesErrors(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: "string",
		Enum: []interface{}{map[string]interface{}{"unformattable": true}},
	})
	_, err := VisitSchema("color", ref, nil, true, false, VisitorOptions{}, nil)
	require.Error(t, err)
	verr, ok := err.(*VisitorError)
	require.True(t, ok)
	require.Equal(t, ErrUnsupportedType, verr.Kind)
}

func TestVisitSchemaObjectOrdersPropertiesByName(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: "object",
		Properties: openapi3.Schemas{
			"zeta":  openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
			"alpha": openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
		},
		Required: []string{"alpha"},
	})
	tree, err := VisitSchema("obj", ref, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.False(t, tree.IsLeaf())
	require.Equal(t, PropertyObject, tree.PropertyType)
	require.Len(t, tree.Children, 2)
	require.Equal(t, "alpha", tree.Children[0].Name)
	require.True(t, tree.Children[0].IsRequired)
	require.Equal(t, "zeta", tree.Children[1].Name)
	require.False(t, tree.Children[1].IsRequired)
}

func TestVisitSchemaObjectExampleOmitsAbsentProperties(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: "object",
		Properties: openapi3.Schemas{
			"name": openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
			"age":  openapi3.NewSchemaRef("", &openapi3.Schema{Type: "integer"}),
		},
	})
	example := map[string]interface{}{"name": "bob"}
	tree, err := VisitSchema("obj", ref, example, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "name", tree.Children[0].Name)
	require.Equal(t, PayloadConstant, tree.Children[0].Payload.Kind)
	require.Equal(t, "bob", tree.Children[0].Payload.Literal)
}

func TestVisitSchemaArrayWithoutExampleUsesSingleChildForm(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:  "array",
		Items: openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
	})
	tree, err := VisitSchema("tags", ref, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, PropertyArray, tree.PropertyType)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "[0]", tree.Children[0].Name)
	require.True(t, tree.Children[0].IsRequired)
}

func TestVisitSchemaArrayWithExampleExpandsElements(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:  "array",
		Items: openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
	})
	example := []interface{}{"a", "b", "c"}
	tree, err := VisitSchema("tags", ref, example, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, 3)
	require.Equal(t, "a", tree.Children[0].Payload.Literal)
	require.Equal(t, "c", tree.Children[2].Payload.Literal)
}

func TestVisitSchemaArrayExampleTruncatedAtMaxElements(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:  "array",
		Items: openapi3.NewSchemaRef("", &openapi3.Schema{Type: "integer"}),
	})
	example := []interface{}{float64(1), float64(2), float64(3), float64(4), float64(5), float64(6), float64(7)}
	tree, err := VisitSchema("nums", ref, example, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, maxArrayExampleElements)
}

func TestVisitSchemaArrayEmptyExampleFallsBackToSingleChildForm(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:  "array",
		Items: openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
	})
	tree, err := VisitSchema("tags", ref, []interface{}{}, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "[0]", tree.Children[0].Name)
}

func TestVisitSchemaAllOfMergesProperties(t *testing.T) {
	base := &openapi3.Schema{
		AllOf: []*openapi3.SchemaRef{
			openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:       "object",
				Properties: openapi3.Schemas{"id": openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})},
				Required:   []string{"id"},
			}),
			openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:       "object",
				Properties: openapi3.Schemas{"name": openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})},
			}),
		},
	}
	tree, err := VisitSchema("obj", openapi3.NewSchemaRef("", base), nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)
	names := []string{tree.Children[0].Name, tree.Children[1].Name}
	require.Contains(t, names, "id")
	require.Contains(t, names, "name")
}

func TestVisitSchemaAllOfBaseSchemaPropertyWinsOverAllOfMember(t *testing.T) {
	base := &openapi3.Schema{
		Type:       "object",
		Properties: openapi3.Schemas{"id": openapi3.NewSchemaRef("", &openapi3.Schema{Type: "integer"})},
		AllOf: []*openapi3.SchemaRef{
			openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:       "object",
				Properties: openapi3.Schemas{"id": openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})},
			}),
		},
	}
	tree, err := VisitSchema("obj", openapi3.NewSchemaRef("", base), nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, PrimitiveInt, tree.Children[0].Payload.PrimitiveType.Kind)
}

func TestVisitSchemaRecursiveSchemaEmitsEmptyStringLeaf(t *testing.T) {
	node := &openapi3.Schema{Type: "object", Properties: openapi3.Schemas{}}
	nodeRef := openapi3.NewSchemaRef("", node)
	node.Properties["child"] = nodeRef

	tree, err := VisitSchema("node", nodeRef, nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, "node", tree.Name)
	require.Len(t, tree.Children, 1)
	child := tree.Children[0]
	require.True(t, child.IsLeaf())
	require.Equal(t, PayloadConstant, child.Payload.Kind)
	require.Equal(t, "", child.Payload.Literal)
}

func TestVisitSchemaRecursiveSchemaWithExampleErrors(t *testing.T) {
	node := &openapi3.Schema{Type: "object", Properties: openapi3.Schemas{}}
	nodeRef := openapi3.NewSchemaRef("", node)
	node.Properties["child"] = nodeRef

	example := map[string]interface{}{"child": map[string]interface{}{"child": nil}}
	_, err := VisitSchema("node", nodeRef, example, true, false, VisitorOptions{}, nil)
	require.Error(t, err)
	verr, ok := err.(*VisitorError)
	require.True(t, ok)
	require.Equal(t, ErrUnsupportedRecursiveExample, verr.Kind)
}

func TestVisitSchemaMaxDepthTruncatesDeepSubtree(t *testing.T) {
	inner := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})
	level2 := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:       "object",
		Properties: openapi3.Schemas{"leaf": inner},
	})
	level1 := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:       "object",
		Properties: openapi3.Schemas{"mid": level2},
	})

	tree, err := VisitSchema("root", level1, nil, true, false, VisitorOptions{JSONPropertyMaxDepth: 1}, nil)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "mid", tree.Children[0].Name)
	require.Empty(t, tree.Children[0].Children)
}

func TestVisitSchemaUnsupportedTypeErrors(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "unknownthing"})
	_, err := VisitSchema("x", ref, nil, true, false, VisitorOptions{}, nil)
	require.Error(t, err)
	verr, ok := err.(*VisitorError)
	require.True(t, ok)
	require.Equal(t, ErrUnsupportedType, verr.Kind)
}

func TestVisitSchemaNilRefYieldsEmptyStringLeaf(t *testing.T) {
	tree, err := VisitSchema("missing", nil, nil, false, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.True(t, tree.IsLeaf())
	require.Equal(t, "", tree.Payload.Literal)
}

func TestVisitSchemaReadOnlyFromExtension(t *testing.T) {
	schema := &openapi3.Schema{Type: "string", Extensions: map[string]interface{}{"readOnly": true}}
	tree, err := VisitSchema("name", openapi3.NewSchemaRef("", schema), nil, true, false, VisitorOptions{}, nil)
	require.NoError(t, err)
	require.True(t, tree.IsReadOnly)
}

func TestVisitSchemaCacheReusesSubtreeByIdentity(t *testing.T) {
	shared := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})
	cache := NewSchemaCache()

	first, err := VisitSchema("a", shared, nil, true, false, VisitorOptions{}, cache)
	require.NoError(t, err)
	second, err := VisitSchema("b", shared, nil, false, false, VisitorOptions{}, cache)
	require.NoError(t, err)

	// Same underlying schema, different call site: the cache must still
	// apply this call's own name and required flag to the cached subtree.
	require.Equal(t, first.Payload.Kind, second.Payload.Kind)
	require.Equal(t, "a", first.Name)
	require.Equal(t, "b", second.Name)
	require.True(t, first.IsRequired)
	require.False(t, second.IsRequired)
}

func TestVisitSchemaCacheBypassedWhenExamplePresent(t *testing.T) {
	shared := openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"})
	cache := NewSchemaCache()

	_, err := VisitSchema("a", shared, nil, true, false, VisitorOptions{}, cache)
	require.NoError(t, err)
	withExample, err := VisitSchema("b", shared, "literal-example", true, false, VisitorOptions{}, cache)
	require.NoError(t, err)
	require.Equal(t, PayloadConstant, withExample.Payload.Kind)
	require.Equal(t, "literal-example", withExample.Payload.Literal)
}
