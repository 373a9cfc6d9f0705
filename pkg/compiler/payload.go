// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

// PropertyKind discriminates an InnerProperty's shape.
type PropertyKind string

const (
	PropertyObject   PropertyKind = "Object"
	PropertyArray    PropertyKind = "Array"
	PropertyProperty PropertyKind = "Property"
)

// PayloadTree is a tree of LeafProperty and InnerProperty nodes.
// A single concrete type models both variants; IsLeaf reports which one
// a given node is.
type PayloadTree struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired"`
	IsReadOnly bool   `json:"isReadOnly"`

	// Leaf-only.
	leaf    bool
	Payload FuzzingPayload `json:"payload,omitempty"`

	// Inner-only.
	PropertyType PropertyKind  `json:"propertyType,omitempty"`
	Children     []PayloadTree `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a LeafProperty.
func (t PayloadTree) IsLeaf() bool { return t.leaf }

// NewLeaf constructs a LeafProperty node.
func NewLeaf(name string, payload FuzzingPayload, required, readOnly bool) PayloadTree {
	return PayloadTree{Name: name, Payload: payload, IsRequired: required, IsReadOnly: readOnly, leaf: true}
}

// NewInner constructs an InnerProperty node over children. An
// InnerProperty whose subtree is replaced by a single payload (used when
// an example value collapses a subtree into a Constant) is built with
// NewInnerReplaced instead.
func NewInner(name string, kind PropertyKind, required, readOnly bool, children []PayloadTree) PayloadTree {
	return PayloadTree{Name: name, PropertyType: kind, IsRequired: required, IsReadOnly: readOnly, Children: children}
}

// NewInnerReplaced constructs an InnerProperty whose subtree has been
// collapsed to a single FuzzingPayload (the InnerProperty "optional
// payload" field in).
func NewInnerReplaced(name string, kind PropertyKind, required, readOnly bool, payload FuzzingPayload) PayloadTree {
	return PayloadTree{Name: name, PropertyType: kind, IsRequired: required, IsReadOnly: readOnly, Payload: payload, leaf: true}
}

// Walk visits every node of the tree in document order (pre-order),
// tracking the AccessPath to each node. The root itself is not visited
// with a synthetic name; children accumulate access path segments as they
// are visited. Array children are named "[n]".
func (t PayloadTree) Walk(visit func(path AccessPath, node PayloadTree)) {
	t.walk(nil, visit)
}

func (t PayloadTree) walk(path AccessPath, visit func(AccessPath, PayloadTree)) {
	visit(path, t)
	for i, child := range t.Children {
		seg := child.Name
		if t.PropertyType == PropertyArray {
			seg = arrayIndexSegment(i)
		}
		child.walk(path.Child(seg), visit)
	}
}

func arrayIndexSegment(i int) string {
	return "[" + itoa(i) + "]"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// --- FuzzingPayload tagged union ---

// PayloadKind discriminates the FuzzingPayload tagged union.
type PayloadKind string

const (
	PayloadConstant      PayloadKind = "Constant"
	PayloadFuzzable      PayloadKind = "Fuzzable"
	PayloadCustom        PayloadKind = "Custom"
	PayloadDynamicObject PayloadKind = "DynamicObject"
	PayloadParts         PayloadKind = "PayloadParts"
)

// CustomPayloadType discriminates injected custom payloads.
type CustomPayloadType string

const (
	CustomString     CustomPayloadType = "String"
	CustomUuidSuffix  CustomPayloadType = "UuidSuffix"
	CustomHeader      CustomPayloadType = "Header"
	CustomQuery       CustomPayloadType = "Query"
)

// FuzzingPayload is the tagged variant bound to every parameter and body
// leaf in the compiled grammar:
//
//	Constant(primitiveType, literal)
//	Fuzzable{primitiveType, defaultValue, exampleValue?, parameterName?, dynamicObject?}
//	Custom{customPayloadType, primitiveType, value, isObject, dynamicObject?}
//	DynamicObject{primitiveType, variableName, isWriter}
//	PayloadParts(ordered sequence of FuzzingPayload)
//
// A single struct models every variant; Kind selects which fields apply.
// Fuzzable payloads never carry a PrimitiveType of Null: the grammar does
// not model JSON nulls on fuzzable leaves, only as a Constant.
type FuzzingPayload struct {
	Kind PayloadKind `json:"kind"`

	PrimitiveType PrimitiveType `json:"primitiveType"`

	// Constant
	Literal string `json:"literal,omitempty"`

	// Fuzzable
	DefaultValue  string  `json:"defaultValue,omitempty"`
	ExampleValue  *string `json:"exampleValue,omitempty"`
	ParameterName string  `json:"parameterName,omitempty"`

	// Custom
	CustomPayloadType CustomPayloadType `json:"customPayloadType,omitempty"`
	Value             string            `json:"value,omitempty"`
	IsObject          bool              `json:"isObject,omitempty"`

	// Fuzzable/Custom: the consumer may simultaneously be a writer of a
	// dynamic object, via an input-producer annotation.
	DynamicObject *DynamicObjectRef `json:"dynamicObject,omitempty"`

	// DynamicObject
	VariableName string `json:"variableName,omitempty"`
	IsWriter     bool   `json:"isWriter,omitempty"`

	// PayloadParts
	Parts []FuzzingPayload `json:"parts,omitempty"`
}

// DynamicObjectRef names the variable a Fuzzable/Custom payload also
// writes, when that consumer is itself the target of an input-producer
// annotation.
type DynamicObjectRef struct {
	VariableName string `json:"variableName"`
	IsWriter     bool   `json:"isWriter"`
}

func Constant(pt PrimitiveType, literal string) FuzzingPayload {
	return FuzzingPayload{Kind: PayloadConstant, PrimitiveType: pt, Literal: literal}
}

func Fuzzable(pt PrimitiveType, defaultValue string) FuzzingPayload {
	return FuzzingPayload{Kind: PayloadFuzzable, PrimitiveType: pt, DefaultValue: defaultValue}
}

func FuzzableWithExample(pt PrimitiveType, defaultValue, example string) FuzzingPayload {
	return FuzzingPayload{Kind: PayloadFuzzable, PrimitiveType: pt, DefaultValue: defaultValue, ExampleValue: &example}
}

func Custom(typ CustomPayloadType, pt PrimitiveType, value string, isObject bool) FuzzingPayload {
	return FuzzingPayload{Kind: PayloadCustom, CustomPayloadType: typ, PrimitiveType: pt, Value: value, IsObject: isObject}
}

func DynamicObject(pt PrimitiveType, variableName string, isWriter bool) FuzzingPayload {
	return FuzzingPayload{Kind: PayloadDynamicObject, PrimitiveType: pt, VariableName: variableName, IsWriter: isWriter}
}

func Parts(parts ...FuzzingPayload) FuzzingPayload {
	return FuzzingPayload{Kind: PayloadParts, Parts: parts}
}

// IsNull reports whether the payload is a Constant carrying the JSON null
// literal; used by callers that must never attach this to a Fuzzable leaf.
func (p FuzzingPayload) IsNull() bool {
	return p.Kind == PayloadConstant && p.Literal == "null"
}
