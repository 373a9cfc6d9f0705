// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import "fmt"

// Method is an HTTP method a RequestId may carry.
//
// DELETE deliberately never appears as a Producer: a deleted resource's
// response body carries nothing worth capturing as a dependency source.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPut     Method = "PUT"
	MethodPost    Method = "POST"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// methodPriority orders methods for producer tie-breaking: POST <
// PUT < PATCH < GET. Lower is preferred.
var methodPriority = map[Method]int{
	MethodPost:  0,
	MethodPut:   1,
	MethodPatch: 2,
	MethodGet:   3,
}

// RequestId identifies a request by (endpoint, method, xMsPath?).
//
// xMsPath captures the original query-bearing path template that was
// rewritten to a plain path for OpenAPI conformance (an x-ms-paths entry);
// when non-empty, path assembly must reconstruct the query fragment from it.
type RequestId struct {
	Endpoint string `json:"endpoint"`
	Method   Method `json:"method"`
	XMsPath  string `json:"xMsPath,omitempty"`
}

// Key returns a stable, comparable representation usable as a map key.
func (id RequestId) Key() string {
	if id.XMsPath != "" {
		return string(id.Method) + " " + id.Endpoint + " " + id.XMsPath
	}
	return string(id.Method) + " " + id.Endpoint
}

func (id RequestId) String() string {
	return fmt.Sprintf("%s %s", id.Method, id.Endpoint)
}

// AccessPath is an ordered sequence of JSON-document location segments.
// An "[n]" segment denotes an array index; every other segment is a
// property name.
type AccessPath []string

// Equal reports whether two access paths have identical segment sequences.
func (p AccessPath) Equal(other AccessPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Child returns a new AccessPath with seg appended.
func (p AccessPath) Child(seg string) AccessPath {
	out := make(AccessPath, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Parent returns the access path without its last segment, and ok=false
// if p is already empty.
func (p AccessPath) Parent() (AccessPath, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1], true
}

// Last returns the final segment, or "" if p is empty.
func (p AccessPath) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// String renders the access path as a JSON Pointer: "/" + segments joined
// by "/", with "[n]" rendered as "n".
func (p AccessPath) String() string {
	var sb []byte
	for _, seg := range p {
		sb = append(sb, '/')
		sb = append(sb, []byte(pointerSegment(seg))...)
	}
	if len(sb) == 0 {
		return ""
	}
	return string(sb)
}

func pointerSegment(seg string) string {
	if len(seg) >= 2 && seg[0] == '[' && seg[len(seg)-1] == ']' {
		return seg[1 : len(seg)-1]
	}
	return seg
}

// PrimitiveTypeKind discriminates the PrimitiveType tagged union.
type PrimitiveTypeKind string

const (
	PrimitiveString   PrimitiveTypeKind = "String"
	PrimitiveObject   PrimitiveTypeKind = "Object"
	PrimitiveNumber   PrimitiveTypeKind = "Number"
	PrimitiveInt      PrimitiveTypeKind = "Int"
	PrimitiveUuid     PrimitiveTypeKind = "Uuid"
	PrimitiveBool     PrimitiveTypeKind = "Bool"
	PrimitiveDateTime PrimitiveTypeKind = "DateTime"
	PrimitiveDate     PrimitiveTypeKind = "Date"
	PrimitiveEnum     PrimitiveTypeKind = "Enum"
)

// PrimitiveType is the tagged variant over:
// String | Object | Number | Int | Uuid | Bool | DateTime | Date |
// Enum{underlyingType, values, default?}.
type PrimitiveType struct {
	Kind PrimitiveTypeKind `json:"kind"`

	// Enum-only fields.
	EnumUnderlying PrimitiveTypeKind `json:"enumUnderlying,omitempty"`
	EnumValues     []string          `json:"enumValues,omitempty"`
	EnumDefault    *string           `json:"enumDefault,omitempty"`
}

func PT(kind PrimitiveTypeKind) PrimitiveType { return PrimitiveType{Kind: kind} }

func PTEnum(underlying PrimitiveTypeKind, values []string, def *string) PrimitiveType {
	return PrimitiveType{Kind: PrimitiveEnum, EnumUnderlying: underlying, EnumValues: values, EnumDefault: def}
}

func (t PrimitiveType) IsEnum() bool { return t.Kind == PrimitiveEnum }

func (t PrimitiveType) String() string {
	if t.Kind == PrimitiveEnum {
		return "Enum<" + string(t.EnumUnderlying) + ">"
	}
	return string(t.Kind)
}
