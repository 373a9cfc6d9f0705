// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestIdKeyIncludesXMsPath(t *testing.T) {
	plain := RequestId{Endpoint: "/items", Method: MethodGet}
	withXMs := RequestId{Endpoint: "/items", Method: MethodGet, XMsPath: "/items?api-version=2020"}
	require.NotEqual(t, plain.Key(), withXMs.Key())
	require.Equal(t, plain.Key(), (RequestId{Endpoint: "/items", Method: MethodGet}).Key())
}

func TestAccessPathStringRendersJSONPointer(t *testing.T) {
	p := AccessPath{"items", "[0]", "id"}
	require.Equal(t, "/items/0/id", p.String())
	require.Equal(t, "", AccessPath{}.String())
}

func TestAccessPathChildAndParent(t *testing.T) {
	p := AccessPath{"items"}
	child := p.Child("[0]")
	require.Equal(t, AccessPath{"items", "[0]"}, child)
	require.Equal(t, "items", p.Last())

	parent, ok := child.Parent()
	require.True(t, ok)
	require.Equal(t, p, parent)

	_, ok = AccessPath{}.Parent()
	require.False(t, ok)
}

func TestAccessPathEqual(t *testing.T) {
	require.True(t, AccessPath{"a", "b"}.Equal(AccessPath{"a", "b"}))
	require.False(t, AccessPath{"a", "b"}.Equal(AccessPath{"a", "c"}))
	require.False(t, AccessPath{"a"}.Equal(AccessPath{"a", "b"}))
}
