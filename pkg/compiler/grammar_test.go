// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizePath(t *testing.T) {
	tokens := tokenizePath("/accounts/{accountId}/items/{itemId}")
	require.Len(t, tokens, 4)
	require.Equal(t, PathToken{Literal: "accounts"}, tokens[0])
	require.Equal(t, PathToken{Param: "accountId"}, tokens[1])
	require.Equal(t, PathToken{Literal: "items"}, tokens[2])
	require.Equal(t, PathToken{Param: "itemId"}, tokens[3])
}

func TestTokenizePathTrimsLeadingAndTrailingSlashes(t *testing.T) {
	tokens := tokenizePath("/accounts/")
	require.Equal(t, []PathToken{{Literal: "accounts"}}, tokens)
}

func TestAssembleRequestBindsPathParameterPayload(t *testing.T) {
	id := RequestId{Endpoint: "/accounts/{accountId}", Method: MethodGet}
	consumer := pathConsumer(id.Endpoint, id.Method, "accountId")

	payloads := map[string]FuzzingPayload{
		consumer.Key(): Constant(PT(PrimitiveString), "abc-123"),
	}

	req := AssembleRequest(id, id.Method, []Consumer{consumer}, PayloadTree{}, false, payloads, nil, AssembleOptions{})
	require.Len(t, req.Path, 2)
	require.Equal(t, "accountId", req.Path[1].Param)
	require.Equal(t, Constant(PT(PrimitiveString), "abc-123"), req.Path[1].Payload)
}

func TestAssembleRequestFallsBackToFuzzableWhenUnresolved(t *testing.T) {
	id := RequestId{Endpoint: "/accounts/{accountId}", Method: MethodGet}
	consumer := pathConsumer(id.Endpoint, id.Method, "accountId")

	req := AssembleRequest(id, id.Method, []Consumer{consumer}, PayloadTree{}, false, nil, nil, AssembleOptions{})
	require.Equal(t, PayloadFuzzable, req.Path[1].Payload.Kind)
	require.Equal(t, "fuzzstring", req.Path[1].Payload.DefaultValue)
}

func TestAssembleRequestFallbackTracksFuzzedParameterName(t *testing.T) {
	id := RequestId{Endpoint: "/accounts/{accountId}", Method: MethodGet}
	consumer := pathConsumer(id.Endpoint, id.Method, "accountId")

	req := AssembleRequest(id, id.Method, []Consumer{consumer}, PayloadTree{}, false, nil, nil, AssembleOptions{TrackFuzzedParameterNames: true})
	require.Equal(t, "accountId", req.Path[1].Payload.ParameterName)
}

func TestAssembleRequestMarksResponseHeaderWriter(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	headerConsumer := Consumer{
		ResourceId: ApiResource{
			RequestId: id,
			Reference: HeaderResource("ETag"),
		},
		ParameterKind: ParamHeader,
	}

	writers := []WriterMark{
		{Request: id, Path: AccessPath{"ETag"}, IsHeader: true, VariableName: "accounts_post_etag"},
	}

	req := AssembleRequest(id, id.Method, []Consumer{headerConsumer}, PayloadTree{}, false, nil, writers, AssembleOptions{})
	require.Len(t, req.HeaderParameters, 1)
	require.Equal(t, SourceSchema, req.HeaderParameters[0].Source)
	params := req.HeaderParameters[0].Parameters.Parameters
	require.Len(t, params, 1)
	require.Equal(t, "ETag", params[0].Name)
	require.NotNil(t, params[0].Payload.DynamicObject)
	require.True(t, params[0].Payload.DynamicObject.IsWriter)
	require.Equal(t, "accounts_post_etag", params[0].Payload.DynamicObject.VariableName)
}

func TestAssembleRequestStripsSpecContentLengthAndFixesHeaders(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	consumer := Consumer{
		ResourceId: ApiResource{
			RequestId: id,
			Reference: HeaderResource("Content-Length"),
		},
		ParameterKind: ParamHeader,
	}

	req := AssembleRequest(id, id.Method, []Consumer{consumer}, PayloadTree{}, false, nil, nil, AssembleOptions{BasePath: "https://api.example.com/v1", UseRefreshableToken: true})

	for _, g := range req.HeaderParameters {
		for _, p := range g.Parameters.Parameters {
			require.NotEqual(t, "Content-Length", p.Name)
		}
	}
	require.Equal(t, []FixedHeader{
		{Name: "Accept", Value: "application/json"},
		{Name: "Host", Value: "api.example.com"},
		{Name: "Content-Type", Value: "application/json"},
	}, req.Headers)
	require.Equal(t, RefreshableToken(), req.Token)
}

func TestAssembleRequestInjectsDictionaryHeaderCustomPayload(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	dict := Dictionary{CustomPayloadHeader: map[string][]string{"X-Trace-Id": {"abc"}}}

	req := AssembleRequest(id, id.Method, nil, PayloadTree{}, false, nil, nil, AssembleOptions{GlobalDictionary: dict})
	require.Len(t, req.HeaderParameters, 2)
	require.Equal(t, SourceSchema, req.HeaderParameters[0].Source)
	require.Empty(t, req.HeaderParameters[0].Parameters.Parameters)
	require.Equal(t, SourceDictionaryCustomPayload, req.HeaderParameters[1].Source)
	require.Equal(t, "X-Trace-Id", req.HeaderParameters[1].Parameters.Parameters[0].Name)
}

func TestAssembleRequestUsesStaticTokenWhenRefreshableDisabled(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodGet}
	req := AssembleRequest(id, id.Method, nil, PayloadTree{}, false, nil, nil, AssembleOptions{UseRefreshableToken: false})
	require.Equal(t, StaticToken(""), req.Token)
}

func TestAssembleRequestRewritesNestedBodyLeaf(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	bodyTree := NewInner("", PropertyObject, true, false, []PayloadTree{
		NewLeaf("name", Fuzzable(PT(PrimitiveString), "fuzzstring"), true, false),
		NewInner("address", PropertyObject, true, false, []PayloadTree{
			NewLeaf("city", Fuzzable(PT(PrimitiveString), "fuzzstring"), true, false),
		}),
	})

	cityConsumer := Consumer{
		ResourceId: ApiResource{
			RequestId: id,
			Reference: BodyResource("city", AccessPath{"address", "city"}),
		},
		ParameterKind: ParamBody,
	}

	payloads := map[string]FuzzingPayload{
		cityConsumer.Key(): Constant(PT(PrimitiveString), "Seattle"),
	}

	req := AssembleRequest(id, id.Method, []Consumer{cityConsumer}, bodyTree, true, payloads, nil, AssembleOptions{})
	require.Len(t, req.BodyParameters, 1)
	require.Equal(t, SourceSchema, req.BodyParameters[0].Source)
	require.NotNil(t, req.BodyParameters[0].Body)

	address := req.BodyParameters[0].Body.Children[1]
	require.Equal(t, "address", address.Name)
	city := address.Children[0]
	require.Equal(t, "city", city.Name)
	require.Equal(t, Constant(PT(PrimitiveString), "Seattle"), city.Payload)

	// The untouched sibling leaf keeps its original Fuzzable payload.
	require.Equal(t, PayloadFuzzable, req.BodyParameters[0].Body.Children[0].Payload.Kind)
}

func TestAssembleRequestBodyOverrideCollapsesToSingleCustomPayload(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	dict := Dictionary{CustomPayload: map[string][]string{bodyKey(id): {`{"name": "acme"}`}}}

	req := AssembleRequest(id, id.Method, nil, PayloadTree{}, true, nil, nil, AssembleOptions{GlobalDictionary: dict})
	require.Len(t, req.BodyParameters, 1)
	require.Equal(t, SourceDictionaryCustomPayload, req.BodyParameters[0].Source)
	require.Nil(t, req.BodyParameters[0].Body)
	require.NotNil(t, req.BodyParameters[0].Example)
}

func TestAssembleRequestEmitsExampleInsteadOfSchemaByDefault(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	bodyTree := NewLeaf("", Fuzzable(PT(PrimitiveString), "fuzzstring"), true, false)
	examples := []NamedExample{{Name: "default", Inline: map[string]interface{}{"name": "acme"}}}

	req := AssembleRequest(id, id.Method, nil, bodyTree, true, nil, nil, AssembleOptions{Examples: examples})
	require.Len(t, req.BodyParameters, 1)
	require.Equal(t, SourceExamples, req.BodyParameters[0].Source)
	require.NotNil(t, req.BodyParameters[0].Example)
}

func TestAssembleRequestEmitsSchemaWhenDataFuzzingEnabled(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	bodyTree := NewLeaf("", Fuzzable(PT(PrimitiveString), "fuzzstring"), true, false)
	examples := []NamedExample{{Name: "default", Inline: map[string]interface{}{"name": "acme"}}}

	req := AssembleRequest(id, id.Method, nil, bodyTree, true, nil, nil, AssembleOptions{Examples: examples, DataFuzzing: true})
	require.Len(t, req.BodyParameters, 2)
	require.Equal(t, SourceSchema, req.BodyParameters[0].Source)
	require.Equal(t, SourceExamples, req.BodyParameters[1].Source)
}

func TestAssembleRequestReconstructsXMsPathQuery(t *testing.T) {
	id := RequestId{Endpoint: "/resources", Method: MethodPost, XMsPath: "/resources?op={opName}&api-version=2020-01-01"}
	opConsumer := Consumer{
		ResourceId: ApiResource{
			RequestId: id,
			Reference: QueryResource("opName"),
		},
		ParameterKind: ParamQuery,
	}
	payloads := map[string]FuzzingPayload{
		opConsumer.Key(): Constant(PT(PrimitiveString), "restart"),
	}

	req := AssembleRequest(id, id.Method, []Consumer{opConsumer}, PayloadTree{}, false, payloads, nil, AssembleOptions{})
	require.Empty(t, req.QueryParameters[0].Parameters.Parameters)
	require.Equal(t, []FuzzingPayload{
		Constant(PT(PrimitiveString), "?"),
		Constant(PT(PrimitiveString), "op="),
		Constant(PT(PrimitiveString), "restart"),
		Constant(PT(PrimitiveString), "&"),
		Constant(PT(PrimitiveString), "api-version="),
		Constant(PT(PrimitiveString), "2020-01-01"),
	}, req.XMsPathQuery)
}

func TestAssembleRequestBuildsRequestMetadata(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodPost}
	req := AssembleRequest(id, id.Method, nil, PayloadTree{}, false, nil, nil, AssembleOptions{
		OperationId:          "createAccount",
		Tags:                 []string{"accounts"},
		LongRunningOperation: true,
	})
	require.NotNil(t, req.Metadata)
	require.Equal(t, "createAccount", req.Metadata.OperationId)
	require.Equal(t, []string{"accounts"}, req.Metadata.Tags)
	require.True(t, req.Metadata.LongRunningOperation)
}

func TestAssembleRequestOmitsRequestMetadataWhenEmpty(t *testing.T) {
	id := RequestId{Endpoint: "/accounts", Method: MethodGet}
	req := AssembleRequest(id, id.Method, nil, PayloadTree{}, false, nil, nil, AssembleOptions{})
	require.Nil(t, req.Metadata)
}

func TestAssembleGrammarPreservesRequestOrderAndOrderings(t *testing.T) {
	reqA := Request{Id: RequestId{Endpoint: "/a", Method: MethodPost}}
	reqB := Request{Id: RequestId{Endpoint: "/b", Method: MethodGet}}
	orderings := []OrderingConstraint{{Source: reqA.Id, Target: reqB.Id}}

	grammar := AssembleGrammar([]Request{reqA, reqB}, orderings)
	require.Equal(t, []Request{reqA, reqB}, grammar.Requests)
	require.Equal(t, orderings, grammar.Orderings)
}
