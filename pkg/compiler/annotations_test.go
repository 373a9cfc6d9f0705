// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAnnotationsHappyPath(t *testing.T) {
	data := []byte(`{
		"x-restler-global-annotations": [
			{
				"producer_endpoint": "/accounts",
				"producer_method": "post",
				"producer_resource_name": "accountId",
				"consumer_param": "accountId"
			}
		]
	}`)
	annotations, err := ParseAnnotations(data, AnnotationGlobal, nil)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	require.Equal(t, MethodPost, annotations[0].ProducerMethod)
	require.Equal(t, AnnotationGlobal, annotations[0].Source)
	require.False(t, annotations[0].ConsumerIsPointer)
}

func TestParseAnnotationsParsesJSONPointerConsumerParam(t *testing.T) {
	data := []byte(`{
		"x-restler-global-annotations": [
			{"producer_endpoint": "/a", "producer_method": "POST", "consumer_param": "/address/city"}
		]
	}`)
	annotations, err := ParseAnnotations(data, AnnotationGlobal, nil)
	require.NoError(t, err)
	require.True(t, annotations[0].ConsumerIsPointer)
	require.Equal(t, "/address/city", annotations[0].ConsumerParam)
}

func TestParseAnnotationsDropsMalformedEntries(t *testing.T) {
	data := []byte(`{
		"x-restler-global-annotations": [
			{"producer_endpoint": "/a", "producer_method": "POST", "consumer_param": "id"},
			{"producer_method": "POST", "consumer_param": "id"}
		]
	}`)
	var reasons []string
	annotations, err := ParseAnnotations(data, AnnotationGlobal, func(reason string) { reasons = append(reasons, reason) })
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	require.Len(t, reasons, 1)
}

func TestParseAnnotationsExceptExclusion(t *testing.T) {
	data := []byte(`{
		"x-restler-global-annotations": [
			{
				"producer_endpoint": "/accounts",
				"producer_method": "POST",
				"consumer_param": "accountId",
				"except": {"consumer_endpoint": "/widgets", "consumer_method": "GET"}
			}
		]
	}`)
	annotations, err := ParseAnnotations(data, AnnotationGlobal, nil)
	require.NoError(t, err)
	require.Equal(t, "/widgets", annotations[0].ExceptConsumerEndpoint)
	require.Equal(t, MethodGet, annotations[0].ExceptConsumerMethod)
}

func TestAnnotationMatchesGlobalByNameOnly(t *testing.T) {
	a := Annotation{ConsumerParam: "accountId"}
	c := pathConsumer("/accounts/{accountId}", MethodGet, "accountId")
	require.True(t, a.Matches(c))

	other := pathConsumer("/widgets/{widgetId}", MethodGet, "widgetId")
	require.False(t, a.Matches(other))
}

func TestAnnotationMatchesJSONPointerConsumerParam(t *testing.T) {
	a := Annotation{ConsumerParam: "/address/city", ConsumerIsPointer: true}
	c := Consumer{
		ResourceId: ApiResource{
			RequestId: RequestId{Endpoint: "/accounts", Method: MethodPost},
			Reference: BodyResource("city", AccessPath{"address", "city"}),
		},
		ParameterKind: ParamBody,
	}
	require.True(t, a.Matches(c))
}

func TestAnnotationMatchesRestrictedToConsumerEndpoint(t *testing.T) {
	a := Annotation{
		ConsumerParam:    "accountId",
		ConsumerEndpoint: "/accounts/{accountId}",
		ConsumerMethod:   MethodGet,
	}
	match := pathConsumer("/accounts/{accountId}", MethodGet, "accountId")
	require.True(t, a.Matches(match))

	wrongMethod := pathConsumer("/accounts/{accountId}", MethodPut, "accountId")
	require.False(t, a.Matches(wrongMethod))
}

func TestAnnotationMatchesExceptOverridesGlobalMatch(t *testing.T) {
	a := Annotation{
		ConsumerParam:           "accountId",
		ExceptConsumerEndpoint:  "/widgets/{widgetId}",
	}
	excepted := pathConsumer("/widgets/{widgetId}", MethodGet, "accountId")
	require.False(t, a.Matches(excepted))

	other := pathConsumer("/accounts/{accountId}", MethodGet, "accountId")
	require.True(t, a.Matches(other))
}

func TestAnnotationPrecedenceOrdersLocalBeforeGlobalBeforeLinks(t *testing.T) {
	require.True(t, annotationPrecedence(Annotation{Source: AnnotationLocal}) < annotationPrecedence(Annotation{Source: AnnotationGlobal}))
	require.True(t, annotationPrecedence(Annotation{Source: AnnotationGlobal}) < annotationPrecedence(Annotation{Source: AnnotationLinks}))
}
