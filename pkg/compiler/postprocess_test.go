// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func bodyConsumerAt(id RequestId, name string, path AccessPath) Consumer {
	return Consumer{
		ResourceId: ApiResource{
			RequestId: id,
			Reference: BodyResource(name, path),
		},
		ParameterKind: ParamBody,
	}
}

func TestPostProcessResponseObjectProducesDynamicObjectAndWriterMark(t *testing.T) {
	producerId := RequestId{Endpoint: "/accounts", Method: MethodPost}
	consumerId := RequestId{Endpoint: "/accounts/{accountId}/items", Method: MethodPost}

	producerResource := ApiResource{RequestId: producerId, Reference: BodyResource("accountId", AccessPath{"accountId"}), PrimitiveType: PT(PrimitiveString)}
	producer := NewResponseObject(producerResource)

	consumer := bodyConsumerAt(consumerId, "accountId", AccessPath{"accountId"})
	consumer.ResourceId.PrimitiveType = PT(PrimitiveString)

	deps := []Dependency{{Consumer: consumer, Producer: &producer}}

	res := PostProcess(deps, nil)
	payload, ok := res.Payloads[consumer.Key()]
	require.True(t, ok)
	require.Equal(t, PayloadDynamicObject, payload.Kind)
	require.False(t, payload.IsWriter)

	require.Len(t, res.Writers, 1)
	require.Equal(t, producerId, res.Writers[0].Request)
	require.Equal(t, AccessPath{"accountId"}, res.Writers[0].Path)
	require.Equal(t, payload.VariableName, res.Writers[0].VariableName)

	require.Len(t, res.Orderings, 1)
	require.Equal(t, producerId, res.Orderings[0].Source)
	require.Equal(t, consumerId, res.Orderings[0].Target)
}

func TestPostProcessDictionaryPayloadHasNoWriterOrOrdering(t *testing.T) {
	consumerId := RequestId{Endpoint: "/accounts/{accountId}", Method: MethodGet}
	consumer := pathConsumer(consumerId.Endpoint, consumerId.Method, "accountId")
	consumer.ResourceId.PrimitiveType = PT(PrimitiveString)

	producer := NewDictionaryPayload(CustomUuidSuffix, PT(PrimitiveString), "accountId", false)
	deps := []Dependency{{Consumer: consumer, Producer: &producer}}

	res := PostProcess(deps, nil)
	payload, ok := res.Payloads[consumer.Key()]
	require.True(t, ok)
	require.Equal(t, PayloadCustom, payload.Kind)
	require.Equal(t, CustomUuidSuffix, payload.CustomPayloadType)
	require.Empty(t, res.Writers)
	require.Empty(t, res.Orderings)
}

func TestPostProcessNoOrderingWhenProducerAndConsumerShareRequest(t *testing.T) {
	id := RequestId{Endpoint: "/widgets", Method: MethodPost}
	consumer := bodyConsumerAt(id, "name", AccessPath{"name"})
	consumer.ResourceId.PrimitiveType = PT(PrimitiveString)

	producerResource := ApiResource{RequestId: id, Reference: BodyResource("name", AccessPath{"name"})}
	producer := NewInputParameter(producerResource, nil, true)
	deps := []Dependency{{Consumer: consumer, Producer: &producer}}

	res := PostProcess(deps, nil)
	require.Empty(t, res.Orderings)

	payload := res.Payloads[consumer.Key()]
	require.NotNil(t, payload.DynamicObject)
	require.True(t, payload.DynamicObject.IsWriter)
}

func TestPostProcessDedupesWriterMarksAndOrderingsAcrossConsumers(t *testing.T) {
	producerId := RequestId{Endpoint: "/accounts", Method: MethodPost}
	producerResource := ApiResource{RequestId: producerId, Reference: BodyResource("accountId", AccessPath{"accountId"}), PrimitiveType: PT(PrimitiveString)}
	producer := NewResponseObject(producerResource)

	consumerA := bodyConsumerAt(RequestId{Endpoint: "/items", Method: MethodPost}, "accountId", AccessPath{"accountId"})
	consumerA.ResourceId.PrimitiveType = PT(PrimitiveString)
	consumerB := bodyConsumerAt(RequestId{Endpoint: "/items", Method: MethodPost}, "accountId", AccessPath{"nested", "accountId"})
	consumerB.ResourceId.PrimitiveType = PT(PrimitiveString)

	deps := []Dependency{
		{Consumer: consumerA, Producer: &producer},
		{Consumer: consumerB, Producer: &producer},
	}

	res := PostProcess(deps, nil)
	// Both consumers are bound to the same producer, so they share one
	// writer mark and one ordering edge despite being distinct consumers.
	require.Len(t, res.Writers, 1)
	require.Len(t, res.Orderings, 1)
}

func TestPostProcessReportsUnresolvedConsumers(t *testing.T) {
	consumer := pathConsumer("/widgets/{widgetId}", MethodGet, "widgetId")
	deps := []Dependency{{Consumer: consumer, Producer: nil}}

	var reported []Consumer
	res := PostProcess(deps, func(c Consumer) { reported = append(reported, c) })

	require.Len(t, reported, 1)
	require.Equal(t, consumer.Key(), reported[0].Key())
	require.Empty(t, res.Payloads)
	require.Empty(t, res.Writers)
	require.Empty(t, res.Orderings)
}

func TestPostProcessOrderingConstraintParameterNeverMaterializesPayload(t *testing.T) {
	consumer := pathConsumer("/widgets/{widgetId}", MethodGet, "widgetId")
	consumer.ResourceId.PrimitiveType = PT(PrimitiveString)
	producer := NewOrderingConstraintParameter(RequestId{Endpoint: "/widgets", Method: MethodPost})
	deps := []Dependency{{Consumer: consumer, Producer: &producer}}

	res := PostProcess(deps, nil)
	payload := res.Payloads[consumer.Key()]
	require.Equal(t, PayloadFuzzable, payload.Kind)
	require.Empty(t, res.Orderings)
}
