// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDictionaryRoundTrips(t *testing.T) {
	data := []byte(`{
		"restler_fuzzable_string": ["fuzzstring"],
		"restler_custom_payload": {"accountId": ["fixed-value"]},
		"restler_custom_payload_uuid4_suffix": {"widgetId": "widget"}
	}`)
	dict, err := ParseDictionary(data)
	require.NoError(t, err)
	require.Equal(t, []string{"fuzzstring"}, dict.FuzzableString)
	require.Equal(t, []string{"fixed-value"}, dict.CustomPayload["accountId"])
	require.Equal(t, "widget", dict.CustomPayloadUuid4Suffix["widgetId"])
}

func TestParseDictionaryRejectsMalformedJSON(t *testing.T) {
	_, err := ParseDictionary([]byte(`{not json`))
	require.Error(t, err)
}

func TestDictionaryCloneIsIndependent(t *testing.T) {
	orig := Dictionary{CustomPayload: map[string][]string{"a": {"1"}}}
	clone := orig.Clone()
	clone.CustomPayload["a"] = append(clone.CustomPayload["a"], "2")

	require.Equal(t, []string{"1"}, orig.CustomPayload["a"])
	require.Equal(t, []string{"1", "2"}, clone.CustomPayload["a"])
}

func TestWithUuidSuffixIsIdempotent(t *testing.T) {
	d := Dictionary{}
	d1 := d.WithUuidSuffix("accountId", "account")
	d2 := d1.WithUuidSuffix("accountId", "different-prefix")

	require.Equal(t, "account", d2.CustomPayloadUuid4Suffix["accountId"])
}

func TestLookupCustomPayloadPrefersPerEndpointOverGlobal(t *testing.T) {
	perEndpoint := &Dictionary{CustomPayload: map[string][]string{"accountId": {`{"from": "endpoint"}`}}}
	global := &Dictionary{CustomPayload: map[string][]string{"accountId": {"from-global"}}}

	p, ok := lookupCustomPayload(ParamPath, "/accountId", "accountId", perEndpoint, global)
	require.True(t, ok)
	// The producer names the dictionary entry, not its value; only the
	// per-endpoint value is a JSON object, so IsObject shows which
	// dictionary answered.
	require.Equal(t, "accountId", p.Name)
	require.True(t, p.IsObject)
}

func TestLookupCustomPayloadQueryFallsThroughToCustomPayload(t *testing.T) {
	global := &Dictionary{CustomPayload: map[string][]string{"filter": {"plain-custom-payload"}}}
	_, ok := lookupCustomPayload(ParamQuery, "/filter", "filter", nil, global)
	// A query consumer checks custom_payload_query first, but the lookup
	// chain falls through to the unscoped custom_payload category too, so
	// this still resolves.
	require.True(t, ok)
}

func TestLookupCustomPayloadHeaderCategory(t *testing.T) {
	global := &Dictionary{CustomPayloadHeader: map[string][]string{"ETag": {"etag-value"}}}
	p, ok := lookupCustomPayload(ParamHeader, "/ETag", "ETag", nil, global)
	require.True(t, ok)
	require.Equal(t, CustomHeader, p.CustomPayloadType)
}

func TestLookupCustomPayloadMissingReturnsFalse(t *testing.T) {
	_, ok := lookupCustomPayload(ParamPath, "/missing", "missing", nil, nil)
	require.False(t, ok)
}

func TestLookupUuidSuffixFallsBackToGlobal(t *testing.T) {
	global := &Dictionary{CustomPayloadUuid4Suffix: map[string]string{"accountId": "account"}}
	prefix, ok := lookupUuidSuffix("accountId", nil, global)
	require.True(t, ok)
	require.Equal(t, "account", prefix)
}

func TestIsObjectValueDetectsJSONContainers(t *testing.T) {
	require.True(t, isObjectValue(`{"a":1}`))
	require.True(t, isObjectValue(`[1,2]`))
	require.False(t, isObjectValue(`plain-string`))
}
