// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Dictionary is the fuzzing dictionary, mirroring the RESTler
// engine's dict.json schema. It is value-typed: WithUuidSuffix returns a
// new, extended Dictionary rather than mutating one in place. The
// Resolver keeps the extended copy, and Compile hands the final
// dictionary to the assembly of every request; it is not threaded from
// one request to the next.
type Dictionary struct {
	FuzzableString       []string `json:"restler_fuzzable_string,omitempty"`
	FuzzableStringUnquoted []string `json:"restler_fuzzable_string_unquoted,omitempty"`
	FuzzableInt           []string `json:"restler_fuzzable_int,omitempty"`
	FuzzableIntUnquoted   []string `json:"restler_fuzzable_int_unquoted,omitempty"`
	FuzzableNumber        []string `json:"restler_fuzzable_number,omitempty"`
	FuzzableNumberUnquoted []string `json:"restler_fuzzable_number_unquoted,omitempty"`
	FuzzableBool          []string `json:"restler_fuzzable_bool,omitempty"`
	FuzzableBoolUnquoted  []string `json:"restler_fuzzable_bool_unquoted,omitempty"`
	FuzzableObject        []string `json:"restler_fuzzable_object,omitempty"`
	FuzzableObjectUnquoted []string `json:"restler_fuzzable_object_unquoted,omitempty"`
	FuzzableDatetime      []string `json:"restler_fuzzable_datetime,omitempty"`
	FuzzableDatetimeUnquoted []string `json:"restler_fuzzable_datetime_unquoted,omitempty"`
	FuzzableDate          []string `json:"restler_fuzzable_date,omitempty"`
	FuzzableDateUnquoted  []string `json:"restler_fuzzable_date_unquoted,omitempty"`
	FuzzableUuid4         []string `json:"restler_fuzzable_uuid4,omitempty"`
	FuzzableUuid4Unquoted []string `json:"restler_fuzzable_uuid4_unquoted,omitempty"`

	CustomPayload         map[string][]string `json:"restler_custom_payload,omitempty"`
	CustomPayloadUnquoted map[string][]string `json:"restler_custom_payload_unquoted,omitempty"`
	CustomPayloadUuid4Suffix map[string]string `json:"restler_custom_payload_uuid4_suffix,omitempty"`
	CustomPayloadHeader   map[string][]string `json:"restler_custom_payload_header,omitempty"`
	CustomPayloadHeaderUnquoted map[string][]string `json:"restler_custom_payload_header_unquoted,omitempty"`
	CustomPayloadQuery    map[string][]string `json:"restler_custom_payload_query,omitempty"`

	ShadowValues map[string]interface{} `json:"shadow_values,omitempty"`
}

// ParseDictionary decodes a dictionary JSON document using goccy/go-json.
func ParseDictionary(data []byte) (Dictionary, error) {
	var d Dictionary
	if err := json.Unmarshal(data, &d); err != nil {
		return Dictionary{}, newCompileError(ErrInvalidDictionary, "parse dictionary: %w", err)
	}
	return d, nil
}

// Marshal serializes the dictionary with goccy/go-json.
func (d Dictionary) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Clone returns a deep-enough copy so that callers can append uuid-suffix
// entries without mutating the original.
func (d Dictionary) Clone() Dictionary {
	clone := d
	clone.CustomPayloadUuid4Suffix = cloneStringMap(d.CustomPayloadUuid4Suffix)
	clone.CustomPayload = cloneStringSliceMap(d.CustomPayload)
	clone.CustomPayloadUnquoted = cloneStringSliceMap(d.CustomPayloadUnquoted)
	clone.CustomPayloadHeader = cloneStringSliceMap(d.CustomPayloadHeader)
	clone.CustomPayloadHeaderUnquoted = cloneStringSliceMap(d.CustomPayloadHeaderUnquoted)
	clone.CustomPayloadQuery = cloneStringSliceMap(d.CustomPayloadQuery)
	return clone
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringSliceMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string{}, v...)
	}
	return out
}

// WithUuidSuffix returns a clone of d with name -> prefix recorded in
// restler_custom_payload_uuid4_suffix, unless the name is already
// present (dictionary lookups are idempotent).
func (d Dictionary) WithUuidSuffix(name, prefix string) Dictionary {
	clone := d.Clone()
	if clone.CustomPayloadUuid4Suffix == nil {
		clone.CustomPayloadUuid4Suffix = map[string]string{}
	}
	if _, exists := clone.CustomPayloadUuid4Suffix[name]; !exists {
		clone.CustomPayloadUuid4Suffix[name] = prefix
	}
	return clone
}

// bodyKey builds the "<endpoint>/<method>/__body__" lookup key used by
// the custom_payload body-override feature.
func bodyKey(id RequestId) string {
	return strings.TrimSuffix(id.Endpoint, "/") + "/" + strings.ToLower(string(id.Method)) + "/__body__"
}

// lookupCustomPayload resolves a consumer, by its JSON-pointer key first
// and then by its name, against the per-endpoint dictionary first, then
// the global one, in the listed category order:
// custom_payload_query (query only), custom_payload_header (header
// only), custom_payload, custom_payload_unquoted. Whole-body
// "<endpoint>/<method>/__body__" keys are resolved by bodyOverride.
func lookupCustomPayload(kind ParameterKind, pointerKey, name string, perEndpoint, global *Dictionary) (Producer, bool) {
	dicts := []*Dictionary{perEndpoint, global}
	for _, d := range dicts {
		if d == nil {
			continue
		}
		if kind == ParamQuery {
			if v, ok := lookupByKeyOrName(d.CustomPayloadQuery, pointerKey, name); ok {
				return NewDictionaryPayload(CustomQuery, PT(PrimitiveString), name, isObjectValue(v)), true
			}
		}
		if kind == ParamHeader {
			if v, ok := lookupByKeyOrName(d.CustomPayloadHeader, pointerKey, name); ok {
				return NewDictionaryPayload(CustomHeader, PT(PrimitiveString), name, isObjectValue(v)), true
			}
			if v, ok := lookupByKeyOrName(d.CustomPayloadHeaderUnquoted, pointerKey, name); ok {
				return NewDictionaryPayload(CustomHeader, PT(PrimitiveString), name, isObjectValue(v)), true
			}
		}
		if v, ok := lookupByKeyOrName(d.CustomPayload, pointerKey, name); ok {
			return NewDictionaryPayload(CustomString, PT(PrimitiveString), name, isObjectValue(v)), true
		}
		if v, ok := lookupByKeyOrName(d.CustomPayloadUnquoted, pointerKey, name); ok {
			return NewDictionaryPayload(CustomString, PT(PrimitiveString), name, isObjectValue(v)), true
		}
	}
	return Producer{}, false
}

func lookupByKeyOrName(m map[string][]string, key, name string) (string, bool) {
	if m == nil {
		return "", false
	}
	if vs, ok := m[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	if vs, ok := m[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

func isObjectValue(v string) bool {
	trimmed := strings.TrimSpace(v)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// lookupUuidSuffix resolves a name against the uuid-suffix map of the
// per-endpoint dictionary then the global one.
func lookupUuidSuffix(name string, perEndpoint, global *Dictionary) (string, bool) {
	for _, d := range []*Dictionary{perEndpoint, global} {
		if d == nil || d.CustomPayloadUuid4Suffix == nil {
			continue
		}
		if prefix, ok := d.CustomPayloadUuid4Suffix[name]; ok {
			return prefix, true
		}
	}
	return "", false
}

// bodyOverride resolves the custom_payload body-override.
func bodyOverride(id RequestId, perEndpoint, global *Dictionary) (string, bool) {
	key := bodyKey(id)
	for _, d := range []*Dictionary{perEndpoint, global} {
		if d == nil || d.CustomPayload == nil {
			continue
		}
		if vs, ok := d.CustomPayload[key]; ok && len(vs) > 0 {
			return key, true
		}
	}
	return "", false
}

// sortedStringSliceMapKeys returns m's keys sorted, for deterministic
// iteration when injecting dictionary-declared headers/queries that the
// spec never declared.
func sortedStringSliceMapKeys(m map[string][]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// uninjectedCustomPayloads returns, in deterministic order, every name in
// m (plus its first value) that is not already present (case-insensitive)
// in existingNames, skipping excludeName, as a NamedPayload carrying a
// Custom payload of the given CustomPayloadType.
func uninjectedCustomPayloads(m map[string][]string, typ CustomPayloadType, existingNames map[string]bool, excludeName string) []NamedPayload {
	var out []NamedPayload
	for _, name := range sortedStringSliceMapKeys(m) {
		if strings.EqualFold(name, excludeName) || existingNames[strings.ToLower(name)] {
			continue
		}
		vs := m[name]
		if len(vs) == 0 {
			continue
		}
		out = append(out, NamedPayload{Name: name, Payload: Custom(typ, PT(PrimitiveString), name, isObjectValue(vs[0]))})
	}
	return out
}

// dictHasHeaderPayload reports whether the dictionary declares a
// custom_payload_header[_unquoted] (or plain custom_payload, for the
// Content-Length case) entry for name, returning that entry's first value.
func dictHasHeaderPayload(d *Dictionary, name string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, m := range []map[string][]string{d.CustomPayloadHeader, d.CustomPayloadHeaderUnquoted, d.CustomPayload} {
		if vs, ok := m[name]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}
