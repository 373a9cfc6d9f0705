// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// NamingConvention is the set of conventions a container name may be
// word-segmented under.
type NamingConvention string

const (
	CamelCase        NamingConvention = "CamelCase"
	PascalCase       NamingConvention = "PascalCase"
	HyphenSeparator  NamingConvention = "HyphenSeparator"
	UnderscoreSeparator NamingConvention = "UnderscoreSeparator"
)

// splitWords segments ident into lowercase words under the given
// NamingConvention, so the caller can rejoin them under candidate-type-
// name rules instead of just re-casing the identifier as-is.
func splitWords(ident string, convention NamingConvention) []string {
	switch convention {
	case HyphenSeparator:
		return nonEmpty(strings.Split(ident, "-"))
	case UnderscoreSeparator:
		return nonEmpty(strings.Split(ident, "_"))
	default: // CamelCase, PascalCase: split at lower->upper and digit transitions.
		return splitCamel(ident)
	}
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// splitCamel detects lower->upper and letter->digit transitions to break
// ident into its underlying words.
func splitCamel(ident string) []string {
	runes := []rune(ident)
	var words []string
	w := 0
	for i := 0; i < len(runes); i++ {
		eow := false
		switch {
		case i+1 == len(runes):
			eow = true
		case runes[i] == '_' || runes[i] == '-' || runes[i] == '.' || runes[i] == '/':
			eow = true
		case unicode.IsLower(runes[i]) && i+1 < len(runes) && !unicode.IsLower(runes[i+1]) && unicode.IsLetter(runes[i+1]):
			eow = true
		case unicode.IsDigit(runes[i]) && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			eow = true
		case unicode.IsLetter(runes[i]) && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
			eow = true
		}
		if !eow {
			continue
		}
		end := i + 1
		if runes[i] == '_' || runes[i] == '-' || runes[i] == '.' || runes[i] == '/' {
			end = i
		}
		if end > w {
			words = append(words, strings.ToLower(string(runes[w:end])))
		}
		w = i + 1
	}
	return words
}

// inferConvention guesses a NamingConvention from the literal shape of
// ident, used when the caller has not configured one explicitly.
func inferConvention(ident string) NamingConvention {
	switch {
	case strings.Contains(ident, "-"):
		return HyphenSeparator
	case strings.Contains(ident, "_"):
		return UnderscoreSeparator
	case len(ident) > 0 && unicode.IsUpper(rune(ident[0])):
		return PascalCase
	default:
		return CamelCase
	}
}

// singularize returns a best-effort singular form of word using a small
// table of common English plural endings plus a short irregular-plural
// list; see DESIGN.md for why this stays hand-rolled instead of pulling
// in an inflection library.
func singularize(word string) string {
	lw := strings.ToLower(word)
	if s, ok := irregularPlurals[lw]; ok {
		return s
	}
	switch {
	case strings.HasSuffix(lw, "ies") && len(lw) > 3:
		return lw[:len(lw)-3] + "y"
	case strings.HasSuffix(lw, "ses") && len(lw) > 3:
		return lw[:len(lw)-2]
	case strings.HasSuffix(lw, "ves") && len(lw) > 3:
		return lw[:len(lw)-3] + "f"
	case strings.HasSuffix(lw, "s") && !strings.HasSuffix(lw, "ss") && len(lw) > 1:
		return lw[:len(lw)-1]
	default:
		return lw
	}
}

var irregularPlurals = map[string]string{
	"children": "child",
	"people":   "person",
	"men":      "man",
	"women":    "woman",
	"data":     "datum",
	"indices":  "index",
	"matrices": "matrix",
}

// CandidateTypeNames generates the candidate type names for a container:
// given a container word-segmented by convention, emit
// "[suffix_i...last]" joined by "__" for every i, plus the full word list
// with its last word singularized. Names are returned lowercased,
// most-specific first.
func CandidateTypeNames(container string, convention NamingConvention) []string {
	if convention == "" {
		convention = inferConvention(container)
	}
	words := splitWords(container, convention)
	if len(words) == 0 {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for i := range words {
		add(strings.Join(words[i:], "__"))
	}
	if len(words) > 1 {
		singularTail := append(append([]string{}, words[:len(words)-1]...), singularize(words[len(words)-1]))
		add(strings.Join(singularTail, "__"))
	} else {
		add(singularize(words[0]))
	}

	return out
}

// joinConvention rejoins segmented words per convention, using
// iancoleman/strcase for the convention-specific join.
func joinConvention(words []string, convention NamingConvention) string {
	joined := strings.Join(words, " ")
	switch convention {
	case PascalCase:
		return strcase.ToCamel(joined)
	case CamelCase:
		return strcase.ToLowerCamel(joined)
	case HyphenSeparator:
		return strings.ReplaceAll(strcase.ToSnake(joined), "_", "-")
	case UnderscoreSeparator:
		return strcase.ToSnake(joined)
	default:
		return strcase.ToLowerCamel(joined)
	}
}

// --- Dynamic Object Naming ---

// dynamicObjectNameSplitChars are the characters a response/body-input
// variable name's segments are split on before being lowercased and
// rejoined with "_".
const dynamicObjectNameSplitChars = "{}/.-:$"

func splitForVariableName(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(dynamicObjectNameSplitChars, r)
	})
}

// ResponseVariableName computes the deterministic variable name for a
// response/body-input producer from (requestId, accessPath): lowercase
// join with "_" of the endpoint segments (split on "{ } / . - : $" and
// "__"), then the method name lowercased, then the access-path parts
// (same split). header=true appends the literal "header" segment to
// disambiguate header producers from body producers.
func ResponseVariableName(id RequestId, path AccessPath, header bool) string {
	var parts []string
	for _, seg := range splitForVariableName(id.Endpoint) {
		for _, sub := range strings.Split(seg, "__") {
			if sub != "" {
				parts = append(parts, strings.ToLower(sub))
			}
		}
	}
	parts = append(parts, strings.ToLower(string(id.Method)))
	for _, seg := range path {
		for _, sub := range splitForVariableName(seg) {
			for _, s2 := range strings.Split(sub, "__") {
				if s2 != "" {
					parts = append(parts, strings.ToLower(s2))
				}
			}
		}
	}
	if header {
		parts = append(parts, "header")
	}
	return strings.Join(parts, "_")
}

// OrderingVariableName computes "__ordering__" + common endpoint prefix
// segments + source-distinct segments + target-distinct segments for an
// ordering constraint between two requests.
func OrderingVariableName(source, target RequestId) string {
	srcSegs := splitForVariableName(source.Endpoint)
	tgtSegs := splitForVariableName(target.Endpoint)

	common := 0
	for common < len(srcSegs) && common < len(tgtSegs) && srcSegs[common] == tgtSegs[common] {
		common++
	}

	var parts []string
	parts = append(parts, "__ordering__")
	for _, seg := range srcSegs[:common] {
		parts = append(parts, strings.ToLower(seg))
	}
	for _, seg := range srcSegs[common:] {
		parts = append(parts, strings.ToLower(seg))
	}
	parts = append(parts, strings.ToLower(string(source.Method)))
	for _, seg := range tgtSegs[common:] {
		parts = append(parts, strings.ToLower(seg))
	}
	parts = append(parts, strings.ToLower(string(target.Method)))

	return strings.Join(parts, "_")
}

// UuidSuffixPrefix computes the "uuid-suffix prefix value": the
// payload name filtered to letters, lowercased, truncated to 10
// characters; if empty, the payload name as-is.
func UuidSuffixPrefix(payloadName string) string {
	var sb strings.Builder
	for _, r := range payloadName {
		if unicode.IsLetter(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	s := sb.String()
	if s == "" {
		return payloadName
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
