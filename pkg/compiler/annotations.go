// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import (
	"strings"

	json "github.com/goccy/go-json"
)

// annotationFile is the on-disk JSON shape of an annotations file:
//
//	{"x-restler-global-annotations":
//	  [{"producer_endpoint": str, "producer_method": str,
//	    "producer_resource_name": str, "consumer_param": str,
//	    "except": {"consumer_endpoint": str, "consumer_method": str}?}, ...]}
type annotationFile struct {
	GlobalAnnotations []rawAnnotation `json:"x-restler-global-annotations"`
}

type rawAnnotation struct {
	ProducerEndpoint     string            `json:"producer_endpoint"`
	ProducerMethod       string            `json:"producer_method"`
	ProducerResourceName string            `json:"producer_resource_name"`
	ConsumerParam        string            `json:"consumer_param"`
	Except               *rawAnnotationExc `json:"except,omitempty"`
}

type rawAnnotationExc struct {
	ConsumerEndpoint string `json:"consumer_endpoint"`
	ConsumerMethod   string `json:"consumer_method"`
}

// ParseAnnotations decodes an annotation file into Annotation values.
// Malformed entries (missing a required field) are dropped and
// reported to onMalformed rather than aborting the parse with
// ErrMalformedAnnotation.
func ParseAnnotations(data []byte, source AnnotationSource, onMalformed func(reason string)) ([]Annotation, error) {
	var raw annotationFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newCompileError(ErrInvalidDictionary, "parse annotations: %w", err)
	}

	var out []Annotation
	for _, r := range raw.GlobalAnnotations {
		if r.ProducerEndpoint == "" || r.ProducerMethod == "" || r.ConsumerParam == "" {
			if onMalformed != nil {
				onMalformed("annotation missing producer_endpoint/producer_method/consumer_param")
			}
			continue
		}

		a := Annotation{
			ProducerEndpoint:     r.ProducerEndpoint,
			ProducerMethod:       Method(strings.ToUpper(r.ProducerMethod)),
			ProducerResourceName: r.ProducerResourceName,
			Source:               source,
		}
		if strings.HasPrefix(r.ConsumerParam, "/") {
			a.ConsumerIsPointer = true
			a.ConsumerParam = r.ConsumerParam
		} else {
			a.ConsumerParam = r.ConsumerParam
		}
		if r.Except != nil {
			a.ExceptConsumerEndpoint = r.Except.ConsumerEndpoint
			a.ExceptConsumerMethod = Method(strings.ToUpper(r.Except.ConsumerMethod))
		}
		out = append(out, a)
	}
	return out, nil
}

// Matches reports whether annotation a applies to consumer c: the consumer
// must match the annotation's consumer endpoint/method when those are set
// (an annotation that omits them applies globally), its resource name or
// JSON-pointer path must match ConsumerParam, and it must not fall under
// an Except exclusion.
func (a Annotation) Matches(c Consumer) bool {
	if a.ExceptConsumerEndpoint != "" && a.ExceptConsumerEndpoint == c.ResourceId.RequestId.Endpoint {
		if a.ExceptConsumerMethod == "" || a.ExceptConsumerMethod == c.ResourceId.RequestId.Method {
			return false
		}
	}

	if a.ConsumerEndpoint != "" && a.ConsumerEndpoint != c.ResourceId.RequestId.Endpoint {
		return false
	}
	if a.ConsumerMethod != "" && a.ConsumerMethod != c.ResourceId.RequestId.Method {
		return false
	}

	if a.ConsumerIsPointer {
		return c.ResourceId.AccessPath().String() == a.ConsumerParam
	}
	return c.ResourceId.Name() == a.ConsumerParam
}

// annotationPrecedence ranks annotation sources for priority 1
// resolution: local (per-operation) > global (doc-/user-file-level) >
// OpenAPI links.
func annotationPrecedence(a Annotation) int { return int(a.Source) }
