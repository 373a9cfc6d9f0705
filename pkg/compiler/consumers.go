// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

// ParameterKind discriminates which part of a request a Consumer occupies.
type ParameterKind string

const (
	ParamPath   ParameterKind = "Path"
	ParamQuery  ParameterKind = "Query"
	ParamHeader ParameterKind = "Header"
	ParamBody   ParameterKind = "Body"
)

// ResourceReferenceKind discriminates the ResourceReference tagged union
// embedded in ApiResource.
type ResourceReferenceKind string

const (
	RefPath   ResourceReferenceKind = "PathResource"
	RefQuery  ResourceReferenceKind = "QueryResource"
	RefHeader ResourceReferenceKind = "HeaderResource"
	RefBody   ResourceReferenceKind = "BodyResource"
)

// ResourceReference is the tagged variant:
//
//	PathResource{name, pathToParameter, responsePath}
//	QueryResource{name}
//	HeaderResource{name}
//	BodyResource{name, fullPath}
type ResourceReference struct {
	Kind ResourceReferenceKind `json:"kind"`
	Name string                `json:"name"`

	// PathResource only.
	PathToParameter AccessPath `json:"pathToParameter,omitempty"`
	ResponsePath    AccessPath `json:"responsePath,omitempty"`

	// BodyResource only.
	FullPath AccessPath `json:"fullPath,omitempty"`
}

func PathResource(name string, pathToParameter, responsePath AccessPath) ResourceReference {
	return ResourceReference{Kind: RefPath, Name: name, PathToParameter: pathToParameter, ResponsePath: responsePath}
}

func QueryResource(name string) ResourceReference {
	return ResourceReference{Kind: RefQuery, Name: name}
}

func HeaderResource(name string) ResourceReference {
	return ResourceReference{Kind: RefHeader, Name: name}
}

func BodyResource(name string, fullPath AccessPath) ResourceReference {
	return ResourceReference{Kind: RefBody, Name: name, FullPath: fullPath}
}

// ApiResource identifies a value position (consumer- or producer-side)
// within a request.
type ApiResource struct {
	RequestId         RequestId         `json:"requestId"`
	Reference         ResourceReference `json:"resourceReference"`
	PrimitiveType     PrimitiveType     `json:"primitiveType"`
	NamingConvention  NamingConvention  `json:"namingConvention,omitempty"`

	DerivedContainerName     string `json:"derivedContainerName,omitempty"`
	DerivedBodyContainerName string `json:"derivedBodyContainerName,omitempty"`

	// CandidateTypeNames, most specific first.
	CandidateTypeNames []string `json:"candidateTypeNames,omitempty"`
}

// Name returns the resource's name regardless of reference kind.
func (r ApiResource) Name() string { return r.Reference.Name }

// AccessPath returns the access path this resource occupies within its
// request's body (BodyResource) or an empty path for non-body resources.
func (r ApiResource) AccessPath() AccessPath {
	if r.Reference.Kind == RefBody {
		return r.Reference.FullPath
	}
	return AccessPath{r.Reference.Name}
}

// Annotation is a producer-consumer equality hint, either local
// (per-operation), global (document- or user-file-level) or derived from
// an OpenAPI `links` object.
type Annotation struct {
	ProducerEndpoint    string
	ProducerMethod      Method
	ProducerResourceName string
	// ConsumerParam may be a plain resource name or, if it parsed as a
	// JSON pointer ("/a/b/c"), a ResourcePath.
	ConsumerParam     string
	ConsumerIsPointer bool

	ConsumerEndpoint string // optional: restricts the annotation to one consumer request
	ConsumerMethod   Method

	ExceptConsumerEndpoint string
	ExceptConsumerMethod   Method

	Source AnnotationSource
}

// AnnotationSource orders annotation precedence: Local > Global > Links.
type AnnotationSource int

const (
	AnnotationLocal AnnotationSource = iota
	AnnotationGlobal
	AnnotationLinks
)

// Consumer is a parameter or body property that may need a value.
type Consumer struct {
	ResourceId    ApiResource    `json:"resourceId"`
	ParameterKind ParameterKind  `json:"parameterKind"`
	Annotation    *Annotation    `json:"-"`
}

// Key returns a stable map key for deduplicating consumers by
// (requestId, parameterKind, resource name/path).
func (c Consumer) Key() string {
	return c.ResourceId.RequestId.Key() + "|" + string(c.ParameterKind) + "|" + c.ResourceId.AccessPath().String() + "|" + c.ResourceId.Name()
}
