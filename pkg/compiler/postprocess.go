// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import "sort"

// OrderingConstraint records that source must execute before target in
// any generated test sequence, because target consumes a dynamic object
// written by source. The assembler emits these independently of any
// payload: OrderingConstraintParameter producers never materialize a
// FuzzingPayload.
type OrderingConstraint struct {
	Source RequestId
	Target RequestId
}

// WriterMark records that the leaf at Path within Request's own body (or
// one of its response headers) must be tagged as writing VariableName
// when its producing request is assembled, so a later consumer can read
// it back as a DynamicObject.
type WriterMark struct {
	Request      RequestId
	Path         AccessPath
	IsHeader     bool
	VariableName string
}

// PostProcessResult is the output of PostProcess: every resolved
// dependency rewritten into a concrete FuzzingPayload, plus the ordering
// constraints and writer marks a later Grammar Assembler pass needs to
// finish building request bodies.
type PostProcessResult struct {
	Payloads   map[string]FuzzingPayload // consumer key -> payload
	Orderings  []OrderingConstraint
	Writers    []WriterMark
}

// PostProcess turns every Dependency in deps into its final FuzzingPayload
// and derives the cross-request bookkeeping (ordering constraints, writer
// marks) the assembler needs. Unresolved dependencies (Producer ==
// nil) are reported via onUnresolved rather than aborting.
func PostProcess(deps []Dependency, onUnresolved func(Consumer)) PostProcessResult {
	res := PostProcessResult{Payloads: map[string]FuzzingPayload{}}

	orderingSeen := map[RequestId]map[RequestId]bool{}
	writerSeen := map[string]bool{}

	for _, dep := range deps {
		if dep.Unresolved() {
			if onUnresolved != nil {
				onUnresolved(dep.Consumer)
			}
			continue
		}

		payload, mark := buildPayload(dep)
		res.Payloads[dep.Consumer.Key()] = payload

		if mark != nil {
			key := mark.Request.Key() + "|" + mark.Path.String() + "|" + mark.VariableName
			if !writerSeen[key] {
				writerSeen[key] = true
				res.Writers = append(res.Writers, *mark)
			}
		}

		if oc, ok := orderingFor(dep); ok {
			if orderingSeen[oc.Source] == nil {
				orderingSeen[oc.Source] = map[RequestId]bool{}
			}
			if !orderingSeen[oc.Source][oc.Target] {
				orderingSeen[oc.Source][oc.Target] = true
				res.Orderings = append(res.Orderings, oc)
			}
		}
	}

	sort.SliceStable(res.Orderings, func(i, j int) bool {
		if res.Orderings[i].Source.Key() != res.Orderings[j].Source.Key() {
			return res.Orderings[i].Source.Key() < res.Orderings[j].Source.Key()
		}
		return res.Orderings[i].Target.Key() < res.Orderings[j].Target.Key()
	})
	sort.SliceStable(res.Writers, func(i, j int) bool {
		if res.Writers[i].Request.Key() != res.Writers[j].Request.Key() {
			return res.Writers[i].Request.Key() < res.Writers[j].Request.Key()
		}
		return res.Writers[i].Path.String() < res.Writers[j].Path.String()
	})

	return res
}

// buildPayload converts a resolved Producer into the FuzzingPayload the
// consumer's position should carry, plus a WriterMark when the chosen
// producer requires the producing side to capture a variable.
func buildPayload(dep Dependency) (FuzzingPayload, *WriterMark) {
	p := dep.Producer
	c := dep.Consumer

	switch p.Kind {
	case ProducerResponseObject, ProducerSameBodyPayload:
		variableName := ResponseVariableName(p.Resource.RequestId, p.Resource.AccessPath(), p.Resource.Reference.Kind == RefHeader)
		payload := DynamicObject(c.ResourceId.PrimitiveType, variableName, false)
		mark := &WriterMark{
			Request:      p.Resource.RequestId,
			Path:         p.Resource.AccessPath(),
			IsHeader:     p.Resource.Reference.Kind == RefHeader,
			VariableName: variableName,
		}
		return payload, mark

	case ProducerDictionaryPayload:
		return Custom(p.CustomPayloadType, p.PrimitiveType, p.Name, p.IsObject), nil

	case ProducerInputParameter:
		variableName := ResponseVariableName(p.Resource.RequestId, p.Resource.AccessPath(), p.Resource.Reference.Kind == RefHeader)
		base := Fuzzable(c.ResourceId.PrimitiveType, defaultLiteralFor(c.ResourceId.PrimitiveType))
		if p.DictionaryPayload != nil {
			dp := p.DictionaryPayload
			base = Custom(dp.CustomPayloadType, dp.PrimitiveType, dp.Name, dp.IsObject)
		}
		if p.IsWriter {
			base.DynamicObject = &DynamicObjectRef{VariableName: variableName, IsWriter: true}
		}
		return base, nil

	case ProducerOrderingConstraintParam:
		// Never realized as a payload; callers only reach here through a
		// malformed Dependency, so fall back to a plain fuzzable value.
		return Fuzzable(c.ResourceId.PrimitiveType, defaultLiteralFor(c.ResourceId.PrimitiveType)), nil

	default:
		return Fuzzable(c.ResourceId.PrimitiveType, defaultLiteralFor(c.ResourceId.PrimitiveType)), nil
	}
}

// orderingFor derives the ordering constraint implied by dep, when its
// producer lives in a request distinct from the consumer's.
func orderingFor(dep Dependency) (OrderingConstraint, bool) {
	p := dep.Producer
	switch p.Kind {
	case ProducerResponseObject, ProducerInputParameter:
		target := dep.Consumer.ResourceId.RequestId
		source := p.Resource.RequestId
		if source.Key() == target.Key() {
			return OrderingConstraint{}, false
		}
		return OrderingConstraint{Source: source, Target: target}, true
	default:
		return OrderingConstraint{}, false
	}
}
