// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import "strings"

// PathToken is one segment of a tokenized endpoint template: either a
// literal path component or a parameter placeholder bound to a payload.
type PathToken struct {
	Literal string         `json:"literal,omitempty"`
	Param   string         `json:"param,omitempty"`
	Payload FuzzingPayload `json:"payload,omitempty"`
}

func (t PathToken) isParam() bool { return t.Param != "" }

// NamedPayload pairs a query parameter or header name with its bound
// payload.
type NamedPayload struct {
	Name    string         `json:"name"`
	Payload FuzzingPayload `json:"payload"`
}

// ParameterPayloadSource tags where a query/header/body parameter group's
// payloads originated: the operation's own schema, a user-selected example
// payload, or a dictionary-injected custom payload absent from the spec.
type ParameterPayloadSource string

const (
	SourceSchema                  ParameterPayloadSource = "Schema"
	SourceExamples                ParameterPayloadSource = "Examples"
	SourceDictionaryCustomPayload ParameterPayloadSource = "DictionaryCustomPayload"
)

// ParameterList is an ordered list of named payloads belonging to one
// ParameterPayloadSource.
type ParameterList struct {
	Parameters []NamedPayload `json:"parameters"`
}

// ParameterGroup pairs a ParameterPayloadSource with the parameters it
// contributed to a query or header parameter list.
type ParameterGroup struct {
	Source     ParameterPayloadSource `json:"source"`
	Parameters ParameterList          `json:"parameters"`
}

func newParameterGroup(source ParameterPayloadSource, params []NamedPayload) ParameterGroup {
	return ParameterGroup{Source: source, Parameters: ParameterList{Parameters: params}}
}

// BodyParameterGroup is the body-category analogue of ParameterGroup: a
// Schema- or Examples-sourced group carries the (resolved) body
// PayloadTree, while a whole-body override (a dictionary __body__ entry,
// or an inlined user example) carries Example instead and no tree.
type BodyParameterGroup struct {
	Source  ParameterPayloadSource `json:"source"`
	Body    *PayloadTree           `json:"body,omitempty"`
	Example *FuzzingPayload        `json:"example,omitempty"`
}

// TokenKind discriminates the Token tagged union.
type TokenKind string

const (
	TokenRefreshable TokenKind = "Refreshable"
	TokenStatic      TokenKind = "Static"
)

// Token is the tagged variant Refreshable | Static(str): how the request
// should carry its auth token at replay time.
type Token struct {
	Kind  TokenKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

func RefreshableToken() Token { return Token{Kind: TokenRefreshable} }

func StaticToken(value string) Token { return Token{Kind: TokenStatic, Value: value} }

// FixedHeader is one literal (name, value) header pair injected during
// assembly rather than resolved from a declared parameter: Accept, Host,
// and Content-Type.
type FixedHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResponseParser lists the dynamic-object variable names a request's own
// response (body, headers) and input-producer bindings write, so later
// requests can read them back. A request with no consumed outputs carries
// a nil ResponseParser.
type ResponseParser struct {
	WriterVariables       []string `json:"writerVariables,omitempty"`
	HeaderWriterVariables []string `json:"headerWriterVariables,omitempty"`
	InputWriterVariables  []string `json:"inputWriterVariables,omitempty"`
}

func (p *ResponseParser) isEmpty() bool {
	return p == nil || (len(p.WriterVariables) == 0 && len(p.HeaderWriterVariables) == 0 && len(p.InputWriterVariables) == 0)
}

// RequestDependencyData bundles a request's response parser together with
// the ordering-constraint variables it writes (as the source of a
// constraint) or reads (as the target).
type RequestDependencyData struct {
	ResponseParser          *ResponseParser `json:"responseParser,omitempty"`
	OrderingWriterVariables []string        `json:"orderingWriterVariables,omitempty"`
	OrderingReaderVariables []string        `json:"orderingReaderVariables,omitempty"`
}

func (d *RequestDependencyData) isEmpty() bool {
	return d == nil || (d.ResponseParser.isEmpty() && len(d.OrderingWriterVariables) == 0 && len(d.OrderingReaderVariables) == 0)
}

// RequestMetadata carries the document-declared facts about a request that
// shape how a fuzzing run treats it but that aren't themselves part of the
// wire request: its OpenAPI operationId and tags (for filtering/grouping
// fuzzed requests), and whether it is an Azure x-ms-long-running-operation,
// whose replies should be polled rather than treated as terminal.
type RequestMetadata struct {
	OperationId          string   `json:"operationId,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	LongRunningOperation bool     `json:"longRunningOperation,omitempty"`
}

func (m *RequestMetadata) isEmpty() bool {
	return m == nil || (m.OperationId == "" && len(m.Tags) == 0 && !m.LongRunningOperation)
}

// Request is one HTTP request template in the assembled Grammar.
type Request struct {
	Id       RequestId `json:"id"`
	Method   Method    `json:"method"`
	BasePath string    `json:"basePath,omitempty"`

	Path []PathToken `json:"path"`

	// XMsPathQuery carries the reconstructed "?param1=...&param2=..."
	// query fragment for a request whose RequestId.XMsPath names the
	// original query-bearing path template.
	XMsPathQuery []FuzzingPayload `json:"xMsPathQuery,omitempty"`

	QueryParameters  []ParameterGroup     `json:"queryParameters,omitempty"`
	HeaderParameters []ParameterGroup     `json:"headerParameters,omitempty"`
	BodyParameters   []BodyParameterGroup `json:"bodyParameters,omitempty"`

	Token       Token         `json:"token"`
	HttpVersion string        `json:"httpVersion,omitempty"`
	Headers     []FixedHeader `json:"headers,omitempty"`

	DependencyData *RequestDependencyData `json:"dependencyData,omitempty"`
	Metadata       *RequestMetadata       `json:"requestMetadata,omitempty"`
}

// tokenizePath splits an OpenAPI path template into literal and {param}
// tokens, each parameter carrying its own bound FuzzingPayload once the
// request is assembled.
func tokenizePath(endpoint string) []PathToken {
	var tokens []PathToken
	segs := strings.Split(strings.Trim(endpoint, "/"), "/")
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			tokens = append(tokens, PathToken{Param: seg[1 : len(seg)-1]})
		} else {
			tokens = append(tokens, PathToken{Literal: seg})
		}
	}
	return tokens
}

// xMsPathQuerySegment is one "name=value" fragment of an x-ms-paths
// template's query portion, in document order.
type xMsPathQuerySegment struct {
	name      string // query key, e.g. "opName"
	paramName string // "" if the value is a plain literal, not a {param}
	literal   string // the literal value, when paramName == ""
}

// parseXMsPathQuery splits the query portion of an x-ms-paths original
// path template ("/a/b?op={opName}&k=v") into ordered segments,
// preserving the literal "key=value" layout so it can be rebuilt
// byte-for-byte with resolved payloads spliced in for {param} values.
func parseXMsPathQuery(xMsPath string) []xMsPathQuerySegment {
	idx := strings.IndexByte(xMsPath, '?')
	if idx < 0 {
		return nil
	}
	raw := xMsPath[idx+1:]
	if raw == "" {
		return nil
	}
	var out []xMsPathQuerySegment
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		seg := xMsPathQuerySegment{name: kv[0]}
		if len(kv) == 2 {
			v := kv[1]
			if strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") {
				seg.paramName = v[1 : len(v)-1]
			} else {
				seg.literal = v
			}
		}
		out = append(out, seg)
	}
	return out
}

// AssembleOptions bundles the per-compile, mostly-request-independent
// inputs AssembleRequest needs beyond one operation's own consumers and
// resolved payloads.
type AssembleOptions struct {
	// GlobalDictionary is the (possibly uuid-suffix-extended) global
	// dictionary. The dictionary in effect for this request is
	// PerEndpointDictionary when set, else GlobalDictionary.
	GlobalDictionary Dictionary
	PerEndpointDictionary *Dictionary

	BasePath            string
	HttpVersion         string
	UseRefreshableToken bool

	// TrackFuzzedParameterNames, when set, annotates fallback Fuzzable
	// payloads with the originating parameter name.
	TrackFuzzedParameterNames bool

	// DataFuzzing and UseAllExamplePayloads together decide whether a
	// body's schema tree or its examples are emitted: schema is always
	// emitted when DataFuzzing is set or no example is available;
	// otherwise the first applicable example is emitted and the schema
	// is skipped, unless UseAllExamplePayloads keeps both.
	DataFuzzing           bool
	UseAllExamplePayloads bool

	// Orderings is the full set of ordering constraints derived during
	// post-processing, used to populate RequestDependencyData's ordering
	// writer/reader variable lists for this request's id.
	Orderings []OrderingConstraint

	// Examples lists the named example payloads discovered for this
	// request (already resolved to an inline JSON value by the caller);
	// each contributes one Examples-sourced BodyParameterGroup.
	Examples []NamedExample

	// OperationId, Tags, and LongRunningOperation carry the operation's own
	// OpenAPI metadata through to the assembled Request's Metadata.
	OperationId          string
	Tags                 []string
	LongRunningOperation bool
}

func (o AssembleOptions) dictionary() *Dictionary {
	if o.PerEndpointDictionary != nil {
		return o.PerEndpointDictionary
	}
	return &o.GlobalDictionary
}

// AssembleRequest builds one Request template from an operation's
// collected consumers, its body PayloadTree, the resolved payload for
// each consumer (keyed by Consumer.Key()), and the writer marks produced
// for its own producing positions.
func AssembleRequest(id RequestId, method Method, consumers []Consumer, bodyTree PayloadTree, hasBody bool, payloads map[string]FuzzingPayload, writers []WriterMark, opts AssembleOptions) Request {
	req := Request{
		Id:          id,
		Method:      method,
		BasePath:    opts.BasePath,
		Path:        tokenizePath(id.Endpoint),
		HttpVersion: opts.HttpVersion,
	}
	if req.HttpVersion == "" {
		req.HttpVersion = "HTTP/1.1"
	}

	dict := opts.dictionary()
	global := &opts.GlobalDictionary

	// --- Step 1: path assembly ---
	byParam := map[string]FuzzingPayload{}
	var schemaQuery, schemaHeaders []NamedPayload
	var specHadContentLength bool
	for _, c := range consumers {
		payload, ok := payloads[c.Key()]
		if !ok {
			payload = fallbackFuzzable(c, opts)
		}
		switch c.ParameterKind {
		case ParamPath:
			byParam[c.ResourceId.Name()] = payload
		case ParamQuery:
			schemaQuery = append(schemaQuery, NamedPayload{Name: c.ResourceId.Name(), Payload: payload})
		case ParamHeader:
			if strings.EqualFold(c.ResourceId.Name(), "Content-Length") {
				specHadContentLength = true
				continue // Step 2: strip any spec-declared Content-Length.
			}
			schemaHeaders = append(schemaHeaders, NamedPayload{Name: c.ResourceId.Name(), Payload: payload})
		}
	}

	// Path-assembly fallback: a path parameter absent from the declared
	// path consumers (e.g. one only declared as a query parameter on an
	// x-ms-paths-rewritten plain endpoint) may still be resolved from the
	// query-kind consumers when xMsPath is set.
	if id.XMsPath != "" {
		for _, q := range schemaQuery {
			if _, ok := byParam[q.Name]; !ok {
				byParam[q.Name] = q.Payload
			}
		}
	}

	for i, tok := range req.Path {
		if !tok.isParam() {
			continue
		}
		if p, ok := byParam[tok.Param]; ok {
			req.Path[i].Payload = p
		} else {
			req.Path[i].Payload = Constant(PT(PrimitiveString), "{"+tok.Param+"}")
		}
	}

	// --- Steps 2-3: header/query dictionary injection ---
	headerNames := namedPayloadNameSet(schemaHeaders)
	injectedHeaders := dictInjectedHeaders(dict, headerNames, specHadContentLength)
	queryNames := namedPayloadNameSet(schemaQuery)
	injectedQuery := uninjectedCustomPayloads(dict.CustomPayloadQuery, CustomQuery, queryNames, "")

	req.HeaderParameters = buildParameterGroups(schemaHeaders, injectedHeaders)
	req.QueryParameters = buildParameterGroups(schemaQuery, injectedQuery)

	// --- Step 8: x-ms-paths query reconstruction ---
	if id.XMsPath != "" {
		req.XMsPathQuery, req.QueryParameters = reconstructXMsPathQuery(id.XMsPath, byParam, req.QueryParameters)
	}

	// --- Step 4: body assembly ---
	writerByPath := map[string]string{}
	writerHeaderByName := map[string]string{}
	for _, w := range writers {
		if w.Request.Key() != id.Key() {
			continue
		}
		if w.IsHeader {
			writerHeaderByName[w.Path.String()] = w.VariableName
		} else {
			writerByPath[w.Path.String()] = w.VariableName
		}
	}
	req.HeaderParameters = markHeaderWriters(req.HeaderParameters, writerHeaderByName)

	if hasBody {
		req.BodyParameters = assembleBodyParameters(id, consumers, bodyTree, payloads, writerByPath, dict, global, opts.Examples, opts.DataFuzzing, opts.UseAllExamplePayloads)
	}

	// --- Step 5: Content-Type header ---
	contentType := "application/json"
	if v, ok := dictHasHeaderPayload(dict, "Content-Type"); ok {
		contentType = v
	}

	// --- Step 6: fixed headers, default token ---
	req.Headers = []FixedHeader{
		{Name: "Accept", Value: "application/json"},
		{Name: "Host", Value: hostFromBasePath(opts.BasePath)},
		{Name: "Content-Type", Value: contentType},
	}
	if opts.UseRefreshableToken {
		req.Token = RefreshableToken()
	} else {
		req.Token = StaticToken("")
	}

	// --- Step 7: RequestDependencyData ---
	req.DependencyData = buildDependencyData(id, req, writerByPath, writerHeaderByName, opts.Orderings)

	meta := &RequestMetadata{OperationId: opts.OperationId, Tags: opts.Tags, LongRunningOperation: opts.LongRunningOperation}
	if !meta.isEmpty() {
		req.Metadata = meta
	}

	return req
}

func fallbackFuzzable(c Consumer, opts AssembleOptions) FuzzingPayload {
	p := Fuzzable(c.ResourceId.PrimitiveType, defaultLiteralFor(c.ResourceId.PrimitiveType))
	if opts.TrackFuzzedParameterNames {
		p.ParameterName = c.ResourceId.Name()
	}
	return p
}

func namedPayloadNameSet(params []NamedPayload) map[string]bool {
	out := map[string]bool{}
	for _, p := range params {
		out[strings.ToLower(p.Name)] = true
	}
	return out
}

// dictInjectedHeaders computes the dictionary-injected header custom
// payloads: every custom_payload_header[_unquoted] entry absent from the
// spec (Content-Type is never injected this way), plus, when both the
// spec and the dictionary mention Content-Length, an injected
// Content-Length custom payload.
func dictInjectedHeaders(dict *Dictionary, existingNames map[string]bool, specHadContentLength bool) []NamedPayload {
	names := existingNames
	if specHadContentLength {
		// The spec's Content-Length was stripped from existingNames; it is
		// injected once below, not as an entry absent from the spec.
		names = map[string]bool{"content-length": true}
		for n := range existingNames {
			names[n] = true
		}
	}
	var injected []NamedPayload
	injected = append(injected, uninjectedCustomPayloads(dict.CustomPayloadHeader, CustomHeader, names, "Content-Type")...)
	injected = append(injected, uninjectedCustomPayloads(dict.CustomPayloadHeaderUnquoted, CustomHeader, names, "Content-Type")...)

	if specHadContentLength {
		if v, ok := dictHasHeaderPayload(dict, "Content-Length"); ok {
			injected = append(injected, NamedPayload{
				Name:    "Content-Length",
				Payload: Custom(CustomHeader, PT(PrimitiveString), "Content-Length", isObjectValue(v)),
			})
		}
	}
	return injected
}

func buildParameterGroups(schema, injected []NamedPayload) []ParameterGroup {
	var groups []ParameterGroup
	groups = append(groups, newParameterGroup(SourceSchema, schema))
	if len(injected) > 0 {
		groups = append(groups, newParameterGroup(SourceDictionaryCustomPayload, injected))
	}
	return groups
}

func markHeaderWriters(groups []ParameterGroup, writerHeaderByName map[string]string) []ParameterGroup {
	if len(writerHeaderByName) == 0 {
		return groups
	}
	out := make([]ParameterGroup, len(groups))
	for gi, g := range groups {
		params := make([]NamedPayload, len(g.Parameters.Parameters))
		for i, h := range g.Parameters.Parameters {
			params[i] = h
			if varName, ok := writerHeaderByName[AccessPath{h.Name}.String()]; ok {
				params[i].Payload = markWriter(h.Payload, varName)
			}
		}
		out[gi] = ParameterGroup{Source: g.Source, Parameters: ParameterList{Parameters: params}}
	}
	return out
}

// reconstructXMsPathQuery splits out any query parameters whose name
// appears in xMsPath's query portion from groups, and builds the ordered
// FuzzingPayload sequence representing the reconstructed
// "?name=value&..." fragment, preserving the original literal layout.
func reconstructXMsPathQuery(xMsPath string, byParam map[string]FuzzingPayload, groups []ParameterGroup) ([]FuzzingPayload, []ParameterGroup) {
	segs := parseXMsPathQuery(xMsPath)
	if len(segs) == 0 {
		return nil, groups
	}

	spliced := map[string]bool{}
	for _, s := range segs {
		if s.paramName != "" {
			spliced[strings.ToLower(s.paramName)] = true
		}
	}

	remaining := make([]ParameterGroup, len(groups))
	removedPayload := map[string]FuzzingPayload{}
	for gi, g := range groups {
		var kept []NamedPayload
		for _, p := range g.Parameters.Parameters {
			if spliced[strings.ToLower(p.Name)] {
				removedPayload[strings.ToLower(p.Name)] = p.Payload
				continue
			}
			kept = append(kept, p)
		}
		remaining[gi] = ParameterGroup{Source: g.Source, Parameters: ParameterList{Parameters: kept}}
	}

	var parts []FuzzingPayload
	parts = append(parts, Constant(PT(PrimitiveString), "?"))
	for i, s := range segs {
		if i > 0 {
			parts = append(parts, Constant(PT(PrimitiveString), "&"))
		}
		parts = append(parts, Constant(PT(PrimitiveString), s.name+"="))
		switch {
		case s.paramName == "":
			parts = append(parts, Constant(PT(PrimitiveString), s.literal))
		default:
			if p, ok := removedPayload[strings.ToLower(s.paramName)]; ok {
				parts = append(parts, p)
			} else if p, ok := byParam[s.paramName]; ok {
				parts = append(parts, p)
			} else {
				parts = append(parts, Constant(PT(PrimitiveString), "{"+s.paramName+"}"))
			}
		}
	}
	return parts, remaining
}

// assembleBodyParameters implements the body assembly pass: a dictionary
// __body__ override collapses the whole body to a single Custom payload;
// otherwise the schema-derived body tree has its leaves' payloads
// resolved, and any user-supplied inline example contributes its own
// Examples-sourced whole-body override group.
func assembleBodyParameters(id RequestId, consumers []Consumer, bodyTree PayloadTree, payloads map[string]FuzzingPayload, writerByPath map[string]string, perEndpoint, global *Dictionary, examples []NamedExample, dataFuzzing, useAllExamples bool) []BodyParameterGroup {
	if key, ok := bodyOverride(id, perEndpoint, global); ok {
		override := Custom(CustomString, PT(PrimitiveObject), key, true)
		return []BodyParameterGroup{{Source: SourceDictionaryCustomPayload, Example: &override}}
	}

	var exampleGroups []BodyParameterGroup
	for _, ex := range examples {
		if ex.Inline == nil {
			continue
		}
		literal, err := marshalExampleLiteral(ex.Inline)
		if err != nil {
			continue
		}
		payload := Constant(PT(PrimitiveObject), literal)
		exampleGroups = append(exampleGroups, BodyParameterGroup{Source: SourceExamples, Example: &payload})
		if !useAllExamples {
			break
		}
	}

	emitSchema := dataFuzzing || len(exampleGroups) == 0 || useAllExamples
	var groups []BodyParameterGroup
	if emitSchema {
		bodyKeyByPath := map[string]string{}
		for _, c := range consumers {
			if c.ParameterKind == ParamBody {
				bodyKeyByPath[c.ResourceId.AccessPath().String()] = c.Key()
			}
		}
		body := rewriteBodyPayloads(bodyTree, nil, payloads, bodyKeyByPath, writerByPath)
		groups = append(groups, BodyParameterGroup{Source: SourceSchema, Body: &body})
	}
	groups = append(groups, exampleGroups...)
	return groups
}

// rewriteBodyPayloads walks tree, replacing every leaf's Payload with the
// resolved FuzzingPayload bound to the matching body Consumer (looked up
// by access path), and tagging writer positions with their dynamic object
// variable name.
func rewriteBodyPayloads(tree PayloadTree, path AccessPath, payloads map[string]FuzzingPayload, bodyKeyByPath, writerByPath map[string]string) PayloadTree {
	if tree.IsLeaf() {
		out := tree
		if key, ok := bodyKeyByPath[path.String()]; ok {
			if p, ok := payloads[key]; ok {
				out.Payload = p
			}
		}
		if varName, ok := writerByPath[path.String()]; ok {
			out.Payload = markWriter(out.Payload, varName)
		}
		return out
	}

	out := tree
	out.Children = make([]PayloadTree, len(tree.Children))
	for i, child := range tree.Children {
		seg := child.Name
		if tree.PropertyType == PropertyArray {
			seg = arrayIndexSegment(i)
		}
		out.Children[i] = rewriteBodyPayloads(child, path.Child(seg), payloads, bodyKeyByPath, writerByPath)
	}
	return out
}

func markWriter(p FuzzingPayload, variableName string) FuzzingPayload {
	p.DynamicObject = &DynamicObjectRef{VariableName: variableName, IsWriter: true}
	return p
}

// hostFromBasePath extracts the host[:port] component from a base path
// that may be a full origin ("https://api.example.com/v1") or a bare
// path; a bare path yields "".
func hostFromBasePath(basePath string) string {
	rest := basePath
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	} else {
		return ""
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

// buildDependencyData assembles RequestDependencyData: the response
// parser lists every writer variable this request's own
// body/header positions mark (only ever the ones referenced
// by name within req), input-producer writer variables carried on any of
// req's own parameter payloads, and the ordering-constraint writer/reader
// variables for orderings sourced from or targeting this request's id.
func buildDependencyData(id RequestId, req Request, writerByPath, writerHeaderByName map[string]string, orderings []OrderingConstraint) *RequestDependencyData {
	parser := &ResponseParser{}
	for _, v := range writerByPath {
		parser.WriterVariables = append(parser.WriterVariables, v)
	}
	for _, v := range writerHeaderByName {
		parser.HeaderWriterVariables = append(parser.HeaderWriterVariables, v)
	}
	parser.InputWriterVariables = collectInputWriterVariables(req)
	sortStrings(parser.WriterVariables)
	sortStrings(parser.HeaderWriterVariables)
	sortStrings(parser.InputWriterVariables)

	data := &RequestDependencyData{}
	if !parser.isEmpty() {
		data.ResponseParser = parser
	}
	for _, oc := range orderings {
		name := OrderingVariableName(oc.Source, oc.Target)
		if oc.Source.Key() == id.Key() {
			data.OrderingWriterVariables = append(data.OrderingWriterVariables, name)
		}
		if oc.Target.Key() == id.Key() {
			data.OrderingReaderVariables = append(data.OrderingReaderVariables, name)
		}
	}

	if data.isEmpty() {
		return nil
	}
	return data
}

// collectInputWriterVariables scans every payload position req carries
// for a DynamicObject writer mark left by an input-producer annotation
// binding, distinct from the response/header writer marks already
// tracked separately.
func collectInputWriterVariables(req Request) []string {
	var out []string
	add := func(p FuzzingPayload) {
		if p.DynamicObject != nil && p.DynamicObject.IsWriter {
			out = append(out, p.DynamicObject.VariableName)
		}
	}
	for _, tok := range req.Path {
		add(tok.Payload)
	}
	for _, g := range req.QueryParameters {
		for _, p := range g.Parameters.Parameters {
			add(p.Payload)
		}
	}
	for _, g := range req.HeaderParameters {
		for _, p := range g.Parameters.Parameters {
			add(p.Payload)
		}
	}
	for _, g := range req.BodyParameters {
		if g.Body != nil {
			g.Body.Walk(func(_ AccessPath, node PayloadTree) {
				if node.IsLeaf() {
					add(node.Payload)
				}
			})
		}
		if g.Example != nil {
			add(*g.Example)
		}
	}
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// AssembleGrammar collects already-built Request templates and the
// ordering constraints derived during post-processing into the final
// Grammar, keeping Requests in the order given.
func AssembleGrammar(requests []Request, orderings []OrderingConstraint) Grammar {
	return Grammar{Requests: requests, Orderings: orderings}
}

// Grammar is the compiled output: an ordered sequence of Request
// templates plus the ordering constraints that must hold between them.
// Compile assembles Requests sorted by endpoint path and then by a fixed
// method order, not in the source document's operation order;
// ordering constraints are additional edges layered on top.
type Grammar struct {
	Requests  []Request             `json:"requests"`
	Orderings []OrderingConstraint  `json:"orderingConstraints,omitempty"`
}
