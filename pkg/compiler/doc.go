// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compiler compiles an OpenAPI/Swagger document, together with user
// annotations, examples and a fuzzing dictionary, into a request fuzzing
// Grammar: a sequence of structured HTTP request templates in which every
// parameter position is bound to a fuzzable primitive, a constant, a
// dictionary payload, or a dynamic object referencing another request's
// response.
//
// The package does not execute the grammar it produces and does not
// serialize its own output into the target execution engine's runtime
// format; it stops at the Grammar data model and the JSON artifacts
// described in Compile's documentation.
package compiler
