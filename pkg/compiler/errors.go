// Copyright 2020 The go-openapi-tools Authors
// SPDX-License-Identifier: BSD-3-Clause

package compiler

import "fmt"

// ErrorKind enumerates the compiler's error kinds and their disposition.
// Fatal kinds abort Compile with a non-zero exit; non-fatal kinds
// are logged (or surfaced in unresolved_dependencies.json) and the
// compile continues.
type ErrorKind string

const (
	ErrInvalidSpecFile             ErrorKind = "InvalidSpecFile"
	ErrUnsupportedType              ErrorKind = "UnsupportedType"
	ErrMalformedAnnotation          ErrorKind = "MalformedAnnotation"
	ErrMalformedExample             ErrorKind = "MalformedExample"
	ErrInvalidDictionary            ErrorKind = "InvalidDictionary"
	ErrInconsistentProducer         ErrorKind = "InconsistentProducer"
	ErrUnresolvedConsumer           ErrorKind = "UnresolvedConsumer"
	ErrDuplicateEndpointAcrossSpecs ErrorKind = "DuplicateEndpointAcrossSpecs"
	ErrUnsupportedRecursiveExample  ErrorKind = "UnsupportedRecursiveExample"
)

// fatalKinds lists the ErrorKinds whose disposition is fatal; everything
// else is logged and the compile continues.
var fatalKinds = map[ErrorKind]bool{
	ErrInvalidSpecFile:             true,
	ErrUnsupportedType:             true,
	ErrInvalidDictionary:           true,
	ErrInconsistentProducer:        true,
	ErrDuplicateEndpointAcrossSpecs: true,
}

// IsFatal reports whether kind aborts the whole compile
func (k ErrorKind) IsFatal() bool { return fatalKinds[k] }

// CompileError wraps an underlying error with its ErrorKind so callers
// (and the CLI) can distinguish fatal from non-fatal failures via
// errors.As without parsing message text.
type CompileError struct {
	Kind ErrorKind
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

func newCompileError(kind ErrorKind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Err: fmt.Errorf(format, args...)}
}
