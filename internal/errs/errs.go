// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs defines the closed set of error kinds the orchestration
// core can produce, so call sites can branch on Kind via errors.As
// instead of matching on message strings.
package errs

import "fmt"

// Kind identifies a category of failure. The set is closed: every
// component in the core raises one of these, never an ad-hoc error.
type Kind string

const (
	// Validation is bad input to an agent (e.g. oversized task content).
	Validation Kind = "validation"
	// BackendUnavailable means every LLM backend candidate was exhausted.
	BackendUnavailable Kind = "backend_unavailable"
	// Timeout covers an LLM attempt, a command, or a task budget expiring.
	Timeout Kind = "timeout"
	// CommandBlocked means the safety policy refused to run a command.
	// Workers treat this as a normal (non-error) response.
	CommandBlocked Kind = "command_blocked"
	// AssignmentFailure means no eligible assignee existed after the
	// availability cascade.
	AssignmentFailure Kind = "assignment_failure"
	// ParseFailure means an LLM response could not be parsed as the
	// expected structure; usually recovered by a fallback decomposition.
	ParseFailure Kind = "parse_failure"
	// Fatal is a persistent-store I/O error or other process-level fault.
	Fatal Kind = "fatal"
)

// Error wraps a Kind with the underlying cause.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
