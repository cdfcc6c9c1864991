/*
Copyright 2025 Prodflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jira

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a remote failure so callers can decide between
// retrying later, fixing their input, or fixing their configuration.
type ErrorKind string

const (
	// KindUnavailable covers network errors and 5xx responses. Transient;
	// safe to retry later, never fatal to local state.
	KindUnavailable ErrorKind = "REMOTE_UNAVAILABLE"
	// KindRejected means Jira refused the payload (4xx validation).
	// Permanent until the caller fixes the input.
	KindRejected ErrorKind = "REMOTE_REJECTED"
	// KindNotFound is a 404 for the referenced issue.
	KindNotFound ErrorKind = "REMOTE_NOT_FOUND"
	// KindUnauthorized is a 401/403, a credentials or permission problem.
	KindUnauthorized ErrorKind = "REMOTE_UNAUTHORIZED"
	// KindTransitionUnavailable means the requested workflow transition is
	// not offered for the issue's current state. Permanent for that state;
	// must not be retried blindly.
	KindTransitionUnavailable ErrorKind = "TRANSITION_UNAVAILABLE"
)

// RemoteError is the error type for every failure crossing the Jira boundary.
type RemoteError struct {
	Kind       ErrorKind
	Op         string // remote operation, e.g. "create_issue"
	Key        string // issue key, when one was involved
	StatusCode int    // HTTP status, 0 for transport errors
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("jira %s: %s", e.Op, e.Kind)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (issue %s)", msg, e.Key)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a transient remote failure.
func IsUnavailable(err error) bool {
	return kindOf(err) == KindUnavailable
}

// IsTransitionUnavailable reports whether err is a workflow-state mismatch.
func IsTransitionUnavailable(err error) bool {
	return kindOf(err) == KindTransitionUnavailable
}

func kindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// newTransitionUnavailable builds the diagnostic error for an unsatisfiable
// transition request. The message enumerates the live alternatives so an
// operator can see what the workflow currently offers.
func newTransitionUnavailable(key, requested string, live []Transition) *RemoteError {
	alternatives := make([]string, 0, len(live))
	for _, t := range live {
		alternatives = append(alternatives, fmt.Sprintf("%s:%s->%s", t.ID, t.Name, t.To))
	}
	return &RemoteError{
		Kind: KindTransitionUnavailable,
		Op:   "resolve_transition",
		Key:  key,
		Message: fmt.Sprintf("transition %q is not available; live transitions: [%s]",
			requested, strings.Join(alternatives, ", ")),
	}
}
