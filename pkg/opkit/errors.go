// Copyright 2025 The Kube Resource Orchestrator Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package opkit

import "errors"

// ConflictError wraps a failure the injected Client identifies as an HTTP
// 409 Conflict. tryHandle treats it as handled: the watch stream will
// deliver the object's new resourceVersion on its own, and the next event
// reconciles against current state.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	if e == nil || e.Err == nil {
		return "conflict"
	}
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConflict reports whether err (or something it wraps) is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
