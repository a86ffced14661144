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

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConflict(t *testing.T) {
	base := errors.New("409")
	wrapped := fmt.Errorf("replace failed: %w", &ConflictError{Err: base})

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsConflict(base))
	assert.False(t, IsConflict(nil))
}

func TestConflictErrorUnwrap(t *testing.T) {
	base := errors.New("409")
	ce := &ConflictError{Err: base}
	assert.Equal(t, base, ce.Unwrap())
	assert.Equal(t, "409", ce.Error())
}
