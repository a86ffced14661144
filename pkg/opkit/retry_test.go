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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyWithDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, DefaultRetryPolicy.MaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultRetryPolicy.DelayMultiplier, p.DelayMultiplier)
	assert.Equal(t, time.Duration(0), p.InitialDelay)
}

func TestRetryPolicyPreservesExplicitValues(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: 10 * time.Millisecond, DelayMultiplier: 3}.withDefaults()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 3.0, p.DelayMultiplier)
}

func TestRetryPolicyRejectsSubUnitMultiplier(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, DelayMultiplier: 0.5}.withDefaults()
	assert.Equal(t, DefaultRetryPolicy.DelayMultiplier, p.DelayMultiplier)
}
