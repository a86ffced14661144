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

import "time"

// RetryPolicy parameterizes the bounded exponential backoff a Controller
// applies to a single event when tryHandle reports a transient failure.
type RetryPolicy struct {
	// MaxAttempts bounds the number of times tryHandle is invoked for a
	// single event. Must be >= 1.
	MaxAttempts int
	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration
	// DelayMultiplier scales the delay after each failed attempt. Must be
	// >= 1.
	DelayMultiplier float64
}

// DefaultRetryPolicy matches the defaults in spec §6: a single attempt, no
// backoff. Hosts that want retries must opt in explicitly.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     1,
	InitialDelay:    0,
	DelayMultiplier: 2,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.DelayMultiplier < 1 {
		p.DelayMultiplier = DefaultRetryPolicy.DelayMultiplier
	}
	return p
}
