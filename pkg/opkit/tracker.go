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
	"k8s.io/apimachinery/pkg/types"
)

// changeTracker records the last successfully reconciled generation per UID,
// so a controller that patches its own status subresource doesn't loop on
// the Modified event that patch produces. Like eventQueue, it relies on the
// owning Controller's mutex for safety.
type changeTracker struct {
	lastProcessedGen map[types.UID]int64
}

func newChangeTracker() *changeTracker {
	return &changeTracker{lastProcessedGen: make(map[types.UID]int64)}
}

// isAlreadyHandled reports whether r's generation has already been
// successfully reconciled. When discard is false the gate is disabled and
// this always returns false.
func (t *changeTracker) isAlreadyHandled(r Resource, discard bool) bool {
	if !discard {
		return false
	}
	gen := r.GetGeneration()
	if gen == 0 {
		// No generation is present on this wire payload; nothing to
		// compare against.
		return false
	}
	last, ok := t.lastProcessedGen[r.GetUID()]
	return ok && last >= gen
}

// trackHandled records r's generation as successfully reconciled.
func (t *changeTracker) trackHandled(r Resource) {
	if gen := r.GetGeneration(); gen != 0 {
		t.lastProcessedGen[r.GetUID()] = gen
	}
}

// trackDeleted forgets r; called after the Delete hook succeeds, before the
// finalizer is removed.
func (t *changeTracker) trackDeleted(r Resource) {
	delete(t.lastProcessedGen, r.GetUID())
}
