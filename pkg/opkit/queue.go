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

import "k8s.io/apimachinery/pkg/types"

// eventQueue is the single-slot, coalescing queue described in spec §4.2: at
// most one pending event per UID, with a disjoint set of UIDs currently
// under reconciliation. It is not safe for concurrent use on its own — the
// owning Controller's mutex covers it and changeTracker together, per the
// single-mutex-per-controller policy in §5.
type eventQueue struct {
	pending  map[types.UID]Event
	handling map[types.UID]Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		pending:  make(map[types.UID]Event),
		handling: make(map[types.UID]Event),
	}
}

// enqueue unconditionally overwrites any prior pending value for the event's
// UID. Intermediate watch events for the same resource are redundant; only
// the terminal state matters for convergence.
func (q *eventQueue) enqueue(e Event) {
	q.pending[e.Resource.GetUID()] = e
}

// peek returns the pending event for uid without removing it.
func (q *eventQueue) peek(uid types.UID) (Event, bool) {
	e, ok := q.pending[uid]
	return e, ok
}

// dequeue reports false if a reconciliation for uid is already in flight
// (back-pressure: never start a second one); otherwise it removes and
// returns the pending event, or reports false if there isn't one.
func (q *eventQueue) dequeue(uid types.UID) (Event, bool) {
	if _, busy := q.handling[uid]; busy {
		return Event{}, false
	}
	e, ok := q.pending[uid]
	if !ok {
		return Event{}, false
	}
	delete(q.pending, uid)
	return e, true
}

// beginHandle marks uid as under reconciliation.
func (q *eventQueue) beginHandle(e Event) {
	q.handling[e.Resource.GetUID()] = e
}

// endHandle clears uid's in-flight marker.
func (q *eventQueue) endHandle(e Event) {
	delete(q.handling, e.Resource.GetUID())
}
