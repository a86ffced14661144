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
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// EventType mirrors the Kubernetes watch event types this engine reacts to.
type EventType string

const (
	// EventAdded signals that a resource was observed for the first time
	// (from a list, a watch ADDED, or a re-list after a watch restart).
	EventAdded EventType = "ADDED"
	// EventModified signals that a previously observed resource changed,
	// including status-only changes and resync deliveries.
	EventModified EventType = "MODIFIED"
	// EventDeleted is the terminal watch notification after the API server
	// actually removed the object. Finalizer-based controllers drive
	// deletion off Modified events carrying a deletionTimestamp instead;
	// see Controller.tryHandle.
	EventDeleted EventType = "DELETED"
	// EventBookmark is a periodic watch-resume marker carrying no payload.
	EventBookmark EventType = "BOOKMARK"
	// EventError signals a decode or transport failure for a single watch
	// item; it carries no usable resource.
	EventError EventType = "ERROR"
)

// Resource is the shape a custom resource must satisfy to flow through the
// engine: enough of client.Object to read and mutate metadata, and to be
// round-tripped through the injected Client. Generated Kubernetes API types
// (embedding metav1.ObjectMeta) and *unstructured.Unstructured both already
// satisfy it.
type Resource = client.Object

// Event is a single observation of a Resource, identified for queueing
// purposes by its UID.
type Event struct {
	Type     EventType
	Resource Resource
	// Err is set when Type is EventError; Resource is nil in that case.
	Err error
}
