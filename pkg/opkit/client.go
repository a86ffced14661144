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

import "context"

// RawEvent is a single item delivered by a watch stream before it has been
// decoded into a typed Resource. Object carries the wire representation
// (group/version/kind, metadata, spec, status) as a generic tree; decoding
// it into a concrete Resource is the TypeBinding's job, not the Client's —
// the JSON codec is an external collaborator per spec §1.
type RawEvent struct {
	Type   EventType
	Object map[string]interface{}
	// Err carries a transport-level failure for EventError items.
	Err error
}

// Client is the abstract Kubernetes API collaborator the engine consumes.
// The core never talks to an API server directly; every mutation and every
// watch session flows through an injected Client so the engine can be
// exercised against a fake in tests. See pkg/k8sclient for the default
// implementation backed by k8s.io/client-go's dynamic client.
//
// Namespaced and cluster-scoped operations are kept as distinct methods,
// mirroring spec §6, rather than collapsed behind an empty-namespace
// convention: it keeps the Watcher's dispatch and the default
// implementation's routing unambiguous at the call site.
type Client interface {
	// ListAndWatchCluster opens a list+watch session across all namespaces.
	// The returned channel is closed when the session ends, whether
	// cleanly (ctx cancelled) or not (stream error/EOF); the Watcher
	// distinguishes the two via ctx.Err().
	ListAndWatchCluster(ctx context.Context, group, version, plural, labelSelector string, timeoutSec int64) (<-chan RawEvent, error)
	// ListAndWatchNamespaced is the namespace-scoped equivalent.
	ListAndWatchNamespaced(ctx context.Context, group, version, namespace, plural, labelSelector string, timeoutSec int64) (<-chan RawEvent, error)
	// ReplaceCluster performs a full replace (spec/metadata, relying on
	// resourceVersion optimistic concurrency) of a cluster-scoped object.
	ReplaceCluster(ctx context.Context, group, version, plural, name string, body Resource) (Resource, error)
	// ReplaceNamespaced is the namespace-scoped equivalent.
	ReplaceNamespaced(ctx context.Context, group, version, namespace, plural, name string, body Resource) (Resource, error)
	// PatchClusterStatus applies a JSON merge-patch (RFC 7396) of the form
	// {"status": <value>} to a cluster-scoped object's status subresource.
	PatchClusterStatus(ctx context.Context, group, version, plural, name string, mergePatch []byte, fieldManager string) (Resource, error)
	// PatchNamespacedStatus is the namespace-scoped equivalent.
	PatchNamespacedStatus(ctx context.Context, group, version, namespace, plural, name string, mergePatch []byte, fieldManager string) (Resource, error)
}
