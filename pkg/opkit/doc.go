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

// Package opkit is the reconciliation engine at the core of a Kubernetes
// operator: event dispatch, per-UID coalescing, bounded retry, and the
// finalizer/generation lifecycle that lets the API server safely delegate
// deletion to user code.
//
// The package deliberately knows nothing about how resources are listed,
// watched, or persisted; callers inject a Client (see client.go) that
// performs those operations. This keeps the engine testable without a real
// API server and lets hosts swap in any wire transport that satisfies the
// interface.
//
// A typical program registers one or more resource types with an Operator,
// each carrying a Descriptor and a pair of Hooks, then calls Start and
// blocks until it returns.
package opkit
