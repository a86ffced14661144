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
	"fmt"

	opkiterrors "github.com/kroforge/opkit/internal/errors"
)

// DefaultFinalizerDomain is the prefix used to build the default finalizer
// token when a Descriptor doesn't specify one.
const DefaultFinalizerDomain = "opkit.io"

// Descriptor carries the (group, version, plural) triple and the finalizer
// token associated with one resource type. It is constructed once per type
// at registration and never mutated.
type Descriptor struct {
	// Group is the API group of the custom resource, empty for the core
	// group.
	Group string
	// Version is the API version, e.g. "v1alpha1".
	Version string
	// Plural is the lowercase plural resource name used in REST paths,
	// e.g. "widgets".
	Plural string
	// Finalizer is the token this controller writes into
	// metadata.finalizers to gate deletion. Defaults to
	// "<plural>.<group>.opkit.io/finalizer" (or "<plural>.opkit.io/finalizer"
	// for core-group resources) when left empty.
	Finalizer string
}

// NewDescriptor constructs a Descriptor with the default finalizer token.
// Use the struct literal directly to supply a custom finalizer.
func NewDescriptor(group, version, plural string) (Descriptor, error) {
	d := Descriptor{Group: group, Version: version, Plural: plural}
	return d.withDefaults()
}

// withDefaults checks a Descriptor for use by a Controller, filling in the
// default finalizer if one wasn't supplied.
func (d Descriptor) withDefaults() (Descriptor, error) {
	if d.Plural == "" {
		return Descriptor{}, opkiterrors.ErrEmptyPlural
	}
	if d.Finalizer == "" {
		if d.Group == "" {
			d.Finalizer = fmt.Sprintf("%s.%s/finalizer", d.Plural, DefaultFinalizerDomain)
		} else {
			d.Finalizer = fmt.Sprintf("%s.%s.%s/finalizer", d.Plural, d.Group, DefaultFinalizerDomain)
		}
	}
	return d, nil
}

// String renders the descriptor as "<plural>.<group>/<version>" for logging.
func (d Descriptor) String() string {
	if d.Group == "" {
		return fmt.Sprintf("%s/%s", d.Plural, d.Version)
	}
	return fmt.Sprintf("%s.%s/%s", d.Plural, d.Group, d.Version)
}
