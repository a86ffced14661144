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

// Package metadata provides small helpers for tagging the
// Kubernetes objects a reconciliation engine touches. It does not model any
// particular resource type; callers supply their own label keys.
package metadata

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// DomainPrefix namespaces every label this package defines.
	DomainPrefix = "opkit.io/"

	// ManagedByLabel marks a resource as reconciled by an opkit Controller.
	ManagedByLabel = DomainPrefix + "managed-by"
	// ControllerLabel records the plural resource name of the owning
	// Descriptor, so that `kubectl get <kind> -l opkit.io/controller=foos`
	// finds everything one Controller is responsible for.
	ControllerLabel = DomainPrefix + "controller"
)

var (
	// ErrDuplicatedLabels is returned by Merge when two labelers define the
	// same key with (potentially) different values.
	ErrDuplicatedLabels = errors.New("duplicate labels")
)

var _ Labeler = GenericLabeler{}

// Labeler is a set of labels that can be applied to a resource.
type Labeler interface {
	Labels() map[string]string
	ApplyLabels(metav1.Object)
	Merge(Labeler) (Labeler, error)
}

// GenericLabeler is a map of labels that implements Labeler.
type GenericLabeler map[string]string

// Labels returns the labels.
func (gl GenericLabeler) Labels() map[string]string {
	return gl
}

// ApplyLabels sets every label on the given object, preserving any labels
// already present under different keys.
func (gl GenericLabeler) ApplyLabels(meta metav1.Object) {
	for k, v := range gl {
		setLabel(meta, k, v)
	}
}

// Merge combines the labels from other into a new labeler. It returns
// ErrDuplicatedLabels if a key appears in both.
func (gl GenericLabeler) Merge(other Labeler) (Labeler, error) {
	newLabels := gl.Copy()
	for k, v := range other.Labels() {
		if _, ok := newLabels[k]; ok {
			return nil, fmt.Errorf("%w: found key %q in both maps", ErrDuplicatedLabels, k)
		}
		newLabels[k] = v
	}
	return GenericLabeler(newLabels), nil
}

// Copy returns a shallow copy of the labels.
func (gl GenericLabeler) Copy() map[string]string {
	newGenericLabeler := make(map[string]string, len(gl))
	for k, v := range gl {
		newGenericLabeler[k] = v
	}
	return newGenericLabeler
}

// NewManagedByLabeler returns a labeler that marks a resource as owned by
// the Controller responsible for the given plural resource name.
func NewManagedByLabeler(plural string) GenericLabeler {
	return map[string]string{
		ManagedByLabel:  "true",
		ControllerLabel: plural,
	}
}

func setLabel(meta metav1.Object, key, value string) {
	labels := meta.GetLabels()
	if labels == nil {
		labels = make(map[string]string)
	}
	labels[key] = value
	meta.SetLabels(labels)
}
