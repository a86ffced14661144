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

// Package k8sclient is the default opkit.Client, backed by
// k8s.io/client-go's dynamic client. It is the only package in this module
// that talks to a real Kubernetes API server; everything else in pkg/opkit
// is exercised against the abstract Client interface so it can run against
// a fake in tests.
package k8sclient

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"

	"github.com/kroforge/opkit/pkg/opkit"
)

// Client adapts a dynamic.Interface to opkit.Client.
type Client struct {
	dynamic dynamic.Interface
}

var _ opkit.Client = (*Client)(nil)

// New wraps an already-constructed dynamic client.
func New(dyn dynamic.Interface) *Client {
	return &Client{dynamic: dyn}
}

func (c *Client) resourceInterface(group, version, namespace, plural string) dynamic.ResourceInterface {
	ri := c.dynamic.Resource(schema.GroupVersionResource{Group: group, Version: version, Resource: plural})
	if namespace != "" {
		return ri.Namespace(namespace)
	}
	return ri
}

// ListAndWatchCluster implements opkit.Client.
func (c *Client) ListAndWatchCluster(ctx context.Context, group, version, plural, labelSelector string, timeoutSec int64) (<-chan opkit.RawEvent, error) {
	return c.listAndWatch(ctx, group, version, "", plural, labelSelector, timeoutSec)
}

// ListAndWatchNamespaced implements opkit.Client.
func (c *Client) ListAndWatchNamespaced(ctx context.Context, group, version, namespace, plural, labelSelector string, timeoutSec int64) (<-chan opkit.RawEvent, error) {
	return c.listAndWatch(ctx, group, version, namespace, plural, labelSelector, timeoutSec)
}

// listAndWatch lists the current collection (emitting one Added RawEvent
// per item) and then proxies the watch stream started from that list's
// resourceVersion, so callers never observe a gap between the two.
func (c *Client) listAndWatch(ctx context.Context, group, version, namespace, plural, labelSelector string, timeoutSec int64) (<-chan opkit.RawEvent, error) {
	ri := c.resourceInterface(group, version, namespace, plural)

	list, err := ri.List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, fmt.Errorf("k8sclient: listing %s: %w", plural, err)
	}

	w, err := ri.Watch(ctx, metav1.ListOptions{
		LabelSelector:   labelSelector,
		ResourceVersion: list.GetResourceVersion(),
		TimeoutSeconds:  &timeoutSec,
	})
	if err != nil {
		return nil, fmt.Errorf("k8sclient: watching %s: %w", plural, err)
	}

	out := make(chan opkit.RawEvent)
	go c.pump(ctx, list, w, out)
	return out, nil
}

func (c *Client) pump(ctx context.Context, list *unstructured.UnstructuredList, w watch.Interface, out chan<- opkit.RawEvent) {
	defer close(out)
	defer w.Stop()

	for i := range list.Items {
		select {
		case out <- opkit.RawEvent{Type: opkit.EventAdded, Object: list.Items[i].Object}:
		case <-ctx.Done():
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.ResultChan():
			if !ok {
				return
			}
			select {
			case out <- translateWatchEvent(ev):
			case <-ctx.Done():
				return
			}
		}
	}
}

func translateWatchEvent(ev watch.Event) opkit.RawEvent {
	switch ev.Type {
	case watch.Added:
		return rawEventFromObject(opkit.EventAdded, ev.Object)
	case watch.Modified:
		return rawEventFromObject(opkit.EventModified, ev.Object)
	case watch.Deleted:
		return rawEventFromObject(opkit.EventDeleted, ev.Object)
	case watch.Bookmark:
		return opkit.RawEvent{Type: opkit.EventBookmark}
	case watch.Error:
		return opkit.RawEvent{Type: opkit.EventError, Err: apierrors.FromObject(ev.Object)}
	default:
		return opkit.RawEvent{Type: opkit.EventError, Err: fmt.Errorf("k8sclient: unrecognized watch event type %q", ev.Type)}
	}
}

func rawEventFromObject(t opkit.EventType, obj runtime.Object) opkit.RawEvent {
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		return opkit.RawEvent{Type: opkit.EventError, Err: fmt.Errorf("k8sclient: watch delivered non-unstructured object %T", obj)}
	}
	return opkit.RawEvent{Type: t, Object: u.Object}
}

// ReplaceCluster implements opkit.Client.
func (c *Client) ReplaceCluster(ctx context.Context, group, version, plural, name string, body opkit.Resource) (opkit.Resource, error) {
	return c.replace(ctx, group, version, "", plural, name, body)
}

// ReplaceNamespaced implements opkit.Client.
func (c *Client) ReplaceNamespaced(ctx context.Context, group, version, namespace, plural, name string, body opkit.Resource) (opkit.Resource, error) {
	return c.replace(ctx, group, version, namespace, plural, name, body)
}

func (c *Client) replace(ctx context.Context, group, version, namespace, plural, name string, body opkit.Resource) (opkit.Resource, error) {
	u, err := toUnstructured(body)
	if err != nil {
		return nil, err
	}
	updated, err := c.resourceInterface(group, version, namespace, plural).Update(ctx, u, metav1.UpdateOptions{})
	if err != nil {
		return nil, classifyError(err)
	}
	return updated, nil
}

// PatchClusterStatus implements opkit.Client.
func (c *Client) PatchClusterStatus(ctx context.Context, group, version, plural, name string, mergePatch []byte, fieldManager string) (opkit.Resource, error) {
	return c.patchStatus(ctx, group, version, "", plural, name, mergePatch, fieldManager)
}

// PatchNamespacedStatus implements opkit.Client.
func (c *Client) PatchNamespacedStatus(ctx context.Context, group, version, namespace, plural, name string, mergePatch []byte, fieldManager string) (opkit.Resource, error) {
	return c.patchStatus(ctx, group, version, namespace, plural, name, mergePatch, fieldManager)
}

func (c *Client) patchStatus(ctx context.Context, group, version, namespace, plural, name string, mergePatch []byte, fieldManager string) (opkit.Resource, error) {
	updated, err := c.resourceInterface(group, version, namespace, plural).Patch(
		ctx, name, types.MergePatchType, mergePatch, metav1.PatchOptions{FieldManager: fieldManager}, "status",
	)
	if err != nil {
		return nil, classifyError(err)
	}
	return updated, nil
}

func toUnstructured(r opkit.Resource) (*unstructured.Unstructured, error) {
	if u, ok := r.(*unstructured.Unstructured); ok {
		return u, nil
	}
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(r)
	if err != nil {
		return nil, fmt.Errorf("k8sclient: converting %T to unstructured: %w", r, err)
	}
	return &unstructured.Unstructured{Object: content}, nil
}

func classifyError(err error) error {
	if apierrors.IsConflict(err) {
		return &opkit.ConflictError{Err: err}
	}
	return err
}
