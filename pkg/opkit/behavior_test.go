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

package opkit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	"github.com/kroforge/opkit/pkg/opkit"
)

// memoryStore is a tiny in-memory stand-in for an API server: it holds the
// current object per name and fans every mutation out to whichever
// subscriber channel is currently open, the way a real watch stream would.
type memoryStore struct {
	mu          sync.Mutex
	objects     map[string]*unstructured.Unstructured
	subscribers []chan opkit.RawEvent
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string]*unstructured.Unstructured)}
}

func (s *memoryStore) seed(obj *unstructured.Unstructured) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.GetName()] = obj
}

func (s *memoryStore) subscribe() <-chan opkit.RawEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan opkit.RawEvent, 16)
	for _, obj := range s.objects {
		ch <- opkit.RawEvent{Type: opkit.EventAdded, Object: obj.DeepCopy().Object}
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *memoryStore) put(obj *unstructured.Unstructured) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.GetName()] = obj
	for _, sub := range s.subscribers {
		sub <- opkit.RawEvent{Type: opkit.EventModified, Object: obj.DeepCopy().Object}
	}
}

// storeClient is an opkit.Client backed by a memoryStore. Replace calls
// mutate the store and synchronously fan the new state back out as a
// Modified event, the way a real watch would observe a controller's own
// writes. Status-patch calls are accepted and leave the store unchanged.
type storeClient struct {
	store *memoryStore
}

func (c *storeClient) ListAndWatchCluster(ctx context.Context, group, version, plural, labelSelector string, timeoutSec int64) (<-chan opkit.RawEvent, error) {
	return c.store.subscribe(), nil
}

func (c *storeClient) ListAndWatchNamespaced(ctx context.Context, group, version, namespace, plural, labelSelector string, timeoutSec int64) (<-chan opkit.RawEvent, error) {
	return c.store.subscribe(), nil
}

func (c *storeClient) ReplaceCluster(ctx context.Context, group, version, plural, name string, body opkit.Resource) (opkit.Resource, error) {
	u := body.(*unstructured.Unstructured).DeepCopy()
	c.store.put(u)
	return u, nil
}

func (c *storeClient) ReplaceNamespaced(ctx context.Context, group, version, namespace, plural, name string, body opkit.Resource) (opkit.Resource, error) {
	return c.ReplaceCluster(ctx, group, version, plural, name, body)
}

func (c *storeClient) PatchClusterStatus(ctx context.Context, group, version, plural, name string, mergePatch []byte, fieldManager string) (opkit.Resource, error) {
	return nil, nil
}

func (c *storeClient) PatchNamespacedStatus(ctx context.Context, group, version, namespace, plural, name string, mergePatch []byte, fieldManager string) (opkit.Resource, error) {
	return c.PatchClusterStatus(ctx, group, version, plural, name, mergePatch, fieldManager)
}

func widget(name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion("example.com/v1alpha1")
	u.SetKind("Widget")
	u.SetName(name)
	u.SetUID(types.UID("uid-" + name))
	u.SetGeneration(1)
	return u
}

var _ = Describe("Operator end-to-end", func() {
	It("installs the finalizer then reconciles on the resulting Modified event", func() {
		store := newMemoryStore()
		store.seed(widget("w1"))

		var addOrModifyCalls int32
		op := opkit.NewOperator(opkit.OperatorConfig{
			Client:                      &storeClient{store: store},
			DiscardDuplicateGenerations: true,
		})

		Expect(op.AddController(opkit.TypeBinding{
			Descriptor: opkit.Descriptor{Version: "v1alpha1", Plural: "widgets"},
			Decode: func(raw map[string]interface{}) (opkit.Resource, error) {
				return &unstructured.Unstructured{Object: raw}, nil
			},
			Hooks: opkit.Hooks{
				AddOrModify: func(ctx context.Context, r opkit.Resource, h opkit.Helpers) error {
					atomic.AddInt32(&addOrModifyCalls, 1)
					return nil
				},
			},
		})).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go op.Start(ctx)

		Eventually(func() int32 { return atomic.LoadInt32(&addOrModifyCalls) }, time.Second, time.Millisecond).Should(Equal(int32(1)))
	})

	It("calls Delete and clears the finalizer on a deletion", func() {
		store := newMemoryStore()
		w := widget("w2")
		w.SetFinalizers([]string{"widgets.opkit.io/finalizer"})
		now := metav1.Now()
		w.SetDeletionTimestamp(&now)
		store.seed(w)

		var deleteCalls int32
		op := opkit.NewOperator(opkit.OperatorConfig{
			Client:                      &storeClient{store: store},
			DiscardDuplicateGenerations: true,
		})

		Expect(op.AddController(opkit.TypeBinding{
			Descriptor: opkit.Descriptor{Version: "v1alpha1", Plural: "widgets", Finalizer: "widgets.opkit.io/finalizer"},
			Decode: func(raw map[string]interface{}) (opkit.Resource, error) {
				return &unstructured.Unstructured{Object: raw}, nil
			},
			Hooks: opkit.Hooks{
				Delete: func(ctx context.Context, r opkit.Resource, h opkit.Helpers) error {
					atomic.AddInt32(&deleteCalls, 1)
					return nil
				},
			},
		})).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go op.Start(ctx)

		Eventually(func() int32 { return atomic.LoadInt32(&deleteCalls) }, time.Second, time.Millisecond).Should(Equal(int32(1)))
	})

	It("stops idempotently even when called before Start completes", func() {
		store := newMemoryStore()
		op := opkit.NewOperator(opkit.OperatorConfig{Client: &storeClient{store: store}})
		Expect(func() {
			op.Stop()
			op.Stop()
		}).NotTo(Panic())
	})
})
