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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	"github.com/kroforge/opkit/internal/finalizer"
)

// DecodeFunc turns a RawEvent's wire object into a typed Resource. It is
// supplied once per resource type at registration; the core never
// introspects or decodes JSON itself (spec §1 treats the codec as an
// external collaborator).
type DecodeFunc func(raw map[string]interface{}) (Resource, error)

// Helpers is the subset of Controller a user hook may call back into: the
// merge-patch and full-replace persistence primitives spec §4.4 requires
// the controller to expose.
type Helpers interface {
	// UpdateStatus applies a JSON merge-patch of r's status subresource.
	// r must be *unstructured.Unstructured or implement StatusGetter.
	UpdateStatus(ctx context.Context, r Resource) error
	// ReplaceResource performs a full replace of r, relying on
	// resourceVersion optimistic concurrency.
	ReplaceResource(ctx context.Context, r Resource) error
}

// StatusGetter lets a typed resource report its status value for
// UpdateStatus without the core needing to know the resource's concrete
// Go type. *unstructured.Unstructured does not need to implement this; it
// is handled directly by UpdateStatus.
type StatusGetter interface {
	GetStatus() interface{}
}

// AddOrModifyFunc reconciles the current desired state of r. It must be
// idempotent: the core may call it again for the same generation if a
// prior attempt's success could not be recorded (e.g. process restart).
type AddOrModifyFunc func(ctx context.Context, r Resource, h Helpers) error

// DeleteFunc runs cleanup for r, which is guaranteed to still carry this
// controller's finalizer. Returning nil causes the finalizer to be removed.
type DeleteFunc func(ctx context.Context, r Resource, h Helpers) error

// Hooks are the two callback slots a Controller invokes. Either may be left
// nil, in which case that phase of the lifecycle is a no-op.
type Hooks struct {
	AddOrModify AddOrModifyFunc
	Delete      DeleteFunc
}

// ControllerConfig constructs a Controller.
type ControllerConfig struct {
	Descriptor                  Descriptor
	Hooks                       Hooks
	Client                      Client
	RetryPolicy                 RetryPolicy
	DiscardDuplicateGenerations bool
	// FieldManager is sent with every status patch. Defaults to "opkit".
	FieldManager string
	Log          logr.Logger
	// MetricsRegisterer, if non-nil, receives this controller's Prometheus
	// collectors. Safe to share across controllers.
	MetricsRegisterer prometheus.Registerer
}

// Controller drives the finalizer/generation state machine for a single
// resource type (spec §4.4). It owns an eventQueue and changeTracker,
// guarded by a single mutex, and serializes reconciliation per UID while
// allowing distinct UIDs to proceed concurrently.
type Controller struct {
	descriptor                  Descriptor
	hooks                       Hooks
	client                      Client
	retryPolicy                 RetryPolicy
	discardDuplicateGenerations bool
	fieldManager                string
	log                         logr.Logger
	metrics                     *metricsSet
	finalizers                  *finalizer.Manager

	mu      sync.Mutex
	queue   *eventQueue
	tracker *changeTracker
}

// NewController validates cfg and returns a ready-to-use Controller. Hosts
// normally don't call this directly — Operator.AddController does — but it
// is exported so a Controller can be driven in isolation, e.g. in tests.
func NewController(cfg ControllerConfig) (*Controller, error) {
	descriptor, err := cfg.Descriptor.withDefaults()
	if err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("opkit: client must not be nil")
	}
	fieldManager := cfg.FieldManager
	if fieldManager == "" {
		fieldManager = "opkit"
	}

	m := newMetricsSet()
	if cfg.MetricsRegisterer != nil {
		m.mustRegister(cfg.MetricsRegisterer)
	}

	return &Controller{
		descriptor:                  descriptor,
		hooks:                       cfg.Hooks,
		client:                      cfg.Client,
		retryPolicy:                 cfg.RetryPolicy.withDefaults(),
		discardDuplicateGenerations: cfg.DiscardDuplicateGenerations,
		fieldManager:                fieldManager,
		log:                         cfg.Log,
		metrics:                     m,
		finalizers:                  finalizer.New(descriptor.Finalizer),
		queue:                       newEventQueue(),
		tracker:                     newChangeTracker(),
	}, nil
}

// Descriptor returns the resource type this controller reconciles.
func (c *Controller) Descriptor() Descriptor {
	return c.descriptor
}

// ProcessEvent is the Watcher's entry point. It enqueues ev and spawns a
// drain loop for its UID. If a reconciliation is already in flight for that
// UID, the new drain loop exits at once and the in-flight one picks ev up
// (or whatever supersedes it) when its current event is done. It never
// blocks the caller and never panics.
func (c *Controller) ProcessEvent(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventError:
		c.log.Error(ev.Err, "watch delivered an error event", "plural", c.descriptor.Plural)
		return
	case EventDeleted, EventBookmark:
		// Deleted is the terminal notification after the finalizer-driven
		// deletion path already ran; Bookmark carries no payload. Skipping
		// both is deliberate, not an oversight.
		return
	}

	uid := ev.Resource.GetUID()
	c.enqueue(ev)
	go c.drain(ctx, uid)
}

// drain repeatedly dequeues and reconciles the newest pending event for uid
// until none remains or the context is cancelled. Multiple goroutines may
// call drain concurrently for the same uid (one per ProcessEvent call); the
// handling-set gate in eventQueue.dequeue ensures only one ever makes
// progress at a time, which is what gives the engine its per-UID mutual
// exclusion (P1) without a per-UID lock.
func (c *Controller) drain(ctx context.Context, uid types.UID) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev, ok := c.dequeue(uid)
		if !ok {
			return
		}
		c.handleEvent(ctx, ev)
	}
}

// handleEvent runs the bounded-retry loop (spec §4.4) for a single event.
func (c *Controller) handleEvent(ctx context.Context, ev Event) {
	c.beginHandle(ev)
	defer c.endHandle(ev)

	uid := ev.Resource.GetUID()
	delay := c.retryPolicy.InitialDelay

	for attempt := 1; ; attempt++ {
		start := time.Now()
		handled, err := c.tryHandle(ctx, ev)
		c.metrics.reconcileTotal.WithLabelValues(c.descriptor.Plural).Inc()
		c.metrics.reconcileDuration.WithLabelValues(c.descriptor.Plural).Observe(time.Since(start).Seconds())

		if handled {
			return
		}

		c.metrics.reconcileErrors.WithLabelValues(c.descriptor.Plural).Inc()
		c.log.Error(err, "reconciliation attempt failed", "plural", c.descriptor.Plural, "uid", uid, "attempt", attempt)

		if !c.canRetry(uid, attempt, ctx) {
			return
		}

		c.metrics.retriesTotal.WithLabelValues(c.descriptor.Plural).Inc()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * c.retryPolicy.DelayMultiplier)

		// A superseding event, or cancellation, may have arrived while this
		// attempt was asleep in backoff; re-check immediately before the
		// next tryHandle so a stale attempt is never spent on an event
		// that's already been superseded (spec §8.4, invariant P3).
		if c.superseded(uid, ctx) {
			return
		}
	}
}

// superseded reports whether uid's in-flight event should be abandoned:
// the context was cancelled, or a newer pending event for uid now exists.
func (c *Controller) superseded(uid types.UID, ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	_, pending := c.peek(uid)
	return pending
}

// canRetry implements spec §4.4: cancellation, a superseding pending event,
// or an exhausted attempt budget all stop the retry loop.
//
// The attempt budget is enforced as attempt >= MaxAttempts rather than the
// spec pseudocode's literal "attempt > maxAttempts" — see the Open
// Questions section of SPEC_FULL.md: the literal reading permits one
// attempt beyond the cap, which would violate invariant P4.
func (c *Controller) canRetry(uid types.UID, attempt int, ctx context.Context) bool {
	if c.superseded(uid, ctx) {
		return false
	}
	return attempt < c.retryPolicy.MaxAttempts
}

// tryHandle is the single-event state machine: deletion if a
// deletionTimestamp is present, add/modify otherwise. It never panics; a
// panicking hook is converted into a non-handled error so the retry loop
// (or the next superseding event) can make progress.
func (c *Controller) tryHandle(ctx context.Context, ev Event) (handled bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			handled = false
			err = fmt.Errorf("opkit: hook panicked: %v", rec)
		}
	}()

	if ctx.Err() != nil {
		return true, nil
	}

	r := ev.Resource
	if r.GetDeletionTimestamp() != nil {
		return c.tryHandleDelete(ctx, r)
	}
	return c.tryHandleAddOrModify(ctx, r)
}

func (c *Controller) tryHandleDelete(ctx context.Context, r Resource) (bool, error) {
	if !c.finalizers.Has(r) {
		// Some other controller owns deletion of this object.
		return true, nil
	}

	if c.hooks.Delete != nil {
		if err := c.hooks.Delete(ctx, r, c); err != nil {
			return c.classify(err)
		}
	}

	c.trackDeleted(r)

	if c.finalizers.Remove(r) {
		if _, err := c.replace(ctx, r); err != nil {
			return c.classify(err)
		}
	}
	return true, nil
}

func (c *Controller) tryHandleAddOrModify(ctx context.Context, r Resource) (bool, error) {
	if !c.finalizers.Has(r) {
		c.finalizers.Add(r)
		if _, err := c.replace(ctx, r); err != nil {
			return c.classify(err)
		}
		// The persist above triggers a Modified event with the finalizer
		// already set; addOrModify runs on that re-entry, not this one.
		return true, nil
	}

	if c.isAlreadyHandled(r) {
		return true, nil
	}

	if c.hooks.AddOrModify != nil {
		if err := c.hooks.AddOrModify(ctx, r, c); err != nil {
			return c.classify(err)
		}
	}

	c.trackHandled(r)
	return true, nil
}

// classify turns a hook/API error into the (handled, err) pair tryHandle
// returns: cancellation and 409 Conflict are handled (the loop stops
// silently); everything else is not, and drives a retry.
func (c *Controller) classify(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true, nil
	}
	if IsConflict(err) {
		c.metrics.conflictsTotal.WithLabelValues(c.descriptor.Plural).Inc()
		return true, err
	}
	return false, err
}

func (c *Controller) replace(ctx context.Context, r Resource) (Resource, error) {
	d := c.descriptor
	if ns := r.GetNamespace(); ns != "" {
		return c.client.ReplaceNamespaced(ctx, d.Group, d.Version, ns, d.Plural, r.GetName(), r)
	}
	return c.client.ReplaceCluster(ctx, d.Group, d.Version, d.Plural, r.GetName(), r)
}

// ReplaceResource implements Helpers.
func (c *Controller) ReplaceResource(ctx context.Context, r Resource) error {
	_, err := c.replace(ctx, r)
	return err
}

// UpdateStatus implements Helpers.
func (c *Controller) UpdateStatus(ctx context.Context, r Resource) error {
	patch, err := statusMergePatch(r)
	if err != nil {
		return err
	}
	d := c.descriptor
	if ns := r.GetNamespace(); ns != "" {
		_, err = c.client.PatchNamespacedStatus(ctx, d.Group, d.Version, ns, d.Plural, r.GetName(), patch, c.fieldManager)
		return err
	}
	_, err = c.client.PatchClusterStatus(ctx, d.Group, d.Version, d.Plural, r.GetName(), patch, c.fieldManager)
	return err
}

func statusMergePatch(r Resource) ([]byte, error) {
	if u, ok := r.(*unstructured.Unstructured); ok {
		status, _, err := unstructured.NestedFieldNoCopy(u.Object, "status")
		if err != nil {
			return nil, fmt.Errorf("opkit: reading status: %w", err)
		}
		return json.Marshal(map[string]interface{}{"status": status})
	}
	if sg, ok := r.(StatusGetter); ok {
		return json.Marshal(map[string]interface{}{"status": sg.GetStatus()})
	}
	return nil, fmt.Errorf("opkit: resource %T implements neither *unstructured.Unstructured nor StatusGetter", r)
}

// -- locked accessors to the shared queue/tracker state (spec §5) --

func (c *Controller) enqueue(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.enqueue(e)
	c.metrics.queueDepth.WithLabelValues(c.descriptor.Plural).Set(float64(len(c.queue.pending)))
}

func (c *Controller) dequeue(uid types.UID) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.queue.dequeue(uid)
	if ok {
		// Mark uid as handling under the same lock that dequeued it, so no
		// other drain loop can dequeue a newer event for uid in between.
		c.queue.beginHandle(e)
	}
	c.metrics.queueDepth.WithLabelValues(c.descriptor.Plural).Set(float64(len(c.queue.pending)))
	return e, ok
}

func (c *Controller) peek(uid types.UID) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.peek(uid)
}

func (c *Controller) beginHandle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.beginHandle(e)
}

func (c *Controller) endHandle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.endHandle(e)
}

func (c *Controller) isAlreadyHandled(r Resource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.isAlreadyHandled(r, c.discardDuplicateGenerations)
}

func (c *Controller) trackHandled(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.trackHandled(r)
}

func (c *Controller) trackDeleted(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.trackDeleted(r)
}
