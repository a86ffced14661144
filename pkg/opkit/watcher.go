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
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// watchTimeoutSeconds bounds a single list+watch session (spec §4.5). A
// server-initiated close after this long is indistinguishable from any
// other stream close at the Watcher's level, and is therefore treated the
// same way: an unexpected termination, not a transparent resync.
const watchTimeoutSeconds = int64(60 * 60)

// maxConsecutiveOpenFailures bounds how many times in a row opening a watch
// session may fail before Run gives up and reports unexpected termination to
// the Operator. The core has no retry-policy input for this path (it isn't
// a reconcile attempt), so it reuses a small fixed bound rather than
// retrying forever against a server that is never coming back.
const maxConsecutiveOpenFailures = 5

// Watcher owns exactly one list+watch session for one (resource type,
// namespace scope, label selector) triple and feeds every event it
// observes into a Controller in delivery order. One Watcher is created per
// call to Operator.AddController.
type Watcher struct {
	descriptor    Descriptor
	namespace     string // empty means cluster-wide/all-namespaces
	labelSelector string
	decode        DecodeFunc
	client        Client
	controller    *Controller
	log           logr.Logger

	// restartBackoff is the delay applied after a failed attempt to open a
	// watch session, before the next attempt. It does not grow across
	// attempts. A session that ends after opening is not reopened.
	restartBackoff time.Duration
}

// WatcherConfig constructs a Watcher.
type WatcherConfig struct {
	Descriptor Descriptor
	// Namespace restricts the watch to a single namespace. Empty means
	// watch across the whole cluster.
	Namespace     string
	LabelSelector string
	Decode        DecodeFunc
	Client        Client
	Controller    *Controller
	Log           logr.Logger
	// RestartBackoff is the delay between a failed attempt to open a watch
	// session and the next attempt. Defaults to 1s.
	RestartBackoff time.Duration
}

// NewWatcher returns a Watcher ready to Run.
func NewWatcher(cfg WatcherConfig) *Watcher {
	backoff := cfg.RestartBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Watcher{
		descriptor:     cfg.Descriptor,
		namespace:      cfg.Namespace,
		labelSelector:  cfg.LabelSelector,
		decode:         cfg.Decode,
		client:         cfg.Client,
		controller:     cfg.Controller,
		log:            cfg.Log,
		restartBackoff: backoff,
	}
}

// Run opens list+watch sessions back to back until ctx is cancelled or
// opening fails too many times in a row. Each RawEvent is decoded and
// handed to the Controller via ProcessEvent before the next one is read off
// the channel, which is what guarantees the Controller sees same-UID events
// in delivery order (spec §4.1, P1).
//
// Run returns nil only on a clean, ctx-cancelled stop. Anything else —
// repeated failure to open a session, or a stream that closes on its own
// while ctx is still live — is an unexpected termination and is returned as
// a non-nil error; per spec §4.5 the Watcher never transparently reconnects
// a stream that died mid-flight, it surfaces the failure so the Operator can
// stop and report a non-zero exit code (spec §4.6), leaving process restart
// to the host.
func (w *Watcher) Run(ctx context.Context) error {
	d := w.descriptor
	consecutiveFailures := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		events, err := w.open(ctx)
		if err != nil {
			consecutiveFailures++
			w.log.Error(err, "failed to open watch session", "plural", d.Plural, "namespace", w.namespace, "attempt", consecutiveFailures)
			if consecutiveFailures >= maxConsecutiveOpenFailures {
				return fmt.Errorf("opkit: watcher for %s gave up after %d consecutive failures to open a watch session: %w", d.Plural, consecutiveFailures, err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.restartBackoff):
			}
			continue
		}
		consecutiveFailures = 0

		for ev := range events {
			w.deliver(ctx, ev)
		}

		// The channel closed. If it's because ctx was cancelled, this is a
		// clean stop. Otherwise the stream ended on its own — server
		// timeout, transient network failure — and spec §4.5 treats that
		// the same as any other watch failure: it is not reopened silently,
		// it is reported as an unexpected termination.
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("opkit: watch session for %s closed unexpectedly", d.Plural)
	}
}

func (w *Watcher) open(ctx context.Context) (<-chan RawEvent, error) {
	d := w.descriptor
	if w.namespace != "" {
		return w.client.ListAndWatchNamespaced(ctx, d.Group, d.Version, w.namespace, d.Plural, w.labelSelector, watchTimeoutSeconds)
	}
	return w.client.ListAndWatchCluster(ctx, d.Group, d.Version, d.Plural, w.labelSelector, watchTimeoutSeconds)
}

// deliver decodes one RawEvent and forwards it to the Controller. Decode
// failures become EventError items rather than being dropped silently, so
// the host's logging surfaces them.
func (w *Watcher) deliver(ctx context.Context, raw RawEvent) {
	if raw.Type == EventError {
		w.controller.ProcessEvent(ctx, Event{Type: EventError, Err: raw.Err})
		return
	}
	if raw.Type == EventBookmark {
		w.controller.ProcessEvent(ctx, Event{Type: EventBookmark})
		return
	}

	resource, err := w.decode(raw.Object)
	if err != nil {
		w.log.Error(err, "failed to decode watch event", "plural", w.descriptor.Plural, "type", raw.Type)
		w.controller.ProcessEvent(ctx, Event{Type: EventError, Err: err})
		return
	}

	w.controller.ProcessEvent(ctx, Event{Type: raw.Type, Resource: resource})
}
