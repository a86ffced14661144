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
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	opkiterrors "github.com/kroforge/opkit/internal/errors"
)

// operatorState is the Operator's lifecycle position (spec §4.6).
type operatorState int

const (
	operatorNew operatorState = iota
	operatorRunning
	operatorStopping
	operatorStopped
)

// OperatorConfig constructs an Operator. Client and Log are handed to every
// Controller registered via AddController; RetryPolicy is the default for
// every registration whose TypeBinding.RetryPolicy is nil.
type OperatorConfig struct {
	Client                      Client
	Log                         logr.Logger
	RetryPolicy                 RetryPolicy
	DiscardDuplicateGenerations bool
	FieldManager                string
	MetricsRegisterer           prometheus.Registerer
	// WatcherRestartBackoff is the delay a Watcher waits after a failed
	// attempt to open a watch session before trying again. Defaults to 1s.
	WatcherRestartBackoff time.Duration
}

// Operator is the root of the engine: it registers Controllers, spawns one
// Watcher per registration, owns the single cancellation source, and
// reports whether every watcher shut down cleanly.
type Operator struct {
	cfg OperatorConfig

	mu       sync.Mutex
	state    operatorState
	watchers []*Watcher

	cancel context.CancelFunc
}

// NewOperator returns an Operator in the New state.
func NewOperator(cfg OperatorConfig) *Operator {
	return &Operator{cfg: cfg, state: operatorNew}
}

// TypeBinding is everything AddController needs to wire up one resource
// type: its descriptor, how to decode watch payloads into a Resource, the
// reconciliation hooks, and the scope of the watch session.
type TypeBinding struct {
	Descriptor Descriptor
	Decode     DecodeFunc
	Hooks      Hooks
	// Namespace restricts this type's watch to one namespace. Empty means
	// cluster-wide / all-namespaces.
	Namespace     string
	LabelSelector string
	// RetryPolicy overrides the Operator's default for this type alone.
	// Zero value means "use the Operator's".
	RetryPolicy *RetryPolicy
}

// AddController registers a resource type, building its Controller and
// Watcher. It is only valid while the Operator is in the New state.
func (o *Operator) AddController(b TypeBinding) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != operatorNew {
		return opkiterrors.ErrAlreadyRunning
	}
	if b.Decode == nil {
		return opkiterrors.ErrNilController
	}

	retryPolicy := o.cfg.RetryPolicy
	if b.RetryPolicy != nil {
		retryPolicy = *b.RetryPolicy
	}

	controller, err := NewController(ControllerConfig{
		Descriptor:                  b.Descriptor,
		Hooks:                       b.Hooks,
		Client:                      o.cfg.Client,
		RetryPolicy:                 retryPolicy,
		DiscardDuplicateGenerations: o.cfg.DiscardDuplicateGenerations,
		FieldManager:                o.cfg.FieldManager,
		Log:                         o.cfg.Log,
		MetricsRegisterer:           o.cfg.MetricsRegisterer,
	})
	if err != nil {
		return err
	}

	watcher := NewWatcher(WatcherConfig{
		Descriptor:     controller.Descriptor(),
		Namespace:      b.Namespace,
		LabelSelector:  b.LabelSelector,
		Decode:         b.Decode,
		Client:         o.cfg.Client,
		Controller:     controller,
		Log:            o.cfg.Log,
		RestartBackoff: o.cfg.WatcherRestartBackoff,
	})

	o.watchers = append(o.watchers, watcher)
	return nil
}

// Start transitions the Operator to Running and spawns one goroutine per
// registered Watcher, then blocks until all of them return. It returns exit
// code 0 if every watcher shut down because of cancellation, or 1 if any
// watcher reported unexpected termination.
//
// Start may only be called once. Calling it while an earlier call is still
// running returns ErrAlreadyStarted; calling it after an earlier call has
// returned, or after Stop on an operator that was never started, returns
// ErrDisposed.
func (o *Operator) Start(ctx context.Context) (int, error) {
	o.mu.Lock()
	switch o.state {
	case operatorStopped:
		o.mu.Unlock()
		return 1, opkiterrors.ErrDisposed
	case operatorRunning, operatorStopping:
		o.mu.Unlock()
		return 1, opkiterrors.ErrAlreadyStarted
	}
	o.state = operatorRunning
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	watchers := append([]*Watcher(nil), o.watchers...)
	o.mu.Unlock()

	if len(watchers) == 0 {
		o.mu.Lock()
		o.state = operatorStopped
		o.mu.Unlock()
		return 0, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(watchers))
	for _, w := range watchers {
		wg.Add(1)
		go func(w *Watcher) {
			defer wg.Done()
			errs <- w.Run(runCtx)
		}(w)
	}
	wg.Wait()
	close(errs)

	unexpected := false
	for err := range errs {
		if err != nil {
			o.cfg.Log.Error(err, "watcher terminated unexpectedly")
			unexpected = true
		}
	}

	o.mu.Lock()
	if o.state != operatorStopped {
		o.state = operatorStopped
	}
	o.mu.Unlock()

	if unexpected {
		return 1, nil
	}
	return 0, nil
}

// Stop signals cancellation to every Watcher and every in-flight
// reconciliation. It is idempotent and safe to call from any goroutine,
// including before Start; an operator stopped before Start is disposed, and
// a later Start returns ErrDisposed.
func (o *Operator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == operatorStopped || o.state == operatorStopping {
		return
	}
	if o.state == operatorNew {
		o.state = operatorStopped
		return
	}
	o.state = operatorStopping
	if o.cancel != nil {
		o.cancel()
	}
}
