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
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet is the set of Prometheus observations a Controller emits,
// labeled by its Descriptor's plural resource name. Metrics are an ambient
// concern the engine reports into an injected prometheus.Registerer; the
// host decides whether and how to expose them, keeping with spec §1's
// treatment of metrics as an external collaborator.
type metricsSet struct {
	reconcileTotal    *prometheus.CounterVec
	reconcileErrors   *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	queueDepth        *prometheus.GaugeVec
}

func newMetricsSet() *metricsSet {
	return &metricsSet{
		reconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opkit_reconcile_total",
				Help: "Total number of tryHandle invocations per resource type.",
			},
			[]string{"plural"},
		),
		reconcileErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opkit_reconcile_errors_total",
				Help: "Total number of tryHandle invocations that returned a non-conflict, non-cancellation error.",
			},
			[]string{"plural"},
		),
		conflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opkit_reconcile_conflicts_total",
				Help: "Total number of tryHandle invocations that were swallowed as HTTP 409 Conflicts.",
			},
			[]string{"plural"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opkit_reconcile_retries_total",
				Help: "Total number of backoff retries scheduled per resource type.",
			},
			[]string{"plural"},
		),
		reconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opkit_reconcile_duration_seconds",
				Help:    "Duration of a single tryHandle invocation per resource type.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"plural"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "opkit_queue_pending_depth",
				Help: "Number of UIDs currently holding a pending (not yet dequeued) event.",
			},
			[]string{"plural"},
		),
	}
}

// mustRegister registers every collector with reg. Re-registering the same
// metricsSet (e.g. in a test that builds several Controllers) is tolerated:
// AlreadyRegisteredError is not treated as fatal.
func (m *metricsSet) mustRegister(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		m.reconcileTotal,
		m.reconcileErrors,
		m.conflictsTotal,
		m.retriesTotal,
		m.reconcileDuration,
		m.queueDepth,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
