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

// Command example wires a single resource type into the opkit engine. It
// exists to demonstrate how a host registers a Controller and runs the
// Operator; real hosts will typically have several TypeBindings and a
// richer set of hooks.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zapcore"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/kroforge/opkit/pkg/k8sclient"
	"github.com/kroforge/opkit/pkg/metadata"
	"github.com/kroforge/opkit/pkg/opkit"
)

var setupLog = ctrl.Log.WithName("setup")

type customLevelEnabler struct {
	level int
}

func (c customLevelEnabler) Enabled(lvl zapcore.Level) bool {
	return -int(lvl) <= c.level
}

func main() {
	var metricsAddr string
	var watchNamespace string
	var watchLabelSelector string
	var retryMaxAttempts int
	var logLevel int

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8078", "The address the Prometheus metrics endpoint binds to.")
	flag.StringVar(&watchNamespace, "watch-namespace", "", "Namespace to restrict the watch to; empty watches all namespaces.")
	flag.StringVar(&watchLabelSelector, "watch-label-selector", "", "Label selector applied to list+watch calls.")
	flag.IntVar(&retryMaxAttempts, "retry-max-attempts", 5, "Maximum reconcile attempts per event before giving up.")
	flag.IntVar(&logLevel, "log-level", 0, "Log verbosity; 0 is the least verbose.")
	flag.Parse()

	opts := zap.Options{
		Development: true,
		Level:       customLevelEnabler{level: logLevel},
		TimeEncoder: zapcore.ISO8601TimeEncoder,
	}
	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger)

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		setupLog.Error(err, "unable to load kubeconfig")
		os.Exit(1)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to build dynamic client")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	go serveMetrics(metricsAddr, registry)

	op := opkit.NewOperator(opkit.OperatorConfig{
		Client: k8sclient.New(dynamicClient),
		Log:    logger,
		RetryPolicy: opkit.RetryPolicy{
			MaxAttempts:     retryMaxAttempts,
			DelayMultiplier: 2,
		},
		DiscardDuplicateGenerations: true,
		MetricsRegisterer:           registry,
	})

	err = op.AddController(opkit.TypeBinding{
		Descriptor:    opkit.Descriptor{Group: "example.com", Version: "v1alpha1", Plural: "widgets"},
		Namespace:     watchNamespace,
		LabelSelector: watchLabelSelector,
		Decode: func(raw map[string]interface{}) (opkit.Resource, error) {
			gvk, err := metadata.ExtractGVKFromUnstructured(raw)
			if err != nil {
				return nil, fmt.Errorf("decoding widget: %w", err)
			}
			if gvr := metadata.GVKtoGVR(gvk); gvr.Resource != "widgets" {
				return nil, fmt.Errorf("decoding widget: unexpected resource %q for kind %q", gvr.Resource, gvk.Kind)
			}
			return &unstructured.Unstructured{Object: raw}, nil
		},
		Hooks: opkit.Hooks{
			AddOrModify: reconcileWidget,
			Delete:      deleteWidget,
		},
	})
	if err != nil {
		setupLog.Error(err, "unable to register widgets controller")
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()
	code, err := op.Start(ctx)
	if err != nil {
		setupLog.Error(err, "operator failed to start")
		os.Exit(1)
	}
	os.Exit(code)
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		setupLog.Error(err, "metrics server exited")
	}
}

func reconcileWidget(ctx context.Context, r opkit.Resource, h opkit.Helpers) error {
	u, ok := r.(*unstructured.Unstructured)
	if !ok {
		return fmt.Errorf("unexpected resource type %T", r)
	}
	metadata.NewManagedByLabeler("widgets").ApplyLabels(u)
	if err := h.ReplaceResource(ctx, u); err != nil {
		return err
	}
	u.Object["status"] = map[string]interface{}{
		"phase": "Ready",
		"conditions": []interface{}{
			map[string]interface{}{
				"type":   "Ready",
				"status": string(corev1.ConditionTrue),
			},
		},
	}
	return h.UpdateStatus(ctx, u)
}

func deleteWidget(ctx context.Context, r opkit.Resource, h opkit.Helpers) error {
	setupLog.Info("widget deleted", "name", r.GetName(), "namespace", r.GetNamespace())
	return nil
}
