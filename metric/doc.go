// Package metric provides Prometheus-based metrics collection and an HTTP
// exposition server for semqueue.
//
// # Architecture
//
//  1. Core Metrics: module-wide gauges and counters registered automatically
//     (active queues, active pools, queue errors by class)
//  2. Registry: MetricsRegistry wraps a private prometheus.Registry and tracks
//     collectors by "owner.name" so queues can register on creation and
//     unregister on Close without colliding
//  3. Server: serves the registry at a configurable path plus /health
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	q, err := blockingqueue.New[*Job](128,
//	    blockingqueue.WithMetrics[*Job](registry, "jobs"),
//	)
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(context.Background())
//
// Per-queue metrics carry a "component" const label equal to the prefix given
// to WithMetrics, so several queues share metric names in one registry.
package metric
