/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the document
service, tracking HTTP requests, namespace operations, traversal cost, open
handles and the write-event stream.

# Features

- HTTP request metrics (latency, throughput, size)
- Namespace operation metrics (duration, errors by kind)
- Traversal size for search and recent queries
- Open document handles and content bytes transferred
- Event stream subscribers and delivery outcomes

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "content", "download")
	// ... perform operation ...
	timer.Stop("ok")

Each collector owns its registry; nothing is registered globally.
*/
package monitoring
