// Package server wires the document sandbox together.
//
// Startup order:
//  1. Logger from the logging section
//  2. Prometheus metrics (optional)
//  3. Tracer and event hub
//  4. Document service bound to the configured root, with the hub as its
//     close listener
//  5. Gin router with recovery, tracing, metrics, access log, CORS and rate
//     limiting middleware
//
// Shutdown closes the event hub first so websocket handlers return, then
// drains in-flight HTTP requests.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Shutdown(context.Background())
package server
