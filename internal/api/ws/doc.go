// Package ws streams document write notifications over WebSocket.
//
// The Hub is installed as a close listener on the documents service: every
// handle opened for writing produces one write_closed event when it is
// closed. Each subscriber has a bounded queue; a subscriber that falls behind
// misses events instead of stalling writers.
//
// Message Types (Server → Client):
//   - system: connection acknowledged
//   - write_closed: a document handle opened for writing was closed
//   - pong: reply to a client ping
//
// Message Types (Client → Server):
//   - ping: keep-alive ping
//
// Example Usage:
//
//	hub := ws.NewHub(ws.DefaultBuffer, logger)
//	svc, _ := documents.New(cfg, documents.WithCloseListener(hub.Publish))
//	router.GET("/events", ws.NewHandler(hub, logger).HandleConnection)
package ws
