// Package server implements the HTTP and WebSocket surface of the room relay.
//
// The implementation is organized into specialized files for configuration, hub
// management, clients, inbound event routing, metrics, the persisted-room API
// and HTTP handlers. Room semantics live in the presence package; this
// package only moves frames between sockets and the coordinator.
package server
