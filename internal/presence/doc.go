// Package presence implements the in-memory room/session coordinator for the
// relay.
//
// A Coordinator owns the connection registry and the room table, applies
// join/leave/message/typing/disconnect events one at a time, and hands the
// resulting outbound events to a Dispatcher that resolves recipients from the
// live room table. Read-only snapshots for the HTTP surfaces are served by the
// same Coordinator so every consumer observes identical state.
package presence
