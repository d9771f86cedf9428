// Package tracing manages the lifecycle of database operation spans.
//
// Every traced operation gets a Handle from Manager.Start and must call
// Handle.Finish exactly once, usually with defer:
//
//	ctx, h := mgr.Start(ctx, "sql.query", "SELECT 1")
//	defer h.Finish()
//
// # Scopes
//
// Each operation forks an isolated Scope from the ambient one found in the
// context. The fork records the span that was current when the operation
// began and points at the operation's own span until Finish, which restores
// the previous one. Concurrent operations sharing a parent context therefore
// never observe each other's spans as current.
//
// # Skipped operations
//
// Labels containing a noisy substring (by default " `Session` ", the session
// table) produce a skipped handle: no span is started and Finish does nothing.
package tracing
