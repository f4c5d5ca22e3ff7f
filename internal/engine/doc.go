// Package engine implements the BONI dispatch engine.
//
// The engine receives inbound chat messages, resolves the sender's session
// from the storage port, interprets the flow catalog and commits the
// collected payload as one entity when a flow reaches its terminal step.
//
// ARCHITECTURE:
//
// Inbound Queue:
// Transports call Enqueue from any goroutine. Run drains the queue in FIFO
// order and hands every message to its sender's mailbox.
//
// Per-User Mailboxes:
// Each user with pending messages has exactly one drain goroutine. Messages
// of one user are dispatched strictly in arrival order, while different
// users proceed concurrently, so a slow attachment lookup for one user never
// stalls another.
//
// Per-User Lock:
// HandleMessage takes a keyed lock on the user id around the whole
// read-decide-write cycle. Direct callers (the console and the scenario
// harness) get the same serialization as the queue.
//
// Commit:
// The terminal step validates the payload against the catalog path, builds
// the entity with a server-side timestamp and id, persists it through the
// storage port and fires notifications in the background. A failed commit
// leaves the session on its terminal step; resending the last answer
// retries it.
package engine
