// Package model defines the records the BONI form engine reads and writes.
//
// A Session tracks one remote user's progress through a flow: the current
// step (or Idle) and the payload accumulated so far. Committed entities are
// created exactly once, at a flow's terminal step, and never mutated after.
//
// Ministries and leaders are reference data owned by the administrative
// side of the system; the engine only reads them.
package model
