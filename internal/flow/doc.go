// Package flow declares the conversational forms BONI drives.
//
// A Catalog is a static table of steps. Each step names the session key its
// answer is stored under, the prompt shown to the user, the kind of input it
// accepts and the set of successors it may move to. Branch points pick a
// successor from the payload captured so far; everything else has a single
// successor.
//
// Two sentinel successors end a flow: Done hands the payload to the engine
// for commit (or, for read-only flows, for an answer), Discard drops it.
//
// The catalog is validated at construction: every successor must be a known
// step or a sentinel, every step must be reachable from its flow's start, and
// every flow must be able to terminate.
package flow
