package model

import (
	"sort"
	"strings"
	"time"
)

// StepID names a state of the dispatch state machine.
// The concrete vocabulary is declared by the flow catalog.
type StepID string

// Idle is the no-active-flow state.
const Idle StepID = ""

// IsIdle reports whether the step is the idle state.
func (s StepID) IsIdle() bool { return s == Idle }

// String returns "idle" for the idle state so logs stay readable.
func (s StepID) String() string {
	if s == Idle {
		return "idle"
	}
	return string(s)
}

// AccessLevel distinguishes elevated users.
type AccessLevel string

const (
	AccessUser  AccessLevel = "user"
	AccessAdmin AccessLevel = "admin"
)

// Profile carries the identity hints the transport knows about a user.
type Profile struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName joins first and last name.
func (p Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Session is the per-user persisted (step, payload) pair.
type Session struct {
	UserID    string      `json:"user_id"`
	Profile   Profile     `json:"profile"`
	Step      StepID      `json:"step"`
	Data      Data        `json:"session_data"`
	Access    AccessLevel `json:"access_level"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsAdmin reports whether the session holds elevated access.
func (s Session) IsAdmin() bool { return s.Access == AccessAdmin }

// Data is the accumulated session payload. Values are captured text,
// a chosen label, or a resolved attachment reference.
type Data map[string]string

// Get returns the value stored under key.
func (d Data) Get(key string) (string, bool) {
	v, ok := d[key]
	return v, ok
}

// Clone returns a copy that never aliases d. A nil Data clones to an empty one.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns a shallow merge of d and other; other wins on conflicts.
// Neither input is modified.
func (d Data) Merge(other Data) Data {
	out := d.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the payload keys in sorted order.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyStep computes the payload that results from moving a session to step
// with an optional merge. A merge is always applied onto the existing
// payload. Moving to Idle without one clears the payload.
func ApplyStep(current Data, step StepID, merge Data) Data {
	if step.IsIdle() && merge == nil {
		return Data{}
	}
	return current.Merge(merge)
}
