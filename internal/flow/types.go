package flow

import (
	"context"
	"fmt"

	"github.com/roach88/boni/internal/model"
)

// FlowID names a flow.
type FlowID string

const (
	Envelope        FlowID = "envelope"
	Institute       FlowID = "institute"
	Prayer          FlowID = "prayer_request"
	NewPerson       FlowID = "new_person"
	LeaderDirectory FlowID = "leader_directory"
)

// InputKind is the shape of message a step accepts.
type InputKind int

const (
	InputText InputKind = iota + 1
	InputChoice
	InputAttachment
)

// String implements fmt.Stringer.
func (k InputKind) String() string {
	switch k {
	case InputText:
		return "text"
	case InputChoice:
		return "choice"
	case InputAttachment:
		return "attachment"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// Terminal successors.
const (
	Done    model.StepID = "@done"
	Discard model.StepID = "@discard"
)

// IsTerminal reports whether id ends a flow.
func IsTerminal(id model.StepID) bool {
	return id == Done || id == Discard
}

// Reference resolves reference data for dynamic choice keyboards.
type Reference interface {
	MinistryNames(ctx context.Context) ([]string, error)
}

// OptionsFunc computes the choice set of a step from reference data and the
// payload captured so far.
type OptionsFunc func(ctx context.Context, ref Reference, data model.Data) ([]string, error)

// Step is one prompt/response unit.
type Step struct {
	ID     model.StepID
	Flow   FlowID
	Key    string
	Prompt string
	Input  InputKind

	// Options supplies the keyboard of an InputChoice step.
	Options OptionsFunc

	// Derive computes extra values stored together with the captured answer.
	// DerivedKeys names every key Derive may produce.
	Derive      func(data model.Data) model.Data
	DerivedKeys []string

	// Branches lists every successor this step may move to. A step with a
	// single branch needs no Next.
	Branches []model.StepID
	Next     func(data model.Data) model.StepID
}

// Successor picks the next step for a payload that already includes this
// step's answer. The result is checked against Branches.
func (s *Step) Successor(data model.Data) (model.StepID, error) {
	var next model.StepID
	switch {
	case s.Next != nil:
		next = s.Next(data)
	case len(s.Branches) == 1:
		next = s.Branches[0]
	default:
		return "", fmt.Errorf("step %s: %d branches and no selector", s.ID, len(s.Branches))
	}
	for _, b := range s.Branches {
		if b == next {
			return next, nil
		}
	}
	return "", fmt.Errorf("step %s: selector returned undeclared successor %q", s.ID, next)
}

// Flow is a named entry point into the step graph.
type Flow struct {
	ID        FlowID
	Label     string
	Start     model.StepID
	AdminOnly bool

	// Entity selects the committed kind from the final payload.
	// Nil marks a read-only flow that answers instead of committing.
	Entity func(data model.Data) model.EntityKind

	// Notify marks flows whose commits trigger a notification.
	Notify bool
}

// ReadOnly reports whether the flow ends without a commit.
func (f *Flow) ReadOnly() bool { return f.Entity == nil }
