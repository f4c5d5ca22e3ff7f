package flow

import (
	"errors"
	"fmt"

	"github.com/roach88/boni/internal/model"
)

// Catalog is the compiled set of flows and steps.
// A Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	flows  map[FlowID]*Flow
	order  []FlowID
	steps  map[model.StepID]*Step
	labels map[string]FlowID
}

// ValidationError reports a malformed catalog.
type ValidationError struct {
	Flow    FlowID
	Step    model.StepID
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Step != "":
		return fmt.Sprintf("flow %s, step %s: %s", e.Flow, e.Step, e.Message)
	case e.Flow != "":
		return fmt.Sprintf("flow %s: %s", e.Flow, e.Message)
	default:
		return e.Message
	}
}

// Default returns the production catalog.
// It panics if the compiled-in table is malformed, which the package tests rule out.
func Default() *Catalog {
	c, err := Load()
	if err != nil {
		panic(fmt.Sprintf("flow: default catalog invalid: %v", err))
	}
	return c
}

// Load builds the production catalog, returning validation problems instead
// of panicking.
func Load() (*Catalog, error) {
	return New(defaultFlows(), defaultSteps())
}

// New builds and validates a catalog. All validation problems are joined
// into the returned error.
func New(flows []Flow, steps []Step) (*Catalog, error) {
	c := &Catalog{
		flows:  make(map[FlowID]*Flow, len(flows)),
		steps:  make(map[model.StepID]*Step, len(steps)),
		labels: make(map[string]FlowID, len(flows)),
	}

	var errs []error
	for i := range flows {
		f := flows[i]
		if _, dup := c.flows[f.ID]; dup {
			errs = append(errs, &ValidationError{Flow: f.ID, Message: "duplicate flow"})
			continue
		}
		label := Normalize(f.Label)
		if other, dup := c.labels[label]; dup {
			errs = append(errs, &ValidationError{Flow: f.ID, Message: fmt.Sprintf("menu label %q already used by %s", f.Label, other)})
		}
		c.flows[f.ID] = &f
		c.order = append(c.order, f.ID)
		c.labels[label] = f.ID
	}
	for i := range steps {
		s := steps[i]
		if s.ID.IsIdle() || IsTerminal(s.ID) {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "reserved step id"})
			continue
		}
		if _, dup := c.steps[s.ID]; dup {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "duplicate step"})
			continue
		}
		c.steps[s.ID] = &s
	}

	errs = append(errs, c.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (c *Catalog) validate() []error {
	var errs []error
	for _, s := range c.steps {
		if _, ok := c.flows[s.Flow]; !ok {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "unknown flow"})
		}
		if s.Key == "" {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "empty session key"})
		}
		if s.Input == InputChoice && s.Options == nil {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "choice step without options"})
		}
		if len(s.Branches) == 0 {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "no successors"})
		}
		if len(s.Branches) > 1 && s.Next == nil {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: "branching step without selector"})
		}
		for _, b := range s.Branches {
			if IsTerminal(b) {
				continue
			}
			next, ok := c.steps[b]
			if !ok {
				errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: fmt.Sprintf("unknown successor %q", b)})
				continue
			}
			if next.Flow != s.Flow {
				errs = append(errs, &ValidationError{Flow: s.Flow, Step: s.ID, Message: fmt.Sprintf("successor %s belongs to flow %s", b, next.Flow)})
			}
		}
	}

	reached := make(map[model.StepID]bool, len(c.steps))
	for _, id := range c.order {
		f := c.flows[id]
		if _, ok := c.steps[f.Start]; !ok {
			errs = append(errs, &ValidationError{Flow: f.ID, Message: fmt.Sprintf("unknown start step %q", f.Start)})
			continue
		}
		terminates := false
		stack := []model.StepID{f.Start}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if IsTerminal(cur) {
				if cur == Done {
					terminates = true
				}
				continue
			}
			if reached[cur] {
				continue
			}
			reached[cur] = true
			if s, ok := c.steps[cur]; ok {
				stack = append(stack, s.Branches...)
			}
		}
		if !terminates {
			errs = append(errs, &ValidationError{Flow: f.ID, Message: "no path reaches Done"})
		}
	}
	for id, s := range c.steps {
		if !reached[id] {
			errs = append(errs, &ValidationError{Flow: s.Flow, Step: id, Message: "unreachable step"})
		}
	}
	return errs
}

// Flow returns the flow with the given id.
func (c *Catalog) Flow(id FlowID) (*Flow, bool) {
	f, ok := c.flows[id]
	return f, ok
}

// Step returns the step with the given id.
func (c *Catalog) Step(id model.StepID) (*Step, bool) {
	s, ok := c.steps[id]
	return s, ok
}

// FlowForLabel returns the flow started by a menu label.
func (c *Catalog) FlowForLabel(text string) (*Flow, bool) {
	id, ok := c.labels[Normalize(text)]
	if !ok {
		return nil, false
	}
	return c.flows[id], true
}

// Flows returns the flows in declaration order.
func (c *Catalog) Flows() []*Flow {
	out := make([]*Flow, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.flows[id])
	}
	return out
}

// Steps returns the number of declared steps.
func (c *Catalog) Steps() int { return len(c.steps) }

// Menu returns the idle keyboard. Admin-only flows are listed first and only
// for admins; the cancel command closes the keyboard.
func (c *Catalog) Menu(admin bool) []string {
	var labels []string
	if admin {
		for _, id := range c.order {
			if f := c.flows[id]; f.AdminOnly {
				labels = append(labels, f.Label)
			}
		}
	}
	for _, id := range c.order {
		if f := c.flows[id]; !f.AdminOnly {
			labels = append(labels, f.Label)
		}
	}
	return append(labels, CommandCancel)
}

// RequiredKeys walks the flow from its start using data to resolve branches
// and returns every key the walked path defines, in path order. It fails if a
// key on the path is missing from data or if the path does not end in Done.
func (c *Catalog) RequiredKeys(id FlowID, data model.Data) ([]string, error) {
	f, ok := c.flows[id]
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", id)
	}
	var keys []string
	cur := f.Start
	for hops := 0; hops <= len(c.steps); hops++ {
		s, ok := c.steps[cur]
		if !ok {
			return nil, fmt.Errorf("flow %s: unknown step %q", id, cur)
		}
		if _, ok := data[s.Key]; !ok {
			return keys, &MissingKeyError{Flow: id, Step: s.ID, Key: s.Key}
		}
		if !contains(keys, s.Key) {
			keys = append(keys, s.Key)
		}
		if s.Derive != nil {
			for _, k := range s.DerivedKeys {
				if _, ok := data[k]; ok && !contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
		next, err := s.Successor(data)
		if err != nil {
			return keys, err
		}
		switch next {
		case Done:
			return keys, nil
		case Discard:
			return keys, fmt.Errorf("flow %s: payload selects discard at step %s", id, s.ID)
		}
		cur = next
	}
	return keys, fmt.Errorf("flow %s: step graph does not terminate", id)
}

// MissingKeyError reports a payload that lacks a key its path requires.
type MissingKeyError struct {
	Flow FlowID
	Step model.StepID
	Key  string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("flow %s: missing key %q required by step %s", e.Flow, e.Key, e.Step)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
