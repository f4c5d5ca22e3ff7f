package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/boni/internal/model"
)

// DefaultUser is the sender of flow steps that do not name one.
const DefaultUser = "1001"

// DefaultPassphrase is the admin passphrase scenarios run with unless they
// set their own.
const DefaultPassphrase = "clave-admin"

// Scenario is one scripted conversation.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Seed loads the default ministries and leaders before the flow.
	Seed bool `yaml:"seed,omitempty"`

	// Profile is the default user's transport profile.
	Profile Profile `yaml:"profile,omitempty"`

	// Passphrase overrides DefaultPassphrase.
	Passphrase string `yaml:"passphrase,omitempty"`

	// Reprompt repeats the current prompt on a wrong-kind message.
	Reprompt bool `yaml:"reprompt,omitempty"`

	// FailCommits makes every entity write fail.
	FailCommits bool `yaml:"fail_commits,omitempty"`

	Flow []FlowStep `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// Profile mirrors the transport's user hints.
type Profile struct {
	FirstName string `yaml:"first_name,omitempty"`
	LastName  string `yaml:"last_name,omitempty"`
	Username  string `yaml:"username,omitempty"`
}

func (p Profile) model() model.Profile {
	return model.Profile{FirstName: p.FirstName, LastName: p.LastName, Username: p.Username}
}

// FlowStep is one inbound message. Exactly one of Say and Photo is set.
type FlowStep struct {
	Say   string `yaml:"say,omitempty"`
	Photo string `yaml:"photo,omitempty"`

	// User overrides DefaultUser.
	User string `yaml:"user,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause checks the replies of one step.
type ExpectClause struct {
	// ReplyContains must be a substring of the last reply.
	ReplyContains string `yaml:"reply_contains,omitempty"`

	// Keyboard must equal the last reply's keyboard.
	Keyboard []string `yaml:"keyboard,omitempty"`

	// Silent expects no reply at all.
	Silent bool `yaml:"silent,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the entity kind (committed_count, committed_fields).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of entities or notifications.
	Count int `yaml:"count,omitempty"`

	// Index selects the entity in commit order (committed_fields).
	Index int `yaml:"index,omitempty"`

	// User selects the session (session). Defaults to DefaultUser.
	User string `yaml:"user,omitempty"`

	// Expect holds expected field values. Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCommittedCount  = "committed_count"
	AssertCommittedFields = "committed_fields"
	AssertSession         = "session"
	AssertNotified        = "notified"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so a typo does not silently skip a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if (step.Say == "") == (step.Photo == "") {
			return fmt.Errorf("flow[%d]: exactly one of say or photo is required", i)
		}
		if e := step.Expect; e != nil && e.Silent && (e.ReplyContains != "" || len(e.Keyboard) > 0) {
			return fmt.Errorf("flow[%d].expect: silent excludes reply checks", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCommittedCount, AssertCommittedFields:
		if !knownKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: unknown entity kind %q", index, a.Kind)
		}
		if a.Count < 0 || a.Index < 0 {
			return fmt.Errorf("assertions[%d]: count and index must be non-negative", index)
		}
		if a.Type == AssertCommittedFields && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for committed_fields", index)
		}
	case AssertSession:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for session", index)
		}
	case AssertNotified:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownKind(kind string) bool {
	for _, k := range model.EntityKinds {
		if string(k) == kind {
			return true
		}
	}
	return false
}
