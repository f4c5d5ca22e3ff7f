package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/boni/internal/model"
	"github.com/roach88/boni/internal/store"
)

// AssertionContext provides what assertions evaluate against.
type AssertionContext struct {
	Store         *store.Store
	Ctx           context.Context
	Notifications int
	Transcript    []Exchange
}

// AssertionError is returned when an assertion fails. It carries the
// transcript so a failure can be read without re-running the scenario.
type AssertionError struct {
	Type       string
	Expected   string
	Actual     string
	Transcript []Exchange
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Transcript) > 0 {
		fmt.Fprintf(&buf, "\nTranscript:\n")
		buf.WriteString(RenderTranscript(e.Transcript))
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertCommittedCount:
		return assertCommittedCount(actx, a)
	case AssertCommittedFields:
		return assertCommittedFields(actx, a)
	case AssertSession:
		return assertSession(actx, a)
	case AssertNotified:
		if actx.Notifications != a.Count {
			return &AssertionError{
				Type:       AssertNotified,
				Expected:   fmt.Sprintf("%d notifications", a.Count),
				Actual:     fmt.Sprintf("%d notifications", actx.Notifications),
				Transcript: actx.Transcript,
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCommittedCount(actx *AssertionContext, a Assertion) error {
	n, err := actx.Store.CountEntities(actx.Ctx, model.EntityKind(a.Kind))
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:       AssertCommittedCount,
			Expected:   fmt.Sprintf("%d %s records", a.Count, a.Kind),
			Actual:     fmt.Sprintf("%d records", n),
			Transcript: actx.Transcript,
		}
	}
	return nil
}

func assertCommittedFields(actx *AssertionContext, a Assertion) error {
	list, err := actx.Store.ListEntities(actx.Ctx, model.EntityKind(a.Kind))
	if err != nil {
		return err
	}
	if a.Index >= len(list) {
		return &AssertionError{
			Type:       AssertCommittedFields,
			Expected:   fmt.Sprintf("%s record #%d", a.Kind, a.Index),
			Actual:     fmt.Sprintf("%d records", len(list)),
			Transcript: actx.Transcript,
		}
	}

	fields, err := toFields(list[a.Index])
	if err != nil {
		return err
	}
	return matchFields(AssertCommittedFields, a.Expect, fields, actx.Transcript)
}

func assertSession(actx *AssertionContext, a Assertion) error {
	userID := a.User
	if userID == "" {
		userID = DefaultUser
	}
	sess, found, err := actx.Store.GetSession(actx.Ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		return &AssertionError{
			Type:       AssertSession,
			Expected:   fmt.Sprintf("session for user %s", userID),
			Actual:     "no session",
			Transcript: actx.Transcript,
		}
	}

	fields := map[string]any{
		"step":         sess.Step.String(),
		"access_level": string(sess.Access),
		"display_name": sess.Profile.DisplayName(),
	}
	for k, v := range sess.Data {
		fields["data."+k] = v
	}
	return matchFields(AssertSession, a.Expect, fields, actx.Transcript)
}

// toFields flattens an entity to its JSON field names.
func toFields(e model.Entity) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Kind(), err)
	}
	return fields, nil
}

// matchFields checks expected values with subset semantics. Values compare
// by their printed form so YAML scalars match JSON strings and numbers.
// A nil expectation asserts the field is absent.
func matchFields(typ string, expect, actual map[string]any, transcript []Exchange) error {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := expect[key]
		got, exists := actual[key]
		if want == nil {
			if exists {
				return &AssertionError{
					Type:       typ,
					Expected:   fmt.Sprintf("field %q absent", key),
					Actual:     fmt.Sprintf("field %q = %v", key, got),
					Transcript: transcript,
				}
			}
			continue
		}
		if !exists {
			return &AssertionError{
				Type:       typ,
				Expected:   fmt.Sprintf("field %q = %v", key, want),
				Actual:     fmt.Sprintf("field %q not present", key),
				Transcript: transcript,
			}
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return &AssertionError{
				Type:       typ,
				Expected:   fmt.Sprintf("field %q = %v", key, want),
				Actual:     fmt.Sprintf("field %q = %v", key, got),
				Transcript: transcript,
			}
		}
	}
	return nil
}
