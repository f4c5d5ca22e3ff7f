package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RenderTranscript formats exchanges for golden comparison:
//
//	> inbound text
//	< reply line
//	  continuation line
//	  [button] [button]
//
// Inputs from users other than DefaultUser are prefixed with "(id)".
// Markdown replies are marked with "<md".
func RenderTranscript(exchanges []Exchange) string {
	var b strings.Builder
	for i, ex := range exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		if ex.UserID != "" && ex.UserID != DefaultUser {
			fmt.Fprintf(&b, "> (%s) %s\n", ex.UserID, ex.Input)
		} else {
			fmt.Fprintf(&b, "> %s\n", ex.Input)
		}
		for _, r := range ex.Replies {
			marker := "<"
			if r.Markdown {
				marker = "<md"
			}
			for j, line := range strings.Split(r.Text, "\n") {
				prefix := "  "
				if j == 0 {
					prefix = marker + " "
				}
				b.WriteString(strings.TrimRight(prefix+line, " "))
				b.WriteString("\n")
			}
			if len(r.Keyboard) > 0 {
				fmt.Fprintf(&b, "  [%s]\n", strings.Join(r.Keyboard, "] ["))
			}
		}
	}
	return b.String()
}

// RunWithGolden executes a scenario, fails the test on any scenario error
// and compares the transcript with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares a result's transcript against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(RenderTranscript(result.Transcript)))
}
