package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "Expectations that do not hold",
		Flow: []FlowStep{
			{Say: "/start", Expect: &ExpectClause{ReplyContains: "Adiós"}},
			{Say: "🙏 Enviar petición de oración", Expect: &ExpectClause{Silent: true}},
		},
		Assertions: []Assertion{
			{Type: AssertCommittedCount, Kind: "prayer_request", Count: 1},
			{Type: AssertSession, Expect: map[string]any{"step": "idle"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `does not contain "Adiós"`)
	assert.Contains(t, result.Errors[1], "expected no reply")
	assert.Contains(t, result.Errors[2], "1 prayer_request records")
	assert.Contains(t, result.Errors[3], `field "step" = idle`)
	assert.Contains(t, result.Errors[3], "prayer_request")
}

func TestRun_SessionAssertionForUnknownUser(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_user",
		Description: "Session lookup for a user that never wrote",
		Flow:        []FlowStep{{Say: "/start"}},
		Assertions: []Assertion{
			{Type: AssertSession, User: "9999", Expect: map[string]any{"step": "idle"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no session")
}

func TestRun_Reprompt(t *testing.T) {
	scenario := &Scenario{
		Name:        "reprompt",
		Description: "Wrong input kind repeats the prompt",
		Reprompt:    true,
		Flow: []FlowStep{
			{Say: "🙏 Enviar petición de oración"},
			{Photo: "foto", Expect: &ExpectClause{ReplyContains: "motivo de tu petición"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRenderTranscript(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "render",
		Description: "Render a short exchange",
		Flow: []FlowStep{
			{Say: "hola"},
			{Say: "hola", User: "2002"},
		},
	})
	require.NoError(t, err)

	out := RenderTranscript(result.Transcript)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "> hola", lines[0])
	assert.Equal(t, "< No entendí ese comando. Usá el menú 👇", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "  [Cargar sobre de espiga]"))
	assert.Contains(t, out, "> (2002) hola")
	assert.True(t, strings.HasSuffix(out, "[Terminar]\n"))
}
