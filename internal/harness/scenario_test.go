package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/envelope_load.yaml")
	require.NoError(t, err)

	assert.Equal(t, "envelope_load", s.Name)
	assert.True(t, s.Seed)
	assert.Equal(t, "Marcos", s.Profile.FirstName)
	assert.Equal(t, "sobre-1", s.Flow[8].Photo)
	require.NotNil(t, s.Flow[7].Expect)
	assert.True(t, s.Flow[7].Expect.Silent)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: y\nflow:\n  - say: hola\nasertions: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: y\nflow:\n  - say: hola\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nflow:\n  - say: hola\n",
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: "name: x\ndescription: y\nflow: []\n",
			want: "flow list is required",
		},
		{
			name: "say and photo",
			yaml: "name: x\ndescription: y\nflow:\n  - say: hola\n    photo: f\n",
			want: "exactly one of say or photo",
		},
		{
			name: "silent with checks",
			yaml: "name: x\ndescription: y\nflow:\n  - say: hola\n    expect:\n      silent: true\n      reply_contains: z\n",
			want: "silent excludes reply checks",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: y\nflow:\n  - say: hola\nassertions:\n  - type: trace_count\n",
			want: "unknown assertion type",
		},
		{
			name: "unknown kind",
			yaml: "name: x\ndescription: y\nflow:\n  - say: hola\nassertions:\n  - type: committed_count\n    kind: invoice\n",
			want: "unknown entity kind",
		},
		{
			name: "fields without expect",
			yaml: "name: x\ndescription: y\nflow:\n  - say: hola\nassertions:\n  - type: committed_fields\n    kind: new_person\n",
			want: "expect is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\ndescription: y\nflow:\n  - photo: f\n"), 0o600))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "f", s.Flow[0].Photo)
}
