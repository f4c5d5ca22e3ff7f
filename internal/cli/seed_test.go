package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "", "seed", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 ministries and 3 leaders from defaults.")
}

func TestSeedFileJSON(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.cue")
	require.NoError(t, os.WriteFile(seedPath, []byte(validSeed), 0644))

	out, err := execute(t, "", "seed", "--config", cfgPath, "--format", "json", seedPath)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(lastLine(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, SeedResult{Source: seedPath, Ministries: 1, Leaders: 1}, resp.Data)
}

func TestSeedIsIdempotent(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "", "seed", "--config", cfgPath)
	require.NoError(t, err)
	_, err = execute(t, "", "seed", "--config", cfgPath)
	require.NoError(t, err)

	out, err := execute(t, "", "records", "ministries", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "3 ministries record(s).")
}

func TestSeedMissingFile(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "", "seed", "--config", cfgPath, "/nonexistent/seed.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}

func TestSeedRequiresSQLite(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage:\n  backend: sheets\n  bridge_url: https://bridge.test/exec\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	_, err := execute(t, "", "seed", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "requires the sqlite backend")
}
