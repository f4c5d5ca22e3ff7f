package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestOutputFormatter_Success(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"string", "✓ All checks passed", "✓ All checks passed\n"},
		{"stringer", label("x"), "label:x\n"},
		{"struct", SeedResult{Source: "defaults", Ministries: 3, Leaders: 3}, "{defaults 3 3}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf}
			require.NoError(t, f.Success(tt.data))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Success(SeedResult{Source: "defaults", Ministries: 3, Leaders: 3}))

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Ministries)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_ErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Error(ErrCodeSeedInvalid, "seed rejected", map[string]string{"file": "ministries.cue"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E008", resp.Error.Code)
	assert.Equal(t, "seed rejected", resp.Error.Message)
	assert.Equal(t, map[string]any{"file": "ministries.cue"}, resp.Error.Details)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	details := map[string]string{"line": "4", "file": "ministries.cue"}

	quiet := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: quiet}
	require.NoError(t, f.Error(ErrCodeSeedInvalid, "seed rejected", details))
	assert.Equal(t, "Error [E008]: seed rejected\n", quiet.String())

	loud := &bytes.Buffer{}
	f = &OutputFormatter{Format: "text", Writer: loud, Verbose: true}
	require.NoError(t, f.Error(ErrCodeSeedInvalid, "seed rejected", details))
	assert.Equal(t, "Error [E008]: seed rejected\nDetails:\n  file: ministries.cue\n  line: 4\n", loud.String())

	other := &bytes.Buffer{}
	f = &OutputFormatter{Format: "text", Writer: other, Verbose: true}
	require.NoError(t, f.Error(ErrCodeGeneric, "boom", []string{"a", "b"}))
	assert.Contains(t, other.String(), "Details: [a b]")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}
	f.VerboseLog("Seed ok: %s", "ministries.cue")
	assert.Empty(t, out.String(), "diagnostics must not corrupt JSON output")
	assert.Equal(t, "Seed ok: ministries.cue\n", diag.String())

	fallback := &bytes.Buffer{}
	f = &OutputFormatter{Format: "text", Writer: fallback, Verbose: true}
	f.VerboseLog("Flow catalog ok")
	assert.Equal(t, "Flow catalog ok\n", fallback.String())

	silent := &bytes.Buffer{}
	f = &OutputFormatter{Format: "text", Writer: silent}
	f.VerboseLog("hidden")
	assert.Empty(t, silent.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "bad config", errors.New("inner")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_Message(t *testing.T) {
	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to open database", inner)
	assert.Equal(t, "failed to open database: no such file", err.Error())
	assert.ErrorIs(t, err, inner)

	assert.Equal(t, "bare", NewExitError(ExitFailure, "bare").Error())
}
