package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "failed", errors.New("inner"))), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())

	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to open", inner)
	assert.Equal(t, "failed to open: no such file", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestErrorCodeAndExitCode(t *testing.T) {
	qerr := fmt.Errorf("query.yaml: %w", queryerr.NotFound("no attribute %q", "Colour"))
	assert.Equal(t, "NOT_FOUND", errorCode(qerr, ErrCodeGeneric))
	assert.Equal(t, ExitFailure, exitCodeFor(qerr))

	ioErr := errors.New("disk full")
	assert.Equal(t, ErrCodeStoreFailed, errorCode(ioErr, ErrCodeStoreFailed))
	assert.Equal(t, ExitCommandError, exitCodeFor(ioErr))
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"pattern": "<a&b>"}))
	assert.Contains(t, buf.String(), `"pattern": "<a&b>"`, "no HTML escaping")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	buf.Reset()
	require.NoError(t, f.Error("E002", "not found", nil))
	resp = CLIResponse{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E002", resp.Error.Code)
	assert.Equal(t, "not found", resp.Error.Message)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Success("done"))
	require.NoError(t, f.Error("E001", "broken", "more"))
	assert.Equal(t, "done\nError [E001]: broken\nDetails: more\n", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.Fail(ErrCodeGeneric, "query failed", queryerr.Unsupported("OR conditions are not supported"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [UNSUPPORTED_FEATURE]: query failed: UNSUPPORTED_FEATURE: OR conditions are not supported\n", buf.String())

	buf.Reset()
	err = f.Fail(ErrCodeStoreFailed, "failed to open database", errors.New("locked"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E004]: failed to open database: locked\n", buf.String())
}

func TestVerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	f.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	f.Verbose = true
	f.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "verbose logs never touch the JSON writer")
}
