package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/station"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Notices)
}

func TestOutputFormatter_JSONSuccessWithNotices(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	notices := []station.Notice{{Level: station.LevelWarn, Code: station.NoticePersistence, Message: "disk full"}}
	require.NoError(t, formatter.SuccessWithNotices("done", notices))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, station.NoticePersistence, resp.Notices[0].Code)
	assert.Equal(t, "disk full", resp.Notices[0].Message)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("VALIDATION", "invalid snapshot", []string{"entries.0.quantity: empty"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION", resp.Error.Code)
	assert.Equal(t, "invalid snapshot", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut, Verbose: true}

	require.NoError(t, formatter.Error("NOT_FOUND", "no row", "details here"))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [NOT_FOUND]: no row")
	assert.Contains(t, errOut.String(), "Details: details here")
}

func TestOutputFormatter_Notice(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}

	formatter.Notice(station.Notice{Level: station.LevelError, Code: station.NoticeNotFound, Message: "no match"})
	formatter.Notice(station.Notice{Level: station.LevelInfo, Code: station.NoticeSaved, Message: "Milk: 3"})
	assert.Contains(t, errOut.String(), "✗ [NOT_FOUND] no match")
	assert.Contains(t, errOut.String(), "· [SAVED] Milk: 3")
	assert.Empty(t, out.String())

	errOut.Reset()
	formatter.Format = "json"
	formatter.Notice(station.Notice{Level: station.LevelWarn, Code: station.NoticePending})
	assert.Empty(t, errOut.String(), "json output carries notices in the response")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, buf.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "locked")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "not saved", cause)
	assert.Equal(t, "not saved: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "locked", NewExitError(ExitCommandError, "locked").Error())
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Key", "Qty"},
		[][]string{{"primary::890123", "3"}, {"secondary::B-1"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "primary::890123")
	assert.Contains(t, out, "secondary::B-1")
	assert.Contains(t, out, "╭")

	assert.Empty(t, renderTable(nil, nil, nil))
}
