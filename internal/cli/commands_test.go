package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/export"
	"github.com/roach88/intake/internal/ledger"
)

const productsCSV = `Name,Price,Code,Barcode
Milk,1.50,,890123
Bread,2.00,B-1,
Milk powder,4.25,MP-1,890999
`

// testEnv is an isolated HOME with a config file, a catalog and a database.
type testEnv struct {
	dir    string
	config string
	db     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(passphraseEnv, "")

	catalogPath := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(productsCSV), 0o644))

	env := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "intake.toml"),
		db:     filepath.Join(dir, "data", "intake.db"),
	}
	cfg := fmt.Sprintf(`[store]
path = %q

[catalog]
path = %q

[export]
directory = %q

[logging]
level = "error"
`, env.db, catalogPath, dir)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	return env
}

type cmdOutput struct {
	stdout string
	stderr string
}

// run executes the root command with args and returns its output.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (cmdOutput, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"-c", e.config}, args...))
	err := cmd.Execute()
	return cmdOutput{stdout: out.String(), stderr: errOut.String()}, err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) cmdOutput {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, "intake %v\nstdout: %s\nstderr: %s", args, out.stdout, out.stderr)
	return out
}

func decodeData[T any](t *testing.T, stdout string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func (e *testEnv) list(t *testing.T, args ...string) []EntryView {
	t.Helper()
	out := e.mustRun(t, append([]string{"--format", "json", "list"}, args...)...)
	return decodeData[[]EntryView](t, out.stdout)
}

func TestLoadAndSearch(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "--format", "json", "load")
	summary := decodeData[CatalogSummary](t, out.stdout)
	assert.Equal(t, 3, summary.Rows)
	assert.True(t, summary.HasHeader)

	// The catalog is restored from the database by the next process.
	out = env.mustRun(t, "--format", "json", "search", "milk")
	hits := decodeData[[]SearchHit](t, out.stdout)
	require.Len(t, hits, 2)
	assert.Equal(t, "Milk", hits[0].Name)
	assert.Equal(t, "primary::890123", string(hits[0].Key))
	assert.Equal(t, "Milk powder", hits[1].Name)

	out = env.mustRun(t, "--format", "json", "search", "--with-code", "milk")
	hits = decodeData[[]SearchHit](t, out.stdout)
	require.Len(t, hits, 1)
	assert.Equal(t, "MP-1", hits[0].SecondaryCode)

	out = env.mustRun(t, "search", "milk")
	assert.Contains(t, out.stdout, "Milk powder")

	out = env.mustRun(t, "search", "zzz")
	assert.Contains(t, out.stdout, "No matches.")
}

func TestLoad_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "load", filepath.Join(env.dir, "nope.xlsx"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.stderr, "NO_CATALOG")
}

func TestReceiveReplacesQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")

	out := env.mustRun(t, "receive", "890123", "3")
	assert.Contains(t, out.stdout, "primary::890123")
	assert.Contains(t, out.stderr, "[SAVED]")

	env.mustRun(t, "receive", "bread", "2")
	env.mustRun(t, "receive", "890123", "5")

	entries := env.list(t)
	require.Len(t, entries, 2)
	assert.Equal(t, "primary::890123", string(entries[0].Key), "most recent first")
	assert.Equal(t, "5", entries[0].Quantity)
	assert.Equal(t, "secondary::B-1", string(entries[1].Key))
	assert.Equal(t, "2", entries[1].Quantity)

	out = env.mustRun(t, "--format", "json", "search", "890123")
	hits := decodeData[[]SearchHit](t, out.stdout)
	require.Len(t, hits, 1)
	assert.Equal(t, "5", hits[0].Received)
}

func TestReceive_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")

	out, err := env.run(t, "", "receive", "000000", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.stderr, "NOT_FOUND")

	out, err = env.run(t, "", "receive", "890123", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.stderr, "VALIDATION")

	assert.Empty(t, env.list(t))
}

func TestEditAndCancel(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")
	env.mustRun(t, "receive", "890123", "3")

	env.mustRun(t, "edit", "primary::890123", "7")
	entries := env.list(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "7", entries[0].Quantity)

	env.mustRun(t, "cancel", "primary::890123")
	assert.Empty(t, env.list(t))

	all := env.list(t, "--all")
	require.Len(t, all, 1)
	assert.Equal(t, ledger.StatusCancelled, all[0].Status)

	out := env.mustRun(t, "list")
	assert.Contains(t, out.stdout, "The ledger is empty.")

	_, err := env.run(t, "", "edit", "primary::000", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDeleteRequiresPassphrase(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")
	env.mustRun(t, "receive", "890123", "3")

	_, err := env.run(t, "", "delete", "primary::890123")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "passphrase is required")

	// No passphrase provisioned yet.
	_, err = env.run(t, "", "delete", "primary::890123", "--passphrase", "secret")
	require.Error(t, err)

	env.mustRun(t, "auth", "provision", "--passphrase", "secret")

	out, err := env.run(t, "", "delete", "primary::890123", "--passphrase", "wrong")
	require.Error(t, err)
	assert.Contains(t, out.stderr, "DENIED")
	require.Len(t, env.list(t), 1)

	env.mustRun(t, "delete", "primary::890123", "--passphrase", "secret")
	assert.Empty(t, env.list(t, "--all"))
}

func TestClearUsesEnvironmentPassphrase(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")
	env.mustRun(t, "auth", "provision", "--passphrase", "secret")
	env.mustRun(t, "receive", "890123", "3")
	env.mustRun(t, "receive", "B-1", "1")

	t.Setenv(passphraseEnv, "secret")
	out := env.mustRun(t, "clear")
	assert.Contains(t, out.stdout, "cleared 2 entries")
	assert.Empty(t, env.list(t, "--all"))
}

func TestAuthRotation(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "auth", "provision", "--passphrase", "first")

	_, err := env.run(t, "", "auth", "provision", "--passphrase", "second", "--current", "wrong")
	require.Error(t, err)
	env.mustRun(t, "auth", "check", "--passphrase", "first")

	out := env.mustRun(t, "auth", "provision", "--passphrase", "second", "--current", "first")
	assert.Contains(t, out.stdout, "passphrase rotated")
	env.mustRun(t, "auth", "check", "--passphrase", "second")

	_, err = env.run(t, "", "auth", "check", "--passphrase", "first")
	require.Error(t, err)

	_, err = env.run(t, "", "auth", "provision")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")

	_, err := env.run(t, "", "export", "xlsx")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing to export")

	env.mustRun(t, "receive", "890123", "3")
	env.mustRun(t, "receive", "MP-1", "2")

	out := env.mustRun(t, "--format", "json", "export", "xlsx")
	summary := decodeData[ExportSummary](t, out.stdout)
	assert.Equal(t, 2, summary.Lines)
	assert.Equal(t, "5", summary.TotalQuantity)
	assert.Equal(t, filepath.Join(env.dir, export.XLSXFilename), summary.Path)
	assert.FileExists(t, summary.Path)
}

func TestExportPrint(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")
	env.mustRun(t, "receive", "890123", "3")

	path := filepath.Join(env.dir, "labels.html")
	env.mustRun(t, "export", "print", "-o", path, "--title", "Delivery 42", "--symbology", "qr")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Delivery 42")
	assert.Contains(t, string(data), "Milk")

	out := env.mustRun(t, "export", "print", "--preview")
	assert.Contains(t, out.stdout, "Milk")

	_, err = env.run(t, "", "export", "print", "--symbology", "morse")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")
	env.mustRun(t, "auth", "provision", "--passphrase", "secret")
	env.mustRun(t, "receive", "890123", "3")
	env.mustRun(t, "receive", "B-1", "1")
	env.mustRun(t, "cancel", "secondary::B-1")

	path := filepath.Join(env.dir, "ledger.json")
	out := env.mustRun(t, "snapshot", "export", path)
	assert.Contains(t, out.stdout, "wrote 2 entries")

	out = env.mustRun(t, "snapshot", "validate", path)
	assert.Contains(t, out.stdout, "valid, 2 entries")

	env.mustRun(t, "clear", "--passphrase", "secret")
	assert.Empty(t, env.list(t, "--all"))

	_, err := env.run(t, "", "snapshot", "import", path)
	require.Error(t, err, "import is gated")

	env.mustRun(t, "snapshot", "import", path, "--passphrase", "secret")
	all := env.list(t, "--all")
	require.Len(t, all, 2)
	active := env.list(t)
	require.Len(t, active, 1)
	assert.Equal(t, "3", active[0].Quantity)
}

func TestSnapshotValidate_Invalid(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":2,"entries":[]}`), 0o644))

	out, err := env.run(t, "", "snapshot", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.stderr, "VALIDATION")

	_, err = env.run(t, "", "snapshot", "validate", filepath.Join(env.dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDatabaseLock(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "list")

	lock := flock.New(env.db + ".lock")
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = lock.Unlock() }()

	_, err = env.run(t, "", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "in use")
}

func TestMemoryDatabaseOverride(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "--db", ":memory:", "--format", "json", "load")
	summary := decodeData[CatalogSummary](t, out.stdout)
	assert.Equal(t, 3, summary.Rows)
	assert.NoFileExists(t, env.db)
}

func TestConfigInitAndValidate(t *testing.T) {
	env := newTestEnv(t)
	target := filepath.Join(env.dir, "new", "config.toml")

	out := env.mustRun(t, "-c", target, "config", "init")
	assert.Contains(t, out.stdout, "Wrote sample configuration")
	assert.FileExists(t, target)

	_, err := env.run(t, "", "-c", target, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	env.mustRun(t, "-c", target, "config", "init", "--overwrite")

	out = env.mustRun(t, "config", "validate")
	assert.Contains(t, out.stdout, "Configuration valid")
	assert.Contains(t, out.stdout, env.db)
}

func TestStationSession(t *testing.T) {
	env := newTestEnv(t)

	script := strings.Join([]string{
		"?milk",
		"890123",
		"4",
		"MP-1",
		"",
		":pick 2",
		":x",
		":list",
		":quit",
		":quit!",
	}, "\n") + "\n"
	out, err := env.run(t, script, "station")
	require.NoError(t, err, "stderr: %s", out.stderr)

	assert.Contains(t, out.stdout, "Station ready")
	assert.Contains(t, out.stderr, "catalog loaded: 3 rows", "configured catalog is loaded at start")
	assert.Contains(t, out.stdout, "Milk powder")
	assert.Contains(t, out.stdout, "Receive Milk (primary::890123) qty:")
	assert.Contains(t, out.stdout, "Receive Milk powder (primary::890999) qty:")
	assert.Contains(t, out.stdout, "use :quit! to leave anyway")
	assert.Contains(t, out.stderr, "[SAVED] Milk: 4")
	assert.Contains(t, out.stderr, "PENDING_RECEIPTS")

	entries := env.list(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "primary::890123", string(entries[0].Key))
	assert.Equal(t, "4", entries[0].Quantity)
}

func TestStationEditAndGatedDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "load")
	env.mustRun(t, "auth", "provision", "--passphrase", "secret")
	env.mustRun(t, "receive", "890123", "3")

	script := strings.Join([]string{
		":edit primary::890123",
		"9",
		":delete primary::890123",
		":auth secret",
		":delete primary::890123",
		":filter on",
		"?milk",
		":bogus",
		":quit",
	}, "\n") + "\n"
	out, err := env.run(t, script, "station")
	require.NoError(t, err, "stderr: %s", out.stderr)

	assert.Contains(t, out.stdout, "Edit Milk (primary::890123) qty [3]:")
	assert.Contains(t, out.stderr, "UNAUTHORIZED")
	assert.Contains(t, out.stderr, "GRANTED")
	assert.Contains(t, out.stdout, "unknown command :bogus")
	assert.NotContains(t, out.stdout, "use :quit! to leave anyway")

	assert.Empty(t, env.list(t, "--all"))
}

func TestTestCommand(t *testing.T) {
	scenariosDir := filepath.Join("..", "harness", "testdata", "scenarios")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenariosDir})

	require.NoError(t, cmd.Execute(), buf.String())
	result := decodeData[TestResult](t, buf.String())
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, result.Total, result.Passed)
	assert.GreaterOrEqual(t, result.Total, 6)
}

func TestTestCommand_FilterAndUpdate(t *testing.T) {
	src := filepath.Join("..", "harness", "testdata", "scenarios", "scan_debounce.yaml")
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	root := t.TempDir()
	scenariosDir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenariosDir, "scan_debounce.yaml"), data, 0o644))

	run := func(args ...string) (string, error) {
		buf := &bytes.Buffer{}
		cmd := NewTestCommand(&RootOptions{Format: "text"})
		cmd.SetOut(buf)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return buf.String(), err
	}

	out, err := run(scenariosDir, "--filter", "nothing_*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, err = run(scenariosDir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")
	goldenPath := filepath.Join(root, "golden", "scan_debounce.golden")
	assert.FileExists(t, goldenPath)

	out, err = run(scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "All scenarios passed")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, err = run(scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "golden file mismatch")

	_, err = run(filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
