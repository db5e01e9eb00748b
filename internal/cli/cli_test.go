package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Kristopherlb/shinobi/internal/resolver"
	"github.com/Kristopherlb/shinobi/internal/testutil"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "shinobi", cmd.Use)

	for _, name := range []string{"synth", "validate", "history", "strategies"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "strategies", "--format", "xml")
	assert.ErrorContains(t, err, `invalid format "xml"`)
}

func TestSynth_Text(t *testing.T) {
	out, _, err := execute(t, "synth", filepath.Join("testdata", "service.yml"), "--patches-dir", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, "service orders env=dev framework=commercial")
	assert.Contains(t, out, "api -> db data:connect access=read strategy=compute-database")
	assert.Contains(t, out, "api -> jobs queue:sqs access=write strategy=queue")
	assert.Contains(t, out, "patches_applied=false")
}

func TestSynth_JSON(t *testing.T) {
	out, _, err := execute(t, "synth", filepath.Join("testdata", "service.yml"), "--format", "json", "--patches-dir", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   resolver.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "orders", resp.Data.Service)
	require.Len(t, resp.Data.Bindings, 2)
	assert.Equal(t, "jobs", resp.Data.Bindings[1].Target)
}

func TestSynth_YAML(t *testing.T) {
	out, _, err := execute(t, "synth", filepath.Join("testdata", "service.yml"), "--format", "yaml", "--patches-dir", t.TempDir())
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestSynth_AmbiguousSelector(t *testing.T) {
	out, _, err := execute(t, "synth", filepath.Join("testdata", "ambiguous.yml"), "--format", "json", "--patches-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AMBIGUOUS_SELECTOR", resp.Error.Code)

	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, "bind", details["phase"])
	assert.Equal(t, "worker", details["component"])
	assert.Equal(t, []any{"jobs", "refunds"}, details["matches"])
}

func TestSynth_InvalidManifest(t *testing.T) {
	out, _, err := execute(t, "synth", filepath.Join("testdata", "invalid.yml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [MANIFEST_INVALID]")
}

func TestSynth_MissingPlatformConfig(t *testing.T) {
	_, _, err := execute(t, "synth", filepath.Join("testdata", "service.yml"), "--platform-config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSynth_RecordsHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	opts := &SynthOptions{
		RootOptions: &RootOptions{Format: "text"},
		PatchesDir:  t.TempDir(),
		Database:    db,
		RunIDs:      testutil.FixedRunID("run-cli"),
	}
	cmd := NewSynthCommand(opts.RootOptions)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runSynth(context.Background(), opts, filepath.Join("testdata", "service.yml"), cmd))
	assert.Contains(t, out.String(), "run run-cli")

	list, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, list, "run-cli")
	assert.Contains(t, list, "orders")

	detail, _, err := execute(t, "history", "--db", db, "run-cli")
	require.NoError(t, err)
	assert.Contains(t, detail, "source="+filepath.Join("testdata", "service.yml"))
	assert.Contains(t, detail, "api -> db data:connect strategy=compute-database")

	_, _, err = execute(t, "history", "--db", db, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHistory_Empty(t *testing.T) {
	out, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestHistory_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "history")
	assert.ErrorContains(t, err, `"db" not set`)
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "service.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Manifest valid (3 components)")
}

func TestValidate_SchemaIssues(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "invalid.yml"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Issues)
	assert.Equal(t, "/components/0/name", resp.Data.Issues[0].Path)
}

func TestValidate_StructureIssues(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "duplicate.yml"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "duplicate")
}

func TestStrategies(t *testing.T) {
	out, _, err := execute(t, "strategies")
	require.NoError(t, err)
	assert.Contains(t, out, "CAPABILITY")
	assert.Contains(t, out, "compute-database")
	assert.Contains(t, out, "lambda-*")
}

func TestStrategies_JSON(t *testing.T) {
	out, _, err := execute(t, "strategies", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []StrategyInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	var patterns []string
	for _, s := range resp.Data {
		if s.Capability == "data:connect" {
			patterns = append(patterns, s.SourcePattern)
		}
	}
	assert.Equal(t, []string{"function", "lambda-*", "*"}, patterns)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
	require.NoError(t, f.Error("E1", "boom", map[string]string{"k": "v"}))
	assert.Contains(t, buf.String(), "Error [E1]: boom")
	assert.Contains(t, buf.String(), "Details: map[k:v]")
}

func TestOutputFormatter_VerboseToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("loaded %d", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3\n", errOut.String())
}

func TestExitError(t *testing.T) {
	err := WrapExitError(ExitCommandError, "failed", assert.AnError)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
