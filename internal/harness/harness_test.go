package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, result, err := RunFile(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name, "scenario name must match its file name")
			assert.True(t, result.Pass, "scenario errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestGoldenTraces(t *testing.T) {
	for _, name := range []string{"api-db", "selector-queue"} {
		t.Run(name, func(t *testing.T) {
			_, result, err := RunFile(context.Background(), filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			require.True(t, result.Pass, strings.Join(result.Errors, "\n"))
			AssertGolden(t, name, result)
		})
	}
}

func TestRun_FailureTrace(t *testing.T) {
	_, result, err := RunFile(context.Background(), filepath.Join("testdata", "scenarios", "selector-ambiguous.yaml"))
	require.NoError(t, err)
	require.True(t, result.Pass)
	assert.Nil(t, result.Synthesis)

	require.Len(t, result.Trace, 1)
	last := result.Trace[0]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "AMBIGUOUS_SELECTOR", last.Code)
	assert.Equal(t, "bind", last.Phase)
	assert.Equal(t, "worker", last.Name)
	assert.Contains(t, last.Message, "jobs")
	assert.Contains(t, last.Message, "refunds")
}

func TestRun_PatchEvent(t *testing.T) {
	_, result, err := RunFile(context.Background(), filepath.Join("testdata", "scenarios", "patch-override.yaml"))
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, EventPatch, last.Type)
	assert.Equal(t, "platform", result.Synthesis.PatchInfo["owner"])
}

func TestRun_WarningEvent(t *testing.T) {
	_, result, err := RunFile(context.Background(), filepath.Join("testdata", "scenarios", "services-unknown.yaml"))
	require.NoError(t, err)

	var warnings []TraceEvent
	for _, ev := range result.Trace {
		if ev.Type == EventWarning {
			warnings = append(warnings, ev)
		}
	}
	require.Len(t, warnings, 1)
	assert.Equal(t, "unknown platform service skipped", warnings[0].Message)
}

func TestRun_ServicesOff(t *testing.T) {
	_, result, err := RunFile(context.Background(), filepath.Join("testdata", "scenarios", "services-off.yaml"))
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	_, ok := result.Synthesis.Stack.Lookup("jobs/alarm-age")
	assert.False(t, ok)
	main, ok := result.Synthesis.Stack.Lookup("jobs/main")
	require.True(t, ok)
	assert.Empty(t, main.Tags)
}

func TestRun_UnexpectedOutcome(t *testing.T) {
	s := &Scenario{
		Name: "inverted",
		Manifest: map[string]any{
			"service":    "orders",
			"components": []any{map[string]any{"name": "api", "type": "function"}},
		},
		Expect: Expect{Outcome: OutcomeFailure, Code: "TARGET_NOT_FOUND"},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "run succeeded")
}

func TestRun_WrongCodeAndPhase(t *testing.T) {
	s := &Scenario{
		Name: "wrong-code",
		Manifest: map[string]any{
			"service":    "orders",
			"components": []any{map[string]any{"name": "cache", "type": "redis"}},
		},
		Expect: Expect{Outcome: OutcomeFailure, Code: "SYNTHESIS_FAILURE", Phase: "synthesize"},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected error code SYNTHESIS_FAILURE, got UNKNOWN_COMPONENT_TYPE")
	assert.Contains(t, result.Errors[1], "expected failure in phase synthesize, got instantiate")
}

func TestRun_InvalidManifest(t *testing.T) {
	s := &Scenario{
		Name:     "dupes",
		Manifest: map[string]any{"service": "orders", "components": []any{map[string]any{"name": "a", "type": "queue"}, map[string]any{"name": "a", "type": "queue"}}},
		Expect:   Expect{Outcome: OutcomeSuccess},
	}
	_, err := Run(context.Background(), s)
	assert.ErrorContains(t, err, "duplicate name")
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\nmanifest: {service: s}\nexpect: {outcome: success}\nassertion: []", "field assertion not found"},
		{"missing name", "manifest: {service: s}\nexpect: {outcome: success}", "name is required"},
		{"missing manifest", "name: x\nexpect: {outcome: success}", "manifest is required"},
		{"bad outcome", "name: x\nmanifest: {service: s}\nexpect: {outcome: maybe}", `got "maybe"`},
		{"failure without code", "name: x\nmanifest: {service: s}\nexpect: {outcome: failure}", "expect.code is required"},
		{"success with code", "name: x\nmanifest: {service: s}\nexpect: {outcome: success, code: X}", "only valid for failures"},
		{"unknown assertion", "name: x\nmanifest: {service: s}\nexpect: {outcome: success}\nassertions: [{type: vibes}]", `unknown type "vibes"`},
		{"incomplete binding", "name: x\nmanifest: {service: s}\nexpect: {outcome: success}\nassertions: [{type: binding_exists, source: a}]", "requires source, target and capability"},
		{"property without path", "name: x\nmanifest: {service: s}\nexpect: {outcome: success}\nassertions: [{type: construct_property, construct: a/main}]", "requires construct and path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := LoadScenario(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}
