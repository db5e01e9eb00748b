package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/patch"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/resolver"
	"github.com/Kristopherlb/shinobi/internal/testutil"
)

// Run executes a scenario and returns its result.
//
// Each scenario gets its own scratch directory for the platform config and
// patch file. The returned error reports a scenario that could not be set
// up (bad manifest, bad platform config); a run that fails is reported in
// the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	m, err := buildManifest(scenario.Manifest)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "shinobi-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	rec := testutil.NewLogRecorder()
	opts := []resolver.Option{
		resolver.WithLogger(rec.Logger()),
		resolver.WithClock(testutil.NewStepClock(time.Millisecond).Now),
		resolver.WithRunIDGenerator(testutil.FixedRunID(scenario.RunID)),
		resolver.WithPatchDir(dir),
	}
	if scenario.Platform != nil {
		cfg, err := loadPlatform(dir, scenario.Platform)
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithPlatformConfig(cfg))
	}
	if scenario.Patches != "" {
		if err := os.WriteFile(filepath.Join(dir, patch.FileName), []byte(scenario.Patches), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write patches: %w", err)
		}
	}

	res, runErr := resolver.New(opts...).Synthesize(ctx, m)

	result := NewResult()
	result.Synthesis = res
	result.Err = runErr
	result.Trace = buildTrace(res, runErr, rec.AtLevel(slog.LevelWarn))

	checkExpect(scenario.Expect, runErr, result)
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// RunFile loads and runs the scenario at path.
func RunFile(ctx context.Context, path string) (*Scenario, *Result, error) {
	s, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := Run(ctx, s)
	return s, res, err
}

func buildManifest(doc map[string]any) (*manifest.Manifest, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario manifest: %w", err)
	}
	return m, nil
}

// loadPlatform goes through platform.LoadConfig so scenarios see the same
// key handling as the CLI.
func loadPlatform(dir string, doc map[string]any) (*platform.Config, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode platform config: %w", err)
	}
	path := filepath.Join(dir, platform.DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write platform config: %w", err)
	}
	return platform.LoadConfig(path)
}

func buildTrace(res *resolver.SynthesisResult, runErr error, warnings []testutil.LogRecord) []TraceEvent {
	var trace []TraceEvent
	if res != nil {
		for _, c := range res.Summaries() {
			trace = append(trace, TraceEvent{
				Type:          EventComponent,
				Name:          c.Name,
				ComponentType: c.Type,
				Capabilities:  c.Capabilities,
			})
		}
	}
	for _, w := range warnings {
		ev := TraceEvent{Type: EventWarning, Message: w.Message}
		if name, ok := w.Attrs["component"].(string); ok {
			ev.Name = name
		}
		if t, ok := w.Attrs["type"].(string); ok {
			ev.ComponentType = t
		}
		trace = append(trace, ev)
	}
	if res != nil {
		for _, b := range res.Bindings {
			trace = append(trace, TraceEvent{
				Type:       EventBinding,
				Source:     b.Source,
				Target:     b.Target,
				Capability: b.Capability,
				Access:     b.Access,
				Strategy:   b.Strategy,
			})
		}
		if res.PatchesApplied {
			trace = append(trace, TraceEvent{Type: EventPatch, Phase: string(resolver.PhasePatch)})
		}
	}
	if runErr != nil {
		ev := TraceEvent{Type: EventError, Code: string(resolver.CodeOf(runErr)), Message: runErr.Error()}
		var re *resolver.Error
		if errors.As(runErr, &re) {
			ev.Phase = string(re.Phase)
			ev.Name = re.Component
			ev.ComponentType = re.ComponentType
		}
		trace = append(trace, ev)
	}
	return trace
}

func checkExpect(expect Expect, runErr error, result *Result) {
	if expect.Outcome == OutcomeSuccess {
		if runErr != nil {
			result.AddError(fmt.Sprintf("expected success, got %v", runErr))
		}
		return
	}

	if runErr == nil {
		result.AddError(fmt.Sprintf("expected failure %s, run succeeded", expect.Code))
		return
	}
	if code := string(resolver.CodeOf(runErr)); code != expect.Code {
		result.AddError(fmt.Sprintf("expected error code %s, got %s (%v)", expect.Code, code, runErr))
	}
	var re *resolver.Error
	if !errors.As(runErr, &re) {
		return
	}
	if expect.Phase != "" && string(re.Phase) != expect.Phase {
		result.AddError(fmt.Sprintf("expected failure in phase %s, got %s", expect.Phase, re.Phase))
	}
	if expect.Component != "" && re.Component != expect.Component {
		result.AddError(fmt.Sprintf("expected failure on component %s, got %q", expect.Component, re.Component))
	}
}
