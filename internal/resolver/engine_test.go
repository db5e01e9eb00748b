package resolver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Kristopherlb/shinobi/internal/binder"
	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/component/builtin"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/patch"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/services"
	"github.com/Kristopherlb/shinobi/internal/testutil"
)

func newEngine(t *testing.T, opts ...Option) (*Engine, *testutil.LogRecorder) {
	t.Helper()
	rec := testutil.NewLogRecorder()
	base := []Option{
		WithLogger(rec.Logger()),
		WithClock(testutil.NewStepClock(0).Now),
		WithRunIDGenerator(testutil.FixedRunID("run-test")),
		WithPatchDir(t.TempDir()),
	}
	return New(append(base, opts...)...), rec
}

func apiAndDB(to string) *manifest.Manifest {
	return &manifest.Manifest{
		Service: "orders",
		Components: []manifest.ComponentSpec{
			{
				Name:  "api",
				Type:  builtin.TypeFunction,
				Binds: []manifest.BindDirective{{To: to, Capability: builtin.CapabilityDataConnect, Access: "read"}},
			},
			{Name: "db", Type: builtin.TypeDatabase, Config: map[string]any{"engine": "postgres"}},
		},
	}
}

func paymentsQueues() *manifest.Manifest {
	payments := map[string]string{"team": "payments"}
	return &manifest.Manifest{
		Service: "orders",
		Components: []manifest.ComponentSpec{
			{Name: "jobs", Type: builtin.TypeQueue, Labels: payments},
			{Name: "refunds", Type: builtin.TypeQueue, Labels: payments},
			{
				Name: "worker",
				Type: builtin.TypeFunction,
				Binds: []manifest.BindDirective{{
					Select:     &manifest.Selector{Type: builtin.TypeQueue, WithLabels: payments},
					Capability: builtin.CapabilityQueue,
				}},
			},
		},
	}
}

func writePatches(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, patch.FileName), []byte(src), 0o644))
	return dir
}

func TestSynthesize_SingleComponentNoBinds(t *testing.T) {
	e, _ := newEngine(t)
	m := &manifest.Manifest{
		Service:    "orders",
		Components: []manifest.ComponentSpec{{Name: "assets", Type: builtin.TypeStorage}},
	}

	res, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)

	assert.Empty(t, res.Bindings)
	assert.False(t, res.PatchesApplied)
	require.Len(t, res.Components, 1)
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, DefaultEnvironment, res.Environment)
	assert.Equal(t, platform.Commercial, res.Framework)
	assert.Contains(t, res.Capabilities["assets"], builtin.CapabilityBucket)
}

func TestSynthesize_BindByName(t *testing.T) {
	e, _ := newEngine(t)

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)

	require.Len(t, res.Bindings, 1)
	b := res.Bindings[0]
	assert.Equal(t, "api", b.Source)
	assert.Equal(t, "db", b.Target)
	assert.Equal(t, builtin.CapabilityDataConnect, b.Capability)
	assert.Equal(t, "compute-database", b.Strategy)
	assert.True(t, b.Result.Success)
}

func TestSynthesize_TargetNotFound(t *testing.T) {
	e, _ := newEngine(t)

	res, err := e.Synthesize(context.Background(), apiAndDB("database"))
	require.Error(t, err)
	assert.Nil(t, res)

	assert.Equal(t, ErrCodeTargetNotFound, CodeOf(err))
	assert.True(t, binder.IsTargetNotFound(err))
	assert.Contains(t, err.Error(), `"database"`)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, PhaseBind, re.Phase)
	assert.Equal(t, "api", re.Component)
	assert.Equal(t, "to=database capability=data:connect access=read", re.Directive)
}

func TestSynthesize_AmbiguousSelector(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.Synthesize(context.Background(), paymentsQueues())
	require.Error(t, err)
	assert.Equal(t, ErrCodeAmbiguousSelector, CodeOf(err))
	assert.Contains(t, err.Error(), "jobs")
	assert.Contains(t, err.Error(), "refunds")

	var be *binder.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"jobs", "refunds"}, be.Matches)
}

func TestSynthesize_SelectorMatchesOne(t *testing.T) {
	m := paymentsQueues()
	m.Components[1].Labels = map[string]string{"team": "billing"}
	e, _ := newEngine(t)

	res, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	assert.Equal(t, "jobs", res.Bindings[0].Target)
	assert.Equal(t, "jobs", res.Bindings[0].Result.Metadata["target"])
}

func TestSynthesize_SelectorNoMatch(t *testing.T) {
	m := paymentsQueues()
	m.Components[0].Labels = nil
	m.Components[1].Labels = nil
	e, _ := newEngine(t)

	_, err := e.Synthesize(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, ErrCodeSelectorNoMatch, CodeOf(err))
	assert.Contains(t, err.Error(), "select{type=queue,team=payments}")
}

func TestSynthesize_PatchFileWithoutEntryPoint(t *testing.T) {
	dir := writePatches(t, `
contractVersion: "1.0.0"
patchInfo: {owner: "platform"}
`)
	e, rec := newEngine(t, WithPatchDir(dir))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	assert.False(t, res.PatchesApplied)
	assert.Equal(t, "platform", res.PatchInfo["owner"])

	warns := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "no entry point")
	assert.Equal(t, patch.EntryPoint, warns[0].Attrs["entry_point"])
}

func TestSynthesize_PatchFileApplied(t *testing.T) {
	dir := writePatches(t, `
contractVersion: "1.1.0"
applyPatches: [{component: "db", set: {"instance_class": "db.r5.2xlarge"}, reason: "load test"}]
`)
	e, _ := newEngine(t, WithPatchDir(dir))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	assert.True(t, res.PatchesApplied)

	main, ok := res.Stack.Lookup("db/main")
	require.True(t, ok)
	assert.Equal(t, "db.r5.2xlarge", main.Properties["instance_class"])
}

func TestSynthesize_PatchLoadFailure(t *testing.T) {
	dir := writePatches(t, `contractVersion: "2.0.0"`)
	e, _ := newEngine(t, WithPatchDir(dir))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, ErrCodePatchLoad, CodeOf(err))
	assert.Equal(t, patch.ErrCodeLoadFailure, patch.CodeOf(err))
}

func TestSynthesize_PatchModule(t *testing.T) {
	var seen *patch.Context
	mod := patch.Func(func(ctx *patch.Context) error {
		seen = ctx
		return nil
	})
	e, _ := newEngine(t, WithPatchModule(mod))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	assert.True(t, res.PatchesApplied)

	require.NotNil(t, seen)
	assert.Same(t, res.Stack, seen.Stack)
	assert.Len(t, seen.Components, 2)
	assert.Equal(t, "orders", seen.Manifest.Service)
	assert.Equal(t, "api/main", seen.Constructs["api"].ID)
	assert.Equal(t, "db/main", seen.Constructs["db"].ID)
}

func TestSynthesize_PatchExecutionFailure(t *testing.T) {
	boom := errors.New("boom")
	e, _ := newEngine(t, WithPatchModule(patch.Func(func(*patch.Context) error { return boom })))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, ErrCodePatchExecution, CodeOf(err))
	assert.ErrorIs(t, err, boom)
}

func TestSynthesize_UnknownComponentType(t *testing.T) {
	e, _ := newEngine(t)
	m := &manifest.Manifest{
		Service:    "orders",
		Components: []manifest.ComponentSpec{{Name: "cache", Type: "redis"}},
	}

	_, err := e.Synthesize(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownComponentType, CodeOf(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, PhaseInstantiate, re.Phase)
	assert.Equal(t, "cache", re.Component)
	assert.Equal(t, "redis", re.ComponentType)
}

func TestSynthesize_MissingRequiredField(t *testing.T) {
	e, _ := newEngine(t)
	m := &manifest.Manifest{
		Service:    "orders",
		Components: []manifest.ComponentSpec{{Name: "db", Type: builtin.TypeDatabase}},
	}

	_, err := e.Synthesize(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingRequiredField, CodeOf(err))
	assert.Contains(t, err.Error(), "engine")
}

func TestSynthesize_PlatformDefaultsSupplyRequiredField(t *testing.T) {
	cfg := &platform.Config{
		Defaults: map[string]map[string]any{builtin.TypeDatabase: {"engine": "postgres"}},
	}
	e, _ := newEngine(t, WithPlatformConfig(cfg))
	m := &manifest.Manifest{
		Service:    "orders",
		Components: []manifest.ComponentSpec{{Name: "db", Type: builtin.TypeDatabase}},
	}

	res, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)
	assert.Contains(t, res.Capabilities["db"], "db:postgres")
}

func TestSynthesize_UnknownFramework(t *testing.T) {
	e, _ := newEngine(t)
	m := apiAndDB("db")
	m.ComplianceFramework = "iso-27001"

	_, err := e.Synthesize(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInstantiation, CodeOf(err))
}

// broken fails synthesis after registering a construct.
type broken struct{ *component.Base }

func (b *broken) Synth() error {
	if _, err := b.AddConstruct(component.MainHandle, "nothing", map[string]any{}); err != nil {
		return err
	}
	return errors.New("provider rejected configuration")
}

func withBroken(fw platform.Framework) *component.Registry {
	r := builtin.NewFactory(fw)
	_ = r.Register("broken", func(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
		return &broken{component.NewBase(spec, ctx)}, nil
	})
	return r
}

func TestSynthesize_SynthesisFailure(t *testing.T) {
	e, _ := newEngine(t, WithFactory(withBroken))
	m := &manifest.Manifest{
		Service: "orders",
		Components: []manifest.ComponentSpec{
			{Name: "assets", Type: builtin.TypeStorage},
			{Name: "legacy", Type: "broken"},
		},
	}

	res, err := e.Synthesize(context.Background(), m)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, ErrCodeSynthesis, CodeOf(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, PhaseSynthesize, re.Phase)
	assert.Equal(t, "legacy", re.Component)
	assert.Contains(t, err.Error(), "provider rejected configuration")
}

// flaky fails for one component.
type flaky struct {
	fail    string
	applied []string
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) Apply(_ platform.ComponentContext, c component.Component) error {
	if c.Name() == f.fail {
		return errors.New("instrumentation unavailable")
	}
	f.applied = append(f.applied, c.Name())
	return nil
}

func TestSynthesize_PlatformServiceFailureIsBestEffort(t *testing.T) {
	svc := &flaky{fail: "api"}
	e, rec := newEngine(t, WithServices(svc))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, []string{"db"}, svc.applied)
	warns := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, "platform service failed", warns[0].Message)
	assert.Equal(t, "flaky", warns[0].Attrs["service"])
	assert.Equal(t, "api", warns[0].Attrs["component"])
}

func TestSynthesize_DefaultServicesRun(t *testing.T) {
	e, _ := newEngine(t)

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)

	_, ok := res.Stack.Lookup("db/alarm-cpu")
	assert.True(t, ok)
	main, _ := res.Stack.Lookup("api/main")
	assert.Equal(t, "orders", main.Tags[services.TagService])
}

func TestSynthesize_UnknownPlatformServiceIsSkipped(t *testing.T) {
	e, rec := newEngine(t, WithPlatformConfig(&platform.Config{Services: []string{"tagging", "tracing"}}))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	warns := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, "unknown platform service skipped", warns[0].Message)
	assert.Equal(t, "tracing", warns[0].Attrs["service"])

	main, _ := res.Stack.Lookup("db/main")
	assert.Equal(t, "shinobi", main.Tags[services.TagManagedBy])
	_, ok := res.Stack.Lookup("db/alarm-cpu")
	assert.False(t, ok)
}

func TestSynthesize_EmptyServiceListDisablesPhase(t *testing.T) {
	e, rec := newEngine(t, WithPlatformConfig(&platform.Config{Services: []string{}}))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	assert.Empty(t, rec.AtLevel(slog.LevelWarn))

	_, ok := res.Stack.Lookup("db/alarm-cpu")
	assert.False(t, ok)
	main, _ := res.Stack.Lookup("db/main")
	assert.Empty(t, main.Tags)
}

func TestSynthesize_DefaultServicesTagAlarms(t *testing.T) {
	e, _ := newEngine(t)

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	for _, c := range res.Stack.Constructs() {
		assert.Equal(t, "shinobi", c.Tags[services.TagManagedBy], "construct %s", c.ID)
	}
}

func TestSynthesize_NoServices(t *testing.T) {
	e, _ := newEngine(t, WithServices())

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	_, ok := res.Stack.Lookup("db/alarm-cpu")
	assert.False(t, ok)
}

func TestSynthesize_ForwardReference(t *testing.T) {
	// api is declared before db and still binds to it.
	e, _ := newEngine(t)
	m := apiAndDB("db")
	require.Equal(t, "api", m.Components[0].Name)

	_, err := e.Synthesize(context.Background(), m)
	assert.NoError(t, err)
}

func TestSynthesize_RepeatedRunsAreIdentical(t *testing.T) {
	e, _ := newEngine(t)
	m := &manifest.Manifest{
		Service: "orders",
		Components: []manifest.ComponentSpec{
			{
				Name: "api",
				Type: builtin.TypeLambdaAPI,
				Binds: []manifest.BindDirective{
					{To: "db", Capability: builtin.CapabilityDataConnect},
					{To: "jobs", Capability: builtin.CapabilityQueue, Access: "write"},
					{To: "assets", Capability: builtin.CapabilityBucket, Access: "read"},
				},
			},
			{Name: "db", Type: builtin.TypeDatabase, Config: map[string]any{"engine": "postgres"}},
			{Name: "jobs", Type: builtin.TypeQueue},
			{Name: "assets", Type: builtin.TypeStorage},
		},
	}

	first, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)
	second, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, first.Bindings, 3)
	assert.Equal(t, first.Bindings, second.Bindings)
	assert.NotSame(t, first.Stack, second.Stack)
	assert.Equal(t, first.Stack.Len(), second.Stack.Len())
}

func TestSynthesize_ManifestIsNotMutated(t *testing.T) {
	e, _ := newEngine(t)
	m := apiAndDB("db")
	m.Components[0].Config = map[string]any{"environment": map[string]any{"LOG_LEVEL": "info"}}

	_, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"environment": map[string]any{"LOG_LEVEL": "info"}}, m.Components[0].Config)
}

func TestSynthesize_EnvironmentPrecedence(t *testing.T) {
	cfg := &platform.Config{Environment: "staging", Region: "us-west-2", Account: "111111111111"}
	e, _ := newEngine(t, WithPlatformConfig(cfg))

	m := apiAndDB("db")
	res, err := e.Synthesize(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "staging", res.Environment)

	m.Environment = "prod"
	res, err = e.Synthesize(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "prod", res.Environment)
}

func TestSynthesize_Timing(t *testing.T) {
	e, _ := newEngine(t, WithClock(testutil.NewStepClock(40*time.Millisecond).Now))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.SynthesisTimeMs)
	assert.Equal(t, testutil.Epoch, res.StartedAt)
}

func TestSynthesize_CancelledContext(t *testing.T) {
	e, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Synthesize(ctx, apiAndDB("db"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesize_Summary(t *testing.T) {
	e, _ := newEngine(t, WithRunIDGenerator(NewFixedGenerator("run-golden")))

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Summarize(&buf, res))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "api_db_summary", buf.Bytes())
}

func TestRender_YAML(t *testing.T) {
	e, _ := newEngine(t)

	res, err := e.Synthesize(context.Background(), apiAndDB("db"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res))

	var report Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "run-test", report.RunID)
	assert.Equal(t, "commercial", report.Framework)
	require.Len(t, report.Components, 2)
	assert.Equal(t, []string{"compute:function"}, report.Components[0].Capabilities)
	require.Len(t, report.Bindings, 1)
	assert.Equal(t, "compute-database", report.Bindings[0].Strategy)
	assert.Equal(t, res.Stack.Len(), len(report.Constructs))
}
