package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Kristopherlb/shinobi/internal/binder"
	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/component/builtin"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/patch"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/services"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// DefaultEnvironment is used when neither the manifest nor the platform
// config names an environment.
const DefaultEnvironment = "dev"

// FactoryFunc returns the component registry for a framework.
type FactoryFunc func(fw platform.Framework) *component.Registry

// Engine runs synthesis. An Engine holds no per-run state and can run
// any number of manifests sequentially.
type Engine struct {
	logger   *slog.Logger
	now      func() time.Time
	runIDs   RunIDGenerator
	platform *platform.Config
	factory  FactoryFunc
	binder   *binder.Binder

	// services is nil until set; nil means "derive from platform config".
	services []services.Service

	patchDir    string
	patchModule patch.Module
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the wall clock used for timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithPlatformConfig sets the platform defaults and environment overrides.
func WithPlatformConfig(cfg *platform.Config) Option {
	return func(e *Engine) { e.platform = cfg }
}

// WithFactory replaces the component factory. Default: builtin.NewFactory.
func WithFactory(f FactoryFunc) Option {
	return func(e *Engine) { e.factory = f }
}

// WithBinderRegistry replaces the strategy registry. Default:
// binder.DefaultRegistry.
func WithBinderRegistry(r *binder.Registry) Option {
	return func(e *Engine) { e.binder = binder.New(r) }
}

// WithServices sets the platform services explicitly, overriding the
// platform config's list. Pass none to disable phase 3.
func WithServices(svcs ...services.Service) Option {
	return func(e *Engine) { e.services = append([]services.Service{}, svcs...) }
}

// WithPatchDir sets the directory searched for patch.FileName.
// Default: the working directory.
func WithPatchDir(dir string) Option {
	return func(e *Engine) { e.patchDir = dir }
}

// WithPatchModule supplies a patch module directly. The patch directory is
// not consulted.
func WithPatchModule(m patch.Module) Option {
	return func(e *Engine) { e.patchModule = m }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		runIDs:   UUIDv7Generator{},
		platform: &platform.Config{},
		factory:  builtin.NewFactory,
		binder:   binder.New(binder.DefaultRegistry()),
		patchDir: ".",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the binder registry in use.
func (e *Engine) Registry() *binder.Registry {
	return e.binder.Registry()
}

// run is the state of one synthesis run.
type run struct {
	id         string
	manifest   *manifest.Manifest
	ctx        platform.ComponentContext
	components []component.Component
	caps       map[string]map[string]component.Capability
	bindings   []BindingRecord
	patched    bool
	patchInfo  map[string]any
	log        *slog.Logger
}

// Synthesize runs the pipeline over m. It returns either a complete result
// or a single *Error; never both.
func (e *Engine) Synthesize(ctx context.Context, m *manifest.Manifest) (*SynthesisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := e.now()

	r, err := e.newRun(m)
	if err != nil {
		return nil, err
	}
	r.log.InfoContext(ctx, "synthesis started", "components", len(m.Components), "framework", r.ctx.Framework)

	if err := e.instantiate(r); err != nil {
		return nil, err
	}
	if err := e.synthesize(r); err != nil {
		return nil, err
	}
	e.applyServices(ctx, r)
	if err := e.bind(ctx, r); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.patch(ctx, r); err != nil {
		return nil, err
	}

	elapsed := e.now().Sub(start)
	r.log.InfoContext(ctx, "synthesis complete",
		"bindings", len(r.bindings),
		"constructs", r.ctx.Scope.Len(),
		"patches_applied", r.patched,
		"elapsed_ms", elapsed.Milliseconds())

	return &SynthesisResult{
		RunID:           r.id,
		Service:         m.Service,
		Environment:     r.ctx.Environment,
		Framework:       r.ctx.Framework,
		StartedAt:       start,
		Components:      r.components,
		Capabilities:    r.caps,
		Bindings:        r.bindings,
		PatchesApplied:  r.patched,
		PatchInfo:       r.patchInfo,
		SynthesisTimeMs: elapsed.Milliseconds(),
		Stack:           r.ctx.Scope,
	}, nil
}

func (e *Engine) newRun(m *manifest.Manifest) (*run, error) {
	fw, err := platform.ParseFramework(m.ComplianceFramework)
	if err != nil {
		return nil, &Error{Code: ErrCodeInstantiation, Phase: PhaseInstantiate, Err: err}
	}
	env := firstNonEmpty(m.Environment, e.platform.Environment, DefaultEnvironment)
	cctx := platform.NewContext(
		m.Service,
		env,
		fw,
		firstNonEmpty(m.Region, e.platform.Region),
		firstNonEmpty(m.Account, e.platform.Account),
		stack.New(m.Service),
		e.platform,
	)
	id := e.runIDs.Generate()
	return &run{
		id:       id,
		manifest: m,
		ctx:      cctx,
		caps:     make(map[string]map[string]component.Capability, len(m.Components)),
		log:      e.logger.With("run_id", id, "service", m.Service, "environment", env),
	}, nil
}

// instantiate is phase 1.
func (e *Engine) instantiate(r *run) error {
	reg := e.factory(r.ctx.Framework)
	for _, spec := range r.manifest.Components {
		c, err := reg.Create(spec, r.ctx)
		if err != nil {
			return &Error{
				Code:          instantiateCode(err),
				Phase:         PhaseInstantiate,
				Component:     spec.Name,
				ComponentType: spec.Type,
				Err:           err,
			}
		}
		r.components = append(r.components, c)
	}
	r.log.Debug("components instantiated", "count", len(r.components))
	return nil
}

// synthesize is phase 2. Components synthesized before a failure are not
// rolled back; the run is simply abandoned.
func (e *Engine) synthesize(r *run) error {
	for _, c := range r.components {
		fail := func(err error) error {
			return &Error{
				Code:          ErrCodeSynthesis,
				Phase:         PhaseSynthesize,
				Component:     c.Name(),
				ComponentType: c.Type(),
				Err:           err,
			}
		}
		if err := c.Synth(); err != nil {
			return fail(err)
		}
		caps, err := c.Capabilities()
		if err != nil {
			return fail(err)
		}
		r.caps[c.Name()] = caps
		r.log.Debug("component synthesized", "component", c.Name(), "type", c.Type(), "capabilities", len(caps))
	}
	return nil
}

// applyServices is phase 3. It never fails the run.
func (e *Engine) applyServices(ctx context.Context, r *run) {
	svcs := e.services
	if svcs == nil {
		names := e.platform.Services
		if names == nil {
			names = platform.DefaultServices
		}
		var unknown []string
		svcs, unknown = services.Select(names)
		for _, n := range unknown {
			r.log.WarnContext(ctx, "unknown platform service skipped", "service", n, "known", services.Known())
		}
		if len(svcs) == 0 {
			r.log.DebugContext(ctx, "platform services disabled")
			return
		}
	}
	for _, svc := range svcs {
		for _, c := range r.components {
			if err := svc.Apply(r.ctx, c); err != nil {
				r.log.WarnContext(ctx, "platform service failed",
					"service", svc.Name(),
					"component", c.Name(),
					"type", c.Type(),
					"error", err)
			}
		}
	}
}

// bind is phase 4.
func (e *Engine) bind(ctx context.Context, r *run) error {
	targets := binder.NewTargets(r.components)
	base := binder.Context{
		Environment: r.ctx.Environment,
		Framework:   r.ctx.Framework,
		Scope:       r.ctx.Scope,
	}
	for _, c := range r.components {
		for _, d := range c.Spec().Binds {
			out, err := e.binder.Bind(c, d, targets, base)
			if err != nil {
				return &Error{
					Code:          ErrorCode(binder.CodeOf(err)),
					Phase:         PhaseBind,
					Component:     c.Name(),
					ComponentType: c.Type(),
					Directive:     d.String(),
					Err:           err,
				}
			}
			r.bindings = append(r.bindings, BindingRecord{
				Source:     c.Name(),
				Target:     out.Target.Name(),
				Capability: d.Capability,
				Access:     d.Access,
				Strategy:   out.Strategy,
				Result:     out.Result,
			})
			r.log.DebugContext(ctx, "binding executed",
				"source", c.Name(),
				"target", out.Target.Name(),
				"capability", d.Capability,
				"strategy", out.Strategy)
		}
	}
	return nil
}

// patch is phase 5.
func (e *Engine) patch(ctx context.Context, r *run) error {
	mod := e.patchModule
	source := "module"
	if mod == nil {
		f, err := patch.Load(e.patchDir)
		switch {
		case errors.Is(err, patch.ErrNoEntryPoint):
			r.log.WarnContext(ctx, "patch module has no entry point; no patches applied",
				"path", f.Path, "entry_point", patch.EntryPoint)
			r.patchInfo = f.PatchInfo()
			return nil
		case err != nil:
			return &Error{Code: ErrCodePatchLoad, Phase: PhasePatch, Err: err}
		case f == nil:
			return nil
		}
		mod, source = f, f.Path
	}

	if d, ok := mod.(patch.Describer); ok {
		r.patchInfo = d.PatchInfo()
	}
	r.log.InfoContext(ctx, "applying patches", "source", source, "patch_info", r.patchInfo)

	pctx := patch.NewContext(r.ctx.Scope, r.components, r.manifest)
	if err := mod.ApplyPatches(pctx); err != nil {
		if patch.CodeOf(err) == "" {
			err = patch.ExecutionError(source, -1, err)
		}
		return &Error{Code: ErrorCode(patch.CodeOf(err)), Phase: PhasePatch, Err: err}
	}
	r.patched = true
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// String renders a one-line summary of the result.
func (r *SynthesisResult) String() string {
	return fmt.Sprintf("%s/%s: %d components, %d bindings, patches=%t, %dms",
		r.Service, r.Environment, len(r.Components), len(r.Bindings), r.PatchesApplied, r.SynthesisTimeMs)
}
