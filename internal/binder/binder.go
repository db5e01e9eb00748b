package binder

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/manifest"
)

// Targets is the set of synthesized components a directive can bind to,
// in manifest order.
type Targets struct {
	order  []component.Component
	byName map[string]component.Component
}

// NewTargets indexes components by name. Order is preserved for selector scans.
func NewTargets(components []component.Component) *Targets {
	t := &Targets{
		order:  append([]component.Component(nil), components...),
		byName: make(map[string]component.Component, len(components)),
	}
	for _, c := range components {
		t.byName[c.Name()] = c
	}
	return t
}

// Resolve finds the target of a directive.
func (t *Targets) Resolve(d manifest.BindDirective) (component.Component, error) {
	if d.Select == nil {
		c, ok := t.byName[d.To]
		if !ok {
			return nil, newTargetNotFound(d.To)
		}
		return c, nil
	}

	var matches []component.Component
	for _, c := range t.order {
		if d.Select.Matches(c.Type(), c.Spec().Labels) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, newSelectorNoMatch(d.Select.String())
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, c := range matches {
			names[i] = c.Name()
		}
		return nil, newAmbiguousSelector(d.Select.String(), names)
	}
}

// Binder resolves directives and dispatches them to strategies.
type Binder struct {
	registry *Registry
}

// New creates a binder over a populated registry.
func New(r *Registry) *Binder {
	return &Binder{registry: r}
}

// Registry returns the strategy registry.
func (b *Binder) Registry() *Registry {
	return b.registry
}

// Outcome is a successful binding.
type Outcome struct {
	Target   component.Component
	Strategy string
	Result   Result
}

// Bind resolves the directive's target, picks the strategy for
// (source type, capability) and executes it. base supplies environment,
// framework and scope; Source, Target and Directive are filled in here.
//
// A failed Result is converted into a BINDING_EXECUTION_FAILURE error.
func (b *Binder) Bind(source component.Component, d manifest.BindDirective, targets *Targets, base Context) (*Outcome, error) {
	target, err := targets.Resolve(d)
	if err != nil {
		return nil, withSource(err, source.Name(), d)
	}

	rec, ok := b.registry.FindStrategy(source.Type(), d.Capability)
	if !ok {
		return nil, &Error{
			Code:      ErrCodeBindingExecution,
			Message:   fmt.Sprintf("no strategy binds source type %q to capability %q", source.Type(), d.Capability),
			Source:    source.Name(),
			Directive: d.String(),
			Target:    target.Name(),
		}
	}

	ctx := base
	ctx.Source = source
	ctx.Target = target
	ctx.Directive = d

	res := rec.Strategy.Bind(&ctx)
	if !res.Success {
		return nil, &Error{
			Code:      ErrCodeBindingExecution,
			Message:   fmt.Sprintf("strategy %s failed: %s", rec.Strategy.Name(), res.Error),
			Source:    source.Name(),
			Directive: d.String(),
			Target:    target.Name(),
		}
	}
	return &Outcome{Target: target, Strategy: rec.Strategy.Name(), Result: res}, nil
}

func withSource(err error, source string, d manifest.BindDirective) error {
	if be, ok := err.(*Error); ok {
		be.Source = source
		be.Directive = d.String()
		return be
	}
	return err
}
