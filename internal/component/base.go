package component

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// Base implements the query side of Component. Concrete components embed it
// and implement Synth, calling AddConstruct and Publish and finishing with
// MarkSynthesized.
type Base struct {
	spec manifest.ComponentSpec
	ctx  platform.ComponentContext

	synthesized  bool
	handles      []string
	constructs   map[string]*stack.Construct
	capabilities map[string]Capability
}

// NewBase creates a Base for spec.
func NewBase(spec manifest.ComponentSpec, ctx platform.ComponentContext) *Base {
	return &Base{
		spec:         spec,
		ctx:          ctx,
		constructs:   make(map[string]*stack.Construct),
		capabilities: make(map[string]Capability),
	}
}

func (b *Base) Name() string                       { return b.spec.Name }
func (b *Base) Type() string                       { return b.spec.Type }
func (b *Base) Spec() manifest.ComponentSpec       { return b.spec }
func (b *Base) Context() platform.ComponentContext { return b.ctx }

// AddConstruct creates a construct under handle and registers it in the
// run's stack as "<component>/<handle>".
func (b *Base) AddConstruct(handle, kind string, props map[string]any) (*stack.Construct, error) {
	if _, exists := b.constructs[handle]; exists {
		return nil, fmt.Errorf("component %q: duplicate construct handle %q", b.spec.Name, handle)
	}
	c := stack.NewConstruct(stack.ID(b.spec.Name, handle), kind, props)
	if b.ctx.Scope != nil {
		if err := b.ctx.Scope.Add(c); err != nil {
			return nil, fmt.Errorf("component %q: %w", b.spec.Name, err)
		}
	}
	b.constructs[handle] = c
	b.handles = append(b.handles, handle)
	return c, nil
}

// Publish records a capability. Keys are unique per component.
func (b *Base) Publish(key string, value Capability) error {
	if _, exists := b.capabilities[key]; exists {
		return fmt.Errorf("component %q: capability %q already published", b.spec.Name, key)
	}
	b.capabilities[key] = value
	return nil
}

// MarkSynthesized opens the query side.
func (b *Base) MarkSynthesized() {
	b.synthesized = true
}

// Synthesized reports whether Synth has completed.
func (b *Base) Synthesized() bool {
	return b.synthesized
}

// Capabilities returns a copy of the published capabilities.
func (b *Base) Capabilities() (map[string]Capability, error) {
	if !b.synthesized {
		return nil, fmt.Errorf("capabilities of %q: %w", b.spec.Name, ErrNotSynthesized)
	}
	out := make(map[string]Capability, len(b.capabilities))
	for k, v := range b.capabilities {
		cp := make(Capability, len(v))
		for ck, cv := range v {
			cp[ck] = cv
		}
		out[k] = cp
	}
	return out, nil
}

// Construct returns the construct registered under handle.
func (b *Base) Construct(handle string) (*stack.Construct, error) {
	if !b.synthesized {
		return nil, fmt.Errorf("construct %q of %q: %w", handle, b.spec.Name, ErrNotSynthesized)
	}
	c, ok := b.constructs[handle]
	if !ok {
		return nil, &HandleError{Component: b.spec.Name, Handle: handle}
	}
	return c, nil
}

// Handles returns construct handles in registration order.
func (b *Base) Handles() []string {
	return append([]string(nil), b.handles...)
}
