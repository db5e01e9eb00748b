package component

import (
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// MainHandle is the handle of a component's primary construct.
const MainHandle = "main"

// Capability is the opaque value a component publishes under a
// "domain:resource" key. It is the only contract between components.
type Capability map[string]any

// Synthesizer turns resolved configuration into constructs.
type Synthesizer interface {
	Synth() error
}

// CapabilityProvider exposes the capabilities published during Synth.
type CapabilityProvider interface {
	Capabilities() (map[string]Capability, error)
}

// ConstructProvider exposes constructs by component-local handle.
type ConstructProvider interface {
	Construct(handle string) (*stack.Construct, error)
	Handles() []string
}

// Component is a synthesizable unit of infrastructure configuration.
type Component interface {
	Synthesizer
	CapabilityProvider
	ConstructProvider

	Name() string
	Type() string
	Spec() manifest.ComponentSpec
}

// Constructor builds a component from its spec and the run context.
// Constructors must not synthesize; they only validate and resolve config.
type Constructor func(spec manifest.ComponentSpec, ctx platform.ComponentContext) (Component, error)
