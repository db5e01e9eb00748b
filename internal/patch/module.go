package patch

import (
	"fmt"
	"sort"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// Context is what a patch module sees. Constructs maps each component name
// to its main construct.
type Context struct {
	Stack      *stack.Stack
	Components []component.Component
	Manifest   *manifest.Manifest
	Constructs map[string]*stack.Construct
}

// NewContext builds a patch context from already-synthesized components.
// Components without a main construct are left out of Constructs.
func NewContext(s *stack.Stack, components []component.Component, m *manifest.Manifest) *Context {
	constructs := make(map[string]*stack.Construct, len(components))
	for _, c := range components {
		if main, err := c.Construct(component.MainHandle); err == nil {
			constructs[c.Name()] = main
		}
	}
	return &Context{Stack: s, Components: components, Manifest: m, Constructs: constructs}
}

// Module is a loaded patch module.
type Module interface {
	ApplyPatches(ctx *Context) error
}

// Describer is implemented by modules that carry free-form metadata.
type Describer interface {
	PatchInfo() map[string]any
}

// Func adapts a function to the Module interface.
type Func func(ctx *Context) error

func (f Func) ApplyPatches(ctx *Context) error { return f(ctx) }

// Patch is one override entry.
type Patch struct {
	Component string `json:"component"`

	// Construct is the handle to patch. Empty means the main construct.
	Construct string `json:"construct,omitempty"`

	// Set maps dotted property paths to replacement values.
	Set    map[string]any    `json:"set,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

// target finds the construct a patch applies to.
func (p Patch) target(ctx *Context) (*stack.Construct, error) {
	if p.Construct == "" || p.Construct == component.MainHandle {
		c, ok := ctx.Constructs[p.Component]
		if !ok {
			return nil, fmt.Errorf("component %q has no main construct", p.Component)
		}
		return c, nil
	}
	c, ok := ctx.Stack.Lookup(stack.ID(p.Component, p.Construct))
	if !ok {
		return nil, fmt.Errorf("construct %q of component %q not found", p.Construct, p.Component)
	}
	return c, nil
}

// apply writes the patch. Paths are applied in sorted order.
func (p Patch) apply(ctx *Context) error {
	c, err := p.target(ctx)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(p.Set))
	for path := range p.Set {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := c.Set(path, p.Set[path]); err != nil {
			return err
		}
	}
	for k, v := range p.Tags {
		c.Tag(k, v)
	}
	return nil
}

// File is a patch module read from patches.cue.
type File struct {
	Path            string
	ContractVersion string
	Info            map[string]any
	Patches         []Patch
}

// PatchInfo returns the file's patchInfo block.
func (f *File) PatchInfo() map[string]any { return f.Info }

// ApplyPatches applies every entry in order and stops at the first failure.
func (f *File) ApplyPatches(ctx *Context) error {
	for i, p := range f.Patches {
		if err := p.apply(ctx); err != nil {
			return ExecutionError(f.Path, i, err)
		}
	}
	return nil
}
