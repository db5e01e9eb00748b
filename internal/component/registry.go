package component

import (
	"fmt"
	"sort"

	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// Registry constructs components by manifest type.
//
// Registries are populated before a run and read-only during it.
type Registry struct {
	framework    platform.Framework
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry for a compliance framework.
func NewRegistry(fw platform.Framework) *Registry {
	return &Registry{framework: fw, constructors: make(map[string]Constructor)}
}

// Framework returns the compliance framework the registry was built for.
func (r *Registry) Framework() platform.Framework {
	return r.framework
}

// Register binds a type tag to a constructor.
func (r *Registry) Register(componentType string, c Constructor) error {
	if c == nil {
		return fmt.Errorf("register %q: nil constructor", componentType)
	}
	if _, exists := r.constructors[componentType]; exists {
		return fmt.Errorf("register %q: type already registered", componentType)
	}
	r.constructors[componentType] = c
	return nil
}

// Replace binds a type tag to a constructor, overriding any existing one.
func (r *Registry) Replace(componentType string, c Constructor) {
	r.constructors[componentType] = c
}

// Create dispatches on spec.Type. No synthesis happens here.
func (r *Registry) Create(spec manifest.ComponentSpec, ctx platform.ComponentContext) (Component, error) {
	c, ok := r.constructors[spec.Type]
	if !ok {
		return nil, &UnknownTypeError{Component: spec.Name, Type: spec.Type, Known: r.Types()}
	}
	return c(spec, ctx)
}

// Types returns registered type tags in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
