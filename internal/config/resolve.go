package config

import (
	"fmt"
	"strings"

	"github.com/Kristopherlb/shinobi/internal/platform"
)

// Defaults describes the static layers of a component type.
//
// Compliance tables should get stricter as frameworks escalate. The engine
// does not check this; each component type's table is responsible for it.
type Defaults struct {
	// Type is the component type the defaults belong to.
	Type string

	// Fallback is the hardcoded baseline. It must be complete enough to
	// synthesize from with an empty manifest entry.
	Fallback map[string]any

	// Compliance holds per-framework defaults.
	Compliance map[platform.Framework]map[string]any

	// Required lists dotted paths that must resolve to a non-empty value.
	Required []string
}

// Effective is a resolved configuration.
type Effective struct {
	values  map[string]any
	sources map[string]LayerName
}

// Resolve builds the five layers for a component and merges them.
//
// The platform and environment layers come from ctx.Platform. manifest is
// the component's config block from the manifest and is not modified.
func Resolve(d Defaults, component string, manifest map[string]any, ctx platform.ComponentContext) (*Effective, error) {
	layers := []Layer{
		{Name: LayerFallback, Values: d.Fallback},
		{Name: LayerCompliance, Values: d.Compliance[ctx.Framework]},
		{Name: LayerPlatform, Values: ctx.Platform.PlatformDefaults(d.Type)},
		{Name: LayerEnvironment, Values: ctx.Platform.EnvironmentOverrides(ctx.Environment, d.Type)},
		{Name: LayerManifest, Values: manifest},
	}

	values, sources := MergeLayers(layers...)
	eff := &Effective{values: values, sources: sources}

	for _, field := range d.Required {
		if !eff.present(field) {
			return nil, &MissingFieldError{Component: component, ComponentType: d.Type, Field: field}
		}
	}
	return eff, nil
}

// NewEffective wraps already-merged values. Every leaf is attributed to the
// manifest layer.
func NewEffective(values map[string]any) *Effective {
	sources := map[string]LayerName{}
	recordSources(sources, "", values, LayerManifest)
	return &Effective{values: CopyMap(values), sources: sources}
}

func (e *Effective) present(path string) bool {
	v, ok := e.Get(path)
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// Get returns the value at a dotted path.
func (e *Effective) Get(path string) (any, bool) {
	var cur any = e.values
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "" when absent or not a string.
func (e *Effective) String(path string) string {
	v, _ := e.Get(path)
	s, _ := v.(string)
	return s
}

// Bool returns the bool at path, or false.
func (e *Effective) Bool(path string) bool {
	v, _ := e.Get(path)
	b, _ := v.(bool)
	return b
}

// Int returns the integer at path. YAML, JSON and viper decode numbers to
// different Go types, so all common numeric kinds are accepted.
func (e *Effective) Int(path string) int {
	v, _ := e.Get(path)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// Map returns a copy of the map at path, or nil.
func (e *Effective) Map(path string) map[string]any {
	v, _ := e.Get(path)
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return CopyMap(m)
}

// Strings returns the string slice at path.
func (e *Effective) Strings(path string) []string {
	v, _ := e.Get(path)
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// Values returns a deep copy of the merged configuration.
func (e *Effective) Values() map[string]any {
	return CopyMap(e.values)
}

// Source returns the layer that supplied the leaf at path.
func (e *Effective) Source(path string) (LayerName, bool) {
	l, ok := e.sources[path]
	return l, ok
}

// Explain lists every leaf path with the layer that supplied it, sorted by path.
func (e *Effective) Explain() []string {
	paths := sortedPaths(e.sources)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, fmt.Sprintf("%s=%s", p, e.sources[p]))
	}
	return out
}
