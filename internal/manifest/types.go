package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Kristopherlb/shinobi/internal/config"
)

// Manifest is a parsed service manifest.
type Manifest struct {
	Service             string            `yaml:"service" json:"service"`
	Owner               string            `yaml:"owner,omitempty" json:"owner,omitempty"`
	ComplianceFramework string            `yaml:"complianceFramework,omitempty" json:"complianceFramework,omitempty"`
	Environment         string            `yaml:"environment,omitempty" json:"environment,omitempty"`
	Region              string            `yaml:"region,omitempty" json:"region,omitempty"`
	Account             string            `yaml:"account,omitempty" json:"account,omitempty"`
	Labels              map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Components          []ComponentSpec   `yaml:"components" json:"components"`
}

// ComponentSpec declares one component. Immutable once handed to the resolver.
type ComponentSpec struct {
	Name   string            `yaml:"name" json:"name"`
	Type   string            `yaml:"type" json:"type"`
	Config map[string]any    `yaml:"config,omitempty" json:"config,omitempty"`
	Binds  []BindDirective   `yaml:"binds,omitempty" json:"binds,omitempty"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// ConfigCopy returns a deep copy of the component's config block.
func (s ComponentSpec) ConfigCopy() map[string]any {
	return config.CopyMap(s.Config)
}

// BindDirective asks for the owning component to consume a capability of
// another component. Exactly one of To and Select is set.
type BindDirective struct {
	To         string         `yaml:"to,omitempty" json:"to,omitempty"`
	Select     *Selector      `yaml:"select,omitempty" json:"select,omitempty"`
	Capability string         `yaml:"capability" json:"capability"`
	Access     string         `yaml:"access,omitempty" json:"access,omitempty"`
	Options    map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// String renders the directive for error messages and logs.
func (d BindDirective) String() string {
	var b strings.Builder
	if d.Select != nil {
		b.WriteString(d.Select.String())
	} else {
		b.WriteString("to=" + d.To)
	}
	b.WriteString(" capability=" + d.Capability)
	if d.Access != "" {
		b.WriteString(" access=" + d.Access)
	}
	return b.String()
}

// Selector resolves a bind target by type and labels.
type Selector struct {
	Type       string            `yaml:"type" json:"type"`
	WithLabels map[string]string `yaml:"withLabels,omitempty" json:"withLabels,omitempty"`
}

// String renders the selector with labels in sorted order,
// e.g. select{type=queue,team=payments}.
func (s Selector) String() string {
	parts := []string{"type=" + s.Type}
	keys := make([]string, 0, len(s.WithLabels))
	for k := range s.WithLabels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, s.WithLabels[k]))
	}
	return "select{" + strings.Join(parts, ",") + "}"
}

// Matches reports whether a component of the given type and labels satisfies
// the selector: equal type, and every selector label present with an equal value.
func (s Selector) Matches(componentType string, labels map[string]string) bool {
	if componentType != s.Type {
		return false
	}
	for k, want := range s.WithLabels {
		got, ok := labels[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Component returns the spec with the given name.
func (m *Manifest) Component(name string) (ComponentSpec, bool) {
	for _, c := range m.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// Names returns component names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Components))
	for _, c := range m.Components {
		names = append(names, c.Name)
	}
	return names
}
