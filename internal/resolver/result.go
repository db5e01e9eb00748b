package resolver

import (
	"sort"
	"time"

	"github.com/Kristopherlb/shinobi/internal/binder"
	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// BindingRecord is one executed binding, in execution order.
type BindingRecord struct {
	Source     string        `json:"source" yaml:"source"`
	Target     string        `json:"target" yaml:"target"`
	Capability string        `json:"capability" yaml:"capability"`
	Access     string        `json:"access,omitempty" yaml:"access,omitempty"`
	Strategy   string        `json:"strategy" yaml:"strategy"`
	Result     binder.Result `json:"result" yaml:"result"`
}

// SynthesisResult is the product of a successful run. It is never
// modified after Synthesize returns it.
type SynthesisResult struct {
	RunID       string
	Service     string
	Environment string
	Framework   platform.Framework
	StartedAt   time.Time

	// Components are in manifest order.
	Components []component.Component

	// Capabilities maps component name to its published capabilities.
	Capabilities map[string]map[string]component.Capability

	Bindings        []BindingRecord
	PatchesApplied  bool
	PatchInfo       map[string]any
	SynthesisTimeMs int64

	Stack *stack.Stack
}

// ComponentSummary is the serializable view of a synthesized component.
type ComponentSummary struct {
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Constructs   []string `json:"constructs" yaml:"constructs"`
}

// Summaries describes the components in manifest order.
func (r *SynthesisResult) Summaries() []ComponentSummary {
	out := make([]ComponentSummary, 0, len(r.Components))
	for _, c := range r.Components {
		caps := make([]string, 0, len(r.Capabilities[c.Name()]))
		for k := range r.Capabilities[c.Name()] {
			caps = append(caps, k)
		}
		sort.Strings(caps)
		out = append(out, ComponentSummary{
			Name:         c.Name(),
			Type:         c.Type(),
			Capabilities: caps,
			Constructs:   c.Handles(),
		})
	}
	return out
}
