package resolver

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kristopherlb/shinobi/internal/stack"
)

// Report is the serializable form of a SynthesisResult.
type Report struct {
	RunID           string             `json:"runId" yaml:"runId"`
	Service         string             `json:"service" yaml:"service"`
	Environment     string             `json:"environment" yaml:"environment"`
	Framework       string             `json:"framework" yaml:"framework"`
	Components      []ComponentSummary `json:"components" yaml:"components"`
	Bindings        []BindingRecord    `json:"bindings" yaml:"bindings"`
	PatchesApplied  bool               `json:"patchesApplied" yaml:"patchesApplied"`
	PatchInfo       map[string]any     `json:"patchInfo,omitempty" yaml:"patchInfo,omitempty"`
	SynthesisTimeMs int64              `json:"synthesisTimeMs" yaml:"synthesisTimeMs"`
	Constructs      []*stack.Construct `json:"constructs" yaml:"constructs"`
}

// Report builds the serializable view of the result.
func (r *SynthesisResult) Report() Report {
	bindings := r.Bindings
	if bindings == nil {
		bindings = []BindingRecord{}
	}
	return Report{
		RunID:           r.RunID,
		Service:         r.Service,
		Environment:     r.Environment,
		Framework:       r.Framework.String(),
		Components:      r.Summaries(),
		Bindings:        bindings,
		PatchesApplied:  r.PatchesApplied,
		PatchInfo:       r.PatchInfo,
		SynthesisTimeMs: r.SynthesisTimeMs,
		Constructs:      r.Stack.Constructs(),
	}
}

// Render writes the result as YAML.
func Render(w io.Writer, r *SynthesisResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Report()); err != nil {
		return err
	}
	return enc.Close()
}

// Summarize writes a compact, line-oriented summary of the result.
func Summarize(w io.Writer, r *SynthesisResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	fmt.Fprintf(&b, "service %s env=%s framework=%s\n", r.Service, r.Environment, r.Framework)

	b.WriteString("components:\n")
	for _, s := range r.Summaries() {
		fmt.Fprintf(&b, "  %s %s caps=[%s] constructs=[%s]\n",
			s.Name, s.Type, strings.Join(s.Capabilities, " "), strings.Join(s.Constructs, " "))
	}

	b.WriteString("bindings:\n")
	if len(r.Bindings) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, br := range r.Bindings {
		access := br.Access
		if access == "" {
			access = "-"
		}
		fmt.Fprintf(&b, "  %s -> %s %s access=%s strategy=%s resources=[%s]\n",
			br.Source, br.Target, br.Capability, access, br.Strategy, strings.Join(br.Result.Resources, " "))
	}

	fmt.Fprintf(&b, "patches_applied=%t\n", r.PatchesApplied)
	fmt.Fprintf(&b, "constructs=%d\n", r.Stack.Len())
	_, err := io.WriteString(w, b.String())
	return err
}
