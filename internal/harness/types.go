package harness

import "github.com/Kristopherlb/shinobi/internal/resolver"

// Trace event types.
const (
	EventComponent = "component"
	EventWarning   = "warning"
	EventBinding   = "binding"
	EventPatch     = "patch"
	EventError     = "error"
)

// TraceEvent is one observable step of a run.
type TraceEvent struct {
	Type string `json:"type"`

	// component and warning events
	Name          string   `json:"name,omitempty"`
	ComponentType string   `json:"component_type,omitempty"`
	Capabilities  []string `json:"capabilities,omitempty"`

	// binding events
	Source     string `json:"source,omitempty"`
	Target     string `json:"target,omitempty"`
	Capability string `json:"capability,omitempty"`
	Access     string `json:"access,omitempty"`
	Strategy   string `json:"strategy,omitempty"`

	// warning, patch and error events
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Phase   string `json:"phase,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when the outcome matched and every assertion held.
	Pass bool

	// Trace is the ordered record of the run.
	Trace []TraceEvent

	// Errors lists every expectation or assertion that failed.
	Errors []string

	// Synthesis is the run result; nil when the run failed.
	Synthesis *resolver.SynthesisResult

	// Err is the run error; nil when the run succeeded.
	Err error
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
