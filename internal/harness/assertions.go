package harness

import (
	"fmt"
	"strings"

	"github.com/Kristopherlb/shinobi/internal/stack"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev)
	}
	return buf.String()
}

// String renders an event on one line.
func (ev TraceEvent) String() string {
	switch ev.Type {
	case EventComponent:
		return fmt.Sprintf("component %s (%s) caps=%v", ev.Name, ev.ComponentType, ev.Capabilities)
	case EventBinding:
		return fmt.Sprintf("binding %s -> %s %s strategy=%s", ev.Source, ev.Target, ev.Capability, ev.Strategy)
	case EventWarning:
		return fmt.Sprintf("warning %q component=%s", ev.Message, ev.Name)
	case EventError:
		return fmt.Sprintf("error %s phase=%s: %s", ev.Code, ev.Phase, ev.Message)
	default:
		return ev.Type
	}
}

// EvaluateAssertions checks every assertion against result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	if a.Type == AssertWarningLogged {
		return assertWarningLogged(result.Trace, a)
	}
	if result.Synthesis == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "a synthesis result",
			Actual:   fmt.Sprintf("run failed: %v", result.Err),
			Trace:    result.Trace,
		}
	}

	switch a.Type {
	case AssertBindingExists:
		return assertBindingExists(result, a)
	case AssertBindingCount:
		return assertBindingCount(result, a)
	case AssertConstructExists:
		_, err := lookupConstruct(result, a)
		return err
	case AssertConstructProperty:
		return assertConstructProperty(result, a)
	case AssertConstructTag:
		return assertConstructTag(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertBindingExists(result *Result, a Assertion) error {
	for _, b := range result.Synthesis.Bindings {
		if b.Source != a.Source || b.Target != a.Target || b.Capability != a.Capability {
			continue
		}
		if a.Strategy != "" && b.Strategy != a.Strategy {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s -> %s %s via %s", a.Source, a.Target, a.Capability, a.Strategy),
				Actual:   fmt.Sprintf("bound via %s", b.Strategy),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("binding %s -> %s %s", a.Source, a.Target, a.Capability),
		Actual:   "not found",
		Trace:    result.Trace,
	}
}

func assertBindingCount(result *Result, a Assertion) error {
	if n := len(result.Synthesis.Bindings); n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d bindings", a.Count),
			Actual:   fmt.Sprintf("%d bindings", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

func lookupConstruct(result *Result, a Assertion) (*stack.Construct, error) {
	c, ok := result.Synthesis.Stack.Lookup(a.Construct)
	if !ok {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("construct %s", a.Construct),
			Actual:   "not in stack",
			Trace:    result.Trace,
		}
	}
	return c, nil
}

// assertConstructProperty compares rendered values, so YAML integers match
// float or int properties alike.
func assertConstructProperty(result *Result, a Assertion) error {
	c, err := lookupConstruct(result, a)
	if err != nil {
		return err
	}
	got, ok := c.Get(a.Path)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %v", a.Construct, a.Path, a.Value),
			Actual:   "property not set",
			Trace:    result.Trace,
		}
	}
	if fmt.Sprint(got) != fmt.Sprint(a.Value) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %v", a.Construct, a.Path, a.Value),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertConstructTag(result *Result, a Assertion) error {
	c, err := lookupConstruct(result, a)
	if err != nil {
		return err
	}
	got, ok := c.Tags[a.Key]
	if !ok || (a.Value != nil && got != fmt.Sprint(a.Value)) {
		actual := "tag not set"
		if ok {
			actual = got
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s tag %s = %v", a.Construct, a.Key, a.Value),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertWarningLogged(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Type == EventWarning && strings.Contains(ev.Message, a.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("warning containing %q", a.Message),
		Actual:   "no such warning",
		Trace:    trace,
	}
}
