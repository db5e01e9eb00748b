// Package services implements the platform-wide cross-cutting services
// applied to every synthesized component.
//
// Services run after synthesis and before binding. A service failure on
// one component is reported to the caller, which logs it and moves on;
// services never abort a run.
package services

import (
	"fmt"
	"sort"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// Service is a cross-cutting concern applied to each component in turn.
type Service interface {
	Name() string
	Apply(ctx platform.ComponentContext, c component.Component) error
}

var known = map[string]func() Service{
	TaggingName:       func() Service { return NewTagging() },
	ObservabilityName: func() Service { return NewObservability() },
}

// Known returns the names of the stock services.
func Known() []string {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the services for names, in the given order. It fails on
// the first unknown name.
func Lookup(names []string) ([]Service, error) {
	out, unknown := Select(names)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown platform service %q (known: %v)", unknown[0], Known())
	}
	return out, nil
}

// Select returns the known services for names, in the given order, and the
// names it does not recognize. Duplicates are applied once.
func Select(names []string) (svcs []Service, unknown []string) {
	svcs = make([]Service, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		mk, ok := known[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		svcs = append(svcs, mk())
	}
	return svcs, unknown
}
