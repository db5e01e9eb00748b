package services

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/component/builtin"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// ObservabilityName is the registered name of the observability service.
const ObservabilityName = "observability"

// alarm is a metric threshold attached to a component's main construct.
type alarm struct {
	handle    string
	metric    string
	threshold map[platform.Framework]float64
}

func (a alarm) thresholdFor(fw platform.Framework) float64 {
	if v, ok := a.threshold[fw]; ok {
		return v
	}
	return a.threshold[platform.Commercial]
}

// Thresholds tighten as the framework escalates.
var alarms = map[string][]alarm{
	builtin.TypeFunction: {
		{"alarm-errors", "Errors", map[platform.Framework]float64{platform.Commercial: 5, platform.FedRAMPModerate: 1, platform.FedRAMPHigh: 1}},
		{"alarm-throttles", "Throttles", map[platform.Framework]float64{platform.Commercial: 10, platform.FedRAMPModerate: 5, platform.FedRAMPHigh: 1}},
	},
	builtin.TypeQueue: {
		{"alarm-age", "ApproximateAgeOfOldestMessage", map[platform.Framework]float64{platform.Commercial: 900, platform.FedRAMPModerate: 600, platform.FedRAMPHigh: 300}},
	},
	builtin.TypeDatabase: {
		{"alarm-cpu", "CPUUtilization", map[platform.Framework]float64{platform.Commercial: 90, platform.FedRAMPModerate: 80, platform.FedRAMPHigh: 70}},
		{"alarm-connections", "DatabaseConnections", map[platform.Framework]float64{platform.Commercial: 200, platform.FedRAMPModerate: 150, platform.FedRAMPHigh: 100}},
	},
}

func init() {
	alarms[builtin.TypeLambdaAPI] = alarms[builtin.TypeFunction]
}

// Observability adds metric alarms for component types that have them.
// Types without alarms are left untouched.
type Observability struct{}

// NewObservability creates the observability service.
func NewObservability() *Observability { return &Observability{} }

func (*Observability) Name() string { return ObservabilityName }

func (*Observability) Apply(ctx platform.ComponentContext, c component.Component) error {
	defs, ok := alarms[c.Type()]
	if !ok {
		return nil
	}
	main, err := c.Construct(component.MainHandle)
	if err != nil {
		return fmt.Errorf("observability %s: %w", c.Name(), err)
	}
	for _, a := range defs {
		id := stack.ID(c.Name(), a.handle)
		if _, exists := ctx.Scope.Lookup(id); exists {
			continue
		}
		alarm := stack.NewConstruct(id, "metric-alarm", map[string]any{
			"metric":    a.metric,
			"threshold": a.thresholdFor(ctx.Framework),
			"target":    main.ID,
		})
		// Alarms inherit whatever tags the component already carries, so
		// they stay tagged when tagging ran first.
		for k, v := range main.Tags {
			alarm.Tag(k, v)
		}
		if err := ctx.Scope.Add(alarm); err != nil {
			return fmt.Errorf("observability %s: %w", c.Name(), err)
		}
	}
	return nil
}
