package platform

import "github.com/Kristopherlb/shinobi/internal/stack"

// ComponentContext is the per-run context handed to every component.
//
// It is built once per synthesis run and shared read-only by all components.
type ComponentContext struct {
	ServiceName string
	Environment string
	Framework   Framework
	Region      string
	Account     string

	// Scope is the stack every component registers its constructs into.
	Scope *stack.Stack

	// Platform carries the platform defaults and environment overrides
	// consumed by the config precedence engine. Never nil after NewContext.
	Platform *Config
}

// NewContext builds a ComponentContext. A nil platform config is replaced
// with an empty one.
func NewContext(service, env string, fw Framework, region, account string, scope *stack.Stack, cfg *Config) ComponentContext {
	if cfg == nil {
		cfg = &Config{}
	}
	return ComponentContext{
		ServiceName: service,
		Environment: env,
		Framework:   fw,
		Region:      region,
		Account:     account,
		Scope:       scope,
		Platform:    cfg,
	}
}
