package binder

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// Context is handed to exactly one strategy per resolved binding.
type Context struct {
	Source      component.Component
	Target      component.Component
	Directive   manifest.BindDirective
	Environment string
	Framework   platform.Framework
	Scope       *stack.Stack
}

// Result is a strategy's report of what it did.
type Result struct {
	Success   bool           `json:"success" yaml:"success"`
	Resources []string       `json:"resources" yaml:"resources"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failure builds an unsuccessful result.
func Failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...), Metadata: map[string]any{}}
}

// Strategy executes one kind of binding.
type Strategy interface {
	Name() string
	Bind(ctx *Context) Result
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	ID string
	Fn func(ctx *Context) Result
}

func (s StrategyFunc) Name() string             { return s.ID }
func (s StrategyFunc) Bind(ctx *Context) Result { return s.Fn(ctx) }
