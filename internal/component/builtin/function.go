package builtin

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/config"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// Capabilities published by compute components.
const (
	CapabilityFunction = "compute:function"
	CapabilityAPI      = "api:rest"
)

// RoleHandle is the execution role construct of compute components.
// Binding strategies attach grants to it.
const RoleHandle = "role"

var functionDefaults = config.Defaults{
	Type: TypeFunction,
	Fallback: map[string]any{
		"runtime":              "nodejs20.x",
		"handler":              "index.handler",
		"memory_size":          128,
		"timeout":              30,
		"tracing":              "PassThrough",
		"reserved_concurrency": 0,
		"environment":          map[string]any{},
	},
	Compliance: map[platform.Framework]map[string]any{
		platform.FedRAMPModerate: {
			"tracing":     "Active",
			"memory_size": 256,
		},
		platform.FedRAMPHigh: {
			"tracing":     "Active",
			"memory_size": 512,
			"timeout":     15,
			"vpc":         map[string]any{"enabled": true},
		},
	},
}

// Function is a serverless function, optionally fronted by a REST API.
type Function struct {
	*component.Base
	cfg *config.Effective
	api bool
}

// NewFunction constructs a function component.
func NewFunction(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	return newFunction(spec, ctx, false)
}

// NewLambdaAPI constructs a function fronted by a REST API.
func NewLambdaAPI(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	return newFunction(spec, ctx, true)
}

func newFunction(spec manifest.ComponentSpec, ctx platform.ComponentContext, api bool) (*Function, error) {
	d := functionDefaults
	if api {
		d.Type = TypeLambdaAPI
	}
	cfg, err := config.Resolve(d, spec.Name, spec.ConfigCopy(), ctx)
	if err != nil {
		return nil, err
	}
	return &Function{Base: component.NewBase(spec, ctx), cfg: cfg, api: api}, nil
}

// Config returns the effective configuration.
func (f *Function) Config() *config.Effective { return f.cfg }

func (f *Function) Synth() error {
	ctx := f.Context()
	name := physicalName(ctx, f.Name())
	roleArn := arn(ctx, "iam", "", ctx.Account, "role/"+name+"-role")
	functionArn := arn(ctx, "lambda", ctx.Region, ctx.Account, "function:"+name)

	if _, err := f.AddConstruct(RoleHandle, "iam-role", map[string]any{
		"role_name":  name + "-role",
		"assumed_by": "lambda.amazonaws.com",
		"statements": []any{},
	}); err != nil {
		return err
	}

	props := f.cfg.Values()
	props["function_name"] = name
	props["role"] = roleArn
	if _, err := f.AddConstruct(component.MainHandle, "lambda-function", props); err != nil {
		return err
	}

	if err := f.Publish(CapabilityFunction, component.Capability{
		"functionArn": functionArn,
		"roleArn":     roleArn,
	}); err != nil {
		return err
	}

	if f.api {
		endpoint := fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com", name, ctx.Region)
		if _, err := f.AddConstruct("api", "api-gateway", map[string]any{
			"api_name":    name + "-api",
			"integration": functionArn,
			"stage":       ctx.Environment,
		}); err != nil {
			return err
		}
		if err := f.Publish(CapabilityAPI, component.Capability{"endpoint": endpoint}); err != nil {
			return err
		}
	}

	f.MarkSynthesized()
	return nil
}
