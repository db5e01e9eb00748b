package builtin

import (
	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/config"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// CapabilityRole is published by identity components.
const CapabilityRole = "iam:role"

var identityDefaults = config.Defaults{
	Type: TypeIdentity,
	Fallback: map[string]any{
		"principal":            "",
		"managed_policies":     []any{},
		"max_session_duration": 3600,
	},
	Compliance: map[platform.Framework]map[string]any{
		platform.FedRAMPModerate: {
			"max_session_duration": 3600,
			"require_mfa":          true,
		},
		platform.FedRAMPHigh: {
			"max_session_duration": 900,
			"require_mfa":          true,
			"permissions_boundary": "fedramp-high-boundary",
		},
	},
	Required: []string{"principal"},
}

// Identity is an assumable role for an external principal.
type Identity struct {
	*component.Base
	cfg *config.Effective
}

// NewIdentity constructs an identity component. The principal field is required.
func NewIdentity(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	cfg, err := config.Resolve(identityDefaults, spec.Name, spec.ConfigCopy(), ctx)
	if err != nil {
		return nil, err
	}
	return &Identity{Base: component.NewBase(spec, ctx), cfg: cfg}, nil
}

// Config returns the effective configuration.
func (i *Identity) Config() *config.Effective { return i.cfg }

func (i *Identity) Synth() error {
	ctx := i.Context()
	name := physicalName(ctx, i.Name())

	props := i.cfg.Values()
	props["role_name"] = name
	props["statements"] = []any{}
	if _, err := i.AddConstruct(component.MainHandle, "iam-role", props); err != nil {
		return err
	}
	if err := i.Publish(CapabilityRole, component.Capability{
		"roleName": name,
		"roleArn":  arn(ctx, "iam", "", ctx.Account, "role/"+name),
	}); err != nil {
		return err
	}
	i.MarkSynthesized()
	return nil
}
