package builtin

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/config"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// CapabilityDataConnect is the engine-agnostic connection capability every
// database publishes alongside its engine-specific "db:<engine>" capability.
const CapabilityDataConnect = "data:connect"

var databaseDefaults = config.Defaults{
	Type: TypeDatabase,
	Fallback: map[string]any{
		"engine":              "",
		"engine_version":      "",
		"instance_class":      "db.t3.micro",
		"port":                5432,
		"multi_az":            false,
		"storage_encrypted":   true,
		"deletion_protection": false,
		"iam_auth":            false,
		"backup":              map[string]any{"retention_days": 1},
	},
	Compliance: map[platform.Framework]map[string]any{
		platform.FedRAMPModerate: {
			"multi_az":            true,
			"deletion_protection": true,
			"backup":              map[string]any{"retention_days": 7},
		},
		platform.FedRAMPHigh: {
			"multi_az":            true,
			"deletion_protection": true,
			"iam_auth":            true,
			"instance_class":      "db.r5.large",
			"backup":              map[string]any{"retention_days": 35},
		},
	},
	Required: []string{"engine"},
}

// Database is a managed relational database instance.
type Database struct {
	*component.Base
	cfg *config.Effective
}

// NewDatabase constructs a database component. The engine field is required.
func NewDatabase(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	cfg, err := config.Resolve(databaseDefaults, spec.Name, spec.ConfigCopy(), ctx)
	if err != nil {
		return nil, err
	}
	return &Database{Base: component.NewBase(spec, ctx), cfg: cfg}, nil
}

// Config returns the effective configuration.
func (d *Database) Config() *config.Effective { return d.cfg }

func (d *Database) Synth() error {
	ctx := d.Context()
	name := physicalName(ctx, d.Name())
	engine := d.cfg.String("engine")

	sg, err := d.AddConstruct("security-group", "security-group", map[string]any{
		"group_name": name + "-sg",
		"ingress":    []any{},
	})
	if err != nil {
		return err
	}
	secret, err := d.AddConstruct("secret", "secret", map[string]any{
		"secret_name": name + "/credentials",
		"generate":    true,
	})
	if err != nil {
		return err
	}

	props := d.cfg.Values()
	props["identifier"] = name
	props["security_group"] = sg.ID
	props["credentials_secret"] = secret.ID
	if _, err := d.AddConstruct(component.MainHandle, "rds-instance", props); err != nil {
		return err
	}

	conn := component.Capability{
		"host":            fmt.Sprintf("%s.%s.rds.amazonaws.com", name, ctx.Region),
		"port":            d.cfg.Int("port"),
		"engine":          engine,
		"secretArn":       arn(ctx, "secretsmanager", ctx.Region, ctx.Account, "secret:"+name+"/credentials"),
		"securityGroupId": sg.ID,
		"iamAuth":         d.cfg.Bool("iam_auth"),
	}
	if err := d.Publish("db:"+engine, conn); err != nil {
		return err
	}
	if err := d.Publish(CapabilityDataConnect, conn); err != nil {
		return err
	}
	d.MarkSynthesized()
	return nil
}
