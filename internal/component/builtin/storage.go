package builtin

import (
	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/config"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// CapabilityBucket is published by storage components.
const CapabilityBucket = "bucket:s3"

var storageDefaults = config.Defaults{
	Type: TypeStorage,
	Fallback: map[string]any{
		"versioned":           false,
		"public_access_block": true,
		"access_logging":      false,
		"encryption":          map[string]any{"type": "sse-s3", "key_rotation": false},
		"lifecycle":           map[string]any{"expire_days": 0, "transition_days": 0},
	},
	Compliance: map[platform.Framework]map[string]any{
		platform.FedRAMPModerate: {
			"versioned":      true,
			"access_logging": true,
			"encryption":     map[string]any{"type": "kms", "key_rotation": true},
		},
		platform.FedRAMPHigh: {
			"versioned":      true,
			"access_logging": true,
			"object_lock":    true,
			"encryption":     map[string]any{"type": "kms", "key_rotation": true},
			"lifecycle":      map[string]any{"expire_days": 2555, "transition_days": 90},
		},
	},
}

// Storage is an object storage bucket.
type Storage struct {
	*component.Base
	cfg      *config.Effective
	hardened bool
}

// NewStorage constructs a storage component.
func NewStorage(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	return newStorage(spec, ctx, false)
}

// NewHardenedStorage constructs a storage component that always ships
// access logs to a dedicated bucket.
func NewHardenedStorage(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	return newStorage(spec, ctx, true)
}

func newStorage(spec manifest.ComponentSpec, ctx platform.ComponentContext, hardened bool) (*Storage, error) {
	cfg, err := config.Resolve(storageDefaults, spec.Name, spec.ConfigCopy(), ctx)
	if err != nil {
		return nil, err
	}
	return &Storage{Base: component.NewBase(spec, ctx), cfg: cfg, hardened: hardened}, nil
}

// Config returns the effective configuration.
func (s *Storage) Config() *config.Effective { return s.cfg }

func (s *Storage) Synth() error {
	ctx := s.Context()
	name := physicalName(ctx, s.Name())
	bucketArn := arn(ctx, "s3", "", "", name)

	props := s.cfg.Values()
	props["bucket_name"] = name
	main, err := s.AddConstruct(component.MainHandle, "s3-bucket", props)
	if err != nil {
		return err
	}

	if s.hardened || s.cfg.Bool("access_logging") {
		logName := name + "-access-logs"
		if _, err := s.AddConstruct("access-logs", "s3-bucket", map[string]any{
			"bucket_name":         logName,
			"public_access_block": true,
			"encryption":          map[string]any{"type": "sse-s3"},
		}); err != nil {
			return err
		}
		if err := main.Set("logging.target_bucket", logName); err != nil {
			return err
		}
	}

	if err := s.Publish(CapabilityBucket, component.Capability{
		"bucketName": name,
		"bucketArn":  bucketArn,
	}); err != nil {
		return err
	}
	s.MarkSynthesized()
	return nil
}
