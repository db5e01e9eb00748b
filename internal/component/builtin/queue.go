package builtin

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/config"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// CapabilityQueue is published by queue components.
const CapabilityQueue = "queue:sqs"

var queueDefaults = config.Defaults{
	Type: TypeQueue,
	Fallback: map[string]any{
		"fifo":               false,
		"visibility_timeout": 30,
		"retention_seconds":  345600,
		"encryption":         "sqs-managed",
		"dead_letter":        map[string]any{"enabled": false, "max_receive_count": 5},
	},
	Compliance: map[platform.Framework]map[string]any{
		platform.FedRAMPModerate: {
			"encryption":  "kms",
			"dead_letter": map[string]any{"enabled": true},
		},
		platform.FedRAMPHigh: {
			"encryption":        "kms",
			"retention_seconds": 1209600,
			"dead_letter":       map[string]any{"enabled": true, "max_receive_count": 3},
		},
	},
}

// Queue is a message queue with an optional dead-letter queue.
type Queue struct {
	*component.Base
	cfg *config.Effective
}

// NewQueue constructs a queue component.
func NewQueue(spec manifest.ComponentSpec, ctx platform.ComponentContext) (component.Component, error) {
	cfg, err := config.Resolve(queueDefaults, spec.Name, spec.ConfigCopy(), ctx)
	if err != nil {
		return nil, err
	}
	return &Queue{Base: component.NewBase(spec, ctx), cfg: cfg}, nil
}

// Config returns the effective configuration.
func (q *Queue) Config() *config.Effective { return q.cfg }

func (q *Queue) Synth() error {
	ctx := q.Context()
	name := physicalName(ctx, q.Name())
	if q.cfg.Bool("fifo") {
		name += ".fifo"
	}

	props := q.cfg.Values()
	props["queue_name"] = name
	main, err := q.AddConstruct(component.MainHandle, "sqs-queue", props)
	if err != nil {
		return err
	}

	if q.cfg.Bool("dead_letter.enabled") {
		dlqName := physicalName(ctx, q.Name()) + "-dlq"
		if _, err := q.AddConstruct("dlq", "sqs-queue", map[string]any{
			"queue_name":        dlqName,
			"retention_seconds": 1209600,
			"encryption":        q.cfg.String("encryption"),
		}); err != nil {
			return err
		}
		if err := main.Set("redrive_policy.dead_letter_target", dlqName); err != nil {
			return err
		}
	}

	if err := q.Publish(CapabilityQueue, component.Capability{
		"queueName": name,
		"queueArn":  arn(ctx, "sqs", ctx.Region, ctx.Account, name),
		"queueUrl":  fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", ctx.Region, ctx.Account, name),
		"fifo":      q.cfg.Bool("fifo"),
	}); err != nil {
		return err
	}
	q.MarkSynthesized()
	return nil
}
