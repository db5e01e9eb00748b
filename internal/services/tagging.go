package services

import (
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// TaggingName is the registered name of the tagging service.
const TaggingName = "tagging"

// Standard tag keys.
const (
	TagService     = "service"
	TagEnvironment = "environment"
	TagComponent   = "component"
	TagType        = "component-type"
	TagCompliance  = "compliance-framework"
	TagManagedBy   = "managed-by"
)

// Tagging stamps the standard tags, plus the component's labels, onto
// every construct the component owns.
type Tagging struct{}

// NewTagging creates the tagging service.
func NewTagging() *Tagging { return &Tagging{} }

func (*Tagging) Name() string { return TaggingName }

func (*Tagging) Apply(ctx platform.ComponentContext, c component.Component) error {
	if ctx.Scope == nil {
		return fmt.Errorf("tagging %s: no scope", c.Name())
	}
	owned := ctx.Scope.Owned(c.Name())
	if len(owned) == 0 {
		return fmt.Errorf("tagging %s: component owns no constructs", c.Name())
	}
	for _, con := range owned {
		for k, v := range c.Spec().Labels {
			con.Tag(k, v)
		}
		con.Tag(TagService, ctx.ServiceName)
		con.Tag(TagEnvironment, ctx.Environment)
		con.Tag(TagComponent, c.Name())
		con.Tag(TagType, c.Type())
		con.Tag(TagCompliance, ctx.Framework.String())
		con.Tag(TagManagedBy, "shinobi")
	}
	return nil
}
