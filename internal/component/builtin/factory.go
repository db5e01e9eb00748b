// Package builtin provides the platform's stock component types and the
// framework-aware factory that registers them.
package builtin

import (
	"fmt"
	"strings"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/platform"
)

// Component type tags.
const (
	TypeStorage   = "storage"
	TypeQueue     = "queue"
	TypeDatabase  = "database"
	TypeFunction  = "function"
	TypeLambdaAPI = "lambda-api"
	TypeIdentity  = "identity"
)

// NewFactory returns a registry for the given compliance framework.
//
// Under the FedRAMP frameworks the storage type is backed by the hardened
// implementation, which always provisions an access-log bucket.
func NewFactory(fw platform.Framework) *component.Registry {
	r := component.NewRegistry(fw)
	mustRegister(r, TypeStorage, NewStorage)
	mustRegister(r, TypeQueue, NewQueue)
	mustRegister(r, TypeDatabase, NewDatabase)
	mustRegister(r, TypeFunction, NewFunction)
	mustRegister(r, TypeLambdaAPI, NewLambdaAPI)
	mustRegister(r, TypeIdentity, NewIdentity)

	if fw.IsFedRAMP() {
		r.Replace(TypeStorage, NewHardenedStorage)
	}
	return r
}

func mustRegister(r *component.Registry, typ string, c component.Constructor) {
	if err := r.Register(typ, c); err != nil {
		panic(fmt.Sprintf("builtin: %v", err))
	}
}

// IsCompute reports whether a type runs code and can consume bindings that
// inject environment and grants.
func IsCompute(componentType string) bool {
	return componentType == TypeFunction || componentType == TypeLambdaAPI
}

// physicalName derives the deployed resource name for a component.
func physicalName(ctx platform.ComponentContext, name string) string {
	parts := []string{ctx.ServiceName}
	if ctx.Environment != "" {
		parts = append(parts, ctx.Environment)
	}
	parts = append(parts, name)
	return strings.ToLower(strings.Join(parts, "-"))
}

func partition(region string) string {
	if strings.HasPrefix(region, "us-gov-") {
		return "aws-us-gov"
	}
	return "aws"
}

// arn formats an ARN. Global services pass an empty region and account.
func arn(ctx platform.ComponentContext, service, region, account, resource string) string {
	return fmt.Sprintf("arn:%s:%s:%s:%s:%s", partition(ctx.Region), service, region, account, resource)
}
