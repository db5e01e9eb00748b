package binder

import (
	"fmt"
	"strings"

	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/component/builtin"
	"github.com/Kristopherlb/shinobi/internal/stack"
)

// Access levels accepted by the stock strategies. An empty access means
// AccessReadWrite.
const (
	AccessRead      = "read"
	AccessWrite     = "write"
	AccessReadWrite = "readwrite"
	AccessAdmin     = "admin"
)

// DefaultRegistry returns a registry with the stock strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	db := StrategyFunc{ID: "compute-database", Fn: bindComputeDatabase}
	conn := StrategyFunc{ID: "connection", Fn: bindConnection}

	mustRegister(r, builtin.TypeFunction, builtin.CapabilityDataConnect, db)
	mustRegister(r, "lambda-*", builtin.CapabilityDataConnect, db)
	mustRegister(r, builtin.TypeFunction, "db:postgres", db)
	mustRegister(r, "lambda-*", "db:postgres", db)
	mustRegister(r, Wildcard, builtin.CapabilityDataConnect, conn)
	mustRegister(r, Wildcard, builtin.CapabilityQueue, StrategyFunc{ID: "queue", Fn: bindQueue})
	mustRegister(r, Wildcard, builtin.CapabilityBucket, StrategyFunc{ID: "storage", Fn: bindStorage})
	mustRegister(r, Wildcard, builtin.CapabilityRole, StrategyFunc{ID: "assume-role", Fn: bindRole})
	mustRegister(r, Wildcard, builtin.CapabilityAPI, StrategyFunc{ID: "api-endpoint", Fn: bindAPI})
	return r
}

func mustRegister(r *Registry, pattern, capability string, s Strategy) {
	if err := r.Register(pattern, capability, s); err != nil {
		panic(fmt.Sprintf("binder: %v", err))
	}
}

// envPrefix turns a component name into an environment variable prefix.
func envPrefix(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

func access(ctx *Context, allowed ...string) (string, error) {
	a := ctx.Directive.Access
	if a == "" {
		a = AccessReadWrite
	}
	for _, ok := range allowed {
		if a == ok {
			return a, nil
		}
	}
	return "", fmt.Errorf("access %q not supported for %s (allowed: %s)", a, ctx.Directive.Capability, strings.Join(allowed, ", "))
}

// capability fetches the directive's capability from the target.
func capability(ctx *Context) (component.Capability, error) {
	caps, err := ctx.Target.Capabilities()
	if err != nil {
		return nil, err
	}
	c, ok := caps[ctx.Directive.Capability]
	if !ok {
		return nil, fmt.Errorf("target %q does not publish capability %q", ctx.Target.Name(), ctx.Directive.Capability)
	}
	return c, nil
}

func sourceConstruct(ctx *Context, handle string) (*stack.Construct, error) {
	c, err := ctx.Source.Construct(handle)
	if err != nil {
		return nil, fmt.Errorf("source %q lacks construct handle %q: %w", ctx.Source.Name(), handle, err)
	}
	return c, nil
}

// injectEnv writes environment variables into the source's main construct.
func injectEnv(main *stack.Construct, vars map[string]any) error {
	for k, v := range vars {
		if err := main.Set("environment."+k, v); err != nil {
			return err
		}
	}
	return nil
}

// grant appends a policy statement to a role construct.
func grant(role *stack.Construct, actions []string, resource any) {
	acts := make([]any, len(actions))
	for i, a := range actions {
		acts[i] = a
	}
	stmts, _ := role.Properties["statements"].([]any)
	role.Properties["statements"] = append(stmts, map[string]any{
		"effect":   "Allow",
		"actions":  acts,
		"resource": resource,
	})
}

func metadata(ctx *Context, acc string) map[string]any {
	return map[string]any{
		"source":     ctx.Source.Name(),
		"target":     ctx.Target.Name(),
		"capability": ctx.Directive.Capability,
		"access":     acc,
	}
}

func bindComputeDatabase(ctx *Context) Result {
	acc, err := access(ctx, AccessRead, AccessReadWrite, AccessAdmin)
	if err != nil {
		return Failure("%v", err)
	}
	conn, err := capability(ctx)
	if err != nil {
		return Failure("%v", err)
	}
	main, err := sourceConstruct(ctx, component.MainHandle)
	if err != nil {
		return Failure("%v", err)
	}
	role, err := sourceConstruct(ctx, builtin.RoleHandle)
	if err != nil {
		return Failure("%v", err)
	}

	prefix := envPrefix(ctx.Target.Name())
	if err := injectEnv(main, map[string]any{
		prefix + "_HOST":       conn["host"],
		prefix + "_PORT":       conn["port"],
		prefix + "_SECRET_ARN": conn["secretArn"],
	}); err != nil {
		return Failure("%v", err)
	}
	grant(role, []string{"secretsmanager:GetSecretValue"}, conn["secretArn"])
	resources := []string{main.ID, role.ID}

	if sgID, ok := conn["securityGroupId"].(string); ok && ctx.Scope != nil {
		if sg, found := ctx.Scope.Lookup(sgID); found {
			rules, _ := sg.Properties["ingress"].([]any)
			sg.Properties["ingress"] = append(rules, map[string]any{
				"from": ctx.Source.Name(),
				"port": conn["port"],
			})
			resources = append(resources, sg.ID)
		}
	}

	md := metadata(ctx, acc)
	md["iamAuth"] = conn["iamAuth"]
	return Result{Success: true, Resources: resources, Metadata: md}
}

// bindConnection serves any source binding to a generic connection
// capability: it only publishes connection details to the source.
func bindConnection(ctx *Context) Result {
	acc, err := access(ctx, AccessRead, AccessReadWrite)
	if err != nil {
		return Failure("%v", err)
	}
	conn, err := capability(ctx)
	if err != nil {
		return Failure("%v", err)
	}
	main, err := sourceConstruct(ctx, component.MainHandle)
	if err != nil {
		return Failure("%v", err)
	}
	if err := main.Set("connections."+ctx.Target.Name(), map[string]any{
		"host": conn["host"],
		"port": conn["port"],
	}); err != nil {
		return Failure("%v", err)
	}
	return Result{Success: true, Resources: []string{main.ID}, Metadata: metadata(ctx, acc)}
}

var queueActions = map[string][]string{
	AccessRead:      {"sqs:ReceiveMessage", "sqs:DeleteMessage", "sqs:GetQueueAttributes"},
	AccessWrite:     {"sqs:SendMessage"},
	AccessReadWrite: {"sqs:ReceiveMessage", "sqs:DeleteMessage", "sqs:GetQueueAttributes", "sqs:SendMessage"},
}

func bindQueue(ctx *Context) Result {
	acc, err := access(ctx, AccessRead, AccessWrite, AccessReadWrite)
	if err != nil {
		return Failure("%v", err)
	}
	q, err := capability(ctx)
	if err != nil {
		return Failure("%v", err)
	}
	main, err := sourceConstruct(ctx, component.MainHandle)
	if err != nil {
		return Failure("%v", err)
	}
	if err := injectEnv(main, map[string]any{envPrefix(ctx.Target.Name()) + "_QUEUE_URL": q["queueUrl"]}); err != nil {
		return Failure("%v", err)
	}
	resources := []string{main.ID}
	if role, err := ctx.Source.Construct(builtin.RoleHandle); err == nil {
		grant(role, queueActions[acc], q["queueArn"])
		resources = append(resources, role.ID)
	}
	return Result{Success: true, Resources: resources, Metadata: metadata(ctx, acc)}
}

var bucketActions = map[string][]string{
	AccessRead:      {"s3:GetObject", "s3:ListBucket"},
	AccessWrite:     {"s3:PutObject"},
	AccessReadWrite: {"s3:GetObject", "s3:ListBucket", "s3:PutObject", "s3:DeleteObject"},
}

func bindStorage(ctx *Context) Result {
	acc, err := access(ctx, AccessRead, AccessWrite, AccessReadWrite)
	if err != nil {
		return Failure("%v", err)
	}
	b, err := capability(ctx)
	if err != nil {
		return Failure("%v", err)
	}
	main, err := sourceConstruct(ctx, component.MainHandle)
	if err != nil {
		return Failure("%v", err)
	}
	if err := injectEnv(main, map[string]any{envPrefix(ctx.Target.Name()) + "_BUCKET": b["bucketName"]}); err != nil {
		return Failure("%v", err)
	}
	resources := []string{main.ID}
	if role, err := ctx.Source.Construct(builtin.RoleHandle); err == nil {
		grant(role, bucketActions[acc], b["bucketArn"])
		resources = append(resources, role.ID)
	}
	return Result{Success: true, Resources: resources, Metadata: metadata(ctx, acc)}
}

// bindRole lets the source's execution role assume the target role.
// Sources without an execution role cannot take part.
func bindRole(ctx *Context) Result {
	r, err := capability(ctx)
	if err != nil {
		return Failure("%v", err)
	}
	role, err := sourceConstruct(ctx, builtin.RoleHandle)
	if err != nil {
		return Failure("%v", err)
	}
	grant(role, []string{"sts:AssumeRole"}, r["roleArn"])
	return Result{Success: true, Resources: []string{role.ID}, Metadata: metadata(ctx, "assume")}
}

func bindAPI(ctx *Context) Result {
	api, err := capability(ctx)
	if err != nil {
		return Failure("%v", err)
	}
	main, err := sourceConstruct(ctx, component.MainHandle)
	if err != nil {
		return Failure("%v", err)
	}
	if err := injectEnv(main, map[string]any{envPrefix(ctx.Target.Name()) + "_ENDPOINT": api["endpoint"]}); err != nil {
		return Failure("%v", err)
	}
	return Result{Success: true, Resources: []string{main.ID}, Metadata: metadata(ctx, AccessRead)}
}
