// Package resolver runs the five-phase synthesis pipeline.
//
// A run turns a manifest into a SynthesisResult:
//
//  1. Instantiate: create every component through the framework's factory.
//  2. Synthesize: call Synth on every component and collect capabilities.
//  3. Platform services: apply each enabled service to every component.
//  4. Bind: resolve every bind directive and execute its strategy.
//  5. Patch: load and apply the escape-hatch patch module, if any.
//
// Phases run strictly in order and process components in manifest order.
// Phases 1, 2, 4 and 5 fail fast: the first error aborts the run and no
// result is returned. Phase 3 is best-effort; failures are logged as
// warnings and the run continues.
//
// Because every component is synthesized before binding starts, a bind
// directive may name a component declared later in the manifest. No
// dependency ordering is computed or checked.
package resolver
