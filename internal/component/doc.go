// Package component defines the narrow contract between the resolver and the
// infrastructure components it synthesizes.
//
// A Component is composed of small interfaces: it can synthesize itself,
// publish capabilities, and expose its constructs by component-local handle.
// Capabilities and constructs are only queryable after Synth has returned;
// earlier queries fail with ErrNotSynthesized.
//
// Registry maps a manifest type tag to a Constructor. Which constructor backs
// a type may depend on the compliance framework; see the builtin package.
package component
