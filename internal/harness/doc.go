// Package harness runs resolver conformance scenarios.
//
// A scenario is a YAML file holding an inline manifest, an optional
// platform config and an optional patches.cue source, together with the
// expected outcome of the run and a list of assertions over its result.
// Run synthesizes the manifest with a fixed run ID and a stepping clock, so
// the trace it records is reproducible and can be compared against golden
// files with AssertGolden.
//
// Scenario format:
//
//	name: api-db
//	description: a function reads from a database
//	manifest:
//	  service: orders
//	  components:
//	    - {name: api, type: function, binds: [{to: db, capability: "data:connect"}]}
//	    - {name: db, type: database, config: {engine: postgres}}
//	expect:
//	  outcome: success
//	assertions:
//	  - type: binding_exists
//	    source: api
//	    target: db
//	    capability: data:connect
//
// The trace lists components in manifest order, then warnings logged by
// the platform-services phase, then bindings in execution order. A
// successful run with patches ends with a patch event; a failed run ends
// with an error event.
package harness
