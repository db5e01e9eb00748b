// Package patch loads and applies escape-hatch patches.
//
// Patches are the break-glass override that runs after binding. They are
// read from a single CUE file, patches.cue, in the patch directory:
//
//	contractVersion: "1.0.0"
//	patchInfo: {owner: "platform-team", ticket: "OPS-112"}
//	applyPatches: [
//		{component: "db", set: {"instance_class": "db.r5.xlarge"}, reason: "load test"},
//		{component: "api", construct: "role", tags: {"cost-center": "42"}},
//	]
//
// contractVersion must satisfy the supported contract range. A file that
// does not define applyPatches loads successfully but applies nothing;
// callers see ErrNoEntryPoint and treat it as "no patch applied".
//
// Embedders can skip the file entirely and supply any Module.
package patch
