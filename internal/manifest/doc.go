// Package manifest defines the declarative service manifest: the ordered list
// of component specifications and their bind directives.
//
// Manifests are YAML. Parse performs the structural checks the resolver
// depends on (unique names, exactly one of to/select per directive); Validate
// checks a document against the embedded JSON schema and reports every issue.
// Component names, types and labels are NFC-normalized on load so that
// visually identical names compare equal.
package manifest
