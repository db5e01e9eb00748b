// Package binder resolves bind directives to target components and executes
// them through capability-keyed strategies.
//
// STRATEGY DISPATCH:
//
// A Registry holds Records keyed by (source type pattern, capability).
// Patterns are an exact type ("function"), a prefix wildcard ("lambda-*")
// or the catch-all "*". When several records match, the most specific wins:
//
//  1. exact source type
//  2. prefix wildcard, longer prefix first
//  3. catch-all
//
// Registration order breaks any remaining tie. Duplicate (pattern,
// capability) pairs are rejected at registration, so that case only arises
// for distinct patterns of equal rank that match the same type.
//
// TARGET RESOLUTION:
//
// A directive names its target directly ("to") or selects it by type and
// labels ("select"). A selector must match exactly one component; zero and
// several matches are both errors, and the ambiguity error lists every match.
//
// Strategies report unsatisfiable bindings as a Result with Success=false
// rather than an error; callers treat both the same way.
package binder
