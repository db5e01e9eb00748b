// Package config implements the five-layer configuration precedence engine
// every component type uses to resolve its effective configuration.
//
// Layers, lowest precedence first:
//
//  1. hardcoded fallback (per component type, always complete)
//  2. compliance-framework defaults (keyed by platform.Framework)
//  3. platform defaults (platform config, keyed by component type)
//  4. environment overrides (platform config, keyed by environment and type)
//  5. manifest overrides (the component's config block)
//
// Merging is deep and functional: nested maps merge key by key, every other
// value (arrays included) is replaced wholesale by the higher layer, and no
// input map is ever mutated. Merge returns a fresh structure on every call.
package config
