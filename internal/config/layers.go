package config

import (
	"sort"
	"strings"
)

// LayerName identifies one of the five precedence layers.
type LayerName string

const (
	LayerFallback    LayerName = "fallback"
	LayerCompliance  LayerName = "compliance"
	LayerPlatform    LayerName = "platform"
	LayerEnvironment LayerName = "environment"
	LayerManifest    LayerName = "manifest"
)

// Order lists the layers from lowest to highest precedence.
var Order = []LayerName{LayerFallback, LayerCompliance, LayerPlatform, LayerEnvironment, LayerManifest}

// Layer is a named set of configuration values.
type Layer struct {
	Name   LayerName
	Values map[string]any
}

// MergeLayers merges layers left to right; later layers win.
// It also records which layer supplied each leaf value.
func MergeLayers(layers ...Layer) (map[string]any, map[string]LayerName) {
	merged := map[string]any{}
	sources := map[string]LayerName{}
	for _, l := range layers {
		if len(l.Values) == 0 {
			continue
		}
		merged = Merge(merged, l.Values)
		recordSources(sources, "", l.Values, l.Name)
	}
	return merged, sources
}

// recordSources marks every leaf path of values as coming from layer.
// A non-map value at a path replaces any deeper provenance under it.
func recordSources(sources map[string]LayerName, prefix string, values map[string]any, layer LayerName) {
	for k, v := range values {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			delete(sources, path)
			recordSources(sources, path, m, layer)
			continue
		}
		for existing := range sources {
			if strings.HasPrefix(existing, path+".") {
				delete(sources, existing)
			}
		}
		sources[path] = layer
	}
}

// sortedPaths returns the keys of a provenance map in lexical order.
func sortedPaths(sources map[string]LayerName) []string {
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
