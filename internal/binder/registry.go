package binder

import (
	"fmt"
	"sort"
	"strings"
)

// Wildcard matches any source type.
const Wildcard = "*"

// Record is a registered strategy with the pair it serves.
type Record struct {
	SourcePattern string
	Capability    string
	Strategy      Strategy

	seq int
}

// CanHandle reports whether the record serves the (source type, capability) pair.
func (r Record) CanHandle(sourceType, capability string) bool {
	if r.Capability != capability {
		return false
	}
	return matchPattern(r.SourcePattern, sourceType)
}

// specificity ranks a pattern: exact > prefix wildcard (by prefix length) > "*".
func (r Record) specificity() (rank, length int) {
	switch {
	case r.SourcePattern == Wildcard:
		return 0, 0
	case strings.HasSuffix(r.SourcePattern, "*"):
		return 1, len(r.SourcePattern) - 1
	default:
		return 2, len(r.SourcePattern)
	}
}

func matchPattern(pattern, sourceType string) bool {
	if pattern == Wildcard {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(sourceType, prefix)
	}
	return pattern == sourceType
}

// Registry is the strategy lookup table. It is populated before any run
// and treated as immutable while a run is in progress.
type Registry struct {
	records []Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a strategy for (sourcePattern, capability).
func (r *Registry) Register(sourcePattern, capability string, s Strategy) error {
	if s == nil {
		return fmt.Errorf("register %s→%s: nil strategy", sourcePattern, capability)
	}
	if sourcePattern == "" || capability == "" {
		return fmt.Errorf("register: source pattern and capability are required")
	}
	if strings.Contains(strings.TrimSuffix(sourcePattern, "*"), "*") {
		return fmt.Errorf("register %s: only a trailing wildcard is supported", sourcePattern)
	}
	for _, rec := range r.records {
		if rec.SourcePattern == sourcePattern && rec.Capability == capability {
			return fmt.Errorf("register %s→%s: already handled by %s", sourcePattern, capability, rec.Strategy.Name())
		}
	}
	r.records = append(r.records, Record{
		SourcePattern: sourcePattern,
		Capability:    capability,
		Strategy:      s,
		seq:           len(r.records),
	})
	return nil
}

// FindStrategy returns the most specific record for the pair.
func (r *Registry) FindStrategy(sourceType, capability string) (Record, bool) {
	var (
		best  Record
		found bool
	)
	for _, rec := range r.records {
		if !rec.CanHandle(sourceType, capability) {
			continue
		}
		if !found || moreSpecific(rec, best) {
			best, found = rec, true
		}
	}
	return best, found
}

// moreSpecific reports whether a outranks b. Registration order decides ties.
func moreSpecific(a, b Record) bool {
	ar, al := a.specificity()
	br, bl := b.specificity()
	if ar != br {
		return ar > br
	}
	if al != bl {
		return al > bl
	}
	return a.seq < b.seq
}

// Records returns all records ordered by capability, then specificity.
func (r *Registry) Records() []Record {
	out := append([]Record(nil), r.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Capability != out[j].Capability {
			return out[i].Capability < out[j].Capability
		}
		return moreSpecific(out[i], out[j])
	})
	return out
}

// Capabilities returns the distinct capabilities with at least one strategy.
func (r *Registry) Capabilities() []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range r.records {
		if !seen[rec.Capability] {
			seen[rec.Capability] = true
			out = append(out, rec.Capability)
		}
	}
	sort.Strings(out)
	return out
}
