package platform

import (
	"fmt"
	"strings"
)

// Framework classifies the regulatory strictness of a deployment.
// Frameworks escalate commercial → fedramp-moderate → fedramp-high.
type Framework string

const (
	Commercial      Framework = "commercial"
	FedRAMPModerate Framework = "fedramp-moderate"
	FedRAMPHigh     Framework = "fedramp-high"
)

// Frameworks lists every framework in escalation order.
var Frameworks = []Framework{Commercial, FedRAMPModerate, FedRAMPHigh}

// ParseFramework converts a manifest value to a Framework.
// The short forms "moderate" and "high" are accepted. An empty string
// defaults to Commercial.
func ParseFramework(s string) (Framework, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "commercial":
		return Commercial, nil
	case "moderate", "fedramp-moderate":
		return FedRAMPModerate, nil
	case "high", "fedramp-high":
		return FedRAMPHigh, nil
	default:
		return "", fmt.Errorf("unknown compliance framework %q: must be one of %v", s, Frameworks)
	}
}

// Level returns the escalation rank (0 for commercial).
func (f Framework) Level() int {
	switch f {
	case FedRAMPModerate:
		return 1
	case FedRAMPHigh:
		return 2
	default:
		return 0
	}
}

// IsFedRAMP reports whether the framework is one of the hardened tiers.
func (f Framework) IsFedRAMP() bool {
	return f.Level() > 0
}

func (f Framework) String() string {
	return string(f)
}
