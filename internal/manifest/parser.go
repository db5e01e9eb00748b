package manifest

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest YAML, normalizes identifiers and checks structure.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling YAML: %w", err)
	}
	normalize(&m)
	if err := checkStructure(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// normalize applies NFC normalization and trims identifiers and labels.
func normalize(m *Manifest) {
	m.Service = nfc(m.Service)
	m.Labels = nfcLabels(m.Labels)
	for i := range m.Components {
		c := &m.Components[i]
		c.Name = nfc(c.Name)
		c.Type = nfc(c.Type)
		c.Labels = nfcLabels(c.Labels)
		for j := range c.Binds {
			d := &c.Binds[j]
			d.To = nfc(d.To)
			d.Capability = nfc(d.Capability)
			d.Access = nfc(d.Access)
			if d.Select != nil {
				d.Select.Type = nfc(d.Select.Type)
				d.Select.WithLabels = nfcLabels(d.Select.WithLabels)
			}
		}
	}
}

func nfc(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func nfcLabels(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[nfc(k)] = nfc(v)
	}
	return out
}

// checkStructure enforces the invariants the resolver relies on.
func checkStructure(m *Manifest) error {
	if m.Service == "" {
		return fmt.Errorf("manifest missing required 'service' field")
	}
	seen := make(map[string]bool, len(m.Components))
	for i, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("components[%d]: missing name", i)
		}
		// Construct IDs are "<component>/<handle>".
		if strings.Contains(c.Name, "/") {
			return fmt.Errorf("component %q: name must not contain '/'", c.Name)
		}
		if c.Type == "" {
			return fmt.Errorf("component %q: missing type", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("component %q: duplicate name", c.Name)
		}
		seen[c.Name] = true

		for j, d := range c.Binds {
			if err := checkDirective(d); err != nil {
				return fmt.Errorf("component %q: binds[%d]: %w", c.Name, j, err)
			}
		}
	}
	return nil
}

func checkDirective(d BindDirective) error {
	hasTo := d.To != ""
	hasSelect := d.Select != nil
	switch {
	case hasTo && hasSelect:
		return fmt.Errorf("invalid bind directive: 'to' and 'select' are mutually exclusive")
	case !hasTo && !hasSelect:
		return fmt.Errorf("invalid bind directive: one of 'to' or 'select' is required")
	}
	if hasSelect && d.Select.Type == "" {
		return fmt.Errorf("invalid bind directive: select.type is required")
	}
	if d.Capability == "" {
		return fmt.Errorf("invalid bind directive: capability is required")
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
