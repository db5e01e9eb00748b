package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPath(name string) string {
	return filepath.Join("testdata", name)
}

func TestLoad_Valid(t *testing.T) {
	m, err := Load(testPath("valid.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "orders", m.Service)
	assert.Equal(t, "moderate", m.ComplianceFramework)
	assert.Equal(t, []string{"api", "db", "jobs"}, m.Names())

	api, ok := m.Component("api")
	require.True(t, ok)
	require.Len(t, api.Binds, 2)
	assert.Equal(t, "db", api.Binds[0].To)
	assert.Equal(t, "data:connect", api.Binds[0].Capability)
	require.NotNil(t, api.Binds[1].Select)
	assert.Equal(t, "queue", api.Binds[1].Select.Type)
	assert.Equal(t, map[string]string{"team": "payments"}, api.Binds[1].Select.WithLabels)

	_, ok = m.Component("missing")
	assert.False(t, ok)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(testPath("nonexistent.yaml"))
	assert.ErrorContains(t, err, "reading file")
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing service", "components: []", "'service'"},
		{"missing name", "service: s\ncomponents:\n  - type: queue", "missing name"},
		{"missing type", "service: s\ncomponents:\n  - name: q", "missing type"},
		{"duplicate", "service: s\ncomponents:\n  - {name: q, type: queue}\n  - {name: q, type: queue}", "duplicate name"},
		{"slash in name", "service: s\ncomponents:\n  - {name: a, type: queue}\n  - {name: a/x, type: queue}", "must not contain '/'"},
		{"to and select", "service: s\ncomponents:\n  - name: a\n    type: function\n    binds:\n      - {to: b, select: {type: queue}, capability: queue:sqs}", "mutually exclusive"},
		{"neither", "service: s\ncomponents:\n  - name: a\n    type: function\n    binds:\n      - {capability: queue:sqs}", "one of 'to' or 'select'"},
		{"no capability", "service: s\ncomponents:\n  - name: a\n    type: function\n    binds:\n      - {to: b}", "capability is required"},
		{"empty selector type", "service: s\ncomponents:\n  - name: a\n    type: function\n    binds:\n      - {select: {withLabels: {a: b}}, capability: x:y}", "select.type"},
		{"bad yaml", "service: [", "unmarshaling YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_NormalizesToNFC(t *testing.T) {
	// "café" written with a combining acute accent (NFD).
	decomposed := "cafe\u0301"
	data := []byte("service: s\ncomponents:\n  - name: " + decomposed + "\n    type: queue\n    labels:\n      team: \" " + decomposed + " \"\n")

	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", m.Components[0].Name)
	assert.Equal(t, "caf\u00e9", m.Components[0].Labels["team"])
}

func TestComponentSpec_ConfigCopyIsDeep(t *testing.T) {
	spec := ComponentSpec{Config: map[string]any{"nested": map[string]any{"k": "v"}}}
	cp := spec.ConfigCopy()
	cp["nested"].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", spec.Config["nested"].(map[string]any)["k"])
}

func TestSelector_Matches(t *testing.T) {
	sel := Selector{Type: "queue", WithLabels: map[string]string{"team": "payments"}}

	assert.True(t, sel.Matches("queue", map[string]string{"team": "payments", "tier": "1"}))
	assert.False(t, sel.Matches("queue", map[string]string{"team": "billing"}))
	assert.False(t, sel.Matches("queue", nil))
	assert.False(t, sel.Matches("storage", map[string]string{"team": "payments"}))
	assert.True(t, Selector{Type: "queue"}.Matches("queue", nil))
}

func TestDirective_String(t *testing.T) {
	d := BindDirective{To: "db", Capability: "data:connect", Access: "read"}
	assert.Equal(t, "to=db capability=data:connect access=read", d.String())

	d = BindDirective{
		Select:     &Selector{Type: "queue", WithLabels: map[string]string{"team": "payments", "env": "dev"}},
		Capability: "queue:sqs",
	}
	assert.Equal(t, "select{type=queue,env=dev,team=payments} capability=queue:sqs", d.String())
}
