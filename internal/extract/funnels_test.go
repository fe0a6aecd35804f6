package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/funnelx/models"
)

func TestDefaultsFromEnv(t *testing.T) {
	env := map[string]string{"TIRZEPATIDE_V1_ID": "flow_override"}
	defs := DefaultsFromEnv(func(k string) string { return env[k] })

	require.Len(t, defs, 3)
	assert.Equal(t, "flow_2bc58aj3a8g0d9ddd8j7jbd4g", defs[0].EmbeddableID)
	assert.Equal(t, "flow_override", defs[1].EmbeddableID)
	assert.Equal(t, "flow_8gd24ah717hhh9h6gjf38h58h", DefaultFunnels[1].EmbeddableID)
}

func TestRegistrySelect(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{"empty selects all", nil, []string{"alpha", "beta", "gamma"}},
		{"all keyword", []string{"all"}, []string{"alpha", "beta", "gamma"}},
		{"subset keeps order given", []string{"gamma", "alpha"}, []string{"gamma", "alpha"}},
		{"duplicates dropped", []string{"beta", "beta"}, []string{"beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Select(tt.keys)
			require.NoError(t, err)
			var keys []string
			for _, f := range got {
				keys = append(keys, f.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}

	_, err := r.Select([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownFunnel)
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry(models.FunnelDefinition{Key: "x"})
	assert.Error(t, err)

	_, err = NewRegistry(models.FunnelDefinition{Key: models.FunnelAll, EmbeddableID: "flow"})
	assert.Error(t, err)

	r, err := NewRegistry(
		models.FunnelDefinition{Key: "a", EmbeddableID: "one"},
		models.FunnelDefinition{Key: "b", EmbeddableID: "two"},
		models.FunnelDefinition{Key: "a", EmbeddableID: "three", Name: "A"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Keys())
	a, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "three", a.EmbeddableID)
	assert.Equal(t, "a", a.FormSource)
}

func TestLoadFunnelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnels.yaml")
	content := `funnels:
  - key: medication_v2
    embeddable_id: flow_new
    name: Medication V2
    form_source: medication v2
  - key: medication_v1
    embeddable_id: flow_replaced
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := loadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"medication_v1", "tirzepatide_v1", "semaglutide_v1", "medication_v2"}, r.Keys())

	v1, err := r.Get("medication_v1")
	require.NoError(t, err)
	assert.Equal(t, "flow_replaced", v1.EmbeddableID)
	assert.Equal(t, "medication_v1", v1.Name)

	_, err = loadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
