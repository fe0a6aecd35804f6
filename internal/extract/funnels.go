package extract

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/funnelx/models"
)

// ErrUnknownFunnel is returned for a funnel key that is not configured.
var ErrUnknownFunnel = errors.New("unknown funnel")

// DefaultFunnels are the built-in funnel definitions. Each embeddable id can
// be overridden through the environment variable named in funnelEnv.
var DefaultFunnels = []models.FunnelDefinition{
	{Key: "medication_v1", EmbeddableID: "flow_2bc58aj3a8g0d9ddd8j7jbd4g", Name: "Medication V1", FormSource: "medication v1"},
	{Key: "tirzepatide_v1", EmbeddableID: "flow_8gd24ah717hhh9h6gjf38h58h", Name: "Tirzepatide V1", FormSource: "tirzepatide v1"},
	{Key: "semaglutide_v1", EmbeddableID: "flow_cc5fj2bciie5ecf1a2bg398865", Name: "Semaglutide V1", FormSource: "semaglutide v1"},
}

var funnelEnv = map[string]string{
	"medication_v1":  "MEDICATION_V1_ID",
	"tirzepatide_v1": "TIRZEPATIDE_V1_ID",
	"semaglutide_v1": "SEMAGLUTIDE_V1_ID",
}

// Registry holds the configured funnels in a stable order.
type Registry struct {
	funnels []models.FunnelDefinition
	byKey   map[string]int
}

// NewRegistry builds a registry. Later definitions replace earlier ones
// with the same key while keeping the original position.
func NewRegistry(defs ...models.FunnelDefinition) (*Registry, error) {
	r := &Registry{byKey: make(map[string]int)}
	for _, d := range defs {
		if d.Key == "" || d.EmbeddableID == "" {
			return nil, fmt.Errorf("funnel definition needs key and embeddable_id: %+v", d)
		}
		if d.Key == models.FunnelAll {
			return nil, fmt.Errorf("funnel key %q is reserved", models.FunnelAll)
		}
		if d.Name == "" {
			d.Name = d.Key
		}
		if d.FormSource == "" {
			d.FormSource = d.Key
		}
		if i, ok := r.byKey[d.Key]; ok {
			r.funnels[i] = d
			continue
		}
		r.byKey[d.Key] = len(r.funnels)
		r.funnels = append(r.funnels, d)
	}
	return r, nil
}

// Get looks up a funnel by key.
func (r *Registry) Get(key string) (models.FunnelDefinition, error) {
	i, ok := r.byKey[key]
	if !ok {
		return models.FunnelDefinition{}, fmt.Errorf("%w: %s (known: %v)", ErrUnknownFunnel, key, r.Keys())
	}
	return r.funnels[i], nil
}

// All returns every funnel in registry order.
func (r *Registry) All() []models.FunnelDefinition {
	out := make([]models.FunnelDefinition, len(r.funnels))
	copy(out, r.funnels)
	return out
}

// Keys returns the funnel keys in registry order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.funnels))
	for i, f := range r.funnels {
		keys[i] = f.Key
	}
	return keys
}

// Select resolves a list of keys; "all" or an empty list selects every
// funnel. Duplicates are dropped.
func (r *Registry) Select(keys []string) ([]models.FunnelDefinition, error) {
	if len(keys) == 0 {
		return r.All(), nil
	}
	for _, k := range keys {
		if k == models.FunnelAll {
			return r.All(), nil
		}
	}

	seen := make(map[string]bool, len(keys))
	var out []models.FunnelDefinition
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		f, err := r.Get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// DefaultsFromEnv returns DefaultFunnels with embeddable ids overridden by
// the environment.
func DefaultsFromEnv(getenv func(string) string) []models.FunnelDefinition {
	out := make([]models.FunnelDefinition, len(DefaultFunnels))
	copy(out, DefaultFunnels)
	for i := range out {
		if v := getenv(funnelEnv[out[i].Key]); v != "" {
			out[i].EmbeddableID = v
		}
	}
	return out
}

type funnelsFile struct {
	Funnels []models.FunnelDefinition `yaml:"funnels"`
}

// LoadFunnelsFile reads extra or replacement funnel definitions:
//
//	funnels:
//	  - key: medication_v2
//	    embeddable_id: flow_xxx
//	    name: Medication V2
//	    form_source: medication v2
func LoadFunnelsFile(path string) ([]models.FunnelDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read funnels file: %w", err)
	}
	var f funnelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse funnels file: %w", err)
	}
	return f.Funnels, nil
}

// sortedEnvNames lists the override variables, for help output.
func sortedEnvNames() []string {
	names := make([]string, 0, len(funnelEnv))
	for _, v := range funnelEnv {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}
