package models

// FunnelDefinition identifies one form variant. Immutable once loaded.
type FunnelDefinition struct {
	Key          string `yaml:"key"`
	EmbeddableID string `yaml:"embeddable_id"`
	Name         string `yaml:"name"`
	FormSource   string `yaml:"form_source"` // written into the "Form Source" column
}

// FunnelAll selects every configured funnel.
const FunnelAll = "all"
