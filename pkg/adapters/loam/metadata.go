package loam

import (
	"github.com/aretw0/tendril/pkg/schema"
)

// ParameterMetadata is the front matter of a parameter document.
// It mirrors schema.Spec; the document body becomes the description.
type ParameterMetadata struct {
	Key         string   `json:"key" mapstructure:"key"`
	Kind        string   `json:"kind" mapstructure:"kind"`
	Label       string   `json:"label" mapstructure:"label"`
	Description string   `json:"description" mapstructure:"description"`
	Default     any      `json:"default" mapstructure:"default"`
	Nullable    bool     `json:"nullable" mapstructure:"nullable"`
	Action      bool     `json:"action" mapstructure:"action"`
	DependsOn   []string `json:"depends_on" mapstructure:"depends_on"`
	VisibleWhen any      `json:"visible_when" mapstructure:"visible_when"`
	EnabledWhen any      `json:"enabled_when" mapstructure:"enabled_when"`
	Transforms  []any    `json:"transforms" mapstructure:"transforms"`
	Validators  []any    `json:"validators" mapstructure:"validators"`
	Async       []string `json:"async" mapstructure:"async"`

	// Order positions the parameter in the schema. Documents without an
	// order come last, sorted by key.
	Order *int `json:"order,omitempty" mapstructure:"order"`
}

// Spec converts the metadata into a schema.Spec. docID and body fill in the
// key and description when the front matter omits them.
func (m ParameterMetadata) Spec(docID, body string) schema.Spec {
	key := m.Key
	if key == "" {
		key = trimExtension(docID)
	}
	desc := m.Description
	if desc == "" {
		desc = body
	}
	return schema.Spec{
		Key:         key,
		Kind:        m.Kind,
		Label:       m.Label,
		Description: desc,
		Default:     m.Default,
		Nullable:    m.Nullable,
		Action:      m.Action,
		DependsOn:   m.DependsOn,
		VisibleWhen: m.VisibleWhen,
		EnabledWhen: m.EnabledWhen,
		Transforms:  m.Transforms,
		Validators:  m.Validators,
		Async:       m.Async,
	}
}
