// Package catalog loads the intent catalog from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

//go:embed intents.yaml
var defaultCatalog []byte

type slotSpec struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"exemples"`
}

// UnmarshalYAML accepts either a bare slot name or a mapping.
func (s *slotSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Name = node.Value
		return nil
	}
	type plain slotSpec
	return node.Decode((*plain)(s))
}

type intentDef struct {
	Description string     `yaml:"description"`
	Required    []slotSpec `yaml:"slots_obligatoires"`
	Optional    []slotSpec `yaml:"slots_optionnels"`
	Examples    []string   `yaml:"exemples"`
	Cache       string     `yaml:"cache_category"`
	Template    string     `yaml:"template"`
}

type document struct {
	Intents yaml.Node `yaml:"intents"`
}

// Load reads the catalog at path; an empty path loads the built-in one.
func Load(path string) (*types.IntentCatalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read intent catalog %s: %v", types.ErrConfiguration, path, err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() (*types.IntentCatalog, error) {
	return Parse(defaultCatalog)
}

// Parse builds a catalog keeping the file's intent order. Entries that are
// not mappings are skipped; general_chat is added when missing.
func Parse(data []byte) (*types.IntentCatalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse intent catalog: %v", types.ErrConfiguration, err)
	}
	if doc.Intents.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: intent catalog has no intents mapping", types.ErrConfiguration)
	}

	var intents []*types.Intent
	seenFallback := false
	nodes := doc.Intents.Content
	for i := 0; i+1 < len(nodes); i += 2 {
		name, body := nodes[i].Value, nodes[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		var def intentDef
		if err := body.Decode(&def); err != nil {
			return nil, fmt.Errorf("%w: intent %s: %v", types.ErrConfiguration, name, err)
		}
		in, err := buildIntent(name, def)
		if err != nil {
			return nil, err
		}
		if name == types.FallbackIntentName {
			seenFallback = true
		}
		intents = append(intents, in)
	}
	if !seenFallback {
		intents = append(intents, FallbackIntent())
	}
	return types.NewIntentCatalog(intents...), nil
}

func buildIntent(name string, def intentDef) (*types.Intent, error) {
	in := &types.Intent{
		Name:                name,
		Description:         def.Description,
		Slots:               make(map[string]types.Slot, len(def.Required)+len(def.Optional)),
		Examples:            def.Examples,
		ResponseTemplateKey: def.Template,
		CacheCategory:       def.Cache,
	}
	add := func(s slotSpec, required bool) error {
		if s.Name == "" {
			return fmt.Errorf("%w: intent %s: slot without name", types.ErrConfiguration, name)
		}
		if _, dup := in.Slots[s.Name]; dup {
			return fmt.Errorf("%w: intent %s: duplicate slot %s", types.ErrConfiguration, name, s.Name)
		}
		slot := types.Slot{
			Name:        s.Name,
			Type:        s.Type,
			Required:    required,
			Description: s.Description,
			Examples:    s.Examples,
		}
		if slot.Type == "" {
			slot.Type = "text"
		}
		if slot.Description == "" {
			slot.Description = strings.ReplaceAll(s.Name, "_", " ")
		}
		in.Slots[s.Name] = slot
		in.SlotOrder = append(in.SlotOrder, s.Name)
		return nil
	}
	for _, s := range def.Required {
		if err := add(s, true); err != nil {
			return nil, err
		}
	}
	for _, s := range def.Optional {
		if err := add(s, false); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// FallbackIntent is the general conversation intent added to every catalog.
func FallbackIntent() *types.Intent {
	return &types.Intent{
		Name:        types.FallbackIntentName,
		Description: "Conversation générale et accueil",
		Slots:       map[string]types.Slot{},
		Examples:    []string{"bonjour", "salut", "merci", "au revoir"},
	}
}
