package types

import "strings"

// FallbackIntentName is the intent returned whenever classification cannot
// settle on a catalog entry.
const FallbackIntentName = "general_chat"

// InteractionCategory selects how a response is rendered.
type InteractionCategory string

const (
	CategoryPhysicalLocation InteractionCategory = "physical_location"
	CategoryEvent            InteractionCategory = "event"
	CategoryActivity         InteractionCategory = "activity"
	CategoryInformation      InteractionCategory = "information"
)

// Precedence ranks categories for mixed result sets, most specific first.
func (c InteractionCategory) Precedence() int {
	switch c {
	case CategoryPhysicalLocation:
		return 4
	case CategoryEvent:
		return 3
	case CategoryActivity:
		return 2
	case CategoryInformation:
		return 1
	default:
		return 0
	}
}

type Slot struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required" yaml:"required"`
	Description string   `json:"description" yaml:"description"`
	Examples    []string `json:"examples,omitempty" yaml:"exemples"`
	Value       string   `json:"value,omitempty" yaml:"-"`
}

type Intent struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Slots               map[string]Slot `json:"slots"`
	SlotOrder           []string        `json:"slot_order"`
	Examples            []string        `json:"examples,omitempty"`
	ResponseTemplateKey string          `json:"response_template_key,omitempty"`
	// CacheCategory overrides the TTL category; empty means the intent name.
	CacheCategory string `json:"cache_category,omitempty"`
}

// OrderedSlots returns the slot specs in declaration order.
func (i *Intent) OrderedSlots() []Slot {
	out := make([]Slot, 0, len(i.SlotOrder))
	for _, name := range i.SlotOrder {
		if s, ok := i.Slots[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (i *Intent) HasSlot(name string) bool {
	_, ok := i.Slots[name]
	return ok
}

// MissingRequired lists required slots without a non-blank value, in
// declaration order.
func (i *Intent) MissingRequired(filled map[string]string) []string {
	var missing []string
	for _, s := range i.OrderedSlots() {
		if !s.Required {
			continue
		}
		if strings.TrimSpace(filled[s.Name]) == "" {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// TTLCategory is the key used to look up the response cache TTL.
func (i *Intent) TTLCategory() string {
	if i.CacheCategory != "" {
		return i.CacheCategory
	}
	return i.Name
}

// IntentCatalog is an ordered, name-indexed set of intents.
type IntentCatalog struct {
	intents []*Intent
	index   map[string]*Intent
}

func NewIntentCatalog(intents ...*Intent) *IntentCatalog {
	c := &IntentCatalog{index: make(map[string]*Intent, len(intents))}
	for _, in := range intents {
		if in == nil || in.Name == "" {
			continue
		}
		if _, dup := c.index[in.Name]; dup {
			continue
		}
		c.intents = append(c.intents, in)
		c.index[in.Name] = in
	}
	return c
}

func (c *IntentCatalog) Lookup(name string) (*Intent, bool) {
	if c == nil {
		return nil, false
	}
	in, ok := c.index[name]
	return in, ok
}

// Fallback returns the general chat intent, or nil if the catalog has none.
func (c *IntentCatalog) Fallback() *Intent {
	in, _ := c.Lookup(FallbackIntentName)
	return in
}

func (c *IntentCatalog) All() []*Intent {
	if c == nil {
		return nil
	}
	return c.intents
}

func (c *IntentCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.intents)
}
