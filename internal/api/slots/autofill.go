package slots

import (
	"maps"
	"strings"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

var territoryDisplayNames = map[string]string{
	"annecy":   "Annecy",
	"chamonix": "Chamonix",
	"chambery": "Chambéry",
	"chambéry": "Chambéry",
}

// locationSlots are filled from the territory when the intent declares them.
var locationSlots = []string{"localisation", "location"}

// TerritoryDisplayName maps a territory slug to its display name, falling
// back to the slug itself.
func TerritoryDisplayName(territory string) string {
	t := strings.TrimSpace(territory)
	if name, ok := territoryDisplayNames[strings.ToLower(t)]; ok {
		return name
	}
	return t
}

// AutoFill returns a copy of filled completed with values derived from the
// turn context. Slots that already have a value are never touched.
func AutoFill(intent *types.Intent, filled map[string]string, turnCtx types.TurnContext) map[string]string {
	out := maps.Clone(filled)
	if out == nil {
		out = map[string]string{}
	}
	if intent == nil {
		return out
	}
	name := TerritoryDisplayName(turnCtx.Territory)
	if name == "" {
		return out
	}
	for _, slot := range locationSlots {
		if !intent.HasSlot(slot) {
			continue
		}
		if strings.TrimSpace(out[slot]) != "" {
			continue
		}
		out[slot] = name
	}
	return out
}
