package slots

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const historyWindow = 3

type promptSlot struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
	Required    bool     `json:"required"`
}

func buildExtractionPrompt(utterance string, intent *types.Intent, history []types.HistoryEntry, turnCtx types.TurnContext) string {
	specs := make([]promptSlot, 0, len(intent.SlotOrder))
	for _, s := range intent.OrderedSlots() {
		examples := s.Examples
		if examples == nil {
			examples = []string{}
		}
		specs = append(specs, promptSlot{
			Name: s.Name, Type: s.Type, Description: s.Description, Examples: examples, Required: s.Required,
		})
	}
	slotsJSON, _ := json.MarshalIndent(specs, "", "  ")

	var hist strings.Builder
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, h := range history[start:] {
		fmt.Fprintf(&hist, "%s: %s\n", h.Role, h.Content)
	}

	territory := ""
	if turnCtx.Territory != "" {
		territory = "\nTerritoire actuel : " + turnCtx.Territory
	}

	return fmt.Sprintf(`Tu es un assistant d'extraction d'informations pour un chatbot touristique.

Historique récent :
%s%s

Message actuel : %q

Intent détecté : %s

Slots à extraire :
%s

Extrais les valeurs des slots depuis le message et l'historique.
Ne pas inventer de valeurs, seulement extraire ce qui est explicitement mentionné.
Retourne UNIQUEMENT un objet JSON plat {"nom_du_slot": "valeur"} avec les slots trouvés, sans texte autour.

Réponse JSON :`, hist.String(), territory, utterance, intent.Name, slotsJSON)
}
