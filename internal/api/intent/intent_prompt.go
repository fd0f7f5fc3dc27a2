package intent

import (
	"encoding/json"
	"fmt"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

type promptIntent struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

func buildClassificationPrompt(utterance string, catalog *types.IntentCatalog, turnCtx types.TurnContext) string {
	list := make([]promptIntent, 0, catalog.Len())
	for _, in := range catalog.All() {
		examples := in.Examples
		if examples == nil {
			examples = []string{}
		}
		list = append(list, promptIntent{Name: in.Name, Description: in.Description, Examples: examples})
	}
	intents, _ := json.MarshalIndent(list, "", "  ")

	contextLine := ""
	if turnCtx.Territory != "" {
		contextLine = fmt.Sprintf("\nTerritoire : %s", turnCtx.Territory)
	}
	if turnCtx.PreviousIntent != "" {
		contextLine += fmt.Sprintf("\nIntent précédent : %s", turnCtx.PreviousIntent)
	}

	return fmt.Sprintf(`Tu es un assistant de détection d'intentions pour un chatbot touristique.
%s
Message utilisateur : %q

Intents disponibles :
%s

Analyse le message et retourne UNIQUEMENT le nom de l'intent qui correspond le mieux.
Si aucun intent ne correspond vraiment, retourne "%s".

Réponse (nom de l'intent seulement) :`, contextLine, utterance, intents, types.FallbackIntentName)
}
