package dialogue

var suggestionsByIntent = map[string][]string{
	"meteo":      {"Météo pour demain ?", "Prévisions sur 3 jours", "Conditions de ski"},
	"restaurant": {"Restaurants avec terrasse", "Spécialités locales", "Restaurants familiaux"},
	"randonnee":  {"Randonnées faciles", "Balades en famille", "Sentiers avec vue lac"},
}

// suggestionsFor returns follow-up prompts for a completed intent.
func suggestionsFor(intentName string) []string {
	s := suggestionsByIntent[intentName]
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
