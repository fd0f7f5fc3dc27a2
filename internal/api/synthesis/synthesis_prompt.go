package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/alpine-guide/internal/api/poicontext"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

func buildClarificationPrompt(intent *types.Intent, slot types.Slot, filled map[string]string) string {
	known := make([]string, 0, len(filled))
	for _, s := range intent.OrderedSlots() {
		if v := filled[s.Name]; v != "" {
			known = append(known, fmt.Sprintf("%s: %s", s.Name, v))
		}
	}
	knownLine := "Aucune"
	if len(known) > 0 {
		knownLine = strings.Join(known, ", ")
	}

	return fmt.Sprintf(`Tu es un assistant touristique conversationnel et chaleureux.

L'utilisateur veut : %s
Informations déjà connues : %s

Il manque l'information suivante :
- Nom : %s
- Description : %s
- Exemples : %s

Génère une question naturelle et amicale pour obtenir cette information.
La question doit être courte et directe.

Question :`, intent.Description, knownLine, slot.Name, slot.Description, strings.Join(slot.Examples, ", "))
}

type promptPayload struct {
	POIs             []types.POICard         `json:"pois,omitempty"`
	Weather          *types.WeatherPayload   `json:"weather,omitempty"`
	WaterTemperature *types.WaterTemperature `json:"water_temperature,omitempty"`
}

func buildResponsePrompt(req Request, cards []types.POICard) string {
	var b strings.Builder
	slots, _ := json.Marshal(req.Slots)

	b.WriteString("Tu es un assistant touristique expert et chaleureux.\n\n")
	fmt.Fprintf(&b, "Intent : %s - %s\n", req.Intent.Name, req.Intent.Description)
	fmt.Fprintf(&b, "Informations utilisateur : %s\n", slots)
	if req.Territory != "" {
		fmt.Fprintf(&b, "Territoire : %s\n", req.Territory)
	}
	b.WriteString("\n")

	payload := promptPayload{POIs: cards, Weather: req.Weather, WaterTemperature: req.Water}
	if len(cards) > 0 || req.Weather != nil || req.Water != nil {
		data, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Fprintf(&b, "Données disponibles :\n%s\n\n", data)
	}

	b.WriteString(templateInstructions(req.Analysis.Template))

	if len(req.Analysis.Warnings) > 0 {
		b.WriteString("\n⚠️ ALERTES DÉTECTÉES :\n")
		b.WriteString(strings.Join(req.Analysis.Warnings, "\n"))
		b.WriteString("\nMentionne ces alertes à l'utilisateur.\n")
	}
	b.WriteString("\nRéponse :")
	return b.String()
}

func templateInstructions(t poicontext.TemplateType) string {
	switch t {
	case poicontext.TemplateLocationWithMaps:
		return locationInstructions
	case poicontext.TemplateEventWithoutMaps:
		return eventInstructions
	case poicontext.TemplateActivitySelectiveMaps:
		return activityInstructions
	case poicontext.TemplateWeatherFormatted:
		return weatherInstructions
	default:
		return generalInstructions
	}
}

var locationInstructions = `FORMAT DE RÉPONSE - LIEUX PHYSIQUES :

Pour chaque restaurant, hôtel, magasin ou musée, utilise cette structure :

<div class="poi-item">
<h3>[Nom du lieu]</h3>
<p>[Description courte, 1 à 2 phrases]</p>
<div class="poi-links">
<a href="[URL exacte map_links.google_maps]" target="_blank" class="map-link google">📍 Google Maps</a>
<a href="[URL exacte map_links.apple_maps]" target="_blank" class="map-link apple">🗺️ Apple Plans</a>
</div>
</div>

RÈGLES :
- Inclure les liens cartographiques pour chaque lieu physique
- Utiliser UNIQUEMENT les URLs exactes de map_links, ne jamais en inventer
- Si un lieu n'a pas de map_links, écrire "` + MapLinksPlaceholder + `"
`

var eventInstructions = `FORMAT DE RÉPONSE - ÉVÉNEMENTS :

Pour chaque événement, festival, marché ou spectacle, utilise cette structure :

<div class="poi-item">
<h3>[Nom de l'événement]</h3>
<p>[Description avec dates, horaires et lieu général]</p>
</div>

RÈGLES :
- NE PAS inclure de liens cartographiques pour les événements
- Mentionner les dates et horaires si disponibles
- Indiquer le lieu général (ex : "Centre-ville d'Annecy")
`

var activityInstructions = `FORMAT DE RÉPONSE - ACTIVITÉS :

Pour les lieux d'activité précis (bases de loisirs, centres sportifs) qui ont des map_links :

<div class="poi-item">
<h3>[Nom du lieu d'activité]</h3>
<p>[Description de l'activité et du lieu]</p>
<div class="poi-links">
<a href="[URL exacte map_links.google_maps]" target="_blank" class="map-link google">📍 Google Maps</a>
<a href="[URL exacte map_links.apple_maps]" target="_blank" class="map-link apple">🗺️ Apple Plans</a>
</div>
</div>

Pour les activités générales (randonnées, sentiers longs) :

<div class="poi-item">
<h3>[Nom de l'activité]</h3>
<p>[Description avec conseils pratiques et conditions]</p>
</div>

RÈGLES :
- Liens cartographiques SEULEMENT quand map_links est fourni
- Ne jamais inventer d'URL
`

var weatherInstructions = `FORMAT DE RÉPONSE MÉTÉO :

Pour la météo ACTUELLE :
<div class="weather-item current-weather">
<h3>🌤️ Météo actuelle à [VILLE]</h3>
<div class="weather-main">
<span class="temperature">[XX]°C</span>
<span class="description">[Description]</span>
</div>
<div class="weather-details">
<span class="label">Vent :</span> <span class="value">[XX] km/h</span>
<span class="label">Précipitations :</span> <span class="value">[XX] mm</span>
</div>
</div>

Pour les PRÉVISIONS :
<div class="weather-item forecast-weather">
<h3>📅 Prévisions météo pour [VILLE]</h3>
<div class="forecast-days">
<div class="forecast-day">
<div class="day-name">[Jour]</div>
<div class="day-temp">[MIN]°C / [MAX]°C</div>
<div class="day-desc">[Description]</div>
</div>
</div>
</div>

RÈGLES :
- Uniquement du HTML, pas de markdown ni de balises de code
- Données exactes depuis les informations météo fournies
- Commencer directement par <div class="weather-item">
`

var generalInstructions = `FORMAT DE RÉPONSE GÉNÉRAL :

Adapte ta réponse au type d'information demandée.
Si tu cites des lieux physiques avec des map_links, inclus ces liens tels quels.
Sinon concentre-toi sur le contenu informatif.
`
