package poicontext

import "github.com/FACorreiaa/alpine-guide/internal/types"

var intentCategories = map[string]types.InteractionCategory{
	"restaurant":        types.CategoryPhysicalLocation,
	"hebergement":       types.CategoryPhysicalLocation,
	"shopping":          types.CategoryPhysicalLocation,
	"musee":             types.CategoryPhysicalLocation,
	"office_tourisme":   types.CategoryPhysicalLocation,
	"evenement":         types.CategoryEvent,
	"visite_guidee":     types.CategoryEvent,
	"randonnee":         types.CategoryActivity,
	"activite_sportive": types.CategoryActivity,
	"ski":               types.CategoryActivity,
	"baignade":          types.CategoryActivity,
	"meteo":             types.CategoryInformation,
	"water_temperature": types.CategoryInformation,
	"transport_public":  types.CategoryInformation,
	"urgence":           types.CategoryInformation,
	"wifi_gratuit":      types.CategoryInformation,
}

var weatherIntents = map[string]bool{
	"meteo": true,
}

// typeTable is consulted first, on the folded POI type.
var typeTable = map[string]types.InteractionCategory{
	"restaurant":    types.CategoryPhysicalLocation,
	"hotel":         types.CategoryPhysicalLocation,
	"shop":          types.CategoryPhysicalLocation,
	"accommodation": types.CategoryPhysicalLocation,
	"store":         types.CategoryPhysicalLocation,
	"cafe":          types.CategoryPhysicalLocation,
	"bar":           types.CategoryPhysicalLocation,
	"museum":        types.CategoryPhysicalLocation,
	"event":         types.CategoryEvent,
	"festival":      types.CategoryEvent,
	"concert":       types.CategoryEvent,
	"activity":      types.CategoryActivity,
	"sport":         types.CategoryActivity,
	"nature":        types.CategoryActivity,
	"outdoor":       types.CategoryActivity,
}

type keywordRule struct {
	category         types.InteractionCategory
	keywords         []string
	matchDescription bool
}

// keywordRules run in order on the folded name, and on the description
// when matchDescription is set. The first hit wins.
var keywordRules = []keywordRule{
	{
		category: types.CategoryPhysicalLocation,
		keywords: []string{"restaurant", "hotel", "magasin", "cafe", "bar", "musee", "shop", "store"},
	},
	{
		category:         types.CategoryEvent,
		keywords:         []string{"fete", "festival", "marche", "concert", "spectacle", "evenement"},
		matchDescription: true,
	},
	{
		category: types.CategoryActivity,
		keywords: []string{"randonnee", "trail", "sentier", "parcours", "piste", "sport"},
	},
}
