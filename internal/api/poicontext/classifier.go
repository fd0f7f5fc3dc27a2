// Package poicontext decides how POIs and whole answers are rendered.
package poicontext

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

type TemplateType string

const (
	TemplateLocationWithMaps      TemplateType = "location_with_maps"
	TemplateEventWithoutMaps      TemplateType = "event_without_maps"
	TemplateActivitySelectiveMaps TemplateType = "activity_selective_maps"
	TemplateWeatherFormatted      TemplateType = "weather_formatted"
	TemplateGeneral               TemplateType = "general"
)

const (
	eventPastTolerance   = 7 * 24 * time.Hour
	eventFutureTolerance = 365 * 24 * time.Hour
)

type ClassifiedPOI struct {
	POI      types.POI
	Category types.InteractionCategory
	Warning  string
}

type Analysis struct {
	Category types.InteractionCategory
	Template TemplateType
	POIs     []ClassifiedPOI
	Warnings []string
}

// Classify assigns a category to every POI and to the interaction as a
// whole. The interaction takes the most specific category among the
// intent's own and the POIs'.
func Classify(intentName string, pois []types.POI, now time.Time) Analysis {
	a := Analysis{Category: IntentCategory(intentName)}
	for _, p := range pois {
		c := ClassifiedPOI{POI: p, Category: ClassifyPOI(p)}
		if c.Category == types.CategoryEvent {
			c.Warning = ValidateEventDate(p, now)
			if c.Warning != "" {
				a.Warnings = append(a.Warnings, c.Warning)
			}
		}
		if c.Category.Precedence() > a.Category.Precedence() {
			a.Category = c.Category
		}
		a.POIs = append(a.POIs, c)
	}
	a.Template = templateFor(intentName, a.Category)
	return a
}

// IntentCategory returns information for intents missing from the table.
func IntentCategory(intentName string) types.InteractionCategory {
	if c, ok := intentCategories[intentName]; ok {
		return c
	}
	return types.CategoryInformation
}

// ClassifyPOI applies the type table, then the keyword rules, then
// defaults to information.
func ClassifyPOI(p types.POI) types.InteractionCategory {
	if c, ok := typeTable[fold(p.Type)]; ok {
		return c
	}
	name := tokens(p.Name)
	var desc []string
	for _, rule := range keywordRules {
		if matchAny(name, rule.keywords) {
			return rule.category
		}
		if rule.matchDescription {
			if desc == nil {
				desc = tokens(p.Description)
			}
			if matchAny(desc, rule.keywords) {
				return rule.category
			}
		}
	}
	return types.CategoryInformation
}

// ValidateEventDate returns a warning when the event start date looks
// implausible, or an empty string.
func ValidateEventDate(p types.POI, now time.Time) string {
	if p.StartDate == nil || p.StartDate.IsZero() {
		return ""
	}
	start := *p.StartDate
	switch {
	case start.Before(now.Add(-eventPastTolerance)):
		return fmt.Sprintf("⚠️ L'événement '%s' semble être passé (%s)", p.Name, start.Format("02/01/2006"))
	case start.After(now.Add(eventFutureTolerance)):
		return fmt.Sprintf("⚠️ L'événement '%s' semble très éloigné (%s)", p.Name, start.Format("02/01/2006"))
	default:
		return ""
	}
}

func templateFor(intentName string, c types.InteractionCategory) TemplateType {
	if weatherIntents[intentName] {
		return TemplateWeatherFormatted
	}
	switch c {
	case types.CategoryPhysicalLocation:
		return TemplateLocationWithMaps
	case types.CategoryEvent:
		return TemplateEventWithoutMaps
	case types.CategoryActivity:
		return TemplateActivitySelectiveMaps
	default:
		return TemplateGeneral
	}
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func tokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchAny matches whole words, allowing a plural s or x.
func matchAny(words, keywords []string) bool {
	for _, w := range words {
		for _, kw := range keywords {
			if w == kw || w == kw+"s" || w == kw+"x" {
				return true
			}
		}
	}
	return false
}
