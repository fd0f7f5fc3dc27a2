package slots

import (
	"strings"
	"unicode"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

type keyword struct {
	phrase string
	value  string // empty means the phrase itself
}

type keywordRule struct {
	slot     string
	keywords []keyword
}

// keywordRules is evaluated in order; within a rule the first matching
// phrase wins, so longer phrases come before their substrings.
var keywordRules = []keywordRule{
	{slot: "date_heure", keywords: []keyword{
		{phrase: "ce soir"},
		{phrase: "tonight", value: "ce soir"},
		{phrase: "demain"},
		{phrase: "tomorrow", value: "demain"},
		{phrase: "midi"},
		{phrase: "noon", value: "midi"},
		{phrase: "lunch", value: "midi"},
		{phrase: "soir"},
		{phrase: "evening", value: "soir"},
		{phrase: "19h"},
		{phrase: "20h"},
		{phrase: "aujourd'hui"},
		{phrase: "today", value: "aujourd'hui"},
	}},
	{slot: "type_cuisine", keywords: []keyword{
		{phrase: "savoyard", value: "savoyarde"},
		{phrase: "savoyarde", value: "savoyarde"},
		{phrase: "italien", value: "italienne"},
		{phrase: "italienne", value: "italienne"},
		{phrase: "chinois", value: "chinoise"},
		{phrase: "chinoise", value: "chinoise"},
		{phrase: "français", value: "française"},
		{phrase: "française", value: "française"},
		{phrase: "francais", value: "française"},
		{phrase: "francaise", value: "française"},
		{phrase: "local", value: "local"},
		{phrase: "locale", value: "local"},
		{phrase: "traditionnel", value: "traditionnel"},
		{phrase: "traditionnelle", value: "traditionnel"},
		{phrase: "gastronomique", value: "gastronomique"},
		{phrase: "italian", value: "italienne"},
		{phrase: "chinese", value: "chinoise"},
		{phrase: "french", value: "française"},
		{phrase: "traditional", value: "traditionnel"},
		{phrase: "gastronomic", value: "gastronomique"},
	}},
	{slot: "terrasse", keywords: []keyword{
		{phrase: "terrasse", value: "avec terrasse"},
		{phrase: "terrasses", value: "avec terrasse"},
		{phrase: "terrace", value: "avec terrasse"},
		{phrase: "terraces", value: "avec terrasse"},
		{phrase: "outdoor seating", value: "avec terrasse"},
	}},
}

// KeywordSlots is the last-resort extractor. It only fills slots the
// intent declares and only from the fixed vocabulary above.
func KeywordSlots(utterance string, intent *types.Intent) map[string]string {
	out := map[string]string{}
	if intent == nil {
		return out
	}
	text := " " + normalizeUtterance(utterance) + " "
	for _, rule := range keywordRules {
		if !intent.HasSlot(rule.slot) {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(text, " "+kw.phrase+" ") {
				v := kw.value
				if v == "" {
					v = kw.phrase
				}
				out[rule.slot] = v
				break
			}
		}
	}
	return out
}

// normalizeUtterance lower-cases, unifies apostrophes and turns every other
// punctuation mark into a space so phrases match on word boundaries.
func normalizeUtterance(s string) string {
	s = strings.ToLower(strings.NewReplacer("’", "'", "‘", "'").Replace(s))
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
