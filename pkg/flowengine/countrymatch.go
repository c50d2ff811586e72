package flowengine

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// CountryMatcher canonicalizes the country names found in raw movement rows.
// Public datasets disagree on spelling ("Korea, Rep.", "South Korea",
// "Iran (Islamic Republic of)"); the matcher maps any known alias appearing
// inside the raw field to one canonical name so aggregation groups them
// together. Unknown names pass through trimmed but otherwise untouched.
type CountryMatcher struct {
	matcher   *ahocorasick.Matcher
	aliases   []string
	canonical []string
	exact     map[string]string
}

// DefaultCountryAliases covers the variants seen in the UN and World Bank
// migration exports.
var DefaultCountryAliases = map[string]string{
	"united states of america": "United States",
	"usa":                      "United States",
	"russian federation":       "Russia",
	"korea, rep.":              "South Korea",
	"republic of korea":        "South Korea",
	"korea, dem. people's rep.": "North Korea",
	"iran (islamic republic of)": "Iran",
	"iran, islamic rep.":         "Iran",
	"venezuela (bolivarian republic of)": "Venezuela",
	"bolivia (plurinational state of)":   "Bolivia",
	"viet nam":                           "Vietnam",
	"syrian arab republic":               "Syria",
	"united republic of tanzania":        "Tanzania",
	"democratic republic of the congo":   "DR Congo",
	"congo, dem. rep.":                   "DR Congo",
	"lao people's democratic republic":   "Laos",
	"united kingdom of great britain":    "United Kingdom",
	"czechia":                            "Czech Republic",
	"turkiye":                            "Turkey",
}

// NewCountryMatcher builds a matcher over the alias table. Aliases are
// matched case-insensitively as substrings of the raw field.
func NewCountryMatcher(aliases map[string]string) *CountryMatcher {
	cm := &CountryMatcher{exact: make(map[string]string, len(aliases))}
	for alias, canon := range aliases {
		key := strings.ToLower(strings.TrimSpace(alias))
		cm.exact[key] = canon
		cm.aliases = append(cm.aliases, key)
		cm.canonical = append(cm.canonical, canon)
	}
	cm.matcher = ahocorasick.NewStringMatcher(cm.aliases)
	return cm
}

// Normalize returns the canonical name for a raw country field, or the
// trimmed input when no alias matches. Empty input stays empty so the
// ingestion filter still drops the row.
func (cm *CountryMatcher) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if canon, ok := cm.exact[lower]; ok {
		return canon
	}
	hits := cm.matcher.Match([]byte(lower))
	best := -1
	for _, idx := range hits {
		if best == -1 || len(cm.aliases[idx]) > len(cm.aliases[best]) {
			best = idx
		}
	}
	if best >= 0 {
		return cm.canonical[best]
	}
	return raw
}
