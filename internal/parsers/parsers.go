package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"realitky/pipeline/config"
)

// Parsers turn localized free-text fragments from the sources into typed
// values. Every function here is total: malformed input yields an absent
// result, never an error.

var (
	leadingDigits = regexp.MustCompile(`^(\d+)`)
	areaPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*m[²2]`)
	layoutPattern = regexp.MustCompile(`\d+\+(?:kk|\d+)`)
	digitsOnly    = regexp.MustCompile(`^\d+$`)
)

// RoomCount derives the numeric room count from a layout code such as
// "2+kk" or "3+1" by taking its leading integer run.
func RoomCount(layout string) (int, bool) {
	match := leadingDigits.FindString(strings.TrimSpace(layout))
	if match == "" {
		return 0, false
	}
	count, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return count, true
}

// Price parses a Czech price string such as "4 500 000 Kč". Whitespace
// (including non-breaking spaces used as thousands separators) and the
// currency marker are stripped; the remainder must be an integer.
func Price(text string) (float64, bool) {
	cleaned := strings.NewReplacer(
		"Kč", "", "CZK", "", " ", "", " ", "", " ", "", "\t", "",
	).Replace(strings.TrimSpace(text))
	cleaned = strings.TrimSpace(cleaned)

	if !digitsOnly.MatchString(cleaned) {
		return 0, false
	}
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(value), true
}

// Area extracts the first decimal number preceding an area unit marker,
// accepting both comma and dot separators ("65,5 m²", "120 m2").
func Area(text string) (float64, bool) {
	match := areaPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Layout extracts a room-layout code ("2+kk", "3+1") from free text, used
// when a source has no structured layout field.
func Layout(text string) (string, bool) {
	match := layoutPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// Features are the seven independent amenity flags of a canonical record.
type Features struct {
	Balcony  bool
	Terrace  bool
	Parking  bool
	Garage   bool
	Elevator bool
	Cellar   bool
	Garden   bool
}

// Amenity vocabularies, Czech and English.
var featureVocab = []struct {
	set   func(*Features)
	terms []string
}{
	{func(f *Features) { f.Balcony = true }, []string{"balkon", "balkón", "balcony"}},
	{func(f *Features) { f.Terrace = true }, []string{"terasa", "terrace"}},
	{func(f *Features) { f.Garage = true }, []string{"garáž", "garaz", "garage"}},
	{func(f *Features) { f.Parking = true }, []string{"parkování", "parkovani", "parking"}},
	{func(f *Features) { f.Elevator = true }, []string{"výtah", "vytah", "elevator", "lift"}},
	{func(f *Features) { f.Cellar = true }, []string{"sklep", "cellar"}},
	{func(f *Features) { f.Garden = true }, []string{"zahrada", "garden"}},
}

// ExtractFeatures sets amenity flags by case-insensitive substring matching
// of the label list against the fixed vocabularies.
func ExtractFeatures(labels []string) Features {
	var features Features
	for _, label := range labels {
		lower := strings.ToLower(label)
		for _, vocab := range featureVocab {
			for _, term := range vocab.terms {
				if strings.Contains(lower, term) {
					vocab.set(&features)
					break
				}
			}
		}
	}
	return features
}

var conditionTable = map[string]string{
	"novostavba":         "new_building",
	"velmi dobrý":        "very_good",
	"dobrý":              "good",
	"špatný":             "poor",
	"ve výstavbě":        "under_construction",
	"před rekonstrukcí":  "before_reconstruction",
	"po rekonstrukci":    "after_reconstruction",
	"v rekonstrukci":     "under_reconstruction",
	"new building":       "new_building",
	"very good":          "very_good",
	"good":               "good",
	"poor":               "poor",
	"under construction": "under_construction",
}

var constructionTable = map[string]string{
	"cihlová":          "brick",
	"cihla":            "brick",
	"panelová":         "panel",
	"panel":            "panel",
	"skeletová":        "skeleton",
	"smíšená":          "mixed",
	"dřevostavba":      "wood",
	"kamenná":          "stone",
	"montovaná":        "prefabricated",
	"nízkoenergetická": "low_energy",
	"brick":            "brick",
	"wooden":           "wood",
	"stone":            "stone",
}

// LookupCondition resolves a label against the condition enumeration table.
func LookupCondition(label string) (string, bool) {
	value, ok := conditionTable[strings.ToLower(strings.TrimSpace(label))]
	return value, ok
}

// LookupConstruction resolves a label against the construction-type table.
func LookupConstruction(label string) (string, bool) {
	value, ok := constructionTable[strings.ToLower(strings.TrimSpace(label))]
	return value, ok
}

// MapCondition maps a raw condition value through the enumeration table,
// falling back to the lower-cased raw label when unmapped.
func MapCondition(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if mapped, ok := LookupCondition(raw); ok {
		return mapped
	}
	return strings.ToLower(raw)
}

// MapConstruction maps a raw construction-type value through the table,
// falling back to the lower-cased raw label when unmapped.
func MapConstruction(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if mapped, ok := LookupConstruction(raw); ok {
		return mapped
	}
	return strings.ToLower(raw)
}

// SplitLocality extracts city and district from a free-text locality
// string. Precedence: a known city name at the start of the string wins;
// otherwise comma-delimited strings take the last segment as the city;
// otherwise a "City - District" dash pattern is split. The ordering of the
// comma and dash rules is a pinned policy choice, not a derived truth.
func SplitLocality(locality string) (city, district string) {
	locality = strings.TrimSpace(locality)
	if locality == "" {
		return "", ""
	}

	lower := strings.ToLower(locality)
	for _, known := range config.SupportedCities {
		if strings.HasPrefix(lower, strings.ToLower(known.Name)) {
			rest := strings.TrimSpace(locality[len(known.Name):])
			if idx := strings.Index(rest, " - "); idx >= 0 {
				rest = rest[idx+3:]
			}
			return known.Name, strings.Trim(rest, " -,")
		}
	}

	if strings.Contains(locality, ",") {
		parts := strings.Split(locality, ",")
		return strings.TrimSpace(parts[len(parts)-1]), ""
	}

	if idx := strings.Index(locality, " - "); idx >= 0 {
		return strings.TrimSpace(locality[:idx]), strings.TrimSpace(locality[idx+3:])
	}

	return locality, ""
}
