package config

import "strings"

// City maps one supported city onto the identifiers each source expects.
type City struct {
	Name     string `json:"name"`
	RegionID int    `json:"region_id"` // Sreality locality_region_id
	Slug     string `json:"slug"`      // Bezrealitky location slug
}

// SupportedCities is the fixed set of cities the pipeline knows how to
// query. Sources are never discovered dynamically; extending coverage means
// adding a row here.
var SupportedCities = []City{
	{Name: "Praha", RegionID: 10, Slug: "praha"},
	{Name: "Brno", RegionID: 14, Slug: "brno"},
	{Name: "Ostrava", RegionID: 12, Slug: "ostrava"},
	{Name: "Plzeň", RegionID: 2, Slug: "plzen"},
	{Name: "Olomouc", RegionID: 8, Slug: "olomouc"},
	{Name: "Liberec", RegionID: 7, Slug: "liberec"},
}

// GetCityNames returns the names of all supported cities.
func GetCityNames() []string {
	names := make([]string, len(SupportedCities))
	for i, city := range SupportedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city configuration by name, case-insensitively.
func GetCityByName(name string) *City {
	for _, city := range SupportedCities {
		if strings.EqualFold(city.Name, name) {
			return &city
		}
	}
	return nil
}
