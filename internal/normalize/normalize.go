package normalize

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"realitky/pipeline/internal/models"
	"realitky/pipeline/internal/parsers"
)

// Engine builds canonical PropertyData values from the neutral raw shape
// the source adapters produce. It composes the parsers and fills derived
// fields; it never mutates its input.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates a normalization engine.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logger}
}

// Listing normalizes one raw listing. An error is returned only when a
// required field (identity key, title, type pair, price, url) cannot be
// established; everything else degrades to an absent field.
func (e *Engine) Listing(raw models.RawListing) (*models.PropertyData, error) {
	if raw.ExternalID == "" || raw.Source == "" {
		return nil, fmt.Errorf("listing has no identity key (external_id=%q source=%q)", raw.ExternalID, raw.Source)
	}
	if strings.TrimSpace(raw.Title) == "" {
		return nil, fmt.Errorf("listing %s/%s has no title", raw.Source, raw.ExternalID)
	}
	if raw.PropertyType == "" || raw.TransactionType == "" {
		return nil, fmt.Errorf("listing %s/%s has no type pair", raw.Source, raw.ExternalID)
	}
	if raw.URL == "" {
		return nil, fmt.Errorf("listing %s/%s has no url", raw.Source, raw.ExternalID)
	}

	price := raw.PriceRaw
	if price <= 0 {
		parsed, ok := parsers.Price(raw.PriceText)
		if !ok {
			return nil, fmt.Errorf("listing %s/%s has no parsable price (%q)", raw.Source, raw.ExternalID, raw.PriceText)
		}
		price = parsed
	}

	property := &models.PropertyData{
		ExternalID:      raw.ExternalID,
		Source:          raw.Source,
		Title:           strings.TrimSpace(raw.Title),
		Description:     strings.TrimSpace(raw.Description),
		PropertyType:    raw.PropertyType,
		TransactionType: raw.TransactionType,
		Price:           price,
		Currency:        models.DefaultCurrency,
		EnergyRating:    strings.TrimSpace(raw.EnergyRating),
		Floor:           raw.Floor,
		FloorsTotal:     raw.FloorsTotal,
		URL:             raw.URL,
	}

	// Structured layout field first, regex against the title second.
	layout := raw.Layout
	if layout == "" {
		layout, _ = parsers.Layout(raw.Title)
	}
	if layout != "" {
		property.Rooms = layout
		if count, ok := parsers.RoomCount(layout); ok {
			property.RoomsCount = &count
		}
	}

	if area, ok := parsers.Area(raw.AreaText); ok {
		property.AreaUsable = &area
	} else if area, ok := parsers.Area(raw.Title); ok {
		property.AreaUsable = &area
	}
	if area, ok := parsers.Area(raw.AreaBuiltText); ok {
		property.AreaBuilt = &area
	}
	if area, ok := parsers.Area(raw.AreaLandText); ok {
		property.AreaLand = &area
	}

	if property.AreaUsable != nil && *property.AreaUsable > 0 {
		perSqm := price / *property.AreaUsable
		property.PricePerSqm = &perSqm
	}

	features := parsers.ExtractFeatures(raw.Labels)
	property.HasBalcony = features.Balcony
	property.HasTerrace = features.Terrace
	property.HasParking = features.Parking
	property.HasGarage = features.Garage
	property.HasElevator = features.Elevator
	property.HasCellar = features.Cellar
	property.HasGarden = features.Garden

	property.Condition = parsers.MapCondition(raw.Condition)
	property.ConstructionType = parsers.MapConstruction(raw.Construction)
	for _, label := range raw.Labels {
		if property.Condition == "" {
			if mapped, ok := parsers.LookupCondition(label); ok {
				property.Condition = mapped
			}
		}
		if property.ConstructionType == "" {
			if mapped, ok := parsers.LookupConstruction(label); ok {
				property.ConstructionType = mapped
			}
		}
	}

	city, district := parsers.SplitLocality(raw.Locality)
	property.AddressCity = city
	property.AddressDistrict = district
	if idx := strings.Index(raw.Locality, ","); idx >= 0 {
		property.AddressStreet = strings.TrimSpace(raw.Locality[:idx])
	}

	property.Latitude = raw.Latitude
	property.Longitude = raw.Longitude

	images := raw.Images
	if len(images) > models.MaxImages {
		images = images[:models.MaxImages]
	}
	property.Images = images
	if len(images) > 0 {
		property.MainImageURL = images[0]
	}

	return property, nil
}
