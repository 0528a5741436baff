package cadastre

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"realitky/pipeline/internal/models"
)

// Degree-per-meter constants used to convert the lookup buffer around a
// point into a bounding box.
const (
	latDegreesPerMeter = 1.0 / 110540.0
	lngDegreesPerMeter = 1.0 / 111320.0

	// bufferMeters is the half-size of the box around the queried point.
	bufferMeters = 50.0
)

// Enricher resolves cadastral attributes for a coordinate. It tries the
// richer attribute-identify service first and falls back to a WFS feature
// query; when neither path yields a feature the lookup returns (nil, nil),
// a normal no-data condition rather than a failure.
type Enricher struct {
	identifyURL string
	wfsURL      string
	httpClient  *http.Client
	logger      *logrus.Logger
}

// NewEnricher creates a cadastral enricher.
func NewEnricher(identifyURL, wfsURL string, httpClient *http.Client, logger *logrus.Logger) *Enricher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Enricher{
		identifyURL: identifyURL,
		wfsURL:      wfsURL,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// Lookup resolves cadastral data for the given point.
func (e *Enricher) Lookup(ctx context.Context, lat, lng float64) (*models.CadastralData, error) {
	data, err := e.identify(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}

	e.logger.WithFields(logrus.Fields{
		"lat": lat,
		"lng": lng,
	}).Debug("Identify lookup empty, trying feature query")

	return e.featureQuery(ctx, lat, lng)
}

type identifyResponse struct {
	Results []struct {
		Attributes map[string]interface{} `json:"attributes"`
	} `json:"results"`
	PriceHistory []struct {
		Date  string  `json:"date"`
		Price float64 `json:"price"`
		Area  float64 `json:"area"`
	} `json:"priceHistory"`
}

// identify queries the point-identify service and reads the first result's
// attribute bag. A response without results is a no-data condition.
func (e *Enricher) identify(ctx context.Context, lat, lng float64) (*models.CadastralData, error) {
	params := url.Values{}
	params.Set("geometry", fmt.Sprintf("%f,%f", lng, lat))
	params.Set("geometryType", "esriGeometryPoint")
	params.Set("sr", "4326")
	params.Set("tolerance", "1")
	params.Set("returnGeometry", "false")
	params.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.identifyURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cadastre: identify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cadastre: identify returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cadastre: failed to read identify response: %w", err)
	}

	var parsed identifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("cadastre: failed to parse identify response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, nil
	}

	attrs := parsed.Results[0].Attributes
	data := &models.CadastralData{
		CadastralNumber: firstString(attrs, "PAR_CISLO", "KMENOVE_CISLO_PAR", "parcelNumber"),
		CadastralArea:   firstString(attrs, "NAZEV_KU", "KATASTRALNI_UZEMI", "cadastralArea"),
		OwnershipType:   firstString(attrs, "TYP_VLASTNICTVI", "ownershipType"),
		Encumbrances:    firstString(attrs, "OMEZENI_PRAV", "VECNA_BREMENA", "encumbrances"),
		LiensCount:      firstInt(attrs, "POCET_ZASTAV", "liensCount"),
	}

	for _, entry := range parsed.PriceHistory {
		price := models.HistoricalPrice{Date: entry.Date, Price: entry.Price}
		if entry.Area > 0 {
			perSqm := entry.Price / entry.Area
			price.PricePerSqm = &perSqm
		}
		data.HistoricalPrices = append(data.HistoricalPrices, price)
	}

	if data.CadastralNumber == "" && data.CadastralArea == "" {
		return nil, nil
	}
	return data, nil
}

type featureCollection struct {
	Members []struct {
		NationalCadastralReference string `xml:"nationalCadastralReference"`
	} `xml:"member>CadastralParcel"`
}

// featureQuery runs the standards-based fallback: a GetFeature request with
// a small bounding box around the point, parsing only the first returned
// member feature.
func (e *Enricher) featureQuery(ctx context.Context, lat, lng float64) (*models.CadastralData, error) {
	bound := boundAround(lat, lng)

	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeNames", "CP:CadastralParcel")
	params.Set("srsName", "EPSG:4326")
	params.Set("count", "1")
	params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f",
		bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.wfsURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cadastre: feature request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cadastre: feature query returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cadastre: failed to read feature response: %w", err)
	}

	var collection featureCollection
	if err := xml.Unmarshal(body, &collection); err != nil {
		return nil, fmt.Errorf("cadastre: failed to parse feature response: %w", err)
	}
	if len(collection.Members) == 0 {
		return nil, nil
	}

	reference := strings.TrimSpace(collection.Members[0].NationalCadastralReference)
	if reference == "" {
		return nil, nil
	}

	// The national reference is dot-delimited: country.areaCode.parcel.
	data := &models.CadastralData{}
	parts := strings.Split(reference, ".")
	if len(parts) >= 3 {
		data.CadastralArea = parts[1]
		data.CadastralNumber = parts[2]
	} else {
		data.CadastralNumber = reference
	}
	return data, nil
}

// boundAround converts the meter buffer into a degree bounding box centered
// on the point.
func boundAround(lat, lng float64) orb.Bound {
	latDelta := bufferMeters * latDegreesPerMeter
	lngDelta := bufferMeters * lngDegreesPerMeter
	return orb.Bound{
		Min: orb.Point{lng - lngDelta, lat - latDelta},
		Max: orb.Point{lng + lngDelta, lat + latDelta},
	}
}

func firstString(attrs map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value, ok := attrs[key]; ok {
			switch v := value.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstInt(attrs map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		if value, ok := attrs[key]; ok {
			switch v := value.(type) {
			case float64:
				return int(v)
			case string:
				if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					return parsed
				}
			}
		}
	}
	return 0
}
