package sreality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"realitky/pipeline/config"
	"realitky/pipeline/internal/models"
)

const SourceName = "sreality"

// Category codes of the estates API.
var (
	categoryMain = map[string]int{
		models.PropertyTypeApartment: 1,
		models.PropertyTypeHouse:     2,
	}
	categoryType = map[string]int{
		models.TransactionTypeSale: 1,
		models.TransactionTypeRent: 2,
	}
)

// Adapter fetches listing pages from the catalog-style JSON API. One page
// per FetchNext call; exhaustion is signaled when a page comes back empty
// or the page window has moved past the reported result size.
type Adapter struct {
	baseURL    string
	perPage    int
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewAdapter creates a Sreality adapter.
func NewAdapter(baseURL string, perPage int, httpClient *http.Client, logger *logrus.Logger) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{
		baseURL:    baseURL,
		perPage:    perPage,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the source identifier recorded on canonical records.
func (a *Adapter) Name() string {
	return SourceName
}

type estatesResponse struct {
	Embedded struct {
		Estates []estate `json:"estates"`
	} `json:"_embedded"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	ResultSize int `json:"result_size"`
}

type estate struct {
	HashID   int64  `json:"hash_id"`
	Name     string `json:"name"`
	Locality struct {
		Value string `json:"value"`
	} `json:"locality"`
	Price struct {
		ValueRaw float64 `json:"value_raw"`
	} `json:"price_czk"`
	GPS *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"gps"`
	Labels []string `json:"labels"`
	Links  struct {
		Images []struct {
			Href string `json:"href"`
		} `json:"images"`
	} `json:"_links"`
}

// FetchNext retrieves one result page for the given work unit.
func (a *Adapter) FetchNext(ctx context.Context, unit models.ListingUnit, page int) ([]models.RawListing, bool, error) {
	city := config.GetCityByName(unit.City)
	if city == nil {
		return nil, true, fmt.Errorf("sreality: unsupported city %q", unit.City)
	}
	mainCode, ok := categoryMain[unit.PropertyType]
	if !ok {
		return nil, true, fmt.Errorf("sreality: unsupported property type %q", unit.PropertyType)
	}
	typeCode, ok := categoryType[unit.TransactionType]
	if !ok {
		return nil, true, fmt.Errorf("sreality: unsupported transaction type %q", unit.TransactionType)
	}

	params := url.Values{}
	params.Set("category_main_cb", strconv.Itoa(mainCode))
	params.Set("category_type_cb", strconv.Itoa(typeCode))
	params.Set("locality_region_id", strconv.Itoa(city.RegionID))
	params.Set("per_page", strconv.Itoa(a.perPage))
	params.Set("page", strconv.Itoa(page))

	endpoint := a.baseURL + "/api/cs/v2/estates"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("sreality: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("sreality: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("sreality: failed to read response: %w", err)
	}

	var parsed estatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("sreality: failed to parse response: %w", err)
	}

	listings := make([]models.RawListing, 0, len(parsed.Embedded.Estates))
	for _, entry := range parsed.Embedded.Estates {
		listings = append(listings, a.translate(entry, unit))
	}

	done := len(listings) == 0 || page*a.perPage >= parsed.ResultSize
	a.logger.WithFields(logrus.Fields{
		"source":      SourceName,
		"city":        unit.City,
		"page":        page,
		"entries":     len(listings),
		"result_size": parsed.ResultSize,
		"done":        done,
	}).Debug("Fetched listing page")

	return listings, done, nil
}

// translate maps one wire entry onto the neutral raw shape. Structured
// sub-objects win; the normalization engine falls back to regex extraction
// against the title for layout and area.
func (a *Adapter) translate(entry estate, unit models.ListingUnit) models.RawListing {
	raw := models.RawListing{
		ExternalID:      strconv.FormatInt(entry.HashID, 10),
		Source:          SourceName,
		Title:           entry.Name,
		PropertyType:    unit.PropertyType,
		TransactionType: unit.TransactionType,
		PriceRaw:        entry.Price.ValueRaw,
		Locality:        entry.Locality.Value,
		Labels:          entry.Labels,
		URL:             fmt.Sprintf("%s/detail/%d", a.baseURL, entry.HashID),
	}
	if entry.GPS != nil {
		lat, lon := entry.GPS.Lat, entry.GPS.Lon
		raw.Latitude = &lat
		raw.Longitude = &lon
	}
	for _, image := range entry.Links.Images {
		if image.Href != "" {
			raw.Images = append(raw.Images, image.Href)
		}
	}
	return raw
}
