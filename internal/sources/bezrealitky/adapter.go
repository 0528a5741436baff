package bezrealitky

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"realitky/pipeline/config"
	"realitky/pipeline/internal/models"
)

const SourceName = "bezrealitky"

// Query parameter values of the search page.
var (
	offerTypes = map[string]string{
		models.TransactionTypeSale: "PRODEJ",
		models.TransactionTypeRent: "PRONAJEM",
	}
	estateTypes = map[string]string{
		models.PropertyTypeApartment: "BYT",
		models.PropertyTypeHouse:     "DUM",
	}
)

// ExtractionKind tags which stage of the two-stage pipeline produced a
// page's listings.
type ExtractionKind int

const (
	// ExtractionEmpty means neither stage yielded any listing.
	ExtractionEmpty ExtractionKind = iota
	// ExtractionStructured means the embedded JSON state blob was used.
	ExtractionStructured
	// ExtractionFallback means listing cards were scraped from the DOM.
	ExtractionFallback
)

// String returns the string representation of an ExtractionKind.
func (k ExtractionKind) String() string {
	switch k {
	case ExtractionStructured:
		return "structured"
	case ExtractionFallback:
		return "fallback"
	case ExtractionEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Extraction is the tagged result of extracting one search page.
type Extraction struct {
	Kind     ExtractionKind
	Listings []models.RawListing
}

// Adapter fetches listing pages from the server-rendered search site. It
// prefers the script-embedded JSON state blob and degrades to scraping the
// rendered listing cards when the blob is absent; the fallback loses the
// structured fields (features, precise location) but keeps the run alive
// when the site changes its rendering strategy.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewAdapter creates a Bezrealitky adapter.
func NewAdapter(baseURL string, httpClient *http.Client, logger *logrus.Logger) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the source identifier recorded on canonical records.
func (a *Adapter) Name() string {
	return SourceName
}

// FetchNext retrieves and extracts one search page. The unit is exhausted
// when a page yields zero listings.
func (a *Adapter) FetchNext(ctx context.Context, unit models.ListingUnit, page int) ([]models.RawListing, bool, error) {
	city := config.GetCityByName(unit.City)
	if city == nil {
		return nil, true, fmt.Errorf("bezrealitky: unsupported city %q", unit.City)
	}
	offerType, ok := offerTypes[unit.TransactionType]
	if !ok {
		return nil, true, fmt.Errorf("bezrealitky: unsupported transaction type %q", unit.TransactionType)
	}
	estateType, ok := estateTypes[unit.PropertyType]
	if !ok {
		return nil, true, fmt.Errorf("bezrealitky: unsupported property type %q", unit.PropertyType)
	}

	params := url.Values{}
	params.Set("offerType", offerType)
	params.Set("estateType", estateType)
	params.Set("location", city.Slug)
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/vyhledat", nil)
	if err != nil {
		return nil, false, err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("bezrealitky: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("bezrealitky: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("bezrealitky: failed to parse page: %w", err)
	}

	extraction := a.Extract(doc, unit)
	a.logger.WithFields(logrus.Fields{
		"source":  SourceName,
		"city":    unit.City,
		"page":    page,
		"entries": len(extraction.Listings),
		"stage":   extraction.Kind.String(),
	}).Debug("Extracted listing page")

	return extraction.Listings, len(extraction.Listings) == 0, nil
}

// Extract runs the two-stage pipeline on a parsed search page.
func (a *Adapter) Extract(doc *goquery.Document, unit models.ListingUnit) Extraction {
	if listings, ok := a.extractState(doc, unit); ok {
		return Extraction{Kind: ExtractionStructured, Listings: listings}
	}
	if listings := a.extractCards(doc, unit); len(listings) > 0 {
		return Extraction{Kind: ExtractionFallback, Listings: listings}
	}
	return Extraction{Kind: ExtractionEmpty}
}

type stateBlob struct {
	Props struct {
		PageProps struct {
			Listings []stateListing `json:"listings"`
		} `json:"pageProps"`
	} `json:"props"`
}

type stateListing struct {
	ID          json.Number `json:"id"`
	URI         string      `json:"uri"`
	Title       string      `json:"title"`
	Price       float64     `json:"price"`
	Surface     float64     `json:"surface"`
	Disposition string      `json:"disposition"`
	Address     string      `json:"address"`
	GPS         *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"gps"`
	MainImage string   `json:"mainImage"`
	Tags      []string `json:"tags"`
}

// extractState locates the script-embedded JSON state blob. The second
// return value reports whether the blob was present and parsable; an empty
// listings array inside a valid blob still counts as structured.
func (a *Adapter) extractState(doc *goquery.Document, unit models.ListingUnit) ([]models.RawListing, bool) {
	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return nil, false
	}

	var blob stateBlob
	if err := json.Unmarshal([]byte(script.Text()), &blob); err != nil {
		a.logger.WithError(err).Warn("Failed to parse embedded state blob, falling back to DOM")
		return nil, false
	}

	listings := make([]models.RawListing, 0, len(blob.Props.PageProps.Listings))
	for _, entry := range blob.Props.PageProps.Listings {
		raw := models.RawListing{
			ExternalID:      entry.ID.String(),
			Source:          SourceName,
			Title:           entry.Title,
			PropertyType:    unit.PropertyType,
			TransactionType: unit.TransactionType,
			PriceRaw:        entry.Price,
			Layout:          entry.Disposition,
			Locality:        entry.Address,
			Labels:          entry.Tags,
			URL:             a.absoluteURL(entry.URI),
		}
		if entry.Surface > 0 {
			raw.AreaText = fmt.Sprintf("%g m²", entry.Surface)
		}
		if entry.GPS != nil {
			lat, lng := entry.GPS.Lat, entry.GPS.Lng
			raw.Latitude = &lat
			raw.Longitude = &lng
		}
		if entry.MainImage != "" {
			raw.Images = []string{entry.MainImage}
		}
		listings = append(listings, raw)
	}
	return listings, true
}

// extractCards scrapes the rendered listing cards by positional and
// text-content heuristics. Entries missing both title and link are
// discarded.
func (a *Adapter) extractCards(doc *goquery.Document, unit models.ListingUnit) []models.RawListing {
	var listings []models.RawListing

	doc.Find("article, div[class*=PropertyCard], div[class*=propertyCard]").Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h2").First().Text())
		link, _ := card.Find("a[href]").First().Attr("href")
		link = strings.TrimSpace(link)
		if title == "" && link == "" {
			return
		}

		raw := models.RawListing{
			Source:          SourceName,
			Title:           title,
			PropertyType:    unit.PropertyType,
			TransactionType: unit.TransactionType,
			URL:             a.absoluteURL(link),
			ExternalID:      externalIDFromLink(link),
		}

		// Price is whichever card fragment carries the currency marker.
		card.Find("span, strong, div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if strings.Contains(text, "Kč") && !strings.Contains(text, "\n") {
				raw.PriceText = text
				return false
			}
			return true
		})

		cardText := card.Text()
		if strings.Contains(cardText, "m²") || strings.Contains(cardText, "m2") {
			raw.AreaText = cardText
		}
		if image, ok := card.Find("img[src]").First().Attr("src"); ok && image != "" {
			raw.Images = []string{image}
		}

		listings = append(listings, raw)
	})

	return listings
}

// externalIDFromLink derives a stable external id from a detail link. The
// last non-empty path segment is the site's listing slug, which is stable
// across runs; fabricating anything else would break dedup identity.
func externalIDFromLink(link string) string {
	link = strings.TrimRight(link, "/")
	if link == "" {
		return ""
	}
	if idx := strings.LastIndex(link, "/"); idx >= 0 {
		return link[idx+1:]
	}
	return link
}

func (a *Adapter) absoluteURL(link string) string {
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	return a.baseURL + "/" + strings.TrimLeft(link, "/")
}
