package upsert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"realitky/pipeline/internal/models"
)

// Client delivers canonical records to the persistence API. Save failures
// are per-item: the caller logs and counts them without aborting the batch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a persistence API client.
func NewClient(baseURL string, httpClient *http.Client, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Save posts one canonical record. The persistence layer decides
// insert-vs-update by the (external_id, source) identity key.
func (c *Client) Save(ctx context.Context, property *models.PropertyData) error {
	payload, err := json.Marshal(property)
	if err != nil {
		return fmt.Errorf("failed to marshal property %s/%s: %w", property.Source, property.ExternalID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/properties", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("save request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("save of %s/%s rejected with status %d: %s",
			property.Source, property.ExternalID, resp.StatusCode, string(body))
	}
	return nil
}

// PatchCadastre merges cadastral enrichment onto a stored property by its
// numeric persistence id.
func (c *Client) PatchCadastre(ctx context.Context, propertyID int64, data *models.CadastralData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cadastral data for property %d: %w", propertyID, err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/properties/%d", c.baseURL, propertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("patch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("patch of property %d rejected with status %d", propertyID, resp.StatusCode)
	}
	return nil
}

type propertyListResponse struct {
	Items []struct {
		ID          int64 `json:"id"`
		Coordinates *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"coordinates"`
	} `json:"items"`
	Total int `json:"total"`
}

// NeedingCadastre lists properties lacking cadastral data. The API already
// filters to rows with known coordinates; rows without them are skipped
// anyway since neither lookup path can work without a point.
func (c *Client) NeedingCadastre(ctx context.Context, pageSize int) ([]models.EnrichmentUnit, error) {
	params := url.Values{}
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("cadastral_number", "null")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/properties", nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list rejected with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}

	var parsed propertyListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}

	units := make([]models.EnrichmentUnit, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Coordinates == nil {
			c.logger.WithField("property_id", item.ID).Warn("Skipping property without coordinates")
			continue
		}
		units = append(units, models.EnrichmentUnit{
			PropertyID: item.ID,
			Latitude:   item.Coordinates.Lat,
			Longitude:  item.Coordinates.Lng,
		})
	}
	return units, nil
}
