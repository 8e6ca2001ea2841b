// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/khunjon/placemarks-sub005/internal/config"
	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// DefaultBaseURL is the Places web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// maxResponseBytes caps how much of a response body is decoded.
const maxResponseBytes = 4 << 20

// Directory status values.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusNotFound       = "NOT_FOUND"
	statusInvalidRequest = "INVALID_REQUEST"
)

// HTTPProvider implements Provider against a Places-style JSON API.
type HTTPProvider struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	language string
}

// NewHTTPProvider creates a provider from the directory configuration.
func NewHTTPProvider(cfg *config.DirectoryConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPProvider{
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
	}
}

type placesLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status"`
	Geometry         struct {
		Location placesLocation `json:"location"`
	} `json:"geometry"`

	// Details only.
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Website              string `json:"website"`
	UTCOffset            *int   `json:"utc_offset"`
	OpeningHours         *struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
}

type searchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
}

type detailsResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Result       placeResult `json:"result"`
}

// NearbySearch implements Provider.
func (p *HTTPProvider) NearbySearch(ctx context.Context, req NearbyRequest) ([]models.CandidatePlace, error) {
	params := url.Values{}
	params.Set("location", formatLocation(req.Center))
	params.Set("radius", strconv.Itoa(int(req.RadiusM)))
	if req.Type != "" {
		params.Set("type", req.Type)
	}

	var resp searchResponse
	if err := p.get(ctx, "/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return convertResults(resp.Results), nil
}

// TextSearch implements Provider.
func (p *HTTPProvider) TextSearch(ctx context.Context, req TextRequest) ([]models.CandidatePlace, error) {
	params := url.Values{}
	params.Set("query", req.Query)
	if req.Bias != nil {
		params.Set("location", formatLocation(*req.Bias))
	}

	var resp searchResponse
	if err := p.get(ctx, "/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return convertResults(resp.Results), nil
}

// PlaceDetails implements Provider.
func (p *HTTPProvider) PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)

	var resp detailsResponse
	if err := p.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == statusZeroResults {
		return nil, ErrPlaceNotFound
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	details := &models.PlaceDetails{
		CandidatePlace:   convertResult(&resp.Result),
		PhoneNumber:      resp.Result.FormattedPhoneNumber,
		Website:          resp.Result.Website,
		UTCOffsetMinutes: resp.Result.UTCOffset,
	}
	if resp.Result.OpeningHours != nil {
		details.OpeningHours = resp.Result.OpeningHours.WeekdayText
	}
	return details, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("key", p.apiKey)
	if p.language != "" {
		params.Set("language", p.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query places directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("places directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode places directory response: %w", err)
	}
	return nil
}

// checkStatus maps the status field of a response to an error.
func checkStatus(status, message string) error {
	switch status {
	case statusOK, statusZeroResults:
		return nil
	case statusNotFound:
		return ErrPlaceNotFound
	case statusInvalidRequest:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, message)
	default:
		if message != "" {
			return fmt.Errorf("places directory status %s: %s", status, message)
		}
		return fmt.Errorf("places directory status %s", status)
	}
}

func convertResults(results []placeResult) []models.CandidatePlace {
	places := make([]models.CandidatePlace, 0, len(results))
	for i := range results {
		if results[i].PlaceID == "" {
			continue
		}
		places = append(places, convertResult(&results[i]))
	}
	return places
}

func convertResult(r *placeResult) models.CandidatePlace {
	address := r.FormattedAddress
	if address == "" {
		address = r.Vicinity
	}
	categories := r.Types
	if categories == nil {
		categories = []string{}
	}
	return models.CandidatePlace{
		ID:             r.PlaceID,
		Name:           r.Name,
		Address:        address,
		Rating:         r.Rating,
		RatingCount:    r.UserRatingsTotal,
		PriceLevel:     r.PriceLevel,
		Categories:     categories,
		BusinessStatus: r.BusinessStatus,
		Location:       geo.New(r.Geometry.Location.Lat, r.Geometry.Location.Lng),
	}
}

func formatLocation(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', 6, 64)
}
