package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"WhereAmI/internal/config"
	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

const featureTypes = "locality,place,region"

// StatusError is returned when Mapbox answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mapbox returned %d: %s", e.Status, e.Body)
}

// StatusCode exposes the upstream status to callers.
func (e *StatusError) StatusCode() int {
	return e.Status
}

type feature struct {
	PlaceType  []string `json:"place_type"`
	Text       string   `json:"text"`
	PlaceName  string   `json:"place_name"`
	Properties struct {
		Wikidata string `json:"wikidata"`
	} `json:"properties"`
}

type response struct {
	Features []feature `json:"features"`
}

// Client reverse-geocodes coordinates through the Mapbox places API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ ports.PlaceResolver = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.MapboxConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
	}
}

// ResolvePlace returns nil when Mapbox knows no region or no locality/place
// for the coordinate.
func (c *Client) ResolvePlace(ctx context.Context, latitude, longitude float64) (*domain.Place, error) {
	var resp response
	if err := c.get(ctx, c.placesURL(latitude, longitude), &resp); err != nil {
		return nil, err
	}
	return parse(resp), nil
}

func (c *Client) placesURL(latitude, longitude float64) string {
	coords := strconv.FormatFloat(longitude, 'f', -1, 64) + "," + strconv.FormatFloat(latitude, 'f', -1, 64)
	query := url.Values{}
	query.Set("types", featureTypes)
	query.Set("access_token", c.token)
	return c.baseURL + "/geocoding/v5/mapbox.places/" + coords + ".json?" + query.Encode()
}

func (c *Client) get(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parse favours a locality (suburb) over a place (city).
func parse(resp response) *domain.Place {
	region, ok := findFeature(resp.Features, "region")
	if !ok {
		return nil
	}

	for _, kind := range []string{"locality", "place"} {
		if f, ok := findFeature(resp.Features, kind); ok {
			return &domain.Place{
				Place:    f.PlaceName,
				Locality: f.Text,
				State:    region.Text,
				Wikidata: f.Properties.Wikidata,
			}
		}
	}
	return nil
}

func findFeature(features []feature, kind string) (feature, bool) {
	for _, f := range features {
		if slices.Contains(f.PlaceType, kind) {
			return f, true
		}
	}
	return feature{}, false
}
