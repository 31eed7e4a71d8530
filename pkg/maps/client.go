// Package maps wraps the place-search, directions, and geocoding web
// services the navigation tools depend on.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/teslashibe/go-visionguide/internal/httpc"
	"github.com/teslashibe/go-visionguide/pkg/location"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// ErrNoResults indicates the service answered but found nothing.
var ErrNoResults = errors.New("maps: no results")

// Place is one search or geocode result.
type Place struct {
	Name        string
	Address     string
	Location    location.Location
	HasLocation bool
}

// Directions is a parsed walking route from the primary provider.
type Directions struct {
	Steps        []string
	DistanceText string
	DurationText string
}

// Client calls the Google Maps web services with an API key.
type Client struct {
	key     string
	baseURL string
	http    *http.Client
}

// NewClient creates a maps client using the shared HTTP client.
func NewClient(key string) *Client {
	return &Client{key: key, baseURL: defaultBaseURL, http: httpc.Client}
}

// TextSearch performs a keyword search, biased to a radius around the given
// location when one is known.
func (c *Client) TextSearch(ctx context.Context, query string, near *location.Location, radiusMeters int) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.key)
	if near != nil {
		params.Set("location", fmt.Sprintf("%f,%f", near.Latitude, near.Longitude))
		params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	}

	var resp placesResponse
	if err := c.getJSON(ctx, "/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	return resp.places()
}

// NearbySearch returns places matching keyword ranked strictly by distance
// from the given location.
func (c *Client) NearbySearch(ctx context.Context, near location.Location, keyword string) ([]Place, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", near.Latitude, near.Longitude))
	params.Set("rankby", "distance")
	params.Set("keyword", keyword)
	params.Set("key", c.key)

	var resp placesResponse
	if err := c.getJSON(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	return resp.places()
}

// Directions requests a walking route from origin to a destination query.
// Step instructions are returned as plain text with HTML markup stripped.
func (c *Client) Directions(ctx context.Context, origin location.Location, destination string) (*Directions, error) {
	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude))
	params.Set("destination", destination)
	params.Set("mode", "walking")
	params.Set("key", c.key)

	var resp directionsResponse
	if err := c.getJSON(ctx, "/directions/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "ZERO_RESULTS" || len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, ErrNoResults
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("maps: directions failed: %s", resp.Status)
	}

	leg := resp.Routes[0].Legs[0]
	out := &Directions{
		DistanceText: leg.Distance.Text,
		DurationText: leg.Duration.Text,
	}
	for _, step := range leg.Steps {
		out.Steps = append(out.Steps, StripHTML(step.HTMLInstructions))
	}
	return out, nil
}

// Geocode resolves an address to its best coordinate match.
func (c *Client) Geocode(ctx context.Context, address string) (location.Location, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.key)

	var resp geocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", params, &resp); err != nil {
		return location.Location{}, err
	}
	if len(resp.Results) == 0 {
		return location.Location{}, ErrNoResults
	}
	loc := resp.Results[0].Geometry.Location
	return location.Location{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

// ReverseGeocode resolves a coordinate to its best address match.
func (c *Client) ReverseGeocode(ctx context.Context, loc location.Location) (string, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude))
	params.Set("key", c.key)

	var resp geocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", ErrNoResults
	}
	return resp.Results[0].FormattedAddress, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("maps: failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("maps: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("maps: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maps: service returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("maps: failed to decode response: %w", err)
	}
	return nil
}

// Wire shapes for the Google Maps web services.

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string `json:"name"`
		Vicinity         string `json:"vicinity"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location *latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (r *placesResponse) places() ([]Place, error) {
	if r.Status == "ZERO_RESULTS" || len(r.Results) == 0 {
		return nil, ErrNoResults
	}
	if r.Status != "OK" {
		return nil, fmt.Errorf("maps: search failed: %s", r.Status)
	}

	out := make([]Place, 0, len(r.Results))
	for _, res := range r.Results {
		p := Place{Name: res.Name, Address: res.FormattedAddress}
		if p.Address == "" {
			p.Address = res.Vicinity
		}
		if loc := res.Geometry.Location; loc != nil {
			p.Location = location.Location{Latitude: loc.Lat, Longitude: loc.Lng}
			p.HasLocation = true
		}
		out = append(out, p)
	}
	return out, nil
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Distance struct {
				Text string `json:"text"`
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
			Steps []struct {
				HTMLInstructions string `json:"html_instructions"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup from provider step instructions.
func StripHTML(s string) string {
	return htmlTagPattern.ReplaceAllString(s, "")
}
