package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/teslashibe/go-visionguide/internal/httpc"
	"github.com/teslashibe/go-visionguide/pkg/location"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// ORSRoute is a parsed walking route from OpenRouteService. Unlike the
// primary provider it carries full route geometry, which is what makes
// proximity triggers possible.
type ORSRoute struct {
	Steps           []string
	DistanceMeters  float64
	DurationSeconds float64
	Coordinates     []location.Location
}

// ORS calls the OpenRouteService directions API.
type ORS struct {
	key     string
	baseURL string
	http    *http.Client
}

// NewORS creates an OpenRouteService client. An empty key means the
// service is unconfigured; callers fall back to the primary provider.
func NewORS(key string) *ORS {
	return &ORS{key: key, baseURL: defaultORSBaseURL, http: httpc.Client}
}

// Configured reports whether an API credential is present.
func (o *ORS) Configured() bool {
	return o != nil && o.key != ""
}

// Directions computes a foot-walking route between two coordinates.
func (o *ORS) Directions(ctx context.Context, origin, dest location.Location) (*ORSRoute, error) {
	payload := map[string]any{
		"coordinates": [][]float64{
			{origin.Longitude, origin.Latitude},
			{dest.Longitude, dest.Latitude},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("maps: failed to encode ors request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/v2/directions/foot-walking/geojson", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("maps: failed to build ors request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", o.key)

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maps: ors request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("maps: failed to read ors response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("maps: ors returned status %d", resp.StatusCode)
	}

	var parsed orsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("maps: failed to decode ors response: %w", err)
	}
	if len(parsed.Features) == 0 {
		return nil, ErrNoResults
	}

	feature := parsed.Features[0]
	route := &ORSRoute{}
	for _, coord := range feature.Geometry.Coordinates {
		if len(coord) < 2 {
			continue
		}
		route.Coordinates = append(route.Coordinates, location.Location{
			Latitude:  coord[1],
			Longitude: coord[0],
		})
	}
	if len(feature.Properties.Segments) > 0 {
		segment := feature.Properties.Segments[0]
		route.DistanceMeters = segment.Distance
		route.DurationSeconds = segment.Duration
		for _, step := range segment.Steps {
			route.Steps = append(route.Steps, step.Instruction)
		}
	}
	if len(route.Steps) == 0 {
		return nil, ErrNoResults
	}
	return route, nil
}

type orsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Segments []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
				Steps    []struct {
					Instruction string `json:"instruction"`
				} `json:"steps"`
			} `json:"segments"`
		} `json:"properties"`
	} `json:"features"`
}
