package guide

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-visionguide/internal/log"
	"github.com/teslashibe/go-visionguide/pkg/live"
	"github.com/teslashibe/go-visionguide/pkg/location"
	"github.com/teslashibe/go-visionguide/pkg/maps"
	"github.com/teslashibe/go-visionguide/pkg/nav"
)

// Zoom bounds for the map camera the agent can steer.
const (
	minZoom     = 12
	maxZoom     = 21
	initialZoom = 19
)

// Search tuning, in meters.
const (
	textSearchRadius = 5000
	walkableDistance = 2000
	maxSearchResults = 5
)

// mapSearcher is the slice of the primary mapping provider the tools use.
type mapSearcher interface {
	TextSearch(ctx context.Context, query string, near *location.Location, radiusMeters int) ([]maps.Place, error)
	NearbySearch(ctx context.Context, near location.Location, keyword string) ([]maps.Place, error)
	Directions(ctx context.Context, origin location.Location, destination string) (*maps.Directions, error)
	Geocode(ctx context.Context, address string) (location.Location, error)
	ReverseGeocode(ctx context.Context, loc location.Location) (string, error)
}

// walkRouter is the secondary routing provider.
type walkRouter interface {
	Configured() bool
	Directions(ctx context.Context, origin, dest location.Location) (*maps.ORSRoute, error)
}

// toolHandler executes one tool call with validated arguments.
type toolHandler func(ctx context.Context, args map[string]any) (any, error)

// toolTable maps tool names to their handlers.
func (a *App) toolTable() map[string]toolHandler {
	return map[string]toolHandler{
		"search_place":          a.handleSearchPlace,
		"find_and_navigate":     a.handleFindAndNavigate,
		"get_directions":        a.handleGetDirections,
		"get_current_address":   a.handleGetCurrentAddress,
		"get_my_location":       a.handleGetMyLocation,
		"adjust_zoom":           a.handleAdjustZoom,
		"get_navigation_status": a.handleGetNavigationStatus,
	}
}

// dispatchToolCalls runs one inbound batch sequentially, preserving call
// order in the correlated response. Unknown tools are skipped; a failing
// handler becomes an {error} payload without aborting the batch.
func (a *App) dispatchToolCalls(ctx context.Context, calls []live.FunctionCall) []live.FunctionResponse {
	table := a.toolTable()

	responses := make([]live.FunctionResponse, 0, len(calls))
	for _, call := range calls {
		handler, ok := table[call.Name]
		if !ok {
			log.Warn("unknown tool requested", "tool", call.Name)
			continue
		}

		a.logger().Debug("executing tool", "tool", call.Name, "id", call.ID)
		responses = append(responses, live.FunctionResponse{
			ID:     call.ID,
			Name:   call.Name,
			Result: a.runTool(ctx, handler, call),
		})
	}
	return responses
}

// runTool isolates a single handler: errors and panics become {error}
// payloads so one bad call never takes down the batch or the session.
func (a *App) runTool(ctx context.Context, handler toolHandler, call live.FunctionCall) (result any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool handler panicked", "tool", call.Name, "panic", r)
			result = errorResult(fmt.Sprintf("Internal error executing %s.", call.Name))
		}
	}()

	res, err := handler(ctx, call.Args)
	if err != nil {
		return errorResult(err.Error())
	}
	return res
}

func errorResult(message string) map[string]any {
	return map[string]any{"error": message}
}

func (a *App) handleSearchPlace(ctx context.Context, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, errors.New("search_place requires a query")
	}
	rankByDistance := argBool(args, "rank_by_distance")

	current, hasLocation := a.locations.Current()

	var (
		places []maps.Place
		err    error
	)
	if rankByDistance && hasLocation {
		places, err = a.maps.NearbySearch(ctx, current, query)
	} else {
		var near *location.Location
		if hasLocation {
			near = &current
		}
		places, err = a.maps.TextSearch(ctx, query, near, textSearchRadius)
	}
	if errors.Is(err, maps.ErrNoResults) {
		return nil, fmt.Errorf("No places found for %q.", query)
	}
	if err != nil {
		return nil, fmt.Errorf("Place search is unavailable right now.")
	}

	if len(places) > maxSearchResults {
		places = places[:maxSearchResults]
	}

	results := make([]map[string]any, 0, len(places))
	for _, p := range places {
		entry := map[string]any{
			"name":    p.Name,
			"address": p.Address,
		}
		if hasLocation && p.HasLocation {
			meters := location.Distance(current, p.Location)
			entry["distance_meters"] = math.Round(meters)
			entry["is_walkable_estimate"] = meters < walkableDistance
		}
		results = append(results, entry)
	}
	return map[string]any{"results": results}, nil
}

func (a *App) handleGetDirections(ctx context.Context, args map[string]any) (any, error) {
	destination := argString(args, "destination")
	if destination == "" {
		return nil, errors.New("get_directions requires a destination")
	}
	return a.startNavigation(ctx, destination)
}

// startNavigation computes a walking route, preferring the secondary
// provider for its route geometry, and activates it on the nav tracker.
func (a *App) startNavigation(ctx context.Context, destination string) (map[string]any, error) {
	origin, ok := a.locations.Current()
	if !ok {
		return nil, errors.New("Current location is unknown; cannot compute directions.")
	}

	var destPoint *location.Location
	if dest, err := a.maps.Geocode(ctx, destination); err == nil {
		destPoint = &dest
	}

	if a.ors.Configured() && destPoint != nil {
		if payload, err := a.navigateViaORS(ctx, origin, *destPoint); err == nil {
			return payload, nil
		} else {
			a.logger().Warn("secondary routing failed, falling back", "error", err)
		}
	}

	return a.navigateViaMaps(ctx, origin, destination, destPoint)
}

// navigateViaORS routes through the secondary provider. Its geometry
// supplies the proximity trigger: the second route coordinate.
func (a *App) navigateViaORS(ctx context.Context, origin, dest location.Location) (map[string]any, error) {
	route, err := a.ors.Directions(ctx, origin, dest)
	if err != nil {
		return nil, err
	}

	steps := make([]nav.Step, 0, len(route.Steps))
	for _, instruction := range route.Steps {
		steps = append(steps, nav.Step{Instruction: instruction})
	}

	var trigger *location.Location
	if len(route.Coordinates) >= 2 {
		point := route.Coordinates[1]
		trigger = &point
	}

	a.nav.SetRoute(nav.Route{
		Steps:       steps,
		Provider:    nav.ProviderSecondary,
		Trigger:     trigger,
		Destination: &dest,
	})

	return map[string]any{
		"status":                 "navigation_started",
		"provider":               nav.ProviderSecondary.String(),
		"steps":                  route.Steps,
		"total_distance_km":      fmt.Sprintf("%.2f", route.DistanceMeters/1000),
		"total_duration_minutes": math.Round(route.DurationSeconds / 60),
	}, nil
}

// navigateViaMaps routes through the primary provider. No geometry means
// no proximity trigger; arrival detection still works when the destination
// geocoded.
func (a *App) navigateViaMaps(ctx context.Context, origin location.Location, destination string, destPoint *location.Location) (map[string]any, error) {
	dirs, err := a.maps.Directions(ctx, origin, destination)
	if err != nil {
		return nil, fmt.Errorf("Could not find a walking route to %q.", destination)
	}

	steps := make([]nav.Step, 0, len(dirs.Steps))
	for _, instruction := range dirs.Steps {
		steps = append(steps, nav.Step{Instruction: instruction})
	}

	a.nav.SetRoute(nav.Route{
		Steps:       steps,
		Provider:    nav.ProviderPrimary,
		Destination: destPoint,
	})

	return map[string]any{
		"status":         "navigation_started",
		"provider":       nav.ProviderPrimary.String(),
		"steps":          dirs.Steps,
		"total_distance": dirs.DistanceText,
		"total_duration": dirs.DurationText,
	}, nil
}

func (a *App) handleFindAndNavigate(ctx context.Context, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, errors.New("find_and_navigate requires a query")
	}

	current, ok := a.locations.Current()
	if !ok {
		return nil, errors.New("Current location is unknown; cannot search nearby.")
	}

	places, err := a.maps.NearbySearch(ctx, current, query)
	if err != nil || len(places) == 0 {
		return nil, fmt.Errorf("No matching place found for %q.", query)
	}
	nearest := places[0]

	target := nearest.Address
	if target == "" {
		target = nearest.Name
	}
	navigation, err := a.startNavigation(ctx, target)
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"found":      nearest.Name,
		"navigation": navigation,
	}
	if nearest.HasLocation {
		result["distance_meters"] = math.Round(location.Distance(current, nearest.Location))
	}
	return result, nil
}

func (a *App) handleGetCurrentAddress(ctx context.Context, args map[string]any) (any, error) {
	loc, ok := a.locations.Current()
	if lat, latOK := argFloat(args, "latitude"); latOK {
		if lng, lngOK := argFloat(args, "longitude"); lngOK {
			loc = location.Location{Latitude: lat, Longitude: lng}
			ok = true
		}
	}
	if !ok {
		return nil, errors.New("Location is not available.")
	}

	address, err := a.maps.ReverseGeocode(ctx, loc)
	if err != nil {
		return nil, errors.New("Could not determine the current address.")
	}
	return map[string]any{"address": address}, nil
}

func (a *App) handleGetMyLocation(_ context.Context, _ map[string]any) (any, error) {
	loc, ok := a.locations.Current()
	if !ok {
		return nil, errors.New("Location is not available.")
	}

	result := map[string]any{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	}
	if loc.HasHeading {
		result["heading"] = loc.Heading
	}
	return result, nil
}

func (a *App) handleAdjustZoom(_ context.Context, args map[string]any) (any, error) {
	direction := argString(args, "direction")

	a.zoomMu.Lock()
	defer a.zoomMu.Unlock()

	switch direction {
	case "in":
		if a.zoom < maxZoom {
			a.zoom++
		}
	case "out":
		if a.zoom > minZoom {
			a.zoom--
		}
	default:
		return nil, fmt.Errorf("adjust_zoom direction must be \"in\" or \"out\", got %q", direction)
	}
	return map[string]any{"zoom_level": a.zoom}, nil
}

func (a *App) handleGetNavigationStatus(_ context.Context, _ map[string]any) (any, error) {
	status := a.nav.Status()
	result := map[string]any{
		"navigation_active": status.Active,
		"remaining_steps":   status.RemainingSteps,
	}
	if status.Active {
		result["next_instruction"] = status.NextInstruction
		result["provider"] = status.Provider.String()
	}
	return result, nil
}

// Argument helpers for the duck-typed args the agent sends.

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func argFloat(args map[string]any, key string) (float64, bool) {
	f, ok := args[key].(float64)
	return f, ok
}
