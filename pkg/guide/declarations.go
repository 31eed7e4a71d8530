package guide

import "github.com/teslashibe/go-visionguide/pkg/live"

// toolDeclarations describes the seven navigation tools registered at
// session setup. Parameter schemas follow the function-declaration format
// the agent expects.
func toolDeclarations() []live.Tool {
	return []live.Tool{
		{
			Name:        "search_place",
			Description: "Search for places by name or category. Returns up to 5 matches with addresses and walking distances.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for, e.g. 'pharmacy' or 'Starbucks'",
					},
					"rank_by_distance": map[string]any{
						"type":        "boolean",
						"description": "Rank results strictly by distance from the user instead of relevance",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "find_and_navigate",
			Description: "Find the nearest place matching a query and immediately start walking navigation to it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The kind of place to navigate to, e.g. 'bus stop'",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "get_directions",
			Description: "Compute a walking route from the user's current location to a destination and start navigation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"destination": map[string]any{
						"type":        "string",
						"description": "Destination name or address",
					},
				},
				"required": []string{"destination"},
			},
		},
		{
			Name:        "get_current_address",
			Description: "Reverse-geocode the user's position (or given coordinates) to a street address.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"latitude":  map[string]any{"type": "number"},
					"longitude": map[string]any{"type": "number"},
				},
			},
		},
		{
			Name:        "get_my_location",
			Description: "Return the user's last known GPS coordinates and heading.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "adjust_zoom",
			Description: "Zoom the map view in or out by one level.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"direction": map[string]any{
						"type": "string",
						"enum": []string{"in", "out"},
					},
				},
				"required": []string{"direction"},
			},
		},
		{
			Name:        "get_navigation_status",
			Description: "Report whether navigation is active, the next instruction, and how many steps remain.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}
