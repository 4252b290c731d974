package api

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// NodeRouteRequest holds the query parameters of GET /api/v1/route/nodes.
type NodeRouteRequest struct {
	Source int32 `validate:"min=0"`
	Target int32 `validate:"min=0"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Weight              float64      `json:"weight"`
	TotalDistanceMeters float64      `json:"total_distance_meters"`
	Nodes               []int32      `json:"nodes"`
	Polyline            string       `json:"polyline"`
	Geometry            []LatLngJSON `json:"geometry,omitempty"`
	Visited             int          `json:"visited_nodes"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes     int   `json:"num_nodes"`
	NumEdges     int   `json:"num_edges"`
	NumShortcuts int   `json:"num_shortcuts"`
	MaxLevel     int32 `json:"max_level"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
