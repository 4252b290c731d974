package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/routing"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router   routing.Router
	validate *validator.Validate
	log      *zap.Logger

	// Geometry adds the raw coordinate list next to the polyline.
	Geometry bool
}

// NewHandlers creates handlers with the given router.
func NewHandlers(router routing.Router, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		router:   router,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if err := h.validate.Struct(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := h.validate.Struct(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	result, err := h.router.Route(r.Context(),
		routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng},
		routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng})
	if err != nil {
		h.writeRouteError(w, err)
		return
	}
	h.writeRoute(w, result)
}

// HandleRouteNodes handles GET /api/v1/route/nodes?source=..&target=..
func (h *Handlers) HandleRouteNodes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req NodeRouteRequest
	q := r.URL.Query()
	for _, f := range []struct {
		name string
		dst  *int32
	}{{"source", &req.Source}, {"target", &req.Target}} {
		v, err := strconv.ParseInt(q.Get(f.name), 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", f.name)
			return
		}
		*f.dst = int32(v)
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		field := ""
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field = verrs[0].Field()
		}
		writeError(w, http.StatusBadRequest, "invalid_node", field)
		return
	}

	result, err := h.router.RouteNodes(r.Context(), req.Source, req.Target)
	if err != nil {
		h.writeRouteError(w, err)
		return
	}
	h.writeRoute(w, result)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s := h.router.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		NumNodes:     s.Nodes,
		NumEdges:     s.Edges,
		NumShortcuts: s.Shortcuts,
		MaxLevel:     s.MaxLevel,
	})
}

func (h *Handlers) writeRoute(w http.ResponseWriter, result *routing.RouteResult) {
	coords := make([][]float64, len(result.Geometry))
	for i, ll := range result.Geometry {
		coords[i] = []float64{ll.Lat, ll.Lng}
	}
	resp := RouteResponse{
		Weight:              result.Weight,
		TotalDistanceMeters: result.TotalDistanceMeters,
		Nodes:               result.Nodes,
		Polyline:            string(polyline.EncodeCoords(coords)),
		Visited:             result.Visited,
	}
	if h.Geometry {
		resp.Geometry = make([]LatLngJSON, len(result.Geometry))
		for i, ll := range result.Geometry {
			resp.Geometry[i] = LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeRouteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrPointTooFar):
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, routing.ErrNodeOutOfRange):
		writeError(w, http.StatusBadRequest, "invalid_node", "")
	case errors.Is(err, routing.ErrSearchBudgetExceeded):
		writeError(w, http.StatusUnprocessableEntity, "search_budget_exceeded", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		h.log.Error("route failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
