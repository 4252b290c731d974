package osm

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/azybler/chrouter/pkg/geo"
)

// RawEdge is one way segment between two consecutive OSM nodes.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Distance   float64 // meters
	SpeedKmh   int
	Forward    bool // drivable From -> To
	Backward   bool // drivable To -> From
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// carSpeeds maps drivable highway classes to an assumed speed in km/h.
var carSpeeds = map[string]int{
	"motorway":       100,
	"motorway_link":  70,
	"trunk":          70,
	"trunk_link":     65,
	"primary":        65,
	"primary_link":   60,
	"secondary":      60,
	"secondary_link": 50,
	"tertiary":       50,
	"tertiary_link":  40,
	"unclassified":   30,
	"residential":    30,
	"living_street":  10,
	"service":        20,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if _, ok := carSpeeds[tags.Find("highway")]; !ok {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	switch tags.Find("access") {
	case "no", "private":
		return false
	}
	return tags.Find("motor_vehicle") != "no"
}

// speedOf returns the speed for a way, honoring a numeric maxspeed tag
// below the class speed.
func speedOf(tags osm.Tags) int {
	speed := carSpeeds[tags.Find("highway")]
	if ms := strings.TrimSuffix(strings.TrimSpace(tags.Find("maxspeed")), " km/h"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v < speed {
			speed = v
		}
	}
	return speed
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Time-dependent, not routable.
		forward, backward = false, false
	}
	return forward, backward
}

type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
	Speed    int
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox   BBox
	Logger *zap.Logger
}

// Parse reads an OSM PBF file and returns drivable way segments. The reader
// is scanned twice, ways first and then the nodes they reference.
func Parse(ctx context.Context, rs io.ReadSeeker, opt ParseOptions) (*ParseResult, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	useBBox := !opt.BBox.IsZero()

	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !isCarAccessible(w.Tags) {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}
		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: ids, Forward: fwd, Backward: bwd, Speed: speedOf(w.Tags)})
	}
	err := scanner.Err()
	scanner.Close()
	if err != nil {
		return nil, fmt.Errorf("scan ways: %w", err)
	}
	log.Info("scanned ways", zap.Int("ways", len(ways)), zap.Int("referenced_nodes", len(referenced)))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for node pass: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referenced))
	nodeLon := make(map[osm.NodeID]float64, len(referenced))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; needed {
			nodeLat[n.ID] = n.Lat
			nodeLon[n.ID] = n.Lon
		}
	}
	err = scanner.Err()
	scanner.Close()
	if err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	log.Info("scanned nodes", zap.Int("coordinates", len(nodeLat)))

	res := &ParseResult{NodeLat: nodeLat, NodeLon: nodeLon}
	var missing, outside int
	for _, w := range ways {
		for i := 0; i+1 < len(w.NodeIDs); i++ {
			from, to := w.NodeIDs[i], w.NodeIDs[i+1]
			fromLat, okFrom := nodeLat[from]
			toLat, okTo := nodeLat[to]
			if !okFrom || !okTo {
				missing++
				continue
			}
			fromLon, toLon := nodeLon[from], nodeLon[to]
			if useBBox && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				outside++
				continue
			}
			res.Edges = append(res.Edges, RawEdge{
				FromNodeID: from,
				ToNodeID:   to,
				Distance:   max(geo.Haversine(fromLat, fromLon, toLat, toLon), geo.MinEdgeLength),
				SpeedKmh:   w.Speed,
				Forward:    w.Forward,
				Backward:   w.Backward,
			})
		}
	}

	if missing > 0 {
		log.Warn("skipped segments with missing coordinates", zap.Int("segments", missing))
	}
	if outside > 0 {
		log.Info("filtered segments outside bounding box", zap.Int("segments", outside))
	}
	log.Info("built way segments", zap.Int("segments", len(res.Edges)))
	return res, nil
}
