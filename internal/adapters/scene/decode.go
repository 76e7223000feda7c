package scene

import (
	"encoding/json"
	"fmt"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// geojson is the loose shape of any GeoJSON object passed as source data.
type geojson struct {
	Type       string           `json:"type"`
	Features   []domain.Feature `json:"features"`
	Geometry   *domain.Geometry `json:"geometry"`
	Properties map[string]any   `json:"properties"`
}

func decodeSource(spec ports.SourceSpec) (*source, error) {
	features, err := sourceFeatures(spec.Data)
	if err != nil {
		return nil, err
	}

	src := &source{spec: spec}
	for _, f := range features {
		switch f.Geometry.Type {
		case "Point":
			if pos, ok := position(f.Geometry.Coordinates); ok {
				src.points = append(src.points, point{pos: pos, props: f.Properties})
			}
		case "Polygon":
			if ring, ok := outerRing(f.Geometry.Coordinates); ok {
				src.rings = append(src.rings, ring)
			}
		}
	}

	if spec.Cluster {
		maxZoom, radius := spec.ClusterMaxZoom, spec.ClusterRadius
		if maxZoom <= 0 {
			maxZoom = defaultClusterMaxZoom
		}
		if radius <= 0 {
			radius = defaultClusterRadius
		}
		src.index = newClusterIndex(src.points, maxZoom, float64(radius))
	}
	return src, nil
}

func sourceFeatures(data any) ([]domain.Feature, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case domain.FeatureCollection:
		return d.Features, nil
	case *domain.FeatureCollection:
		return d.Features, nil
	case domain.Feature:
		return []domain.Feature{d}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode source data: %w", err)
	}
	var g geojson
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode source data: %w", err)
	}
	switch g.Type {
	case "FeatureCollection":
		return g.Features, nil
	case "Feature":
		if g.Geometry == nil {
			return nil, nil
		}
		return []domain.Feature{{Type: g.Type, Geometry: *g.Geometry, Properties: g.Properties}}, nil
	}
	return nil, fmt.Errorf("unsupported geojson type %q", g.Type)
}

// position reads a [lon, lat] pair as built in code or decoded from JSON.
func position(c any) (domain.LonLat, bool) {
	switch v := c.(type) {
	case []float64:
		if len(v) >= 2 {
			return domain.LonLat{Lon: v[0], Lat: v[1]}, true
		}
	case []any:
		if len(v) >= 2 {
			lon, ok1 := number(v[0])
			lat, ok2 := number(v[1])
			if ok1 && ok2 {
				return domain.LonLat{Lon: lon, Lat: lat}, true
			}
		}
	}
	return domain.LonLat{}, false
}

func outerRing(c any) ([]domain.LonLat, bool) {
	switch v := c.(type) {
	case [][][]float64:
		if len(v) == 0 {
			return nil, false
		}
		ring := make([]domain.LonLat, 0, len(v[0]))
		for _, p := range v[0] {
			if pos, ok := position(p); ok {
				ring = append(ring, pos)
			}
		}
		return ring, len(ring) > 0
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		coords, ok := v[0].([]any)
		if !ok {
			return nil, false
		}
		ring := make([]domain.LonLat, 0, len(coords))
		for _, p := range coords {
			if pos, ok := position(p); ok {
				ring = append(ring, pos)
			}
		}
		return ring, len(ring) > 0
	}
	return nil, false
}
