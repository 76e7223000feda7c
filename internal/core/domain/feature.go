package domain

// GeoFeature is the point handed to the cluster and heatmap renderers. It is
// rebuilt on every recomputation and never persisted.
type GeoFeature struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Price       int64       `json:"price"`
	Type        ListingType `json:"type"`
	Category    string      `json:"category"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Slug        string      `json:"slug"`
	Cell        string      `json:"cell,omitempty"` // geohash cell, used for cache keys and grouping
	Coordinates LonLat      `json:"coordinates"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON geometry. Coordinates holds a position for points and a
// list of rings for polygons.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features, keeping an empty collection non-nil for JSON.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

// PointFeature converts a GeoFeature into a GeoJSON point.
func (g GeoFeature) PointFeature() Feature {
	props := map[string]any{
		"id":       g.ID,
		"title":    g.Title,
		"price":    g.Price,
		"type":     string(g.Type),
		"category": g.Category,
		"city":     g.City,
		"state":    g.State,
		"slug":     g.Slug,
	}
	if g.Cell != "" {
		props["cell"] = g.Cell
	}
	return Feature{
		Type:       "Feature",
		Geometry:   Geometry{Type: "Point", Coordinates: g.Coordinates.Coordinates()},
		Properties: props,
	}
}

// PolygonFeature wraps a closed ring as a GeoJSON polygon with no properties.
func PolygonFeature(ring ClosedRing) Feature {
	return Feature{
		Type:       "Feature",
		Geometry:   Geometry{Type: "Polygon", Coordinates: [][][]float64{ring.Coordinates()}},
		Properties: map[string]any{},
	}
}
