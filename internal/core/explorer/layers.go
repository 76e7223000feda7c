package explorer

import (
	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// Source and layer ids owned by the view mode controller.
const (
	PropertiesSource      = "properties"
	ClustersLayer         = PropertiesSource + "-clusters"
	ClusterCountLayer     = PropertiesSource + "-cluster-count"
	UnclusteredLayer      = PropertiesSource + "-unclustered"
	HeatmapLayer          = PropertiesSource + "-heatmap"
	SearchRadiusSource    = "search-radius"
	SearchRadiusFillLayer = SearchRadiusSource + "-fill"
	SearchRadiusLineLayer = SearchRadiusSource + "-line"
	BuildingsLayer        = "3d-buildings"
	CompositeSource       = "composite"
)

// Cluster source settings.
const (
	ClusterMaxZoom = 14
	ClusterRadius  = 50

	// clusterFallbackZoom is used when the engine reports no expansion zoom.
	clusterFallbackZoom = 10
)

const (
	brandColor = "#4f2de8"
	markerIcon = "/map-icons/perimetro-virtual.gif"
)

// propertyLayers lists every layer drawn from PropertiesSource, in teardown order.
var propertyLayers = []string{ClustersLayer, ClusterCountLayer, UnclusteredLayer, HeatmapLayer}

var (
	hasPointCount = []any{"has", "point_count"}
	noPointCount  = []any{"!", hasPointCount}
)

func pointSource(features []domain.GeoFeature, clustered bool) ports.SourceSpec {
	spec := ports.SourceSpec{Type: "geojson", Data: FeatureCollection(features)}
	if clustered {
		spec.Cluster = true
		spec.ClusterMaxZoom = ClusterMaxZoom
		spec.ClusterRadius = ClusterRadius
	}
	return spec
}

func clusterLayers() []ports.LayerSpec {
	return []ports.LayerSpec{
		{
			ID:     ClustersLayer,
			Type:   "circle",
			Source: PropertiesSource,
			Filter: hasPointCount,
			Paint: map[string]any{
				"circle-color": []any{
					"step", []any{"get", "point_count"},
					"#51bbd6", 10, "#f1f075", 30, "#f28cb1",
				},
				"circle-radius": []any{
					"step", []any{"get", "point_count"},
					20, 10, 30, 30, 40,
				},
			},
		},
		{
			ID:     ClusterCountLayer,
			Type:   "symbol",
			Source: PropertiesSource,
			Filter: hasPointCount,
			Layout: map[string]any{
				"text-field": "{point_count_abbreviated}",
				"text-font":  []any{"DIN Offc Pro Medium", "Arial Unicode MS Bold"},
				"text-size":  12,
			},
		},
		{
			ID:     UnclusteredLayer,
			Type:   "circle",
			Source: PropertiesSource,
			Filter: noPointCount,
			Paint: map[string]any{
				"circle-color":        brandColor,
				"circle-radius":       8,
				"circle-stroke-width": 2,
				"circle-stroke-color": "#fff",
			},
		},
	}
}

func heatmapLayer(priceCeiling int64) ports.LayerSpec {
	return ports.LayerSpec{
		ID:      HeatmapLayer,
		Type:    "heatmap",
		Source:  PropertiesSource,
		MaxZoom: 15,
		Paint: map[string]any{
			"heatmap-weight": []any{
				"interpolate", []any{"linear"}, []any{"get", "price"},
				0, 0,
				float64(priceCeiling) / 10, 0.5,
				float64(priceCeiling), 1,
			},
			"heatmap-intensity": []any{
				"interpolate", []any{"linear"}, []any{"zoom"},
				0, 1,
				15, 3,
			},
			"heatmap-color": []any{
				"interpolate", []any{"linear"}, []any{"heatmap-density"},
				0, "rgba(33,102,172,0)",
				0.2, "rgb(103,169,207)",
				0.4, "rgb(209,229,240)",
				0.6, "rgb(253,219,199)",
				0.8, "rgb(239,138,98)",
				1, "rgb(178,24,43)",
			},
			"heatmap-radius": []any{
				"interpolate", []any{"linear"}, []any{"zoom"},
				0, 2,
				15, 20,
			},
			"heatmap-opacity": 0.8,
		},
	}
}

func searchRadiusLayers() []ports.LayerSpec {
	return []ports.LayerSpec{
		{
			ID:     SearchRadiusFillLayer,
			Type:   "fill",
			Source: SearchRadiusSource,
			Paint: map[string]any{
				"fill-color":   brandColor,
				"fill-opacity": 0.1,
			},
		},
		{
			ID:     SearchRadiusLineLayer,
			Type:   "line",
			Source: SearchRadiusSource,
			Paint: map[string]any{
				"line-color":     brandColor,
				"line-width":     2,
				"line-dasharray": []any{2, 2},
			},
		},
	}
}

func buildingsLayer() ports.LayerSpec {
	return ports.LayerSpec{
		ID:          BuildingsLayer,
		Type:        "fill-extrusion",
		Source:      CompositeSource,
		SourceLayer: "building",
		Filter:      []any{"==", "extrude", "true"},
		MinZoom:     15,
		Paint: map[string]any{
			"fill-extrusion-color": "#aaa",
			"fill-extrusion-height": []any{
				"interpolate", []any{"linear"}, []any{"zoom"},
				15, 0,
				15.05, []any{"get", "height"},
			},
			"fill-extrusion-base": []any{
				"interpolate", []any{"linear"}, []any{"zoom"},
				15, 0,
				15.05, []any{"get", "min_height"},
			},
			"fill-extrusion-opacity": 0.6,
		},
	}
}
