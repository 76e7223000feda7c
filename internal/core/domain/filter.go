package domain

import "fmt"

// ViewMode selects how filtered properties are drawn.
type ViewMode string

const (
	ViewNormal  ViewMode = "normal"
	ViewCluster ViewMode = "cluster"
	ViewHeatmap ViewMode = "heatmap"
)

// ParseViewMode validates a client supplied view mode.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewNormal, ViewCluster, ViewHeatmap:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

// MapStyle selects the base map.
type MapStyle string

const (
	StyleStreets   MapStyle = "streets"
	StyleSatellite MapStyle = "satellite"
	StyleDark      MapStyle = "dark"
	Style3D        MapStyle = "3d"
)

// ParseMapStyle validates a client supplied map style.
func ParseMapStyle(s string) (MapStyle, error) {
	switch m := MapStyle(s); m {
	case StyleStreets, StyleSatellite, StyleDark, Style3D:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMapStyle, s)
}

const (
	DefaultPriceCeiling int64   = 10_000_000
	DefaultSearchRadius float64 = 2000
	MinSearchRadius     float64 = 500
	MaxSearchRadius     float64 = 10_000
)

// FilterState is the explorer's mutable UI state. It has a single owner, the
// explorer session, and is read on every recomputation.
type FilterState struct {
	PriceMin           int64    `json:"price_min"`
	PriceMax           int64    `json:"price_max"`
	SearchCenter       *LonLat  `json:"search_center,omitempty"`
	SearchRadiusMeters float64  `json:"search_radius_meters"`
	ViewMode           ViewMode `json:"view_mode"`
	MapStyle           MapStyle `json:"map_style"`
}

// DefaultFilterState is the state an explorer starts with.
func DefaultFilterState() FilterState {
	return FilterState{
		PriceMin:           0,
		PriceMax:           DefaultPriceCeiling,
		SearchRadiusMeters: DefaultSearchRadius,
		ViewMode:           ViewNormal,
		MapStyle:           StyleStreets,
	}
}
