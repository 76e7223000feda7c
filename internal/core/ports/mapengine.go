package ports

import (
	"errors"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// ErrNotFound is returned when removing or querying a layer, source or marker
// that the map does not hold. Teardown code treats it as success.
var ErrNotFound = errors.New("map object not found")

// ErrExists is returned when adding a layer, source or marker whose id is taken.
var ErrExists = errors.New("map object already exists")

// SourceSpec describes a GeoJSON source.
type SourceSpec struct {
	Type           string `json:"type"`
	Data           any    `json:"data"`
	Cluster        bool   `json:"cluster,omitempty"`
	ClusterMaxZoom int    `json:"clusterMaxZoom,omitempty"`
	ClusterRadius  int    `json:"clusterRadius,omitempty"`
}

// LayerSpec describes a typed layer drawn from a source.
type LayerSpec struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Filter      []any          `json:"filter,omitempty"`
	MinZoom     float64        `json:"minzoom,omitempty"`
	MaxZoom     float64        `json:"maxzoom,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
}

// MarkerSpec describes a discrete marker with an HTML popup.
type MarkerSpec struct {
	ID        string        `json:"id"`
	Position  domain.LonLat `json:"position"`
	ClassName string        `json:"className"`
	Icon      string        `json:"icon"`
	PopupHTML string        `json:"popupHtml"`
}

// ScreenPoint is a pixel position inside the map viewport.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClickEvent is a click delivered by the renderer.
type ClickEvent struct {
	Point  ScreenPoint   `json:"point"`
	LngLat domain.LonLat `json:"lngLat"`
}

// RenderedFeature is a feature the renderer currently draws at a point.
type RenderedFeature struct {
	LayerID    string         `json:"layer"`
	Position   domain.LonLat  `json:"position"`
	Properties map[string]any `json:"properties"`
}

// Camera positions the map view.
type Camera struct {
	Center  domain.LonLat `json:"center"`
	Zoom    float64       `json:"zoom"`
	Pitch   float64       `json:"pitch"`
	Bearing float64       `json:"bearing"`
}

// MapOptions configures a new map instance.
type MapOptions struct {
	StyleURL  string `json:"style"`
	Camera    Camera `json:"camera"`
	Antialias bool   `json:"antialias"`
}

// Control is one of the renderer's built-in UI widgets.
type Control string

const (
	ControlNavigation Control = "navigation"
	ControlFullscreen Control = "fullscreen"
	ControlGeolocate  Control = "geolocate"
)

// MapEngine is the subset of a vector-tile renderer the explorer depends on.
// Handlers are invoked on the goroutine that delivers the triggering event.
type MapEngine interface {
	AddSource(id string, spec SourceSpec) error
	HasSource(id string) bool
	RemoveSource(id string) error

	AddLayer(spec LayerSpec) error
	HasLayer(id string) bool
	RemoveLayer(id string) error

	AddMarker(spec MarkerSpec) error
	RemoveMarker(id string) error

	AddControl(c Control, position string)
	// EaseTo moves the camera to center and zoom. Pitch and bearing are kept.
	EaseTo(center domain.LonLat, zoom float64)

	QueryRenderedFeatures(p ScreenPoint, layers []string) ([]RenderedFeature, error)
	// ClusterExpansionZoom reports the zoom at which a cluster splits. The callback
	// may run after the caller has moved on.
	ClusterExpansionZoom(sourceID string, clusterID int, cb func(zoom float64, err error))

	// OnClick registers a map-wide click handler.
	OnClick(fn func(ClickEvent))
	// OnLayerClick sets the click handler for a layer, replacing any previous one.
	// Removing the layer drops its handler.
	OnLayerClick(layerID string, fn func(ClickEvent))
	// OnStyleLoad registers a handler fired when the style finishes loading.
	OnStyleLoad(fn func())

	// Remove destroys the instance. Later calls on it are no-ops.
	Remove()
}

// MapFactory creates map instances. An explorer holds at most one at a time.
type MapFactory interface {
	Create(opts MapOptions) (MapEngine, error)
}

// EventSink is implemented by engines whose interaction events are reported by
// a remote client rather than produced locally.
type EventSink interface {
	DispatchClick(ev ClickEvent)
	DispatchStyleLoad()
	SetCamera(cam Camera)
	SetViewport(width, height float64)
}
