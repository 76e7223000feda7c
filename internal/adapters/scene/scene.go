// Package scene is a retained-mode implementation of the map engine. It keeps the
// sources, layers, markers and camera a browser map should show, answers hit tests
// and cluster queries server-side, and is streamed to the client as JSON.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// Default viewport used until the client reports its size.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

const (
	defaultClusterMaxZoom = 14
	defaultClusterRadius  = 50
	defaultCircleRadius   = 5
	defaultHeatmapRadius  = 30
	symbolHitRadius       = 10
)

var errUnknownCluster = errors.New("unknown cluster")

// Compile-time interface checks.
var (
	_ ports.MapEngine = (*Map)(nil)
	_ ports.EventSink = (*Map)(nil)
)

type renderedPoint struct {
	pos   domain.LonLat
	props map[string]any
}

type source struct {
	spec      ports.SourceSpec
	fromStyle bool
	points    []point
	rings     [][]domain.LonLat
	index     *clusterIndex
}

// ControlState is a UI control attached to the map.
type ControlState struct {
	Control  ports.Control `json:"control"`
	Position string        `json:"position"`
}

// Map is one map instance. It is safe for concurrent use; handlers are invoked
// without the map's lock held.
type Map struct {
	mu sync.Mutex

	opts        ports.MapOptions
	view        viewport
	controls    []ControlState
	sources     map[string]*source
	sourceOrder []string
	layers      []ports.LayerSpec
	markers     []ports.MarkerSpec

	onClick    []func(ports.ClickEvent)
	layerClick map[string]func(ports.ClickEvent)
	onStyle    []func()

	styleLoaded bool
	removed     bool
	revision    uint64
}

// New creates a map with the given options and the default viewport.
func New(opts ports.MapOptions) *Map {
	return &Map{
		opts:       opts,
		view:       viewport{camera: opts.Camera, width: DefaultWidth, height: DefaultHeight},
		sources:    make(map[string]*source),
		layerClick: make(map[string]func(ports.ClickEvent)),
	}
}

// AddSource registers a GeoJSON source. Clustered sources are indexed immediately.
func (m *Map) AddSource(id string, spec ports.SourceSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	if _, ok := m.sources[id]; ok {
		return fmt.Errorf("source %s: %w", id, ports.ErrExists)
	}

	src, err := decodeSource(spec)
	if err != nil {
		return fmt.Errorf("source %s: %w", id, err)
	}
	m.sources[id] = src
	m.sourceOrder = append(m.sourceOrder, id)
	m.revision++
	return nil
}

// HasSource reports whether a source is registered, style sources included.
func (m *Map) HasSource(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sources[id]
	return ok
}

// RemoveSource drops a source. It fails while a layer still draws from it.
func (m *Map) RemoveSource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	if _, ok := m.sources[id]; !ok {
		return fmt.Errorf("source %s: %w", id, ports.ErrNotFound)
	}
	for _, l := range m.layers {
		if l.Source == id {
			return fmt.Errorf("source %s is used by layer %s", id, l.ID)
		}
	}
	delete(m.sources, id)
	m.sourceOrder = without(m.sourceOrder, id)
	m.revision++
	return nil
}

// AddLayer appends a layer on top of the existing ones.
func (m *Map) AddLayer(spec ports.LayerSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	if m.layerIndex(spec.ID) >= 0 {
		return fmt.Errorf("layer %s: %w", spec.ID, ports.ErrExists)
	}
	if _, ok := m.sources[spec.Source]; !ok {
		return fmt.Errorf("layer %s source %s: %w", spec.ID, spec.Source, ports.ErrNotFound)
	}
	m.layers = append(m.layers, spec)
	m.revision++
	return nil
}

// HasLayer reports whether a layer is on the map.
func (m *Map) HasLayer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layerIndex(id) >= 0
}

// RemoveLayer drops a layer and its click handler.
func (m *Map) RemoveLayer(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	i := m.layerIndex(id)
	if i < 0 {
		return fmt.Errorf("layer %s: %w", id, ports.ErrNotFound)
	}
	m.layers = append(m.layers[:i], m.layers[i+1:]...)
	delete(m.layerClick, id)
	m.revision++
	return nil
}

// AddMarker places a marker.
func (m *Map) AddMarker(spec ports.MarkerSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	if m.markerIndex(spec.ID) >= 0 {
		return fmt.Errorf("marker %s: %w", spec.ID, ports.ErrExists)
	}
	m.markers = append(m.markers, spec)
	m.revision++
	return nil
}

// RemoveMarker removes a marker.
func (m *Map) RemoveMarker(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil
	}
	i := m.markerIndex(id)
	if i < 0 {
		return fmt.Errorf("marker %s: %w", id, ports.ErrNotFound)
	}
	m.markers = append(m.markers[:i], m.markers[i+1:]...)
	m.revision++
	return nil
}

// AddControl attaches a UI control.
func (m *Map) AddControl(c ports.Control, position string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.controls = append(m.controls, ControlState{Control: c, Position: position})
	m.revision++
}

// EaseTo moves the camera. The client animates the transition.
func (m *Map) EaseTo(center domain.LonLat, zoom float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.view.camera.Center = center
	m.view.camera.Zoom = zoom
	m.revision++
}

// QueryRenderedFeatures returns the features of layers drawn under p, topmost
// layer first and nearest feature first within a layer. An empty layers list
// queries every layer.
func (m *Map) QueryRenderedFeatures(p ports.ScreenPoint, layers []string) ([]ports.RenderedFeature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil, nil
	}
	return m.query(p, layers), nil
}

// ClusterExpansionZoom calls cb with the zoom at which the cluster splits.
func (m *Map) ClusterExpansionZoom(sourceID string, clusterID int, cb func(zoom float64, err error)) {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return
	}
	var (
		zoom float64
		err  error
	)
	src, ok := m.sources[sourceID]
	switch {
	case !ok:
		err = fmt.Errorf("source %s: %w", sourceID, ports.ErrNotFound)
	case src.index == nil:
		err = fmt.Errorf("source %s is not clustered", sourceID)
	default:
		var z int
		z, err = src.index.expansionZoom(clusterID)
		zoom = float64(z)
	}
	m.mu.Unlock()

	cb(zoom, err)
}

// OnClick registers a map-wide click handler.
func (m *Map) OnClick(fn func(ports.ClickEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.onClick = append(m.onClick, fn)
}

// OnLayerClick sets the click handler of a layer, replacing the previous one.
func (m *Map) OnLayerClick(layerID string, fn func(ports.ClickEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.layerClick[layerID] = fn
}

// OnStyleLoad registers a handler for DispatchStyleLoad.
func (m *Map) OnStyleLoad(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.onStyle = append(m.onStyle, fn)
}

// Remove destroys the map. Handlers are dropped and later calls do nothing.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.removed = true
	m.onClick, m.onStyle = nil, nil
	m.layerClick = map[string]func(ports.ClickEvent){}
	m.revision++
}

// Revision counts the changes made to the map content and camera.
func (m *Map) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Removed reports whether Remove was called.
func (m *Map) Removed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}

// DispatchClick runs the map click handlers, then the handler of every layer that
// has a feature under the click.
func (m *Map) DispatchClick(ev ports.ClickEvent) {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return
	}
	handlers := append([]func(ports.ClickEvent){}, m.onClick...)
	for i := len(m.layers) - 1; i >= 0; i-- {
		id := m.layers[i].ID
		fn, ok := m.layerClick[id]
		if !ok {
			continue
		}
		if len(m.query(ev.Point, []string{id})) > 0 {
			handlers = append(handlers, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// DispatchStyleLoad marks the style as loaded, registers the style's own vector
// source and runs the style-load handlers.
func (m *Map) DispatchStyleLoad() {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return
	}
	m.styleLoaded = true
	if strings.HasPrefix(m.opts.StyleURL, "mapbox://styles/mapbox/") {
		if _, ok := m.sources["composite"]; !ok {
			m.sources["composite"] = &source{spec: ports.SourceSpec{Type: "vector"}, fromStyle: true}
		}
	}
	handlers := append([]func(){}, m.onStyle...)
	m.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

// SetCamera records the camera the client currently shows.
func (m *Map) SetCamera(cam ports.Camera) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.camera = cam
}

// SetViewport records the client canvas size in pixels.
func (m *Map) SetViewport(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.width, m.view.height = width, height
}

// Project returns the screen position of p under the current camera.
func (m *Map) Project(p domain.LonLat) ports.ScreenPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view.project(p)
}

// Unproject returns the position under the screen point s.
func (m *Map) Unproject(s ports.ScreenPoint) domain.LonLat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view.unproject(s)
}

// query runs a hit test with m.mu held.
func (m *Map) query(p ports.ScreenPoint, layers []string) []ports.RenderedFeature {
	want := make(map[string]bool, len(layers))
	for _, id := range layers {
		want[id] = true
	}
	zoom := m.view.camera.Zoom
	at := m.view.unproject(p)

	var out []ports.RenderedFeature
	for i := len(m.layers) - 1; i >= 0; i-- {
		layer := m.layers[i]
		if len(want) > 0 && !want[layer.ID] {
			continue
		}
		if zoom < layer.MinZoom || (layer.MaxZoom > 0 && zoom >= layer.MaxZoom) {
			continue
		}
		src, ok := m.sources[layer.Source]
		if !ok {
			continue
		}

		switch layer.Type {
		case "fill", "line":
			for _, ring := range src.rings {
				if pointInRing(at, ring) {
					out = append(out, ports.RenderedFeature{LayerID: layer.ID, Position: at, Properties: map[string]any{}})
				}
			}
		case "circle", "symbol", "heatmap":
			out = append(out, m.hitPoints(layer, src, p, zoom)...)
		}
	}
	return out
}

func (m *Map) hitPoints(layer ports.LayerSpec, src *source, p ports.ScreenPoint, zoom float64) []ports.RenderedFeature {
	var candidates []renderedPoint
	if src.index != nil {
		candidates = src.index.features(zoom)
	} else {
		candidates = make([]renderedPoint, len(src.points))
		for i, pt := range src.points {
			candidates[i] = renderedPoint{pos: pt.pos, props: pt.props}
		}
	}

	type hit struct {
		f    ports.RenderedFeature
		dist float64
	}
	var hits []hit
	for _, c := range candidates {
		if !matchFilter(layer.Filter, c.props, zoom) {
			continue
		}
		sp := m.view.project(c.pos)
		d := math.Hypot(sp.X-p.X, sp.Y-p.Y)
		if d > hitRadius(layer, c.props, zoom) {
			continue
		}
		hits = append(hits, hit{
			f:    ports.RenderedFeature{LayerID: layer.ID, Position: c.pos, Properties: c.props},
			dist: d,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]ports.RenderedFeature, len(hits))
	for i, h := range hits {
		out[i] = h.f
	}
	return out
}

func hitRadius(layer ports.LayerSpec, props map[string]any, zoom float64) float64 {
	paint := func(key string, def float64) float64 {
		if v, ok := layer.Paint[key]; ok {
			if n, ok := number(eval(v, props, zoom)); ok {
				return n
			}
		}
		return def
	}
	switch layer.Type {
	case "circle":
		return paint("circle-radius", defaultCircleRadius) + paint("circle-stroke-width", 0)
	case "heatmap":
		return paint("heatmap-radius", defaultHeatmapRadius)
	}
	return symbolHitRadius
}

func (m *Map) layerIndex(id string) int {
	for i, l := range m.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (m *Map) markerIndex(id string) int {
	for i, mk := range m.markers {
		if mk.ID == id {
			return i
		}
	}
	return -1
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// SourceState is a source as sent to the client.
type SourceState struct {
	ID string `json:"id"`
	ports.SourceSpec
}

// State is the serialisable content of a map.
type State struct {
	Revision    uint64             `json:"revision"`
	Style       string             `json:"style"`
	Antialias   bool               `json:"antialias"`
	Camera      ports.Camera       `json:"camera"`
	StyleLoaded bool               `json:"style_loaded"`
	Removed     bool               `json:"removed"`
	Controls    []ControlState     `json:"controls"`
	Sources     []SourceState      `json:"sources"`
	Layers      []ports.LayerSpec  `json:"layers"`
	Markers     []ports.MarkerSpec `json:"markers"`
}

// State returns a copy of the map content. Sources provided by the base style are
// left out.
func (m *Map) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		Revision:    m.revision,
		Style:       m.opts.StyleURL,
		Antialias:   m.opts.Antialias,
		Camera:      m.view.camera,
		StyleLoaded: m.styleLoaded,
		Removed:     m.removed,
		Controls:    append([]ControlState{}, m.controls...),
		Sources:     make([]SourceState, 0, len(m.sourceOrder)),
		Layers:      append([]ports.LayerSpec{}, m.layers...),
		Markers:     append([]ports.MarkerSpec{}, m.markers...),
	}
	for _, id := range m.sourceOrder {
		if src := m.sources[id]; src != nil && !src.fromStyle {
			st.Sources = append(st.Sources, SourceState{ID: id, SourceSpec: src.spec})
		}
	}
	return st
}

// MarshalJSON encodes the map State.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.State())
}
