package explorer_test

import (
	"context"
	"sort"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// --- Fake MapEngine ---

type easeCall struct {
	center domain.LonLat
	zoom   float64
}

type fakeEngine struct {
	opts       ports.MapOptions
	sources    map[string]ports.SourceSpec
	layers     map[string]ports.LayerSpec
	markers    map[string]ports.MarkerSpec
	controls   []ports.Control
	onClick    []func(ports.ClickEvent)
	layerClick map[string]func(ports.ClickEvent)
	styleLoad  []func()
	eased      []easeCall
	removed    bool

	rendered      map[string][]ports.RenderedFeature
	expansionZoom float64
	expansionErr  error
}

func newFakeEngine(opts ports.MapOptions) *fakeEngine {
	return &fakeEngine{
		opts:       opts,
		sources:    map[string]ports.SourceSpec{},
		layers:     map[string]ports.LayerSpec{},
		markers:    map[string]ports.MarkerSpec{},
		layerClick: map[string]func(ports.ClickEvent){},
		rendered:   map[string][]ports.RenderedFeature{},
	}
}

func (f *fakeEngine) AddSource(id string, spec ports.SourceSpec) error {
	if _, ok := f.sources[id]; ok {
		return ports.ErrExists
	}
	f.sources[id] = spec
	return nil
}

func (f *fakeEngine) HasSource(id string) bool { _, ok := f.sources[id]; return ok }

func (f *fakeEngine) RemoveSource(id string) error {
	if _, ok := f.sources[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.sources, id)
	return nil
}

func (f *fakeEngine) AddLayer(spec ports.LayerSpec) error {
	if _, ok := f.layers[spec.ID]; ok {
		return ports.ErrExists
	}
	f.layers[spec.ID] = spec
	return nil
}

func (f *fakeEngine) HasLayer(id string) bool { _, ok := f.layers[id]; return ok }

func (f *fakeEngine) RemoveLayer(id string) error {
	if _, ok := f.layers[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.layers, id)
	delete(f.layerClick, id)
	return nil
}

func (f *fakeEngine) AddMarker(spec ports.MarkerSpec) error {
	if _, ok := f.markers[spec.ID]; ok {
		return ports.ErrExists
	}
	f.markers[spec.ID] = spec
	return nil
}

func (f *fakeEngine) RemoveMarker(id string) error {
	if _, ok := f.markers[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.markers, id)
	return nil
}

func (f *fakeEngine) AddControl(c ports.Control, _ string) { f.controls = append(f.controls, c) }

func (f *fakeEngine) EaseTo(center domain.LonLat, zoom float64) {
	f.eased = append(f.eased, easeCall{center: center, zoom: zoom})
}

func (f *fakeEngine) QueryRenderedFeatures(_ ports.ScreenPoint, layers []string) ([]ports.RenderedFeature, error) {
	var out []ports.RenderedFeature
	for _, l := range layers {
		if _, ok := f.layers[l]; ok {
			out = append(out, f.rendered[l]...)
		}
	}
	return out, nil
}

func (f *fakeEngine) ClusterExpansionZoom(_ string, _ int, cb func(float64, error)) {
	cb(f.expansionZoom, f.expansionErr)
}

func (f *fakeEngine) OnClick(fn func(ports.ClickEvent)) { f.onClick = append(f.onClick, fn) }

func (f *fakeEngine) OnLayerClick(layerID string, fn func(ports.ClickEvent)) {
	f.layerClick[layerID] = fn
}

func (f *fakeEngine) OnStyleLoad(fn func()) { f.styleLoad = append(f.styleLoad, fn) }

func (f *fakeEngine) Remove() { f.removed = true }

func (f *fakeEngine) click(ev ports.ClickEvent) {
	for _, fn := range f.onClick {
		fn(ev)
	}
}

func (f *fakeEngine) fireStyleLoad() {
	for _, fn := range f.styleLoad {
		fn()
	}
}

func (f *fakeEngine) layerIDs() []string {
	ids := make([]string, 0, len(f.layers))
	for id := range f.layers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// --- Fake MapFactory ---

type fakeFactory struct {
	created []*fakeEngine
	err     error
	// failOnce fails the next Create only.
	failOnce error
}

func (f *fakeFactory) Create(opts ports.MapOptions) (ports.MapEngine, error) {
	if err := f.failOnce; err != nil {
		f.failOnce = nil
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	eng := newFakeEngine(opts)
	f.created = append(f.created, eng)
	return eng, nil
}

func (f *fakeFactory) current() *fakeEngine {
	return f.created[len(f.created)-1]
}

// --- Fake RecordSource ---

type mockSource struct {
	fetchFn func(ctx context.Context, limit int) ([]domain.PropertyRecord, error)
}

func (m *mockSource) FetchRecords(ctx context.Context, limit int) ([]domain.PropertyRecord, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, limit)
	}
	return nil, nil
}

func staticSource(records ...domain.PropertyRecord) *mockSource {
	return &mockSource{fetchFn: func(context.Context, int) ([]domain.PropertyRecord, error) {
		return records, nil
	}}
}

func record(id string, lon, lat float64, price int64) domain.PropertyRecord {
	return domain.PropertyRecord{
		ID:        id,
		Title:     "Casa " + id,
		Slug:      "casa-" + id,
		Price:     price,
		Type:      domain.ListingSale,
		Category:  "house",
		City:      "São Paulo",
		State:     "SP",
		Latitude:  domain.Coord(lat),
		Longitude: domain.Coord(lon),
	}
}
