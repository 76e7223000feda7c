package explorer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// DefaultFeedLimit is how many records an explorer fetches when not configured.
const DefaultFeedLimit = 50

// Recomputation describes one filter-and-render pass.
type Recomputation struct {
	Mode     domain.ViewMode
	Style    domain.MapStyle
	Total    int
	Rendered int
	Duration time.Duration
	Err      error
}

// Options configures an Explorer.
type Options struct {
	Source       ports.RecordSource
	Factory      ports.MapFactory
	FeedLimit    int
	PriceCeiling int64
	MinRadius    float64
	MaxRadius    float64
	// Home is the camera of every newly created map. Zero means DefaultHome.
	Home   ports.Camera
	Logger *slog.Logger
	// OnRecompute is called after every pass, with the explorer locked.
	OnRecompute func(Recomputation)
}

// Explorer is the state holder of one map explorer. It owns the filter state, the
// raw records and the map instance, and serialises every mutation and engine
// callback so that each change is applied as a single recomputation.
type Explorer struct {
	mu sync.Mutex

	source      ports.RecordSource
	feedLimit   int
	logger      *slog.Logger
	onRecompute func(Recomputation)

	state    domain.FilterState
	records  []domain.PropertyRecord
	located  int
	filtered []domain.PropertyRecord
	engine   ports.MapEngine
	closed   bool

	view   *ViewModeController
	styles *StyleController
	radius *RadiusController
	list   *ListSynchronizer
}

// New creates an explorer with default filter state. Call Start to create the map
// and load records.
func New(opts Options) *Explorer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = DefaultFeedLimit
	}
	if opts.Home == (ports.Camera{}) {
		opts.Home = DefaultHome
	}

	e := &Explorer{
		source:      opts.Source,
		feedLimit:   opts.FeedLimit,
		logger:      logger,
		onRecompute: opts.OnRecompute,
		state:       domain.DefaultFilterState(),
		list:        NewListSynchronizer(),
	}
	if opts.PriceCeiling > 0 {
		e.state.PriceMax = opts.PriceCeiling
	}
	e.view = NewViewModeController(opts.PriceCeiling, e.guard)
	e.styles = NewStyleController(opts.Factory, opts.Home, e.guard, logger)
	e.radius = NewRadiusController(opts.MinRadius, opts.MaxRadius)
	e.radius.SetRadius(&e.state, e.state.SearchRadiusMeters)
	return e
}

// Start creates the map for the current style, fetches the initial records and
// renders them. A failed fetch leaves the explorer empty; only a failure to create
// the map is returned.
func (e *Explorer) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.engine == nil {
		eng, err := e.styles.Apply(nil, e.state.MapStyle, e.handleMapClick)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.engine = eng
	}
	e.mu.Unlock()

	e.SetRecords(e.fetch(ctx))
	return nil
}

// Refresh fetches the records again and recomputes.
func (e *Explorer) Refresh(ctx context.Context) {
	e.SetRecords(e.fetch(ctx))
}

func (e *Explorer) fetch(ctx context.Context) []domain.PropertyRecord {
	if e.source == nil {
		return nil
	}
	records, err := e.source.FetchRecords(ctx, e.feedLimit)
	if err != nil {
		e.logger.Error("fetch property records", "error", err)
		return nil
	}
	return records
}

// SetRecords replaces the raw records.
func (e *Explorer) SetRecords(records []domain.PropertyRecord) {
	normalized := make([]domain.PropertyRecord, len(records))
	for i, r := range records {
		normalized[i] = r.Normalized()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = normalized
	e.located = len(WithCoordinates(normalized))
	e.recompute()
}

// SetPriceRange sets the inclusive price bounds. min > max is stored as given and
// matches nothing.
func (e *Explorer) SetPriceRange(minPrice, maxPrice int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.PriceMin, e.state.PriceMax = minPrice, maxPrice
	e.recompute()
}

// SetViewMode switches the render strategy. Re-selecting the active mode rebuilds it.
func (e *Explorer) SetViewMode(mode domain.ViewMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.ViewMode = mode
	e.recompute()
}

// SetMapStyle recreates the map with style and draws everything again. If the new
// map cannot be created the previous style is restored; when that fails too the
// explorer keeps publishing its list without a map until the next SetMapStyle.
func (e *Explorer) SetMapStyle(style domain.MapStyle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	prev := e.state.MapStyle
	eng, err := e.styles.Apply(e.engine, style, e.handleMapClick)
	if err != nil {
		e.logger.Error("switch map style", "style", style, "error", err)
		restored, restoreErr := e.styles.Apply(nil, prev, e.handleMapClick)
		if restoreErr != nil {
			e.logger.Error("restore map style", "style", prev, "error", restoreErr)
		}
		e.engine = restored
		e.recompute()
		return err
	}

	e.state.MapStyle = style
	e.engine = eng
	e.recompute()
	return nil
}

// SetSearchRadius stores the radius clamped into the configured range and returns it.
func (e *Explorer) SetSearchRadius(meters float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.radius.SetRadius(&e.state, meters)
	e.recompute()
	return r
}

// ClearSearchCenter removes the search circle and the radius filter.
func (e *Explorer) ClearSearchCenter() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.radius.Clear(&e.state)
	e.recompute()
}

// HandleMapClick applies a click on the map at p. It only moves the search center
// in normal view mode.
func (e *Explorer) HandleMapClick(p domain.LonLat) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handleMapClick(ports.ClickEvent{LngLat: p})
}

// handleMapClick runs with e.mu held.
func (e *Explorer) handleMapClick(ev ports.ClickEvent) {
	if e.state.ViewMode != domain.ViewNormal {
		return
	}
	e.radius.SetCenter(&e.state, ev.LngLat)
	e.recompute()
}

// DispatchClick delivers a client click to the map, which routes it to the map and
// layer handlers. Engines that do not accept remote events get a plain map click.
func (e *Explorer) DispatchClick(ev ports.ClickEvent) {
	if sink, ok := e.sink(); ok {
		sink.DispatchClick(ev)
		return
	}
	e.HandleMapClick(ev.LngLat)
}

// StyleLoaded reports that the client finished loading the current style.
func (e *Explorer) StyleLoaded() {
	if sink, ok := e.sink(); ok {
		sink.DispatchStyleLoad()
	}
}

// MoveCamera records where the client camera is, so hit tests match what it shows.
func (e *Explorer) MoveCamera(cam ports.Camera) {
	if sink, ok := e.sink(); ok {
		sink.SetCamera(cam)
	}
}

// Resize records the client viewport size in pixels.
func (e *Explorer) Resize(width, height float64) {
	if sink, ok := e.sink(); ok {
		sink.SetViewport(width, height)
	}
}

func (e *Explorer) sink() (ports.EventSink, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.engine == nil {
		return nil, false
	}
	s, ok := e.engine.(ports.EventSink)
	return s, ok
}

// guard runs fn under the lock if eng is still the current map. Engine callbacks
// go through it so that callbacks for a replaced map do nothing.
func (e *Explorer) guard(eng ports.MapEngine, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || eng == nil || e.engine != eng {
		return
	}
	fn()
}

// recompute filters the records and redraws the map and the list from the same
// result. It runs with e.mu held.
func (e *Explorer) recompute() {
	if e.closed {
		return
	}
	start := time.Now()

	e.filtered = ApplyFilters(e.records, e.state)
	err := errors.Join(
		e.view.Rebuild(e.engine, e.state.ViewMode, e.filtered),
		e.radius.Redraw(e.engine, e.state),
	)
	e.list.Publish(e.filtered, len(e.records), e.located)

	if err != nil {
		e.logger.Warn("explorer render", "mode", e.state.ViewMode, "error", err)
	}
	if e.onRecompute != nil {
		e.onRecompute(Recomputation{
			Mode:     e.state.ViewMode,
			Style:    e.state.MapStyle,
			Total:    len(e.records),
			Rendered: len(e.filtered),
			Duration: time.Since(start),
			Err:      err,
		})
	}
}

// State returns a copy of the filter state.
func (e *Explorer) State() domain.FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	if s.SearchCenter != nil {
		c := *s.SearchCenter
		s.SearchCenter = &c
	}
	return s
}

// Filtered returns the records of the last recomputation.
func (e *Explorer) Filtered() []domain.PropertyRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.PropertyRecord(nil), e.filtered...)
}

// Markers returns the ids of the discrete markers currently drawn.
func (e *Explorer) Markers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Markers()
}

// SearchCircle returns the polygon currently drawn, if any.
func (e *Explorer) SearchCircle() (domain.ClosedRing, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.radius.Circle(e.state)
}

// Snapshot returns the list beside the map.
func (e *Explorer) Snapshot() domain.ListSnapshot {
	return e.list.Snapshot()
}

// Subscribe registers fn for every list update. fn runs with the explorer locked
// and must not call back into it.
func (e *Explorer) Subscribe(fn func(domain.ListSnapshot)) (cancel func()) {
	return e.list.Subscribe(fn)
}

// Engine returns the current map instance, nil before Start or after Close.
func (e *Explorer) Engine() ports.MapEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine
}

// Close destroys the map. Later mutations are ignored.
func (e *Explorer) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.engine != nil {
		e.engine.Remove()
		e.engine = nil
	}
}
