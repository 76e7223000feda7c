package explorer

import (
	"errors"
	"fmt"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/pkg/geospatial"
)

// RadiusController tracks the clicked search center and draws the circle around it.
// It mutates only the FilterState it is given.
type RadiusController struct {
	minRadius float64
	maxRadius float64
	steps     int
}

// NewRadiusController creates a controller clamping radii into [minRadius, maxRadius].
func NewRadiusController(minRadius, maxRadius float64) *RadiusController {
	if minRadius <= 0 {
		minRadius = domain.MinSearchRadius
	}
	if maxRadius < minRadius {
		maxRadius = domain.MaxSearchRadius
	}
	return &RadiusController{minRadius: minRadius, maxRadius: maxRadius, steps: geospatial.DefaultSteps}
}

// SetCenter replaces the search center.
func (c *RadiusController) SetCenter(state *domain.FilterState, center domain.LonLat) {
	state.SearchCenter = &center
}

// SetRadius stores radius clamped into the configured bounds and returns the
// stored value.
func (c *RadiusController) SetRadius(state *domain.FilterState, radius float64) float64 {
	state.SearchRadiusMeters = min(max(radius, c.minRadius), c.maxRadius)
	return state.SearchRadiusMeters
}

// Clear drops the search center, which disables radius filtering.
func (c *RadiusController) Clear(state *domain.FilterState) {
	state.SearchCenter = nil
}

// Circle returns the polygon drawn for state, or false when no center is set.
func (c *RadiusController) Circle(state domain.FilterState) (domain.ClosedRing, bool) {
	if state.SearchCenter == nil {
		return nil, false
	}
	return geospatial.RadiusPolygon(*state.SearchCenter, state.SearchRadiusMeters, c.steps), true
}

// Redraw removes the previous circle and, if a center is set, draws the new one.
func (c *RadiusController) Redraw(eng ports.MapEngine, state domain.FilterState) error {
	if eng == nil {
		return nil
	}
	err := errors.Join(
		removeLayers(eng, SearchRadiusFillLayer, SearchRadiusLineLayer),
		ignoreNotFound(eng.RemoveSource(SearchRadiusSource)),
	)

	ring, ok := c.Circle(state)
	if !ok {
		return err
	}

	src := ports.SourceSpec{
		Type: "geojson",
		Data: domain.PolygonFeature(ring),
	}
	if addErr := eng.AddSource(SearchRadiusSource, src); addErr != nil {
		return errors.Join(err, fmt.Errorf("add search radius source: %w", addErr))
	}
	for _, layer := range searchRadiusLayers() {
		if addErr := eng.AddLayer(layer); addErr != nil {
			return errors.Join(err, fmt.Errorf("add layer %s: %w", layer.ID, addErr))
		}
	}
	return err
}
