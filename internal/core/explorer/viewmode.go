package explorer

import (
	"errors"
	"fmt"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// guardFunc runs fn only if eng is still the owner's current map, serialised with
// every other mutation of the owner.
type guardFunc func(eng ports.MapEngine, fn func())

// ViewModeController owns the property markers, layers and source on the map.
// Every Rebuild clears what the previous one drew before drawing again.
type ViewModeController struct {
	priceCeiling int64
	guard        guardFunc
	markers      []string
}

// NewViewModeController creates a controller. priceCeiling saturates the heatmap weight.
func NewViewModeController(priceCeiling int64, guard guardFunc) *ViewModeController {
	if priceCeiling <= 0 {
		priceCeiling = domain.DefaultPriceCeiling
	}
	if guard == nil {
		guard = func(_ ports.MapEngine, fn func()) { fn() }
	}
	return &ViewModeController{priceCeiling: priceCeiling, guard: guard}
}

// Markers returns the ids of the markers currently on the map.
func (c *ViewModeController) Markers() []string {
	return append([]string(nil), c.markers...)
}

// Rebuild tears down everything the controller drew and renders records in mode.
// A teardown error does not stop the rebuild; all errors are returned joined.
func (c *ViewModeController) Rebuild(eng ports.MapEngine, mode domain.ViewMode, records []domain.PropertyRecord) error {
	teardownErr := c.Teardown(eng)
	if eng == nil {
		return nil
	}

	var err error
	switch mode {
	case domain.ViewCluster:
		err = c.buildClusters(eng, ToFeatures(records))
	case domain.ViewHeatmap:
		err = c.buildHeatmap(eng, ToFeatures(records))
	default:
		err = c.buildMarkers(eng, records)
	}
	return errors.Join(teardownErr, err)
}

// Teardown removes the controller's markers, layers and source. Objects that are
// already gone count as removed. The marker list is reset even on error.
func (c *ViewModeController) Teardown(eng ports.MapEngine) error {
	defer func() { c.markers = c.markers[:0] }()
	if eng == nil {
		return nil
	}

	var errs []error
	for _, id := range c.markers {
		errs = append(errs, ignoreNotFound(eng.RemoveMarker(id)))
	}
	errs = append(errs, removeLayers(eng, propertyLayers...))
	errs = append(errs, ignoreNotFound(eng.RemoveSource(PropertiesSource)))
	return errors.Join(errs...)
}

func (c *ViewModeController) buildMarkers(eng ports.MapEngine, records []domain.PropertyRecord) error {
	var errs []error
	for i, r := range records {
		pos, ok := r.Position()
		if !ok {
			continue
		}
		id := fmt.Sprintf("property-%d-%s", i, r.ID)
		err := eng.AddMarker(ports.MarkerSpec{
			ID:        id,
			Position:  pos,
			ClassName: "mapbox-marker",
			Icon:      markerIcon,
			PopupHTML: PopupHTML(r),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("add marker %s: %w", id, err))
			continue
		}
		c.markers = append(c.markers, id)
	}
	return errors.Join(errs...)
}

func (c *ViewModeController) buildClusters(eng ports.MapEngine, features []domain.GeoFeature) error {
	if err := eng.AddSource(PropertiesSource, pointSource(features, true)); err != nil {
		return fmt.Errorf("add cluster source: %w", err)
	}
	for _, layer := range clusterLayers() {
		if err := eng.AddLayer(layer); err != nil {
			return fmt.Errorf("add layer %s: %w", layer.ID, err)
		}
	}

	eng.OnLayerClick(ClustersLayer, func(ev ports.ClickEvent) {
		c.guard(eng, func() { expandCluster(eng, ev) })
	})
	return nil
}

func (c *ViewModeController) buildHeatmap(eng ports.MapEngine, features []domain.GeoFeature) error {
	if err := eng.AddSource(PropertiesSource, pointSource(features, false)); err != nil {
		return fmt.Errorf("add heatmap source: %w", err)
	}
	if err := eng.AddLayer(heatmapLayer(c.priceCeiling)); err != nil {
		return fmt.Errorf("add layer %s: %w", HeatmapLayer, err)
	}
	return nil
}

// expandCluster zooms to the cluster under the click.
func expandCluster(eng ports.MapEngine, ev ports.ClickEvent) {
	hits, err := eng.QueryRenderedFeatures(ev.Point, []string{ClustersLayer})
	if err != nil || len(hits) == 0 {
		return
	}
	hit := hits[0]
	id, ok := intProperty(hit.Properties["cluster_id"])
	if !ok {
		return
	}

	eng.ClusterExpansionZoom(PropertiesSource, id, func(zoom float64, err error) {
		if err != nil {
			return
		}
		if zoom <= 0 {
			zoom = clusterFallbackZoom
		}
		eng.EaseTo(hit.Position, zoom)
	})
}

func intProperty(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func removeLayers(eng ports.MapEngine, ids ...string) error {
	var errs []error
	for _, id := range ids {
		errs = append(errs, ignoreNotFound(eng.RemoveLayer(id)))
	}
	return errors.Join(errs...)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	return err
}
