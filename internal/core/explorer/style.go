package explorer

import (
	"fmt"
	"log/slog"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

var styleURLs = map[domain.MapStyle]string{
	domain.StyleStreets:   "mapbox://styles/mapbox/streets-v12",
	domain.StyleSatellite: "mapbox://styles/mapbox/satellite-streets-v12",
	domain.StyleDark:      "mapbox://styles/mapbox/dark-v11",
	domain.Style3D:        "mapbox://styles/mapbox/streets-v12",
}

// DefaultHome is where a freshly created map looks: São Paulo at state level.
var DefaultHome = ports.Camera{
	Center: domain.LonLat{Lon: -46.6333, Lat: -23.5505},
	Zoom:   6,
}

const (
	tiltedPitch   = 45
	tiltedBearing = -17.6
)

// StyleURL returns the base map style for s. Unknown styles fall back to streets.
func StyleURL(s domain.MapStyle) string {
	if u, ok := styleURLs[s]; ok {
		return u
	}
	return styleURLs[domain.StyleStreets]
}

// StyleController creates map instances. Changing style replaces the instance, so
// every source and layer has to be drawn again afterwards.
type StyleController struct {
	factory ports.MapFactory
	home    ports.Camera
	guard   guardFunc
	logger  *slog.Logger
}

// NewStyleController creates a controller building maps through factory.
func NewStyleController(factory ports.MapFactory, home ports.Camera, guard guardFunc, logger *slog.Logger) *StyleController {
	if guard == nil {
		guard = func(_ ports.MapEngine, fn func()) { fn() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StyleController{factory: factory, home: home, guard: guard, logger: logger}
}

// Options returns the creation options for style.
func (c *StyleController) Options(style domain.MapStyle) ports.MapOptions {
	cam := c.home
	cam.Pitch, cam.Bearing = 0, 0
	if style == domain.Style3D {
		cam.Pitch, cam.Bearing = tiltedPitch, tiltedBearing
	}
	return ports.MapOptions{
		StyleURL:  StyleURL(style),
		Camera:    cam,
		Antialias: true,
	}
}

// Apply removes current (if any) and returns a new map for style with the UI
// controls attached. onClick is called through the guard, so it only sees clicks
// on the current map.
func (c *StyleController) Apply(current ports.MapEngine, style domain.MapStyle, onClick func(ports.ClickEvent)) (ports.MapEngine, error) {
	if current != nil {
		current.Remove()
	}

	eng, err := c.factory.Create(c.Options(style))
	if err != nil {
		return nil, fmt.Errorf("create %s map: %w", style, err)
	}

	eng.AddControl(ports.ControlNavigation, "top-right")
	eng.AddControl(ports.ControlFullscreen, "top-right")
	eng.AddControl(ports.ControlGeolocate, "top-right")
	if onClick != nil {
		eng.OnClick(func(ev ports.ClickEvent) {
			c.guard(eng, func() { onClick(ev) })
		})
	}

	if style == domain.Style3D {
		eng.OnStyleLoad(func() {
			c.guard(eng, func() { c.addBuildings(eng) })
		})
	}
	return eng, nil
}

// addBuildings draws the extrusion layer once the style's vector source is present.
func (c *StyleController) addBuildings(eng ports.MapEngine) {
	if !eng.HasSource(CompositeSource) || eng.HasLayer(BuildingsLayer) {
		return
	}
	if err := eng.AddLayer(buildingsLayer()); err != nil {
		c.logger.Warn("add 3d buildings layer", "error", err)
	}
}
