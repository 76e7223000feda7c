package geospatial

import (
	"math"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// DefaultSteps is the vertex count used for search circles.
const DefaultSteps = 64

const (
	kmPerDegreeLat = 110.54
	kmPerDegreeLon = 111.32 // at the equator, scaled by cos(lat)
)

// RadiusPolygon approximates a circle around center with a closed ring of steps+1
// vertices. It offsets on a local equirectangular plane rather than along geodesics,
// which is accurate enough for radii of a few kilometres away from the poles.
func RadiusPolygon(center domain.LonLat, radiusMeters float64, steps int) domain.ClosedRing {
	if steps <= 0 {
		steps = DefaultSteps
	}
	radiusKm := radiusMeters / 1000
	lonScale := kmPerDegreeLon * math.Cos(toRad(center.Lat))

	ring := make(domain.ClosedRing, 0, steps+1)
	for i := 0; i < steps; i++ {
		angle := float64(i) / float64(steps) * 2 * math.Pi
		dx := radiusKm * math.Cos(angle)
		dy := radiusKm * math.Sin(angle)
		ring = append(ring, domain.LonLat{
			Lon: center.Lon + dx/lonScale,
			Lat: center.Lat + dy/kmPerDegreeLat,
		})
	}
	return append(ring, ring[0])
}
