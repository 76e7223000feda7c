package scene

import (
	"math"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// TileSize is the pixel size of one world tile at zoom 0.
const TileSize = 512

const maxMercatorLat = 85.051129

// mercX and mercY map a position into [0,1] Web-Mercator space.
func mercX(lon float64) float64 {
	return lon/360 + 0.5
}

func mercY(lat float64) float64 {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	return math.Max(0, math.Min(1, y))
}

func mercLon(x float64) float64 {
	return (x - 0.5) * 360
}

func mercLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}

func worldSize(zoom float64) float64 {
	return TileSize * math.Pow(2, zoom)
}

// viewport converts between screen pixels and positions for a north-up,
// untilted camera. Pitch and bearing are ignored in hit tests.
type viewport struct {
	camera ports.Camera
	width  float64
	height float64
}

func (v viewport) project(p domain.LonLat) ports.ScreenPoint {
	ws := worldSize(v.camera.Zoom)
	cx, cy := mercX(v.camera.Center.Lon)*ws, mercY(v.camera.Center.Lat)*ws
	return ports.ScreenPoint{
		X: mercX(p.Lon)*ws - cx + v.width/2,
		Y: mercY(p.Lat)*ws - cy + v.height/2,
	}
}

func (v viewport) unproject(s ports.ScreenPoint) domain.LonLat {
	ws := worldSize(v.camera.Zoom)
	cx, cy := mercX(v.camera.Center.Lon)*ws, mercY(v.camera.Center.Lat)*ws
	x := (s.X - v.width/2 + cx) / ws
	y := (s.Y - v.height/2 + cy) / ws
	return domain.LonLat{Lon: mercLon(x), Lat: mercLat(y)}
}

// pointInRing reports whether p lies inside ring (even-odd rule).
func pointInRing(p domain.LonLat, ring []domain.LonLat) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) &&
			p.Lon < (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat)+a.Lon {
			inside = !inside
		}
	}
	return inside
}
