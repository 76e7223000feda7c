package domain

// LonLat is a WGS 84 coordinate in longitude, latitude order (the order map engines use).
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Coordinates returns the GeoJSON position [lon, lat].
func (p LonLat) Coordinates() []float64 {
	return []float64{p.Lon, p.Lat}
}

// ClosedRing is a polygon ring whose first and last vertices coincide.
type ClosedRing []LonLat

// Closed reports whether the ring has at least one vertex and ends where it starts.
func (r ClosedRing) Closed() bool {
	return len(r) > 0 && r[0] == r[len(r)-1]
}

// Coordinates returns the ring as GeoJSON positions.
func (r ClosedRing) Coordinates() [][]float64 {
	out := make([][]float64, len(r))
	for i, p := range r {
		out[i] = p.Coordinates()
	}
	return out
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}
