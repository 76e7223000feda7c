// Package explorer is the geospatial exploration engine behind the property map.
// It filters raw listings and keeps the rendered map and the list beside it
// consistent on every state change.
package explorer

import (
	"github.com/mmcloughlin/geohash"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/pkg/geospatial"
)

// CellPrecision is the geohash length attached to features (~150m cells).
const CellPrecision = 7

// WithCoordinates returns the records whose latitude and longitude are both present
// and numeric. Values are not range checked.
func WithCoordinates(records []domain.PropertyRecord) []domain.PropertyRecord {
	out := make([]domain.PropertyRecord, 0, len(records))
	for _, r := range records {
		if _, ok := r.Position(); ok {
			out = append(out, r)
		}
	}
	return out
}

// ApplyFilters runs coordinate validity, the inclusive price range and, when a
// search center is set, the inclusive radius test, in that order. Relative order
// is preserved and the input is not modified.
//
// A state with PriceMin > PriceMax matches nothing.
func ApplyFilters(records []domain.PropertyRecord, state domain.FilterState) []domain.PropertyRecord {
	valid := WithCoordinates(records)

	out := valid[:0]
	for _, r := range valid {
		if r.Price < state.PriceMin || r.Price > state.PriceMax {
			continue
		}
		if state.SearchCenter != nil {
			pos, _ := r.Position()
			if geospatial.DistanceMeters(*state.SearchCenter, pos) > state.SearchRadiusMeters {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// ToFeatures converts filtered records into renderer points. Records without a
// usable position are skipped.
func ToFeatures(records []domain.PropertyRecord) []domain.GeoFeature {
	features := make([]domain.GeoFeature, 0, len(records))
	for _, r := range records {
		pos, ok := r.Position()
		if !ok {
			continue
		}
		features = append(features, domain.GeoFeature{
			ID:          r.ID,
			Title:       r.Title,
			Price:       r.Price,
			Type:        r.Type,
			Category:    r.Category,
			City:        r.City,
			State:       r.State,
			Slug:        r.Slug,
			Cell:        cellOf(pos),
			Coordinates: pos,
		})
	}
	return features
}

// FeatureCollection encodes features as GeoJSON points.
func FeatureCollection(features []domain.GeoFeature) domain.FeatureCollection {
	out := make([]domain.Feature, len(features))
	for i, f := range features {
		out[i] = f.PointFeature()
	}
	return domain.NewFeatureCollection(out)
}

func cellOf(p domain.LonLat) string {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return ""
	}
	return geohash.EncodeWithPrecision(p.Lat, p.Lon, CellPrecision)
}
