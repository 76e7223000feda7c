package explorer_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/explorer"
	"github.com/arboimoveis/mapexplorer/internal/pkg/geospatial"
)

func ids(records []domain.PropertyRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func openState() domain.FilterState {
	s := domain.DefaultFilterState()
	s.PriceMax = math.MaxInt64
	return s
}

func TestWithCoordinates(t *testing.T) {
	noLat := record("no-lat", 1, 1, 0)
	noLat.Latitude = domain.Coordinate{}
	nan := record("nan", math.NaN(), 1, 0)

	records := []domain.PropertyRecord{
		record("origin", 0, 0, 0),
		noLat,
		nan,
		record("out-of-range", 200, 95, 0),
		record("sp", -46.63, -23.55, 0),
	}

	got := explorer.WithCoordinates(records)
	assert.Equal(t, []string{"origin", "out-of-range", "sp"}, ids(got))
}

func TestApplyFilters_PriceBoundaries(t *testing.T) {
	records := []domain.PropertyRecord{
		record("below", 0, 0, 99_999),
		record("min", 0, 0, 100_000),
		record("mid", 0, 0, 150_000),
		record("max", 0, 0, 200_000),
		record("above", 0, 0, 200_001),
	}
	state := openState()
	state.PriceMin, state.PriceMax = 100_000, 200_000

	got := explorer.ApplyFilters(records, state)
	assert.Equal(t, []string{"min", "mid", "max"}, ids(got))
}

func TestApplyFilters_RadiusInclusive(t *testing.T) {
	center := domain.LonLat{}
	target := record("target", 0, 0.01, 0)
	pos, _ := target.Position()
	d := geospatial.DistanceMeters(center, pos)

	state := openState()
	state.SearchCenter = &center

	state.SearchRadiusMeters = d
	assert.Len(t, explorer.ApplyFilters([]domain.PropertyRecord{target}, state), 1)

	state.SearchRadiusMeters = math.Nextafter(d, 0)
	assert.Empty(t, explorer.ApplyFilters([]domain.PropertyRecord{target}, state))
}

func TestApplyFilters_RadiusOnlyWithCenter(t *testing.T) {
	records := []domain.PropertyRecord{record("far", 10, 10, 0)}
	state := openState()
	state.SearchRadiusMeters = 1

	assert.Len(t, explorer.ApplyFilters(records, state), 1)
}

func TestApplyFilters_IdempotentStableAndPure(t *testing.T) {
	records := []domain.PropertyRecord{
		record("c", 0, 0.005, 300),
		record("a", 0, 0, 100),
		record("x", 10, 10, 200),
		record("b", 0, 0.01, 200),
	}
	before := ids(records)

	state := openState()
	state.PriceMax = 250
	center := domain.LonLat{}
	state.SearchCenter = &center
	state.SearchRadiusMeters = 2000

	once := explorer.ApplyFilters(records, state)
	twice := explorer.ApplyFilters(once, state)

	assert.Equal(t, []string{"a", "b"}, ids(once))
	assert.Equal(t, ids(once), ids(twice))
	assert.Equal(t, before, ids(records), "input must not be modified")
}

func TestApplyFilters_MinAboveMaxMatchesNothing(t *testing.T) {
	state := openState()
	state.PriceMin, state.PriceMax = 500, 100

	got := explorer.ApplyFilters([]domain.PropertyRecord{record("p", 0, 0, 300)}, state)
	assert.Empty(t, got)
}

func TestToFeatures_CarriesDisplayFieldsAndCell(t *testing.T) {
	r := record("p1", -46.6333, -23.5505, 750_000)
	feats := explorer.ToFeatures([]domain.PropertyRecord{r})
	require.Len(t, feats, 1)

	f := feats[0]
	assert.Equal(t, "p1", f.ID)
	assert.Equal(t, int64(750_000), f.Price)
	assert.Equal(t, "casa-p1", f.Slug)
	assert.Equal(t, domain.LonLat{Lon: -46.6333, Lat: -23.5505}, f.Coordinates)
	assert.Len(t, f.Cell, explorer.CellPrecision)
	assert.True(t, strings.HasPrefix(f.Cell, "6gy"), "cell %q", f.Cell)

	out := explorer.ToFeatures([]domain.PropertyRecord{record("odd", 200, 95, 0)})
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Cell)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "R$\u00a00", explorer.FormatPrice(0))
	assert.Equal(t, "R$\u00a0950", explorer.FormatPrice(950))
	assert.Equal(t, "R$\u00a01.250.000", explorer.FormatPrice(1_250_000))
}

func TestPopupHTML(t *testing.T) {
	r := record("p1", 0, 0, 450_000)
	r.Category = ""
	r.Title = `<b>Casa</b>`
	r.Images = domain.Images{"https://cdn.example.com/1.jpg"}

	html := explorer.PopupHTML(r)
	assert.Contains(t, html, explorer.DefaultCategory)
	assert.Contains(t, html, "https://cdn.example.com/1.jpg")
	assert.Contains(t, html, "São Paulo - SP")
	assert.Contains(t, html, "R$\u00a0450.000")
	assert.Contains(t, html, "&lt;b&gt;Casa&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Casa</b>")
}
