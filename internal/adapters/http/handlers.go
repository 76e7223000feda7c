package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
)

// FeedStats describes the record feed behind the explorers.
type FeedStats struct {
	Listings int `json:"listings"`
	Sessions int `json:"sessions"`
}

// SearchResponse is the radius search result.
type SearchResponse struct {
	Count    int                      `json:"count"`
	Features domain.FeatureCollection `json:"features"`
}

// PropertyFeedHandler returns the newest listings as a bare JSON array, the shape
// browser explorers load on start.
func PropertyFeedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", usecases.DefaultFeedLimit)

		records, err := deps.Properties.List(c.UserContext(), limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(records)
	}
}

// ListPropertiesHandler returns one page of listings with pagination metadata.
func ListPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", usecases.DefaultFeedLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > usecases.MaxFeedLimit {
			limit = usecases.DefaultFeedLimit
		}

		records, total, err := deps.Properties.Page(c.UserContext(), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: records, Pagination: pg})
	}
}

// SearchPropertiesHandler returns listings within a radius of a point and inside a
// price range, as GeoJSON.
func SearchPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// lat/lon of 0 are valid, so presence is checked on the raw strings.
		latStr, lonStr := c.Query("lat"), c.Query("lon")
		if latStr == "" || lonStr == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return errBadRequest(c, "lon must be a number")
		}

		minPrice, err := queryPrice(c, "min_price")
		if err != nil {
			return errBadRequest(c, "min_price must be an integer")
		}
		maxPrice, err := queryPrice(c, "max_price")
		if err != nil {
			return errBadRequest(c, "max_price must be an integer")
		}

		res, err := deps.Properties.Search(c.UserContext(), usecases.SearchQuery{
			Center:       domain.LonLat{Lon: lon, Lat: lat},
			RadiusMeters: c.QueryFloat("radius", domain.DefaultSearchRadius),
			MinPrice:     minPrice,
			MaxPrice:     maxPrice,
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(SearchResponse{Count: res.Count, Features: res.FeatureCollection()})
	}
}

// FeedStatsHandler returns the listing count and the live sessions of this instance.
func FeedStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Properties == nil {
			return errUnavailable(c, "listing store not available")
		}

		n, err := deps.Properties.Count(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		stats := FeedStats{Listings: n}
		if deps.Explorers != nil {
			stats.Sessions = deps.Explorers.Len()
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

func queryPrice(c *fiber.Ctx, key string) (int64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
