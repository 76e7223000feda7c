package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
)

// coordinateField resolves an optional coordinate to null when unset.
func coordinateField(get func(domain.PropertyRecord) domain.Coordinate) *graphql.Field {
	return &graphql.Field{
		Type: graphql.Float,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			r, ok := p.Source.(domain.PropertyRecord)
			if !ok {
				return nil, nil
			}
			if c := get(r); c.Valid() {
				return c.Value, nil
			}
			return nil, nil
		},
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	propertyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Property",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"title":     &graphql.Field{Type: graphql.String},
			"slug":      &graphql.Field{Type: graphql.String},
			"price":     &graphql.Field{Type: graphql.Float},
			"type":      &graphql.Field{Type: graphql.String},
			"category":  &graphql.Field{Type: graphql.String},
			"address":   &graphql.Field{Type: graphql.String},
			"city":      &graphql.Field{Type: graphql.String},
			"state":     &graphql.Field{Type: graphql.String},
			"bedrooms":  &graphql.Field{Type: graphql.Int},
			"bathrooms": &graphql.Field{Type: graphql.Int},
			"area":      &graphql.Field{Type: graphql.Float},
			"latitude":  coordinateField(func(r domain.PropertyRecord) domain.Coordinate {
				return r.Latitude
			}),
			"longitude": coordinateField(func(r domain.PropertyRecord) domain.Coordinate {
				return r.Longitude
			}),
			"images": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, ok := p.Source.(domain.PropertyRecord)
					if !ok {
						return nil, nil
					}
					return []string(r.Normalized().Images), nil
				},
			},
			"created_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, ok := p.Source.(domain.PropertyRecord)
					if !ok || r.CreatedAt.IsZero() {
						return nil, nil
					}
					return r.CreatedAt.UTC().Format(time.RFC3339), nil
				},
			},
		},
	})

	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PropertyPoint",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"title":       &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"price":       &graphql.Field{Type: graphql.Float},
			"type":        &graphql.Field{Type: graphql.String},
			"category":    &graphql.Field{Type: graphql.String},
			"city":        &graphql.Field{Type: graphql.String},
			"state":       &graphql.Field{Type: graphql.String},
			"cell":        &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: geoPointType},
		},
	})

	searchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PropertySearch",
		Fields: graphql.Fields{
			"count":  &graphql.Field{Type: graphql.Int},
			"points": &graphql.Field{
				Type: graphql.NewList(pointType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res, ok := p.Source.(*usecases.SearchResult)
					if !ok {
						return nil, nil
					}
					return res.Points, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"properties": &graphql.Field{
				Type:        graphql.NewList(propertyType),
				Description: "Newest listings, the feed explorers start from",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultFeedLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return deps.Properties.List(p.Context, limit)
				},
			},
			"searchProperties": &graphql.Field{
				Type:        searchType,
				Description: "Listings within a radius of a point and inside a price range",
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: domain.DefaultSearchRadius},
					"minPrice": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"maxPrice": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Properties.Search(p.Context, usecases.SearchQuery{
						Center: domain.LonLat{
							Lon: p.Args["lon"].(float64),
							Lat: p.Args["lat"].(float64),
						},
						RadiusMeters: p.Args["radius"].(float64),
						MinPrice:     int64(p.Args["minPrice"].(float64)),
						MaxPrice:     int64(p.Args["maxPrice"].(float64)),
					})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
