package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

const propertyColumns = `
	id, title, slug, price, listing_type, COALESCE(category, ''), COALESCE(address, ''),
	COALESCE(city, ''), COALESCE(state, ''), bedrooms, bathrooms, area,
	latitude, longitude, COALESCE(images, ''), created_at`

// PropertyRepo implements ports.PropertyRepository with pgx.
type PropertyRepo struct {
	db *DB
}

// NewPropertyRepo creates a new PropertyRepo.
func NewPropertyRepo(db *DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

// List returns listings newest first.
func (r *PropertyRepo) List(ctx context.Context, offset, limit int) ([]domain.PropertyRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}

// FindInBounds returns listings whose coordinates fall inside b. Rows without
// coordinates never match.
func (r *PropertyRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.PropertyRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at DESC, id
		LIMIT $5
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, limit)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}

// Count returns the number of stored listings.
func (r *PropertyRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n)
	return n, err
}

// UpsertBatch inserts or updates many listings using pgx.Batch.
func (r *PropertyRepo) UpsertBatch(ctx context.Context, records []domain.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range records {
		images, err := json.Marshal(p.Normalized().Images)
		if err != nil {
			return fmt.Errorf("encode images of %s: %w", p.ID, err)
		}
		batch.Queue(`
			INSERT INTO properties (id, title, slug, price, listing_type, category, address, city, state,
			                        bedrooms, bathrooms, area, latitude, longitude, images)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title, slug = EXCLUDED.slug, price = EXCLUDED.price,
			    listing_type = EXCLUDED.listing_type, category = EXCLUDED.category,
			    address = EXCLUDED.address, city = EXCLUDED.city, state = EXCLUDED.state,
			    bedrooms = EXCLUDED.bedrooms, bathrooms = EXCLUDED.bathrooms, area = EXCLUDED.area,
			    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			    images = EXCLUDED.images, updated_at = NOW()
		`, p.ID, p.Title, p.Slug, p.Price, string(p.Type), p.Category, p.Address, p.City, p.State,
			p.Bedrooms, p.Bathrooms, p.Area, nullable(p.Latitude), nullable(p.Longitude), string(images))
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func collectProperties(rows pgx.Rows) ([]domain.PropertyRecord, error) {
	defer rows.Close()

	var out []domain.PropertyRecord
	for rows.Next() {
		var (
			p        domain.PropertyRecord
			kind     string
			lat, lon *float64
			images   string
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Slug, &p.Price, &kind, &p.Category, &p.Address,
			&p.City, &p.State, &p.Bedrooms, &p.Bathrooms, &p.Area,
			&lat, &lon, &images, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Type = domain.ListingType(kind)
		p.Latitude = coordinate(lat)
		p.Longitude = coordinate(lon)
		p.Images = domain.ParseImageString(images)
		out = append(out, p)
	}
	return out, rows.Err()
}

func coordinate(v *float64) domain.Coordinate {
	if v == nil {
		return domain.Coordinate{}
	}
	return domain.Coord(*v)
}

func nullable(c domain.Coordinate) *float64 {
	if !c.Valid() {
		return nil
	}
	v := c.Value
	return &v
}
