package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ListingType is the deal type of a listing.
type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

// PlaceholderImage is served when a record has no usable image list.
const PlaceholderImage = "/placeholder-house.jpg"

// PropertyRecord is a listing as delivered by the record feed.
type PropertyRecord struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Slug      string      `json:"slug"`
	Price     int64       `json:"price"`
	Type      ListingType `json:"type"`
	Category  string      `json:"category"`
	Address   string      `json:"address,omitempty"`
	City      string      `json:"city"`
	State     string      `json:"state"`
	Bedrooms  *int        `json:"bedrooms,omitempty"`
	Bathrooms *int        `json:"bathrooms,omitempty"`
	Area      *float64    `json:"area,omitempty"`
	Latitude  Coordinate  `json:"latitude"`
	Longitude Coordinate  `json:"longitude"`
	Images    Images      `json:"images"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
}

// Position returns the record's location and whether both coordinates are usable.
func (p PropertyRecord) Position() (LonLat, bool) {
	if !p.Latitude.Valid() || !p.Longitude.Valid() {
		return LonLat{}, false
	}
	return LonLat{Lon: p.Longitude.Value, Lat: p.Latitude.Value}, true
}

// Normalized returns a copy whose image list is never empty. Records built in code
// (not decoded from JSON) go through this at ingestion.
func (p PropertyRecord) Normalized() PropertyRecord {
	if len(p.Images) == 0 {
		p.Images = Images{PlaceholderImage}
	}
	return p
}

// FirstImage returns the thumbnail for cards and popups.
func (p PropertyRecord) FirstImage() string {
	if len(p.Images) == 0 {
		return PlaceholderImage
	}
	return p.Images[0]
}

// Coordinate is an optional degree value. Legacy rows carry numbers as strings;
// anything that does not parse as a number decodes to an unset coordinate.
type Coordinate struct {
	Value float64
	Set   bool
}

// Coord is a convenience constructor for a present coordinate.
func Coord(v float64) Coordinate {
	return Coordinate{Value: v, Set: true}
}

// Valid reports whether c holds a number.
func (c Coordinate) Valid() bool {
	return c.Set && !math.IsNaN(c.Value)
}

// MarshalJSON encodes unset and NaN coordinates as null.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON never fails: malformed values leave the coordinate unset.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	*c = Coordinate{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*c = Coord(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*c = Coord(f)
	}
	return nil
}

// Images is the normalised image list of a record. It always holds at least one URL
// after decoding.
type Images []string

// UnmarshalJSON accepts a JSON array of URLs or a string holding a JSON-encoded array.
// Everything else, including a bare URL string, decodes to the placeholder.
func (im *Images) UnmarshalJSON(data []byte) error {
	*im = ParseImages(data)
	return nil
}

// ParseImages normalises the raw images field.
func ParseImages(raw []byte) Images {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Images{PlaceholderImage}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return nonEmpty(list)
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return Images{PlaceholderImage}
	}
	return ParseImageString(encoded)
}

// ParseImageString normalises an images value stored as text (the database column).
func ParseImageString(s string) Images {
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return Images{PlaceholderImage}
	}
	return nonEmpty(list)
}

func nonEmpty(list []string) Images {
	if len(list) == 0 {
		return Images{PlaceholderImage}
	}
	return Images(list)
}
