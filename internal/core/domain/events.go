package domain

import "time"

// ListingsRefreshed announces that the record feed changed and live explorers
// should fetch it again.
type ListingsRefreshed struct {
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	Refreshed time.Time `json:"refreshed_at"`
}

// ListCard is one entry of the list shown beside the map.
type ListCard struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Price     int64    `json:"price"`
	PriceText string   `json:"price_text"`
	Type      string   `json:"type"`
	Category  string   `json:"category"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Image     string   `json:"image"`
	Bedrooms  *int     `json:"bedrooms,omitempty"`
	Bathrooms *int     `json:"bathrooms,omitempty"`
	Area      *float64 `json:"area,omitempty"`
}

// ListSnapshot is what the list half of the explorer shows. Count is the filtered
// set; Total and WithCoordinates describe the records it was filtered from.
type ListSnapshot struct {
	Count           int        `json:"count"`
	Total           int        `json:"total"`
	WithCoordinates int        `json:"with_coordinates"`
	Cards           []ListCard `json:"cards"`
}
