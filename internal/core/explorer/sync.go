package explorer

import (
	"sync"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// ListSynchronizer holds the list shown beside the map. It is fed the same
// filtered records the map was rebuilt from.
type ListSynchronizer struct {
	mu      sync.Mutex
	current domain.ListSnapshot
	subs    map[int]func(domain.ListSnapshot)
	nextSub int
}

// NewListSynchronizer creates an empty synchronizer.
func NewListSynchronizer() *ListSynchronizer {
	return &ListSynchronizer{
		current: domain.ListSnapshot{Cards: []domain.ListCard{}},
		subs:    make(map[int]func(domain.ListSnapshot)),
	}
}

// Publish replaces the list with the filtered records and notifies subscribers.
// total and located count the raw records and those with coordinates.
// Subscribers run synchronously and must not block.
func (s *ListSynchronizer) Publish(records []domain.PropertyRecord, total, located int) domain.ListSnapshot {
	snap := domain.ListSnapshot{
		Count:           len(records),
		Total:           total,
		WithCoordinates: located,
		Cards:           make([]domain.ListCard, len(records)),
	}
	for i, r := range records {
		snap.Cards[i] = Card(r)
	}

	s.mu.Lock()
	s.current = snap
	subs := make([]func(domain.ListSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Snapshot returns the current list.
func (s *ListSynchronizer) Snapshot() domain.ListSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers fn for every future Publish. The returned func unsubscribes.
func (s *ListSynchronizer) Subscribe(fn func(domain.ListSnapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Card builds the list entry for r.
func Card(r domain.PropertyRecord) domain.ListCard {
	return domain.ListCard{
		ID:        r.ID,
		Title:     r.Title,
		Slug:      r.Slug,
		Price:     r.Price,
		PriceText: FormatPrice(r.Price),
		Type:      string(r.Type),
		Category:  r.Category,
		City:      r.City,
		State:     r.State,
		Image:     r.FirstImage(),
		Bedrooms:  r.Bedrooms,
		Bathrooms: r.Bathrooms,
		Area:      r.Area,
	}
}
