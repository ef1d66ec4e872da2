package manufacturer

import (
	"context"
	"sync"

	"mfgverify/internal/registry/models"
	"mfgverify/pkg/domain"
	"mfgverify/pkg/platform/sentinel"
)

// InMemory is the keyed manufacturer store. Records are copied on the way
// in and out so callers never share memory with the store.
type InMemory struct {
	mu            sync.RWMutex
	manufacturers map[domain.ManufacturerID]models.Manufacturer
}

func NewInMemory() *InMemory {
	return &InMemory{manufacturers: make(map[domain.ManufacturerID]models.Manufacturer)}
}

// CreateIfAbsent inserts m unless its ID is taken, in which case the stored
// record is left untouched and sentinel.ErrAlreadyExists is returned.
func (s *InMemory) CreateIfAbsent(_ context.Context, m *models.Manufacturer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manufacturers[m.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.manufacturers[m.ID] = *m
	return nil
}

// Lookup returns a copy of the record for id.
func (s *InMemory) Lookup(_ context.Context, id domain.ManufacturerID) (*models.Manufacturer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manufacturers[id]
	if !ok {
		return nil, false
	}
	return &m, true
}

// Update replaces an existing record.
func (s *InMemory) Update(_ context.Context, m *models.Manufacturer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manufacturers[m.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.manufacturers[m.ID] = *m
	return nil
}

// Count returns the number of registered and verified records.
func (s *InMemory) Count(_ context.Context) (total, verified int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.manufacturers {
		total++
		if m.Verified {
			verified++
		}
	}
	return total, verified
}
