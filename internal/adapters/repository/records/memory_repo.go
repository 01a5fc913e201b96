package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// MemoryRepository is a registry that lives for the duration of the process.
// It backs dry runs and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*models.AddressRecord
	locked  bool
}

// NewMemoryRepository returns a registry seeded with copies of records
func NewMemoryRepository(records ...*models.AddressRecord) *MemoryRepository {
	m := &MemoryRepository{records: make(map[string]*models.AddressRecord)}
	for _, record := range records {
		m.records[record.UnitName] = record.Clone()
	}
	return m
}

// Lock takes the in-process run lock
func (m *MemoryRepository) Lock(ctx context.Context) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil, domain.ErrRunLocked
	}
	m.locked = true
	return func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.locked = false
		return nil
	}, nil
}

func (m *MemoryRepository) Get(ctx context.Context, unit string) (*models.AddressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[unit]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", unit, domain.ErrNotFound)
	}
	return record.Clone(), nil
}

func (m *MemoryRepository) Put(ctx context.Context, record *models.AddressRecord) error {
	if record == nil || record.UnitName == "" {
		return fmt.Errorf("%w: record has no unit name", domain.ErrInvalidUnit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.UnitName] = merge(m.records[record.UnitName], record)
	return nil
}

func (m *MemoryRepository) MarkInitialized(ctx context.Context, unit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[unit]
	if !ok {
		return &domain.UnknownUnitError{Unit: unit}
	}
	record.Initialized = true
	return nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]*models.AddressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedClones(m.records), nil
}
