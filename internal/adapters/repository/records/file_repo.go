package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

const (
	RecordsFile = "deployments.json"
	LockFile    = ".lock"
)

// FileRepository keeps the address records of one network in a JSON file under
// <dataDir>/<network>/. Every write replaces the file atomically.
type FileRepository struct {
	dir     string
	mu      sync.RWMutex
	records map[string]*models.AddressRecord
	lock    *flock.Flock
}

// NewFileRepository opens (or creates) the registry of network under dataDir
func NewFileRepository(dataDir, network string) (*FileRepository, error) {
	if network == "" {
		return nil, fmt.Errorf("registry requires a network name")
	}
	dir := filepath.Join(dataDir, network)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	r := &FileRepository{
		dir:     dir,
		records: make(map[string]*models.AddressRecord),
		lock:    flock.New(filepath.Join(dir, LockFile)),
	}
	if err := r.load(); err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return r, nil
}

// Path returns the location of the records file
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, RecordsFile)
}

// Lock takes the exclusive run lock of this registry and reloads the records
// so the run sees what the previous holder committed.
func (r *FileRepository) Lock(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locked, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire registry lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunLocked, r.lock.Path())
	}
	if err := r.load(); err != nil {
		_ = r.lock.Unlock()
		return nil, fmt.Errorf("failed to reload registry: %w", err)
	}
	return r.lock.Unlock, nil
}

func (r *FileRepository) Get(ctx context.Context, unit string) (*models.AddressRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[unit]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", unit, domain.ErrNotFound)
	}
	return record.Clone(), nil
}

func (r *FileRepository) Put(ctx context.Context, record *models.AddressRecord) error {
	if record == nil || record.UnitName == "" {
		return fmt.Errorf("%w: record has no unit name", domain.ErrInvalidUnit)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.records[record.UnitName]
	r.records[record.UnitName] = merge(previous, record)
	if err := r.save(); err != nil {
		r.restore(record.UnitName, previous)
		return err
	}
	return nil
}

func (r *FileRepository) MarkInitialized(ctx context.Context, unit string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.records[unit]
	if !ok {
		return &domain.UnknownUnitError{Unit: unit}
	}
	if previous.Initialized {
		return nil
	}

	updated := previous.Clone()
	updated.Initialized = true
	r.records[unit] = updated
	if err := r.save(); err != nil {
		r.restore(unit, previous)
		return err
	}
	return nil
}

func (r *FileRepository) List(ctx context.Context) ([]*models.AddressRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedClones(r.records), nil
}

func (r *FileRepository) restore(unit string, previous *models.AddressRecord) {
	if previous == nil {
		delete(r.records, unit)
		return
	}
	r.records[unit] = previous
}

// load replaces the in-memory records with the file contents
func (r *FileRepository) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.Path())
	if os.IsNotExist(err) {
		r.records = make(map[string]*models.AddressRecord)
		return nil
	}
	if err != nil {
		return err
	}

	records := make(map[string]*models.AddressRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse %s: %w", r.Path(), err)
	}
	for name, record := range records {
		if record == nil {
			delete(records, name)
			continue
		}
		record.UnitName = name
	}
	r.records = records
	return nil
}

// save writes the records through a temp file and an atomic rename
func (r *FileRepository) save() error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	tmpPath := r.Path() + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := os.Rename(tmpPath, r.Path()); err != nil {
		return fmt.Errorf("failed to replace records file: %w", err)
	}
	return nil
}

func sortedClones(records map[string]*models.AddressRecord) []*models.AddressRecord {
	out := make([]*models.AddressRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.Clone())
	}
	slices.SortFunc(out, func(a, b *models.AddressRecord) int {
		return strings.Compare(a.UnitName, b.UnitName)
	})
	return out
}
