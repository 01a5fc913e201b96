package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// ShowRecord is the use case for showing one registry record
type ShowRecord struct {
	registry AddressRegistry
	selector RecordSelector
	sink     ProgressSink
}

// NewShowRecord creates a new ShowRecord use case
func NewShowRecord(registry AddressRegistry, selector RecordSelector, sink ProgressSink) *ShowRecord {
	return &ShowRecord{registry: registry, selector: selector, sink: sink}
}

// Run returns the record of unit. With an empty unit the caller picks one
// interactively.
func (uc *ShowRecord) Run(ctx context.Context, unit string) (*models.AddressRecord, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading address record",
		Spinner: true,
	})

	if unit != "" {
		record, err := uc.registry.Get(ctx, unit)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.UnknownUnitError{Unit: unit}
		}
		return record, err
	}

	if uc.selector == nil {
		return nil, fmt.Errorf("a unit name is required in non-interactive mode")
	}
	records, err := uc.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: the registry is empty", domain.ErrNotFound)
	}
	return uc.selector.SelectRecord(ctx, records, "Select a unit")
}
