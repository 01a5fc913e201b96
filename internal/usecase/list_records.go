package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// ListRecordsParams filters the registry listing
type ListRecordsParams struct {
	// Contract keeps records whose contract or unit name contains this string
	Contract string
	// Pending keeps only records whose initializer has not been confirmed
	Pending bool
	// Verify checks every listed record against the chain
	Verify bool
}

// RecordListResult is the outcome of ListRecords
type RecordListResult struct {
	Network string
	Records []*models.AddressRecord
	// Stale maps unit names to the reason their record no longer matches
	// the chain. Only filled when verifying.
	Stale   map[string]string
	Summary RecordSummary
}

// RecordSummary counts listed records
type RecordSummary struct {
	Total         int
	Uninitialized int
	Stale         int
}

// ListRecords is the use case for listing registry records
type ListRecords struct {
	network  string
	registry AddressRegistry
	checker  ChainChecker
	sink     ProgressSink
}

// NewListRecords creates a new ListRecords use case
func NewListRecords(cfg *config.RuntimeConfig, registry AddressRegistry, checker ChainChecker, sink ProgressSink) *ListRecords {
	uc := &ListRecords{registry: registry, checker: checker, sink: sink}
	if cfg != nil && cfg.Network != nil {
		uc.network = cfg.Network.Name
	}
	return uc
}

// Run executes the list records use case
func (uc *ListRecords) Run(ctx context.Context, params ListRecordsParams) (*RecordListResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading address records",
		Spinner: true,
	})

	all, err := uc.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	records := lo.Filter(all, func(r *models.AddressRecord, _ int) bool {
		if params.Contract != "" && !matchesName(r, params.Contract) {
			return false
		}
		return !params.Pending || !r.Initialized
	})

	result := &RecordListResult{
		Network: uc.network,
		Records: records,
		Summary: RecordSummary{
			Total:         len(records),
			Uninitialized: lo.CountBy(records, func(r *models.AddressRecord) bool { return !r.Initialized }),
		},
	}

	if params.Verify {
		if err := uc.verify(ctx, result); err != nil {
			return nil, err
		}
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: len(records),
		Total:   len(records),
		Message: "Records loaded",
	})

	return result, nil
}

func (uc *ListRecords) verify(ctx context.Context, result *RecordListResult) error {
	if uc.checker == nil {
		return fmt.Errorf("verification needs a connection to the network")
	}

	result.Stale = make(map[string]string)
	for i, record := range result.Records {
		uc.sink.OnProgress(ctx, ProgressEvent{
			Stage:   "verifying",
			Current: i + 1,
			Total:   len(result.Records),
			Message: fmt.Sprintf("Checking %s on chain", record.UnitName),
			Spinner: true,
		})
		ok, reason, err := uc.checker.CheckRecord(ctx, record)
		if err != nil {
			return fmt.Errorf("verify %s: %w", record.UnitName, err)
		}
		if !ok {
			result.Stale[record.UnitName] = reason
		}
	}
	result.Summary.Stale = len(result.Stale)
	return nil
}

func matchesName(r *models.AddressRecord, filter string) bool {
	filter = strings.ToLower(filter)
	return strings.Contains(strings.ToLower(r.Contract), filter) ||
		strings.Contains(strings.ToLower(r.UnitName), filter)
}
