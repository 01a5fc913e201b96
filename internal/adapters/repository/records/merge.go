package records

import "github.com/trebuchet-org/catapult/internal/domain/models"

// merge applies an upsert of incoming over existing. The proxy, implementation
// and block are overwritten; Initialized never goes back to false and the
// creation time of the first record is kept.
func merge(existing, incoming *models.AddressRecord) *models.AddressRecord {
	merged := incoming.Clone()
	if existing == nil {
		return merged
	}
	merged.Initialized = existing.Initialized || incoming.Initialized
	if !existing.CreatedAt.IsZero() {
		merged.CreatedAt = existing.CreatedAt
	}
	return merged
}
