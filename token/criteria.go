package token

import (
	"time"

	"contractvm/core"
)

// maxAllocationAge is the 730-day ceiling spec.md §4.6 places on
// AllocationCriteria.MaxAge (2 * 365 days, matching the original's
// 3600 * 24 * 365 * 2 seconds).
const maxAllocationAge = 2 * 365 * 24 * time.Hour

// AllocationCriteria describes how often, and for how long, a contract
// expects its tokens to be re-issued (spec.md §4.6). Grounded on
// AllocationCriteria in
// original_source/modules/antiflood-tokens/interfaces/src/lib.rs.
type AllocationCriteria struct {
	Frequency Tier
	MaxAge    time.Duration
	Contract  core.ContractKey
}

// NewAllocationCriteria validates maxAge against the 730-day ceiling
// before constructing a criteria value.
func NewAllocationCriteria(frequency Tier, maxAge time.Duration, contract core.ContractKey) (AllocationCriteria, error) {
	if maxAge > maxAllocationAge {
		return AllocationCriteria{}, NewIncorrectMaxAgeError()
	}
	return AllocationCriteria{Frequency: frequency, MaxAge: maxAge, Contract: contract}, nil
}
