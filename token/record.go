package token

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"contractvm/core"
)

func unixSeconds(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// TokenAllocationRecord is the per-contract ledger of issued token slots,
// partitioned by Tier and sorted by TimeSlot within each tier (spec.md
// §4.6). Grounded on TokenAllocationRecord in
// original_source/modules/antiflood-tokens/interfaces/src/lib.rs. Encoded
// as JSON over the wire (core.State/core.StateDelta/core.StateSummary) —
// see SPEC_FULL.md §5 for why no third-party binary codec from the
// examples fits this concern.
type TokenAllocationRecord struct {
	tokensByTier map[Tier][]TokenAssignment
}

// New builds a record from a tier->assignments map, sorting each tier's
// assignments by TimeSlot (the original's TokenAllocationRecord::new sorts
// with sort_unstable on construction).
func New(tokens map[Tier][]TokenAssignment) *TokenAllocationRecord {
	r := &TokenAllocationRecord{tokensByTier: make(map[Tier][]TokenAssignment, len(tokens))}
	for tier, assignments := range tokens {
		cp := append([]TokenAssignment(nil), assignments...)
		sortByTimeSlot(cp)
		r.tokensByTier[tier] = cp
	}
	return r
}

func sortByTimeSlot(assignments []TokenAssignment) {
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].TimeSlot.Before(assignments[j].TimeSlot)
	})
}

// GetTier returns the sorted assignments for tier, or nil if none are
// recorded.
func (r *TokenAllocationRecord) GetTier(tier Tier) []TokenAssignment {
	return r.tokensByTier[tier]
}

// Insert replaces the assignment list for tier wholesale. Callers that
// want conflict detection against existing assignments should use Merge
// instead.
func (r *TokenAllocationRecord) Insert(tier Tier, assignments []TokenAssignment) {
	if r.tokensByTier == nil {
		r.tokensByTier = make(map[Tier][]TokenAssignment)
	}
	cp := append([]TokenAssignment(nil), assignments...)
	sortByTimeSlot(cp)
	r.tokensByTier[tier] = cp
}

// TokenAllocationSummary is the compact, peer-exchangeable digest of a
// record: per tier, the sorted list of assigned slot timestamps (Unix
// seconds) with no other assignment detail (spec.md §4.7). Grounded on
// TokenAllocationSummary in the same original_source file.
type TokenAllocationSummary struct {
	byTier map[Tier][]int64
}

// Summarize produces the peer-exchangeable summary of r: each tier's
// assignments reduced to their sorted Unix-second timestamps.
func (r *TokenAllocationRecord) Summarize() *TokenAllocationSummary {
	out := make(map[Tier][]int64, len(r.tokensByTier))
	for tier, assignments := range r.tokensByTier {
		ts := make([]int64, len(assignments))
		for i, a := range assignments {
			ts[i] = a.TimeSlot.Unix()
		}
		out[tier] = ts
	}
	return &TokenAllocationSummary{byTier: out}
}

// Delta returns the assignments in r that a peer holding summary is
// missing: for every tier present in summary, the assignments whose
// timestamp doesn't appear in the peer's sorted list (found via binary
// search, mirroring the original's delta). Tiers r has but summary lacks
// entirely are not included, matching the original's iteration over
// summary's tiers.
func (r *TokenAllocationRecord) Delta(summary *TokenAllocationSummary) *TokenAllocationRecord {
	delta := make(map[Tier][]TokenAssignment)
	for tier, peerTimestamps := range summary.byTier {
		assigned, ok := r.tokensByTier[tier]
		if !ok {
			continue
		}
		var missing []TokenAssignment
		for _, a := range assigned {
			if !containsSorted(peerTimestamps, a.TimeSlot.Unix()) {
				missing = append(missing, a)
			}
		}
		delta[tier] = missing
	}
	return &TokenAllocationRecord{tokensByTier: delta}
}

func containsSorted(sorted []int64, v int64) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= v })
	return i < len(sorted) && sorted[i] == v
}

// AssignmentExists reports whether record's exact (tier, time_slot,
// assignee, signature, hash, token_record) tuple is already present in r.
func (r *TokenAllocationRecord) AssignmentExists(record TokenAssignment) bool {
	assignments, ok := r.tokensByTier[record.Tier]
	if !ok {
		return false
	}
	idx := sort.Search(len(assignments), func(i int) bool {
		return !assignments[i].TimeSlot.Before(record.TimeSlot)
	})
	if idx >= len(assignments) || !assignments[idx].TimeSlot.Equal(record.TimeSlot) {
		return false
	}
	return assignments[idx].Equal(record)
}

// Merge unions other into r in place, inserting each of other's
// assignments in sorted position. spec.md §9 flags this as an operation
// implementers should expose explicitly for CRDT-style state reconciliation
// rather than leaving callers to reimplement it over Insert/GetTier; it has
// no analogue in the original source. Two distinct assignments claiming
// the same (tier, time_slot) are a conflict: Merge stops and returns the
// AllocatedSlot error from the first one it finds, leaving r unmodified for
// that tier's remaining entries beyond the conflict.
func (r *TokenAllocationRecord) Merge(other *TokenAllocationRecord) error {
	if r.tokensByTier == nil {
		r.tokensByTier = make(map[Tier][]TokenAssignment)
	}
	for tier, incoming := range other.tokensByTier {
		existing := r.tokensByTier[tier]
		for _, a := range incoming {
			idx := sort.Search(len(existing), func(i int) bool {
				return !existing[i].TimeSlot.Before(a.TimeSlot)
			})
			if idx < len(existing) && existing[idx].TimeSlot.Equal(a.TimeSlot) {
				if existing[idx].Equal(a) {
					continue
				}
				r.tokensByTier[tier] = existing
				return NewAllocatedSlotError(a)
			}
			existing = append(existing, TokenAssignment{})
			copy(existing[idx+1:], existing[idx:])
			existing[idx] = a
		}
		r.tokensByTier[tier] = existing
	}
	return nil
}

// MarshalDelta encodes r as a core.StateDelta blob, using the same wire
// shape as MarshalState — a delta is structurally just a (usually sparser)
// record (spec.md §4.7).
func (r *TokenAllocationRecord) MarshalDelta() (core.StateDelta, error) {
	state, err := r.MarshalState()
	if err != nil {
		return nil, err
	}
	return core.StateDelta(state), nil
}

// UnmarshalRecordDelta decodes a core.StateDelta blob produced by
// MarshalDelta.
func UnmarshalRecordDelta(delta core.StateDelta) (*TokenAllocationRecord, error) {
	return UnmarshalRecordState(core.State(delta))
}

// jsonRecord/jsonSummary are the wire shapes used for JSON (de)serialization,
// since Tier's map keys need to round-trip through their string form.
type jsonRecord map[string][]jsonAssignment

type jsonAssignment struct {
	Tier           string `json:"tier"`
	TimeSlot       int64  `json:"time_slot"`
	Assignee       []byte `json:"assignee"`
	Signature      []byte `json:"signature"`
	AssignmentHash []byte `json:"assignment_hash"`
	TokenRecord    string `json:"token_record"`
}

// MarshalState encodes r as a core.State blob.
func (r *TokenAllocationRecord) MarshalState() (core.State, error) {
	out := make(jsonRecord, len(r.tokensByTier))
	for tier, assignments := range r.tokensByTier {
		list := make([]jsonAssignment, len(assignments))
		for i, a := range assignments {
			list[i] = jsonAssignment{
				Tier:           tier.String(),
				TimeSlot:       a.TimeSlot.Unix(),
				Assignee:       a.Assignee,
				Signature:      a.Signature,
				AssignmentHash: a.AssignmentHash[:],
				TokenRecord:    a.TokenRecord.String(),
			}
		}
		out[tier.String()] = list
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("token: marshal record: %w", err)
	}
	return core.State(b), nil
}

// UnmarshalRecordState decodes a core.State blob produced by MarshalState.
func UnmarshalRecordState(state core.State) (*TokenAllocationRecord, error) {
	var raw jsonRecord
	if err := json.Unmarshal(state, &raw); err != nil {
		return nil, fmt.Errorf("token: unmarshal record: %w", err)
	}
	tokens := make(map[Tier][]TokenAssignment, len(raw))
	for name, list := range raw {
		tier, err := parseTierName(name)
		if err != nil {
			return nil, err
		}
		assignments := make([]TokenAssignment, len(list))
		for i, ja := range list {
			key, err := core.DecodeContractKey(ja.TokenRecord)
			if err != nil {
				return nil, fmt.Errorf("token: decode token_record: %w", err)
			}
			var hash TokenAssignmentHash
			copy(hash[:], ja.AssignmentHash)
			assignments[i] = TokenAssignment{
				Tier:           tier,
				TimeSlot:       unixSeconds(ja.TimeSlot),
				Assignee:       ja.Assignee,
				Signature:      ja.Signature,
				AssignmentHash: hash,
				TokenRecord:    key,
			}
		}
		tokens[tier] = assignments
	}
	return New(tokens), nil
}

// MarshalSummary encodes s as a core.StateSummary blob.
func (s *TokenAllocationSummary) MarshalSummary() (core.StateSummary, error) {
	out := make(map[string][]int64, len(s.byTier))
	for tier, ts := range s.byTier {
		out[tier.String()] = ts
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("token: marshal summary: %w", err)
	}
	return core.StateSummary(b), nil
}

// UnmarshalSummary decodes a core.StateSummary blob produced by
// MarshalSummary.
func UnmarshalSummary(summary core.StateSummary) (*TokenAllocationSummary, error) {
	var raw map[string][]int64
	if err := json.Unmarshal(summary, &raw); err != nil {
		return nil, fmt.Errorf("token: unmarshal summary: %w", err)
	}
	byTier := make(map[Tier][]int64, len(raw))
	for name, ts := range raw {
		tier, err := parseTierName(name)
		if err != nil {
			return nil, err
		}
		byTier[tier] = ts
	}
	return &TokenAllocationSummary{byTier: byTier}, nil
}

func parseTierName(name string) (Tier, error) {
	for tier, n := range tierNames {
		if n == name {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("token: unknown tier name %q", name)
}
